package realtime

import (
	"encoding/json"
	"strconv"
	"time"
)

type EventType string

const (
	EventTyping  EventType = "typing"
	EventMessage EventType = "message"
)

// Envelope is the frame every socket receives.
type Envelope struct {
	Type    EventType `json:"type"`
	Content any       `json:"content"`
}

type TypingPayload struct {
	AvatarID int64 `json:"avatar_id"`
}

type PhotoPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type SenderPayload struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	IsOnline bool          `json:"is_online"`
	IsAvatar bool          `json:"is_avatar"`
	Photo    *PhotoPayload `json:"photo,omitempty"`
}

type MessagePayload struct {
	ID              int64         `json:"id"`
	Text            *string       `json:"text,omitempty"`
	Photo           *PhotoPayload `json:"photo,omitempty"`
	UnreadMark      bool          `json:"unread_mark"`
	LimitDailyImage bool          `json:"limit_daily_image"`
	CreatedAt       time.Time     `json:"created_at"`
	FromUser        SenderPayload `json:"from_user"`
}

// UserChannel is the bus channel carrying every frame for userID.
func UserChannel(userID int64) string {
	return "user_" + strconv.FormatInt(userID, 10)
}

func Encode(t EventType, content any) ([]byte, error) {
	return json.Marshal(Envelope{Type: t, Content: content})
}
