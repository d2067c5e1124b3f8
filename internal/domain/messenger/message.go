package messenger

import (
	"time"

	"github.com/yungbote/companion-backend/internal/domain/media"
	"github.com/yungbote/companion-backend/internal/pkg/pointers"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a user/avatar conversation. Text and PhotoID are
// never both empty.
type Message struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Role     Role  `gorm:"type:text;not null;index;column:role" json:"role"`
	UserID   int64 `gorm:"not null;index:idx_message_pair,priority:1;column:user_id" json:"user_id"`
	AvatarID int64 `gorm:"not null;index:idx_message_pair,priority:2;column:avatar_id" json:"avatar_id"`

	Text    *string      `gorm:"type:text;column:text" json:"text,omitempty"`
	PhotoID *int64       `gorm:"column:photo_id;index" json:"photo_id,omitempty"`
	Photo   *media.Media `gorm:"foreignKey:PhotoID" json:"photo,omitempty"`

	// UnreadMark is always written explicitly; user messages are stored read.
	UnreadMark bool `gorm:"not null;column:unread_mark" json:"unread_mark"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) Pair() Pair { return Pair{UserID: m.UserID, AvatarID: m.AvatarID} }

func (m *Message) HasText() bool { return m != nil && m.Text != nil && *m.Text != "" }

func (m *Message) TextValue() string {
	if m == nil {
		return ""
	}
	return pointers.Value(m.Text)
}

// AssistantMessage belongs to the single dating-assistant conversation of a user.
type AssistantMessage struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Role   Role   `gorm:"type:text;not null;index;column:role" json:"role"`
	UserID int64  `gorm:"not null;index;column:user_id" json:"-"`
	Text   string `gorm:"type:text;not null;column:text" json:"text"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"-"`
}

func (AssistantMessage) TableName() string { return "assistant_messages" }

// AvatarOnline is the presence flag of an avatar as seen by one user.
type AvatarOnline struct {
	UserID   int64 `gorm:"primaryKey;autoIncrement:false;column:user_id" json:"user_id"`
	AvatarID int64 `gorm:"primaryKey;autoIncrement:false;column:avatar_id" json:"avatar_id"`
	IsOnline bool  `gorm:"not null;default:false;column:is_online" json:"is_online"`

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (AvatarOnline) TableName() string { return "avatar_online" }
