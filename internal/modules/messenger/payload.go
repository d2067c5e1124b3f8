package messenger

import (
	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/realtime"
)

// Dialog is one row of the dialog list.
type Dialog struct {
	UnreadCount int64                   `json:"unread_count"`
	Chat        realtime.SenderPayload  `json:"chat"`
	TopMessage  realtime.MessagePayload `json:"top_message"`
}

func photoPayload(m *types.Media) *realtime.PhotoPayload {
	if m == nil {
		return nil
	}
	return &realtime.PhotoPayload{ID: m.ID, Name: m.Name, URL: m.URL}
}

func avatarSender(a *types.Avatar, online bool) realtime.SenderPayload {
	return realtime.SenderPayload{
		ID:       a.ID,
		Name:     a.Name,
		IsOnline: online,
		IsAvatar: true,
		Photo:    photoPayload(a.ProfilePhoto()),
	}
}

func userSender(u *types.User) realtime.SenderPayload {
	return realtime.SenderPayload{ID: u.ID, Name: u.Login, IsOnline: true}
}

func messagePayload(m *types.Message, from realtime.SenderPayload, limitDailyImage bool) realtime.MessagePayload {
	return realtime.MessagePayload{
		ID:              m.ID,
		Text:            m.Text,
		Photo:           photoPayload(m.Photo),
		UnreadMark:      m.UnreadMark,
		LimitDailyImage: limitDailyImage,
		CreatedAt:       m.CreatedAt,
		FromUser:        from,
	}
}
