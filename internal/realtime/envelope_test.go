package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUserChannel(t *testing.T) {
	require.Equal(t, "user_42", UserChannel(42))
}

func TestEncodeMessage(t *testing.T) {
	text := "hey"
	raw, err := Encode(EventMessage, MessagePayload{
		ID:         9,
		Text:       &text,
		UnreadMark: true,
		CreatedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		FromUser:   SenderPayload{ID: 3, Name: "Mira", IsOnline: true, IsAvatar: true},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type": "message",
		"content": {
			"id": 9,
			"text": "hey",
			"unread_mark": true,
			"limit_daily_image": false,
			"created_at": "2024-05-01T10:00:00Z",
			"from_user": {"id": 3, "name": "Mira", "is_online": true, "is_avatar": true}
		}
	}`, string(raw))
}
