package avatar

import (
	"time"

	"github.com/yungbote/companion-backend/internal/domain/media"
)

type Avatar struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"type:text;not null;column:name" json:"name"`
	Age       int    `gorm:"not null;default:0;column:age" json:"age"`
	Gender    string `gorm:"type:text;not null;default:'';column:gender" json:"gender"`
	Biography string `gorm:"type:text;not null;default:'';column:biography" json:"biography"`

	SpicyConversations bool `gorm:"not null;default:false;column:spicy_conversations" json:"spicy_conversations"`

	Photos           []AvatarPhoto     `gorm:"foreignKey:AvatarID" json:"photos,omitempty"`
	MessagePhotos    []MessagePhoto    `gorm:"foreignKey:AvatarID" json:"-"`
	FarewellMessages []FarewellMessage `gorm:"foreignKey:AvatarID" json:"-"`
	HelloMessages    []HelloMessage    `gorm:"foreignKey:AvatarID" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Avatar) TableName() string { return "avatars" }

// ProfilePhoto returns the first profile photo, if any.
func (a *Avatar) ProfilePhoto() *media.Media {
	if a == nil || len(a.Photos) == 0 {
		return nil
	}
	return a.Photos[0].Media
}

// AvatarPhoto is a profile picture shown next to the avatar's name.
type AvatarPhoto struct {
	ID       int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	AvatarID int64        `gorm:"not null;index;column:avatar_id" json:"avatar_id"`
	Position int          `gorm:"not null;default:0;column:position" json:"position"`
	MediaID  int64        `gorm:"not null;column:media_id" json:"media_id"`
	Media    *media.Media `gorm:"foreignKey:MediaID" json:"media,omitempty"`
}

func (AvatarPhoto) TableName() string { return "avatar_photos" }

// MessagePhoto is one entry of the canned photo pool the avatar sends on request.
// The pool is rotated in Position order.
type MessagePhoto struct {
	ID       int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	AvatarID int64        `gorm:"not null;index;column:avatar_id" json:"avatar_id"`
	Position int          `gorm:"not null;default:0;column:position" json:"position"`
	MediaID  int64        `gorm:"not null;column:media_id" json:"media_id"`
	Media    *media.Media `gorm:"foreignKey:MediaID" json:"media,omitempty"`
}

func (MessagePhoto) TableName() string { return "avatar_message_photos" }

type FarewellMessage struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	AvatarID int64  `gorm:"not null;index;column:avatar_id" json:"avatar_id"`
	Text     string `gorm:"type:text;not null;column:text" json:"text"`
}

func (FarewellMessage) TableName() string { return "avatar_farewell_messages" }

type HelloMessage struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	AvatarID int64  `gorm:"not null;index;column:avatar_id" json:"avatar_id"`
	Position int    `gorm:"not null;default:0;column:position" json:"position"`
	Text     string `gorm:"type:text;not null;column:text" json:"text"`
}

func (HelloMessage) TableName() string { return "avatar_hello_messages" }
