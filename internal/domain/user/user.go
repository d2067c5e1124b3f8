package user

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Login string `gorm:"uniqueIndex;not null;column:login" json:"login"`

	// Timezone is the user's UTC offset in whole hours.
	Timezone int `gorm:"not null;default:0;column:timezone" json:"timezone"`

	SubscribedUntil *time.Time `gorm:"column:subscribed_until" json:"subscribed_until,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "users" }

// IsSubscribed reports whether the user holds an active subscription at now.
func (u *User) IsSubscribed(now time.Time) bool {
	if u == nil || u.SubscribedUntil == nil {
		return false
	}
	return u.SubscribedUntil.After(now)
}

// Location returns the fixed zone for the user's UTC offset.
func (u *User) Location() *time.Location {
	if u == nil || u.Timezone == 0 {
		return time.UTC
	}
	return time.FixedZone("", u.Timezone*3600)
}
