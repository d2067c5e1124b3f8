package media

import "time"

// Media is a stored image reference.
type Media struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:text;not null;column:name" json:"name"`
	URL  string `gorm:"type:text;not null;column:url" json:"url"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"-"`
}

func (Media) TableName() string { return "media" }
