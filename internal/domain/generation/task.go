package generation

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TaskStatusQueued    = "queued"
	TaskStatusSucceeded = "succeeded"
	TaskStatusFailed    = "failed"
	TaskStatusTimedOut  = "timed_out"
)

// Task is the persisted record of one image-generation job. Its ID is the
// correlation key shared with the external worker, so it comes from the
// database sequence and is never reused.
type Task struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64  `gorm:"not null;index;column:user_id" json:"user_id"`
	Model       string `gorm:"type:text;not null;column:model" json:"model"`
	Prompt      string `gorm:"type:text;not null;column:prompt" json:"prompt"`
	Gender      string `gorm:"type:text;not null;default:'';column:gender" json:"gender"`
	Age         string `gorm:"type:text;not null;default:'';column:age" json:"age"`
	ImagesCount int    `gorm:"not null;default:1;column:images_count" json:"images_count"`

	Status string         `gorm:"type:text;not null;default:'queued';index;column:status" json:"status"`
	Images datatypes.JSON `gorm:"column:images" json:"images,omitempty"`
	Error  string         `gorm:"type:text;not null;default:'';column:error" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Task) TableName() string { return "generation_tasks" }
