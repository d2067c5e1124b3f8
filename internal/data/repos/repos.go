package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/data/repos/avatar"
	"github.com/yungbote/companion-backend/internal/data/repos/generation"
	"github.com/yungbote/companion-backend/internal/data/repos/media"
	"github.com/yungbote/companion-backend/internal/data/repos/messenger"
	"github.com/yungbote/companion-backend/internal/data/repos/user"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type AvatarRepo = avatar.AvatarRepo
type MediaRepo = media.MediaRepo

type MessageRepo = messenger.MessageRepo
type AssistantMessageRepo = messenger.AssistantMessageRepo
type PresenceRepo = messenger.PresenceRepo

type NewMessage = messenger.NewMessage
type MessageFilter = messenger.MessageFilter
type DialogRow = messenger.DialogRow

var ErrEmptyMessage = messenger.ErrEmptyMessage

type GenerationTaskRepo = generation.GenerationTaskRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewAvatarRepo(db *gorm.DB, baseLog *logger.Logger) AvatarRepo {
	return avatar.NewAvatarRepo(db, baseLog)
}
func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	return media.NewMediaRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return messenger.NewMessageRepo(db, baseLog)
}
func NewAssistantMessageRepo(db *gorm.DB, baseLog *logger.Logger) AssistantMessageRepo {
	return messenger.NewAssistantMessageRepo(db, baseLog)
}
func NewPresenceRepo(db *gorm.DB, baseLog *logger.Logger) PresenceRepo {
	return messenger.NewPresenceRepo(db, baseLog)
}
func NewGenerationTaskRepo(db *gorm.DB, baseLog *logger.Logger) GenerationTaskRepo {
	return generation.NewGenerationTaskRepo(db, baseLog)
}
