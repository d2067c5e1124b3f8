package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type Repos struct {
	User             repos.UserRepo
	Avatar           repos.AvatarRepo
	Media            repos.MediaRepo
	Message          repos.MessageRepo
	AssistantMessage repos.AssistantMessageRepo
	Presence         repos.PresenceRepo
	GenerationTask   repos.GenerationTaskRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:             repos.NewUserRepo(db, log),
		Avatar:           repos.NewAvatarRepo(db, log),
		Media:            repos.NewMediaRepo(db, log),
		Message:          repos.NewMessageRepo(db, log),
		AssistantMessage: repos.NewAssistantMessageRepo(db, log),
		Presence:         repos.NewPresenceRepo(db, log),
		GenerationTask:   repos.NewGenerationTaskRepo(db, log),
	}
}
