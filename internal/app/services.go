package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/generation"
	"github.com/yungbote/companion-backend/internal/modules/messenger"
	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
	"github.com/yungbote/companion-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Messenger  messenger.Service
	Dispatcher *messenger.Dispatcher
	Generation generation.Service
	Correlator *generation.Correlator
	Hub        *realtime.Hub
}

func (c Config) messengerConfig() messenger.Config {
	mc := messenger.DefaultConfig()
	mc.Limits = messenger.Limits{
		UserMessageLimit:      c.UserMessageLimit,
		AssistantMessageLimit: c.AssistantMessageLimit,
		DailyPhotoLimit:       c.DailyPhotoLimit,
	}
	mc.Pipeline = messenger.PipelineConfig{
		HistoryTurns: c.HistoryTurns,
		SendTeaser:   c.SendTeaser,
		TeaserDelay:  c.TeaserDelay,
		PhotoDelay:   c.PhotoDelay,
	}
	mc.PresenceTTL = c.PresenceTTL
	mc.MaxTextLength = c.MaxTextLength
	return mc
}

func wireServices(log *logger.Logger, cfg Config, db *gorm.DB, r Repos, c Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	auth, err := services.NewAuthService(log, services.AuthOptions{
		Secret:    cfg.JWTSecret,
		Audience:  cfg.JWTAudience,
		AccessTTL: cfg.AccessTTL,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init auth: %w", err)
	}

	hub := realtime.NewHub(realtime.NewRegistry(log), c.Bus, log)

	dispatcher := messenger.NewDispatcher(log, cfg.PipelineTimeout, metrics)
	msgr, err := messenger.NewService(messenger.ServiceDeps{
		Log:        log,
		Users:      r.User,
		Avatars:    r.Avatar,
		Messages:   r.Message,
		Assistant:  r.AssistantMessage,
		Presence:   r.Presence,
		Bus:        c.Bus,
		Completion: c.Completion,
		Classifier: c.Classifier,
		Dispatcher: dispatcher,
		Tx:         dbctx.NewGormTxRunner(db),
		Phrases:    messenger.DefaultPhrases(log),
		Metrics:    metrics,
		Config:     cfg.messengerConfig(),
	})
	if err != nil {
		hub.Close()
		return Services{}, fmt.Errorf("init messenger: %w", err)
	}

	correlator := generation.NewCorrelator(c.Queue, log, generation.CorrelatorOptions{
		TasksTopic:   cfg.TasksTopic,
		ResultsTopic: cfg.ResultsTopic,
	})
	gen := generation.NewService(log, r.GenerationTask, r.Media, correlator, cfg.MediaBaseURL, cfg.GenerationTimeout)

	return Services{
		Auth:       auth,
		Messenger:  msgr,
		Dispatcher: dispatcher,
		Generation: gen,
		Correlator: correlator,
		Hub:        hub,
	}, nil
}
