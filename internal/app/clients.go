package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/companion-backend/internal/clients/redis"
	"github.com/yungbote/companion-backend/internal/generation"
	"github.com/yungbote/companion-backend/internal/platform/intent"
	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/platform/openai"
	"github.com/yungbote/companion-backend/internal/realtime/bus"
)

type Clients struct {
	Redis      *goredis.Client
	Bus        bus.Bus
	Queue      generation.Queue
	Completion openai.Client
	Classifier intent.Classifier
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis, or the in-process bus and queue for local runs
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		rdb, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		b, err := bus.NewRedisBus(rdb, log)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis bus: %w", err)
		}
		out.Redis = rdb
		out.Bus = b
		out.Queue = generation.NewRedisQueue(rdb, cfg.StreamMaxLen)
	} else {
		log.Warn("REDIS_ADDR not set; bus and generation queue run in process")
		out.Bus = bus.NewMemoryBus()
		out.Queue = generation.NewMemoryQueue()
	}

	// OpenAI
	completion, err := openai.NewClient(openai.Options{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		Timeout:    cfg.OpenAITimeout,
		MaxRetries: cfg.OpenAIRetries,
	}, log)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	out.Completion = completion

	// Intent
	keywords := intent.NewKeywordClassifier()
	if strings.TrimSpace(cfg.ClassifierURL) == "" {
		out.Classifier = keywords
	} else {
		remote, err := intent.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init intent classifier: %w", err)
		}
		out.Classifier = intent.WithFallback(remote, keywords, log)
	}

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
