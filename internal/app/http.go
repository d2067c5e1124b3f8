package app

import (
	"context"

	"gorm.io/gorm"

	httpx "github.com/yungbote/companion-backend/internal/http"
	httpH "github.com/yungbote/companion-backend/internal/http/handlers"
	httpMW "github.com/yungbote/companion-backend/internal/http/middleware"
	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, db *gorm.DB, r Repos, c Clients, s Services, metrics *observability.Metrics) *httpx.Server {
	log.Info("Wiring http server...")

	checks := map[string]httpH.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}

	serviceName := ""
	if cfg.OtelEnabled {
		serviceName = cfg.OtelServiceName
	}
	rc := httpx.RouterConfig{
		Log:              log,
		ServiceName:      serviceName,
		AllowedOrigins:   cfg.AllowedOrigins,
		Metrics:          metrics,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, s.Auth),
		MessengerHandler: httpH.NewMessengerHandler(s.Messenger),
		RealtimeHandler:  httpH.NewRealtimeHandler(log, s.Hub, cfg.AllowedOrigins),
		MediaHandler:     httpH.NewMediaHandler(r.Media, s.Generation),
		HealthHandler:    httpH.NewHealthHandler(checks),
	}
	if metrics != nil {
		rc.MetricsHandler = httpH.NewMetricsHandler(metrics)
	}
	return httpx.NewServer(cfg.HTTPAddr, rc)
}
