package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/companion-backend/internal/http/handlers"
	httpMW "github.com/yungbote/companion-backend/internal/http/middleware"
	"github.com/yungbote/companion-backend/internal/observability"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware   *httpMW.AuthMiddleware
	MessengerHandler *httpH.MessengerHandler
	RealtimeHandler  *httpH.RealtimeHandler
	MediaHandler     *httpH.MediaHandler
	HealthHandler    *httpH.HealthHandler
	MetricsHandler   *httpH.MetricsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", cfg.MetricsHandler.Scrape)
	}

	protected := r.Group("/api/v1")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	messages := protected.Group("/messages")
	{
		// Realtime (websocket)
		if cfg.RealtimeHandler != nil {
			messages.GET("/ws", cfg.RealtimeHandler.Connect)
		}

		if cfg.MessengerHandler != nil {
			messages.GET("/dialogs", cfg.MessengerHandler.Dialogs)
			messages.GET("/assistant", cfg.MessengerHandler.AssistantHistory)
			messages.POST("/assistant/send", cfg.MessengerHandler.SendToAssistant)
			messages.GET("/:avatar_id", cfg.MessengerHandler.History)
			messages.POST("/:avatar_id/send", cfg.MessengerHandler.Send)
			messages.POST("/:avatar_id/read", cfg.MessengerHandler.Read)
		}
	}

	if cfg.MediaHandler != nil {
		media := protected.Group("/media")
		media.GET("/:id", cfg.MediaHandler.Get)
		media.POST("/generate", cfg.MediaHandler.Generate)
	}

	return r
}
