package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":8080"`
	LogMode        string   `env:"LOG_MODE" envDefault:"development"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBDSN      string `env:"DB_DSN"`
	DBHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	DBPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	DBUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	DBPassword string `env:"POSTGRES_PASSWORD"`
	DBName     string `env:"POSTGRES_NAME" envDefault:"companion"`
	DBSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	DBMaxOpen  int    `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"20"`
	DBMaxIdle  int    `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"10"`
	DBMigrate  bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	// Empty RedisAddr runs the bus and the generation queue in process.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	StreamMaxLen  int64  `env:"GENERATION_STREAM_MAXLEN" envDefault:"10000"`

	TasksTopic        string        `env:"GENERATION_TASKS_TOPIC" envDefault:"sd-tasks"`
	ResultsTopic      string        `env:"GENERATION_RESULTS_TOPIC" envDefault:"sd-results"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"60s"`
	MediaBaseURL      string        `env:"MEDIA_BASE_URL" envDefault:"http://localhost:8080/static"`

	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAITimeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
	OpenAIRetries int           `env:"OPENAI_MAX_RETRIES" envDefault:"2"`

	ClassifierURL     string        `env:"INTENT_CLASSIFIER_URL"`
	ClassifierTimeout time.Duration `env:"INTENT_CLASSIFIER_TIMEOUT" envDefault:"5s"`

	JWTSecret   string        `env:"JWT_SECRET_KEY"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"fastapi-users:auth"`
	AccessTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`

	UserMessageLimit      int64         `env:"USER_MESSAGE_LIMIT" envDefault:"15"`
	AssistantMessageLimit int64         `env:"ASSISTANT_MESSAGE_LIMIT" envDefault:"10"`
	DailyPhotoLimit       int64         `env:"DAILY_PHOTO_LIMIT" envDefault:"4"`
	HistoryTurns          int           `env:"PIPELINE_HISTORY_TURNS" envDefault:"5"`
	SendTeaser            bool          `env:"PIPELINE_SEND_TEASER" envDefault:"true"`
	TeaserDelay           time.Duration `env:"PIPELINE_TEASER_DELAY" envDefault:"2s"`
	PhotoDelay            time.Duration `env:"PIPELINE_PHOTO_DELAY" envDefault:"3s"`
	PipelineTimeout       time.Duration `env:"PIPELINE_TIMEOUT" envDefault:"5m"`
	PresenceTTL           time.Duration `env:"PRESENCE_TTL" envDefault:"30m"`
	MaxTextLength         int           `env:"MAX_TEXT_LENGTH" envDefault:"4000"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"false"`
	MetricsScrape  time.Duration `env:"METRICS_SCRAPE_INTERVAL" envDefault:"15s"`

	OtelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"companion-backend"`
	OtelEnvironment string  `env:"OTEL_ENVIRONMENT" envDefault:"development"`
	OtelVersion     string  `env:"OTEL_SERVICE_VERSION"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelInsecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// LoadConfig parses the environment and validates the result.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	}
	if c.UserMessageLimit <= 0 || c.AssistantMessageLimit <= 0 || c.DailyPhotoLimit <= 0 {
		errs = append(errs, errors.New("message and photo limits must be positive"))
	}
	if c.HistoryTurns <= 0 {
		errs = append(errs, errors.New("PIPELINE_HISTORY_TURNS must be positive"))
	}
	if c.GenerationTimeout <= 0 || c.PipelineTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT and PIPELINE_TIMEOUT must be positive"))
	}
	if c.TeaserDelay < 0 || c.PhotoDelay < 0 {
		errs = append(errs, errors.New("pipeline delays cannot be negative"))
	}
	if c.OtelSampleRatio < 0 || c.OtelSampleRatio > 1 {
		errs = append(errs, errors.New("OTEL_SAMPLE_RATIO must be within [0, 1]"))
	}
	return errors.Join(errs...)
}
