package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
)

// Metrics is the process-wide Prometheus registry. Every method is a no-op on
// a nil receiver, so callers never check whether metrics are enabled.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	replyRuns     *CounterVec
	replyLatency  *HistogramVec
	replyBranches *CounterVec

	wsUsers       *Gauge
	wsConnections *Gauge

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	scrapeInterval time.Duration
	all            []promWriter
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Init builds the singleton on first call. It returns nil when disabled.
func Init(enabled bool, scrapeInterval time.Duration) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics(scrapeInterval)
	})
	return instance
}

func Current() *Metrics {
	return instance
}

func newMetrics(scrapeInterval time.Duration) *Metrics {
	if scrapeInterval <= 0 {
		scrapeInterval = 10 * time.Second
	}
	m := &Metrics{
		apiRequests: NewCounterVec("companion_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"companion_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("companion_api_inflight_requests", "In-flight API requests."),

		replyRuns: NewCounterVec("companion_reply_runs_total", "Avatar reply pipeline runs by outcome.", []string{"outcome"}),
		replyLatency: NewHistogramVec(
			"companion_reply_run_duration_seconds",
			"Avatar reply pipeline duration in seconds by outcome.",
			[]string{"outcome"},
			[]float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 180},
		),
		replyBranches: NewCounterVec("companion_reply_branch_total", "Avatar replies by branch.", []string{"branch"}),

		wsUsers:       NewGauge("companion_ws_users", "Users with at least one open socket on this process."),
		wsConnections: NewGauge("companion_ws_connections", "Open sockets on this process."),

		pgStats:   NewGaugeVec("companion_db_pool", "database/sql pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("companion_redis_up", "1 when the last redis ping succeeded."),
		redisPing: NewGauge("companion_redis_ping_seconds", "Latency of the last redis ping."),

		scrapeInterval: scrapeInterval,
	}
	m.all = []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.replyRuns, m.replyLatency, m.replyBranches,
		m.wsUsers, m.wsConnections,
		m.pgStats, m.redisUp, m.redisPing,
	}
	return m
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, inst := range m.all {
		if err := inst.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	m.replyRuns.Inc(outcome)
	m.replyLatency.Observe(d.Seconds(), outcome)
}

func (m *Metrics) ObserveReply(branch string) {
	if m == nil {
		return
	}
	m.replyBranches.Inc(branch)
}

// StartRealtimeCollector samples the socket registry every scrape interval.
func (m *Metrics) StartRealtimeCollector(ctx context.Context, reg *realtime.Registry) {
	if m == nil || reg == nil {
		return
	}
	m.every(ctx, func() {
		users := reg.Users()
		conns := 0
		for _, id := range users {
			conns += reg.Count(id)
		}
		m.wsUsers.Set(float64(len(users)))
		m.wsConnections.Set(float64(conns))
	})
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	m.every(ctx, func() {
		sqlDB, err := db.DB()
		if err != nil {
			if log != nil {
				log.Warn("metrics: db stats unavailable", "error", err)
			}
			return
		}
		stats := sqlDB.Stats()
		m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
		m.pgStats.Set(float64(stats.InUse), "in_use")
		m.pgStats.Set(float64(stats.Idle), "idle")
		m.pgStats.Set(float64(stats.WaitCount), "wait_count")
		m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
		m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
	})
}

// StartRedisCollector pings the shared client; it does not own it.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	m.every(ctx, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil && ctx.Err() == nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

func (m *Metrics) every(ctx context.Context, fn func()) {
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}
