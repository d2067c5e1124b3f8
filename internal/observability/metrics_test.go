package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Second)
	m.ObserveRun("ok", time.Second)
	m.ObserveReply("chat")
	m.APIInflightInc()
	m.StartRealtimeCollector(context.Background(), nil)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := newMetrics(time.Second)
	m.ObserveAPI("POST", "/api/v1/messages/:avatar_id/send", "200", 30*time.Millisecond)
	m.ObserveRun("ok", 2*time.Second)
	m.ObserveRun("generation_failure", time.Second)
	m.ObserveReply("photo")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`companion_api_requests_total{method="POST",route="/api/v1/messages/:avatar_id/send",status="200"} 1`,
		`companion_reply_runs_total{outcome="generation_failure"} 1`,
		`companion_reply_runs_total{outcome="ok"} 1`,
		`companion_reply_run_duration_seconds_bucket{outcome="ok",le="2"} 1`,
		`companion_reply_run_duration_seconds_bucket{outcome="ok",le="1"} 0`,
		`companion_reply_branch_total{branch="photo"} 1`,
		"# TYPE companion_ws_connections gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	// series are sorted by label
	if strings.Index(out, `companion_reply_runs_total{outcome="generation_failure"} 1`) > strings.Index(out, `companion_reply_runs_total{outcome="ok"} 1`) {
		t.Fatalf("series not sorted:\n%s", out)
	}
}

type nopConn struct{ id string }

func (c nopConn) ID() string                         { return c.id }
func (c nopConn) Send(context.Context, []byte) error { return nil }

func TestRealtimeCollector(t *testing.T) {
	m := newMetrics(10 * time.Millisecond)
	reg := realtime.NewRegistry(logger.Nop())
	reg.Register(1, nopConn{id: "a"})
	reg.Register(1, nopConn{id: "b"})
	reg.Register(2, nopConn{id: "c"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartRealtimeCollector(ctx, reg)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.wsConnections.Value() == 3 && m.wsUsers.Value() == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("gauges: users=%v conns=%v", m.wsUsers.Value(), m.wsConnections.Value())
}
