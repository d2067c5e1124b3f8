package messenger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

// Metrics receives pipeline outcomes. The observability package provides the
// real implementation.
type Metrics interface {
	ObserveReply(branch string)
	ObserveRun(outcome string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveReply(string)              {}
func (nopMetrics) ObserveRun(string, time.Duration) {}

// Dispatcher runs reply pipelines detached from the request that queued them.
// Runs for the same conversation execute one at a time, in the order they
// were queued.
type Dispatcher struct {
	log     *logger.Logger
	timeout time.Duration
	metrics Metrics

	mu     sync.Mutex
	closed bool
	queues map[types.Pair]*pairQueue
	wg     sync.WaitGroup
}

// pairQueue holds the runs waiting behind the one in flight for a pair. A
// pair has a queue exactly while one goroutine drains it.
type pairQueue struct {
	runs []queuedRun
}

type queuedRun struct {
	ctx context.Context
	fn  func(ctx context.Context) error
}

func NewDispatcher(log *logger.Logger, timeout time.Duration, metrics Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Dispatcher{
		log:     log.With("component", "ReplyDispatcher"),
		timeout: timeout,
		metrics: metrics,
		queues:  make(map[types.Pair]*pairQueue),
	}
}

// Go queues fn behind the runs already queued for pair. announce, when set,
// runs first in the caller's goroutine; its failure is logged and fn still
// runs. ctx only contributes its values; its cancellation reaches neither.
// Errors and panics from fn end up in the log.
func (d *Dispatcher) Go(ctx context.Context, pair types.Pair, announce, fn func(ctx context.Context) error) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	if announce != nil {
		if err := announce(runCtx); err != nil {
			d.log.Warn("reply announce failed", "pair", pair.String(), "error", err)
		}
	}

	d.mu.Lock()
	q, busy := d.queues[pair]
	if !busy {
		q = &pairQueue{}
		d.queues[pair] = q
	}
	q.runs = append(q.runs, queuedRun{ctx: runCtx, fn: fn})
	d.mu.Unlock()

	if !busy {
		go d.drain(pair, q)
	}
	return nil
}

func (d *Dispatcher) drain(pair types.Pair, q *pairQueue) {
	for {
		d.mu.Lock()
		if len(q.runs) == 0 {
			delete(d.queues, pair)
			d.mu.Unlock()
			return
		}
		next := q.runs[0]
		q.runs[0] = queuedRun{}
		q.runs = q.runs[1:]
		d.mu.Unlock()

		d.runOne(next.ctx, pair, next.fn)
		d.wg.Done()
	}
}

func (d *Dispatcher) runOne(ctx context.Context, pair types.Pair, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ctx, span := otel.Tracer("companion/messenger").Start(ctx, "messenger.reply")
	span.SetAttributes(
		attribute.Int64("messenger.user_id", pair.UserID),
		attribute.Int64("messenger.avatar_id", pair.AvatarID),
	)
	defer span.End()

	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			span.SetStatus(codes.Error, "panic")
			d.log.Error("reply pipeline panic", "pair", pair.String(), "panic", r)
		}
		d.metrics.ObserveRun(outcome, time.Since(start))
	}()

	if err := fn(ctx); err != nil {
		outcome = classifyOutcome(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.log.Error("reply pipeline failed",
			"pair", pair.String(),
			"outcome", outcome,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return
	}
	d.log.Debug("reply pipeline done", "pair", pair.String(), "duration_ms", time.Since(start).Milliseconds())
}

func classifyOutcome(err error) string {
	var gf *GenerationFailure
	switch {
	case errors.Is(err, ErrTransportUnreachable):
		return "unreachable"
	case errors.As(err, &gf):
		return "generation_failure"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// Pending reports how many conversations have a run queued or in flight.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// Shutdown refuses new runs and waits for the running ones until ctx ends.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}
