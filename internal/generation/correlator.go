package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

const (
	DefaultTasksTopic   = "sd-tasks"
	DefaultResultsTopic = "sd-results"
	DefaultPollWait     = time.Second
)

type CorrelatorOptions struct {
	TasksTopic   string
	ResultsTopic string
	PollWait     time.Duration
}

// Correlator pairs submitted jobs with results on a shared results topic.
// Every waiter reads every result record and filters by id locally, so cost
// grows with the number of concurrent waiters.
type Correlator struct {
	q    Queue
	log  *logger.Logger
	opts CorrelatorOptions

	mu        sync.Mutex
	submitted map[int64]time.Time
}

func NewCorrelator(q Queue, log *logger.Logger, opts CorrelatorOptions) *Correlator {
	if opts.TasksTopic == "" {
		opts.TasksTopic = DefaultTasksTopic
	}
	if opts.ResultsTopic == "" {
		opts.ResultsTopic = DefaultResultsTopic
	}
	if opts.PollWait <= 0 {
		opts.PollWait = DefaultPollWait
	}
	return &Correlator{
		q:         q,
		log:       log.With("component", "TaskCorrelator"),
		opts:      opts,
		submitted: make(map[int64]time.Time),
	}
}

// Submit produces job to the tasks topic and returns without waiting.
func (c *Correlator) Submit(ctx context.Context, job Job) (int64, error) {
	raw, err := json.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("encode job %d: %w", job.ID, err)
	}
	at := time.Now()
	if err := c.q.Produce(ctx, c.opts.TasksTopic, raw); err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.submitted[job.ID] = at
	c.mu.Unlock()

	c.log.Info("generation job produced", "task_id", job.ID, "model", job.Model, "images_count", job.ImagesCount)
	return job.ID, nil
}

// AwaitResult blocks until the first well-formed result carrying taskID
// arrives, timeout elapses or ctx ends.
func (c *Correlator) AwaitResult(ctx context.Context, taskID int64, timeout time.Duration) ([]string, error) {
	ctx, span := otel.Tracer("companion/generation").Start(ctx, "generation.await_result")
	span.SetAttributes(attribute.Int64("generation.task_id", taskID))
	defer span.End()

	images, err := c.await(ctx, taskID, timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("generation.images", len(images)))
	}
	return images, err
}

func (c *Correlator) await(ctx context.Context, taskID int64, timeout time.Duration) ([]string, error) {
	start := time.Now()
	deadline := start.Add(timeout)

	c.mu.Lock()
	from, ok := c.submitted[taskID]
	delete(c.submitted, taskID)
	c.mu.Unlock()
	if !ok {
		from = start.Add(-timeout)
	}

	consumer, err := c.q.Open(ctx, c.opts.ResultsTopic, from)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			c.log.Warn("close result consumer", "task_id", taskID, "error", err)
		}
	}()

	log := c.log.With("task_id", taskID)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Warn("generation result timed out", "waited", time.Since(start).String())
			return nil, ErrGenerationTimeout
		}
		wait := c.opts.PollWait
		if wait > remaining {
			wait = remaining
		}

		records, err := consumer.Poll(ctx, wait)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Error("poll results failed", "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		for _, rec := range records {
			var res Result
			if err := json.Unmarshal(rec.Value, &res); err != nil {
				log.Warn("skipping malformed result", "record_id", rec.ID, "error", err)
				continue
			}
			if res.ID != taskID {
				continue
			}
			if res.Status == "" {
				log.Warn("skipping result without status", "record_id", rec.ID)
				continue
			}
			if res.Status == StatusSuccess && len(res.Images) > 0 {
				log.Info("generation result received", "images", len(res.Images), "attempt", res.Info.Attempt)
				return res.Images, nil
			}
			log.Error("generation result unusable", "status", res.Status, "message", res.Message)
			return nil, &GenerationFailure{TaskID: taskID, Message: res.Message}
		}
	}
}

// IsTimeout reports whether err came from an elapsed wait.
func IsTimeout(err error) bool { return errors.Is(err, ErrGenerationTimeout) }
