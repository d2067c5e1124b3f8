package generation

import (
	"context"
	"time"
)

type Record struct {
	ID    string
	Value []byte
}

// Queue is the durable log shared with the image worker.
type Queue interface {
	Produce(ctx context.Context, topic string, value []byte) error
	// Open returns a consumer positioned at the first record written at or
	// after from.
	Open(ctx context.Context, topic string, from time.Time) (Consumer, error)
}

type Consumer interface {
	// Poll waits up to wait for new records. No records and no error means
	// the wait elapsed.
	Poll(ctx context.Context, wait time.Duration) ([]Record, error)
	Close() error
}
