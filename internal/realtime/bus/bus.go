package bus

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("bus closed")

// Bus moves opaque payloads between processes on named channels. Delivery is
// at-most-once: a payload published while nobody listens is lost.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns once the subscription is live. Cancelling ctx or
	// calling Close on the Subscription releases it.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

type Subscription interface {
	// Messages is closed when the subscription ends.
	Messages() <-chan []byte
	Close() error
}
