package realtime

import (
	"context"
	"errors"
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("outbound buffer full")
)

// Conn is one live client socket. Send must be safe for concurrent use.
type Conn interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
}
