package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

const (
	WriteTimeout   = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxInboundSize = 4 * 1024
	outboundBuffer = 32
)

// WSConn adapts a gorilla websocket to Conn. Send only enqueues; the write
// loop started by Run owns the socket writer.
type WSConn struct {
	id   string
	ws   *websocket.Conn
	log  *logger.Logger
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func NewWSConn(ws *websocket.Conn, log *logger.Logger) *WSConn {
	id := uuid.NewString()
	return &WSConn{
		id:   id,
		ws:   ws,
		log:  log.With("conn_id", id),
		out:  make(chan []byte, outboundBuffer),
		done: make(chan struct{}),
	}
}

func (c *WSConn) ID() string { return c.id }

func (c *WSConn) Send(ctx context.Context, payload []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- payload:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		// a client that cannot keep up is dropped rather than stalling fanout
		c.Close()
		return ErrSlowConsumer
	}
}

// Run pumps the socket until the peer goes away, ctx ends or Close is called.
// Inbound frames are read only to service control messages.
func (c *WSConn) Run(ctx context.Context) {
	defer c.Close()

	go c.writeLoop()

	c.ws.SetReadLimit(MaxInboundSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(PongWait))
	})

	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := c.ws.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-c.done:
	case err := <-readErr:
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			c.log.Warn("ws read error", "error", err)
		}
	}
}

func (c *WSConn) writeLoop() {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = c.ws.Close()
			return
		case msg := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Warn("ws write failed", "error", err)
				c.Close()
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
			}
		}
	}
}

func (c *WSConn) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *WSConn) Done() <-chan struct{} { return c.done }
