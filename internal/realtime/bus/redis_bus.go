package bus

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

type redisBus struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisBus publishes and subscribes over Redis Pub/Sub. The client is
// owned by the caller and is not closed by Close.
func NewRedisBus(rdb *goredis.Client, log *logger.Logger) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisBus{
		log: log.With("service", "RedisBus"),
		rdb: rdb,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bus not initialized")
	}
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

func (b *redisBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	if b == nil || b.rdb == nil {
		return nil, fmt.Errorf("redis bus not initialized")
	}

	ps := b.rdb.Subscribe(ctx, channel)
	// ensures subscription actually started
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &redisSubscription{
		ps:     ps,
		out:    make(chan []byte, 16),
		cancel: cancel,
	}
	go s.forward(ctx, b.log.With("channel", channel))
	return s, nil
}

func (b *redisBus) Close() error { return nil }

type redisSubscription struct {
	ps     *goredis.PubSub
	out    chan []byte
	cancel context.CancelFunc
	once   sync.Once
}

func (s *redisSubscription) Messages() <-chan []byte { return s.out }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
	})
	return err
}

func (s *redisSubscription) forward(ctx context.Context, log *logger.Logger) {
	defer close(s.out)
	defer func() {
		_ = s.Close()
		log.Debug("redis subscription ended")
	}()

	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok || m == nil {
				return
			}
			select {
			case s.out <- []byte(m.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}
