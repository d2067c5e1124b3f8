package bus

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus for tests and single-node development.
// Slow subscribers drop payloads instead of blocking publishers.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[*memorySubscription]struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for s := range b.subs[channel] {
		msg := append([]byte(nil), payload...)
		select {
		case s.out <- msg:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	s := &memorySubscription{
		bus:     b,
		channel: channel,
		out:     make(chan []byte, 64),
		done:    make(chan struct{}),
	}
	set, ok := b.subs[channel]
	if !ok {
		set = make(map[*memorySubscription]struct{})
		b.subs[channel] = set
	}
	set[s] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

// Subscribers reports the live subscription count of channel.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]map[*memorySubscription]struct{})
	b.closed = true
	b.mu.Unlock()

	for _, set := range subs {
		for s := range set {
			s.finish()
		}
	}
	return nil
}

func (b *MemoryBus) remove(s *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[s.channel]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, s.channel)
		}
	}
}

type memorySubscription struct {
	bus     *MemoryBus
	channel string
	out     chan []byte
	done    chan struct{}
	once    sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte { return s.out }

func (s *memorySubscription) Close() error {
	s.bus.remove(s)
	s.finish()
	return nil
}

// finish must run after the subscription left the bus map so no publisher
// can still hold it.
func (s *memorySubscription) finish() {
	s.once.Do(func() {
		close(s.done)
		close(s.out)
	})
}
