package generation

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue. It counts open consumers so callers can
// check that every wait released its consumer.
type MemoryQueue struct {
	mu      sync.Mutex
	topics  map[string][]memoryRecord
	notify  chan struct{}
	seq     int64
	open    int
	nowFunc func() time.Time
}

type memoryRecord struct {
	at  time.Time
	rec Record
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		topics:  make(map[string][]memoryRecord),
		notify:  make(chan struct{}),
		nowFunc: time.Now,
	}
}

func (q *MemoryQueue) Produce(ctx context.Context, topic string, value []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	q.topics[topic] = append(q.topics[topic], memoryRecord{
		at:  q.nowFunc(),
		rec: Record{ID: strconv.FormatInt(q.seq, 10), Value: append([]byte(nil), value...)},
	})
	close(q.notify)
	q.notify = make(chan struct{})
	return nil
}

func (q *MemoryQueue) Open(ctx context.Context, topic string, from time.Time) (Consumer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pos := 0
	for pos < len(q.topics[topic]) && q.topics[topic][pos].at.Before(from) {
		pos++
	}
	q.open++
	return &memoryConsumer{q: q, topic: topic, pos: pos}, nil
}

// Records returns a copy of every record on topic.
func (q *MemoryQueue) Records(topic string) []Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Record, 0, len(q.topics[topic]))
	for _, r := range q.topics[topic] {
		out = append(out, r.rec)
	}
	return out
}

func (q *MemoryQueue) OpenConsumers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.open
}

type memoryConsumer struct {
	q      *MemoryQueue
	topic  string
	pos    int
	closed bool
}

func (c *memoryConsumer) Poll(ctx context.Context, wait time.Duration) ([]Record, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		c.q.mu.Lock()
		recs := c.q.topics[c.topic]
		if c.pos < len(recs) {
			out := make([]Record, 0, len(recs)-c.pos)
			for _, r := range recs[c.pos:] {
				out = append(out, r.rec)
			}
			c.pos = len(recs)
			c.q.mu.Unlock()
			return out, nil
		}
		notify := c.q.notify
		c.q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-notify:
		}
	}
}

func (c *memoryConsumer) Close() error {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.q.open--
	}
	return nil
}
