package generation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	valueField    = "value"
	readBatch     = 100
	defaultMaxLen = 10000
)

// RedisQueue stores topics as Redis Streams. Stream ids start with the
// millisecond timestamp of the write, which is what positions a consumer.
type RedisQueue struct {
	rdb    *goredis.Client
	maxLen int64
}

func NewRedisQueue(rdb *goredis.Client, maxLen int64) *RedisQueue {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &RedisQueue{rdb: rdb, maxLen: maxLen}
}

func (q *RedisQueue) Produce(ctx context.Context, topic string, value []byte) error {
	err := q.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: topic,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]interface{}{valueField: value},
	}).Err()
	if err != nil {
		return unreachable("xadd "+topic, err)
	}
	return nil
}

func (q *RedisQueue) Open(ctx context.Context, topic string, from time.Time) (Consumer, error) {
	if err := q.rdb.Ping(ctx).Err(); err != nil {
		return nil, unreachable("open "+topic, err)
	}
	return &redisConsumer{
		rdb:    q.rdb,
		topic:  topic,
		lastID: startID(from),
	}, nil
}

// startID is the id just before the first entry of from's millisecond;
// XREAD returns entries strictly after it.
func startID(from time.Time) string {
	ms := from.UnixMilli()
	if ms <= 0 {
		return "0-0"
	}
	return fmt.Sprintf("%d-%d", ms-1, uint64(math.MaxUint64))
}

type redisConsumer struct {
	rdb    *goredis.Client
	topic  string
	lastID string
}

func (c *redisConsumer) Poll(ctx context.Context, wait time.Duration) ([]Record, error) {
	// Block is sent in whole milliseconds and BLOCK 0 waits forever.
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	streams, err := c.rdb.XRead(ctx, &goredis.XReadArgs{
		Streams: []string{c.topic, c.lastID},
		Count:   readBatch,
		Block:   wait,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unreachable("xread "+c.topic, err)
	}

	var out []Record
	for _, s := range streams {
		for _, m := range s.Messages {
			c.lastID = m.ID
			out = append(out, Record{ID: m.ID, Value: fieldBytes(m.Values[valueField])})
		}
	}
	return out, nil
}

func (c *redisConsumer) Close() error { return nil }

func fieldBytes(v interface{}) []byte {
	switch t := v.(type) {
	case string:
		return []byte(t)
	case []byte:
		return t
	default:
		return nil
	}
}
