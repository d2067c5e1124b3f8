package generation

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

func newTestRedisQueue(t *testing.T) (*RedisQueue, string) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis queue tests")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	topic := fmt.Sprintf("test_results_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_ = rdb.Del(context.Background(), topic).Err()
		_ = rdb.Close()
	})
	return NewRedisQueue(rdb, 0), topic
}

func TestRedisQueueOpenFrom(t *testing.T) {
	q, topic := newTestRedisQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Produce(ctx, topic, []byte(`{"id":1}`)))
	time.Sleep(5 * time.Millisecond)
	from := time.Now()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, q.Produce(ctx, topic, []byte(`{"id":2}`)))
	require.NoError(t, q.Produce(ctx, topic, []byte(`{"id":3}`)))

	c, err := q.Open(ctx, topic, from)
	require.NoError(t, err)
	defer c.Close()

	recs, err := c.Poll(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, []byte(`{"id":2}`), recs[0].Value)
	require.Equal(t, []byte(`{"id":3}`), recs[1].Value)
	require.NotEmpty(t, recs[0].ID)

	// the consumer advances past what it returned
	recs, err = c.Poll(ctx, 20*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, recs)
}

func TestRedisQueuePollEmptyWait(t *testing.T) {
	q, topic := newTestRedisQueue(t)
	ctx := context.Background()

	c, err := q.Open(ctx, topic, time.Now())
	require.NoError(t, err)
	defer c.Close()

	for _, wait := range []time.Duration{0, 500 * time.Microsecond, 20 * time.Millisecond} {
		start := time.Now()
		recs, err := c.Poll(ctx, wait)
		require.NoError(t, err)
		require.Nil(t, recs)
		require.Less(t, time.Since(start), time.Second, "wait %s", wait)
	}
}

func TestRedisQueueCorrelates(t *testing.T) {
	q, topic := newTestRedisQueue(t)
	c := NewCorrelator(q, logger.Nop(), CorrelatorOptions{ResultsTopic: topic, TasksTopic: topic + "_tasks", PollWait: 20 * time.Millisecond})
	ctx := context.Background()

	id, err := c.Submit(ctx, Job{ID: 42, Prompt: "p"})
	require.NoError(t, err)
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = q.Produce(ctx, topic, []byte(`{"id":42,"status":"success","images":["img"]}`))
	}()

	images, err := c.AwaitResult(ctx, id, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, []string{"img"}, images)
}

func TestStartID(t *testing.T) {
	cases := []struct {
		name string
		from time.Time
		want string
	}{
		{name: "epoch", from: time.UnixMilli(0), want: "0-0"},
		{name: "before_epoch", from: time.UnixMilli(-5), want: "0-0"},
		{name: "millisecond", from: time.UnixMilli(1700000000123), want: "1700000000122-18446744073709551615"},
		{name: "sub_millisecond_truncates", from: time.UnixMilli(1700000000123).Add(900 * time.Microsecond), want: "1700000000122-18446744073709551615"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, startID(tc.from))
		})
	}
}
