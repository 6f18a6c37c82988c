package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue is the list a worker consumes. Pop blocks up to timeout and returns
// redis.Nil when nothing arrived; TryPop never blocks.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	TryPop(ctx context.Context) (string, error)
	Push(ctx context.Context, payloads ...string) error
	Len(ctx context.Context) (int64, error)
}

// RedisQueue is a Queue backed by a Redis list.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

// NewRedisQueue creates a new RedisQueue over key.
func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	item, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		return "", err
	}
	if len(item) < 2 {
		return "", redis.Nil
	}
	return item[1], nil
}

func (q *RedisQueue) TryPop(ctx context.Context) (string, error) {
	return q.rdb.LPop(ctx, q.key).Result()
}

func (q *RedisQueue) Push(ctx context.Context, payloads ...string) error {
	if len(payloads) == 0 {
		return nil
	}
	args := make([]interface{}, len(payloads))
	for i, p := range payloads {
		args[i] = p
	}
	return q.rdb.RPush(ctx, q.key, args...).Err()
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
