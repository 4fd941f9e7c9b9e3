// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/czar/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list judged rounds are pushed onto.
const DefaultQueueName = "czar_rounds"

// ConnectRedis opens a client for addr and checks it with a ping.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisRecorder publishes judged rounds to a Redis list for the historian.
type RedisRecorder struct {
	client redis.Cmdable
	queue  string
}

// NewRedisRecorder returns a recorder pushing onto queue, or onto
// DefaultQueueName when queue is empty.
func NewRedisRecorder(client redis.Cmdable, queue string) *RedisRecorder {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RedisRecorder{client: client, queue: queue}
}

// Queue is the list name rounds are pushed onto.
func (r *RedisRecorder) Queue() string { return r.queue }

// RecordRound serializes the result to JSON and appends it to the queue.
func (r *RedisRecorder) RecordRound(ctx context.Context, result models.RoundResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundResult: %w", err)
	}
	if err := r.client.RPush(ctx, r.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", r.queue, err)
	}
	return nil
}
