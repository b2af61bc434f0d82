// Package queue implements the per-platform job queue on Redis lists.
package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"csecbridge/internal/domain"
)

var _ domain.JobQueue = (*RedisQueue)(nil)

// RedisQueue dispatches jobs through one Redis list per target platform.
// Normal enqueue pushes to the left end and consumers pop the right end,
// so priority requeue pushes right to be delivered next. Each platform
// also has an error list for payloads that cannot be processed.
type RedisQueue struct {
	client redis.UniversalClient
}

func NewRedisQueue(client redis.UniversalClient) *RedisQueue {
	return &RedisQueue{client: client}
}

func queueKey(platform string) string     { return "queue:" + platform }
func deadQueueKey(platform string) string { return "queue:" + platform + "_error" }

// Enqueue pushes a job to the tail for approximately-FIFO delivery.
func (q *RedisQueue) Enqueue(ctx context.Context, platform string, msg *domain.JobMessage) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, queueKey(platform), payload).Err(); err != nil {
		return domain.ErrPersistence("queue enqueue: %v", err)
	}
	return nil
}

// RequeuePriority pushes a job to the delivery end so it is handed out
// before normally-queued work.
func (q *RedisQueue) RequeuePriority(ctx context.Context, platform string, msg *domain.JobMessage) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, queueKey(platform), payload).Err(); err != nil {
		return domain.ErrPersistence("queue priority requeue: %v", err)
	}
	return nil
}

// DequeueBlocking pops the next payload, blocking up to timeout. A timeout
// is not an error: it returns (nil, nil) so the consumer loop can check for
// shutdown between waits.
func (q *RedisQueue) DequeueBlocking(ctx context.Context, platform string, timeout time.Duration) ([]byte, error) {
	vals, err := q.client.BRPop(ctx, timeout, queueKey(platform)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, domain.ErrPersistence("queue dequeue: %v", err)
	}
	// BRPOP returns [key, value].
	return []byte(vals[1]), nil
}

// EnqueueDead parks a raw payload on the platform's error list.
func (q *RedisQueue) EnqueueDead(ctx context.Context, platform string, payload []byte) error {
	if err := q.client.LPush(ctx, deadQueueKey(platform), payload).Err(); err != nil {
		return domain.ErrPersistence("dead-letter enqueue: %v", err)
	}
	return nil
}
