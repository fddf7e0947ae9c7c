package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"aicheckr.app/mentions/internal/model"
)

// ListPopper is the slice of the Redis client the consumer needs.
// *redis.Client satisfies it.
type ListPopper interface {
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

type ConsumerConfig struct {
	Key   string        // Queue list key
	Block time.Duration // How long BRPOP blocks waiting for a job
}

type RedisConsumer struct {
	client ListPopper
	cfg    ConsumerConfig
}

func NewRedisConsumer(client ListPopper, cfg ConsumerConfig) *RedisConsumer {
	return &RedisConsumer{
		client: client,
		cfg:    cfg,
	}
}

// Dequeue pops the oldest job from the tail of the queue list. It returns
// (nil, nil) when the block window elapses with nothing to pop. A payload
// that does not decode as a Job is acked by the pop itself; the caller is
// expected to log and move on.
func (c *RedisConsumer) Dequeue(ctx context.Context) (*model.Job, error) {
	res, err := c.client.BRPop(ctx, c.cfg.Block, c.cfg.Key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("popping from %s: %w", c.cfg.Key, err)
	}

	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("popping from %s: unexpected reply of %d elements", c.cfg.Key, len(res))
	}

	var job model.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decoding job payload: %w", err)
	}

	slog.DebugContext(ctx, "job dequeued", "job_id", job.ID, "queue", c.cfg.Key)
	return &job, nil
}

// Length reports the number of jobs currently waiting in the queue.
func (c *RedisConsumer) Length(ctx context.Context) (int64, error) {
	length, err := c.client.LLen(ctx, c.cfg.Key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", c.cfg.Key, err)
	}
	return length, nil
}
