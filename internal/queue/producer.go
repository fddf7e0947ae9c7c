package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"aicheckr.app/mentions/internal/model"
)

var (
	// ErrTimeout reports that the queue did not acknowledge a push within
	// the configured ceiling. The push is never retried synchronously.
	ErrTimeout = errors.New("queue push timed out")

	// ErrUnavailable reports any non-timeout failure talking to the queue.
	ErrUnavailable = errors.New("queue unavailable")
)

// ListPusher is the slice of the Redis client the producer needs.
// *redis.Client satisfies it.
type ListPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

type Producer interface {
	// Enqueue appends one serialized job to the head of the queue list and
	// returns the resulting queue length. The consumer pops from the tail,
	// so the queue is FIFO end to end.
	Enqueue(ctx context.Context, job model.Job) (int64, error)
	Close() error
}

type redisProducer struct {
	client  ListPusher
	key     string
	timeout time.Duration
	logger  *slog.Logger
}

func NewRedisProducer(client ListPusher, key string, timeout time.Duration, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client:  client,
		key:     key,
		timeout: timeout,
		logger:  logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, job model.Job) (int64, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("marshaling job %s: %w", job.ID, err)
	}

	// The push must not ride on the platform's request timeout; it gets its
	// own ceiling so a stalled queue fails fast instead of hanging the task.
	pushCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	length, err := p.client.LPush(pushCtx, p.key, payload).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("enqueue job %s: %w", job.ID, ErrTimeout)
		}
		return 0, fmt.Errorf("enqueue job %s: %w: %w", job.ID, ErrUnavailable, err)
	}

	p.logger.InfoContext(ctx, "job enqueued", "job_id", job.ID, "media_id", job.MediaID, "comment_id", job.CommentID, "queue_length", length)
	return length, nil
}

func (p *redisProducer) Close() error {
	if c, ok := p.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
