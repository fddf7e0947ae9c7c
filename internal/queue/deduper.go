package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"aicheckr.app/mentions/internal/model"
)

// KeySetter is the slice of the Redis client the deduper needs.
// *redis.Client satisfies it.
type KeySetter interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Deduper suppresses duplicate webhook deliveries. The platform redelivers
// notifications, and the time-derived job id cannot catch that, so duplicates
// are keyed on (media_id, comment_id) instead.
type Deduper interface {
	// Seen returns true if the mention was already claimed within the TTL
	// window. The first caller for a given mention claims it atomically.
	Seen(ctx context.Context, ev model.MentionEvent) (bool, error)
}

type redisDeduper struct {
	client KeySetter
	prefix string
	ttl    time.Duration
}

func NewRedisDeduper(client KeySetter, queueKey string, ttl time.Duration) Deduper {
	return &redisDeduper{
		client: client,
		prefix: queueKey + ":seen:",
		ttl:    ttl,
	}
}

func (d *redisDeduper) Seen(ctx context.Context, ev model.MentionEvent) (bool, error) {
	claimed, err := d.client.SetNX(ctx, d.prefix+ev.DedupeKey(), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe check for %s: %w", ev.DedupeKey(), err)
	}
	return !claimed, nil
}
