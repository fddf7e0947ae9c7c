package model

import (
	"fmt"
	"time"
)

type JobStatus string

// Lifecycle beyond enqueue belongs to the downstream consumer; the webhook
// side only ever creates jobs in StatusPending.
const StatusPending JobStatus = "pending"

// MentionEvent is one mention extracted from a webhook notification.
// Both ids are required; changes missing either are dropped during
// normalization and never reach the job builder.
type MentionEvent struct {
	MediaID   string
	CommentID string
}

// Job is the durable unit of work pushed onto the mention queue.
// A Job is immutable once constructed; only the queue consumer may
// transition its status.
type Job struct {
	ID        string    `json:"id"`
	MediaID   string    `json:"mediaId"`
	CommentID string    `json:"commentId"`
	Username  string    `json:"username"`
	Status    JobStatus `json:"status"`
	CreatedAt string    `json:"createdAt"`
}

// Clock supplies the current time. Injected so tests can pin the
// epoch-millisecond component of job ids.
type Clock func() time.Time

// NewJob builds a Job for one mention event. The id is the comment id joined
// with the creation time in epoch milliseconds; it is deliberately not a
// content hash (duplicate deliveries are filtered upstream by the deduper).
func NewJob(ev MentionEvent, username string, now Clock) Job {
	t := now()
	return Job{
		ID:        fmt.Sprintf("%s_%d", ev.CommentID, t.UnixMilli()),
		MediaID:   ev.MediaID,
		CommentID: ev.CommentID,
		Username:  username,
		Status:    StatusPending,
		CreatedAt: t.UTC().Format(time.RFC3339),
	}
}

// DedupeKey identifies a mention independent of delivery time. The platform
// redelivers notifications, so duplicate suppression keys on content, not on
// the time-derived job id.
func (e MentionEvent) DedupeKey() string {
	return fmt.Sprintf("%s:%s", e.MediaID, e.CommentID)
}
