package service

import (
	"context"
	"log/slog"

	"aicheckr.app/mentions/common/logger"
	"aicheckr.app/mentions/internal/model"
	"aicheckr.app/mentions/internal/queue"
)

// IngestResult summarizes one delivery's worth of enqueue attempts.
// Failed events are reported, never retried synchronously; at-least-once
// delivery relies on the platform redelivering the webhook.
type IngestResult struct {
	Enqueued   int
	Duplicates int
	Failed     int
}

type MentionIngestService interface {
	Ingest(ctx context.Context, events []model.MentionEvent) IngestResult
}

type mentionIngestService struct {
	producer queue.Producer
	deduper  queue.Deduper
	username string
	clock    model.Clock
	logger   *slog.Logger
}

// NewMentionIngestService builds the ingest pipeline: dedupe, job
// construction, enqueue. deduper may be nil to disable duplicate
// suppression. clock defaults to time.Now via model.NewJob's caller.
func NewMentionIngestService(producer queue.Producer, deduper queue.Deduper, username string, clock model.Clock, log *slog.Logger) MentionIngestService {
	if log == nil {
		log = slog.Default()
	}
	return &mentionIngestService{
		producer: producer,
		deduper:  deduper,
		username: username,
		clock:    clock,
		logger:   log,
	}
}

func (s *mentionIngestService) Ingest(ctx context.Context, events []model.MentionEvent) IngestResult {
	var res IngestResult

	for _, ev := range events {
		ctx := logger.WithLogFields(ctx, logger.LogFields{
			MediaID:   logger.Ptr(ev.MediaID),
			CommentID: logger.Ptr(ev.CommentID),
			Component: "mentions.ingest",
		})

		if s.deduper != nil {
			seen, err := s.deduper.Seen(ctx, ev)
			if err != nil {
				// Enqueueing a duplicate beats dropping a real mention.
				s.logger.WarnContext(ctx, "dedupe check failed, enqueueing anyway", "error", err)
			} else if seen {
				s.logger.InfoContext(ctx, "duplicate mention dropped")
				res.Duplicates++
				continue
			}
		}

		job := model.NewJob(ev, s.username, s.clock)
		if _, err := s.producer.Enqueue(ctx, job); err != nil {
			// One event's failure must not abort its siblings.
			s.logger.ErrorContext(ctx, "enqueue failed", "error", err, "job_id", job.ID)
			res.Failed++
			continue
		}
		res.Enqueued++
	}

	return res
}
