// Package worker drains the mention queue and runs the reply workflow for
// each job. It is the consumer side of the push contract the webhook server
// produces against.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"aicheckr.app/mentions/common/logger"
	"aicheckr.app/mentions/internal/model"
	"aicheckr.app/mentions/internal/queue"
	"aicheckr.app/mentions/internal/service"
)

type Worker struct {
	consumer *queue.RedisConsumer
	reply    service.ReplyService

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, reply service.ReplyService) *Worker {
	return &Worker{
		consumer:  consumer,
		reply:     reply,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOne(ctx); err != nil {
				slog.ErrorContext(ctx, "job processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOne(ctx context.Context) error {
	job, err := w.consumer.Dequeue(ctx)
	if err != nil {
		return fmt.Errorf("dequeuing job: %w", err)
	}
	if job == nil {
		return nil
	}

	return w.processJobSafe(ctx, *job)
}

func (w *Worker) processJobSafe(ctx context.Context, job model.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in job processing",
				"panic", r,
				"job_id", job.ID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessJob(ctx, job)
}

// ProcessJob runs the reply workflow for one dequeued job.
func (w *Worker) ProcessJob(ctx context.Context, job model.Job) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobID:     logger.Ptr(job.ID),
		MediaID:   logger.Ptr(job.MediaID),
		CommentID: logger.Ptr(job.CommentID),
		Component: "mentions.worker",
	})

	sc := logger.StartSpan(ctx, "worker.process_job", trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	slog.InfoContext(ctx, "processing job", "status", string(job.Status), "created_at", job.CreatedAt)

	outcome := w.reply.HandleMention(ctx, model.MentionEvent{
		MediaID:   job.MediaID,
		CommentID: job.CommentID,
	})

	slog.InfoContext(ctx, "job processed", "outcome", string(outcome))
	return nil
}
