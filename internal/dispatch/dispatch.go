// Package dispatch runs post-acknowledgment work detached from the request
// that spawned it. The webhook controller acks the platform first; everything
// after that is a cooperative task whose failures are observable only
// through logs.
package dispatch

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"aicheckr.app/mentions/common/logger"
)

type Dispatcher interface {
	// Dispatch schedules task to run detached from ctx's cancellation while
	// keeping its values (log fields, trace context). name labels the span
	// and any panic report.
	Dispatch(ctx context.Context, name string, task func(ctx context.Context))
}

// Background runs dispatched tasks on their own goroutines, each bounded by
// a per-task timeout. Wait must be called during shutdown so the process
// stays alive until in-flight tasks settle.
type Background struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewBackground(taskTimeout time.Duration) *Background {
	if taskTimeout <= 0 {
		taskTimeout = 30 * time.Second
	}
	return &Background{timeout: taskTimeout}
}

func (d *Background) Dispatch(ctx context.Context, name string, task func(ctx context.Context)) {
	// Detach from the request's cancellation but keep its values; the
	// response is already sent when the task runs.
	taskCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		taskCtx, cancel := context.WithTimeout(taskCtx, d.timeout)
		defer cancel()

		sc := logger.StartSpan(taskCtx, name)
		defer sc.End()

		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(taskCtx, "panic in detached task",
					"task", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()

		task(sc.Context())
	}()
}

// Wait blocks until all dispatched tasks have settled.
func (d *Background) Wait() {
	d.wg.Wait()
}
