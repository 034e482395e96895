// Package worker runs the completion pipeline: it reserves completion tasks
// from the work queue, waits out the processing delay, marks the referenced
// event completed and only then acknowledges the task. State is committed
// before the ack so a crash between the two at worst causes a redelivery,
// never a lost completion.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rzbill/eventd/internal/event"
	"github.com/rzbill/eventd/internal/queue"
	"github.com/rzbill/eventd/internal/store"
	"github.com/rzbill/eventd/pkg/log"
)

// Options tunes the worker loop.
type Options struct {
	// ReserveTimeout bounds each blocking reserve call.
	ReserveTimeout time.Duration
	// ProcessDelay is how long a task is held before the event is completed.
	ProcessDelay time.Duration
	// BackoffBase and BackoffMax shape the retry delay after transient
	// storage failures.
	BackoffBase time.Duration
	// BackoffMax caps the retry delay.
	BackoffMax time.Duration
}

func (o *Options) withDefaults() {
	if o.ReserveTimeout <= 0 {
		o.ReserveTimeout = 5 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
}

// Worker consumes completion tasks until its context is cancelled.
type Worker struct {
	store  store.Store
	queue  queue.Client
	opts   Options
	logger log.Logger
}

// New builds a Worker.
func New(st store.Store, q queue.Client, opts Options, logger log.Logger) *Worker {
	opts.withDefaults()
	return &Worker{
		store:  st,
		queue:  q,
		opts:   opts,
		logger: logger.WithComponent("worker"),
	}
}

type reserveResult struct {
	task *queue.Task
	err  error
}

// Run loops until ctx is cancelled. Individual task failures never
// terminate the loop; they are logged and the task is released for a later
// attempt.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		log.Dur("reserve_timeout", w.opts.ReserveTimeout),
		log.Dur("process_delay", w.opts.ProcessDelay))

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("worker stopped")
			return err
		}

		// Reserve on a separate goroutine so shutdown does not wait out a
		// full reserve timeout against a slow or blocking backend.
		resCh := make(chan reserveResult, 1)
		go func() {
			task, err := w.queue.Reserve(ctx, w.opts.ReserveTimeout)
			resCh <- reserveResult{task: task, err: err}
		}()

		var res reserveResult
		select {
		case <-ctx.Done():
			// Give the in-flight reserve a moment to notice the cancel so
			// it does not outlive the queue it is reading from.
			select {
			case <-resCh:
			case <-time.After(time.Second):
			}
			w.logger.Info("worker stopped")
			return ctx.Err()
		case res = <-resCh:
		}

		if res.err != nil {
			if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
				continue
			}
			failures++
			w.logger.Error("reserve failed", log.Err(res.err), log.Int("failures", failures))
			w.sleep(ctx, backoffDelay(failures, w.opts.BackoffBase, w.opts.BackoffMax))
			continue
		}
		if res.task == nil {
			// Reserve timed out with no work available.
			continue
		}

		if w.handle(ctx, res.task) {
			failures = 0
		} else {
			failures++
			w.sleep(ctx, backoffDelay(failures, w.opts.BackoffBase, w.opts.BackoffMax))
		}
	}
}

// handle processes one reserved task. It reports whether the task reached a
// terminal outcome (acknowledged or dropped); false means it was released
// for another attempt.
func (w *Worker) handle(ctx context.Context, task *queue.Task) bool {
	payload, err := queue.ParsePayload(task.Payload)
	if err != nil {
		// Malformed payloads can never succeed. Ack them out of the queue
		// instead of letting them redeliver forever.
		w.logger.Warn("dropping malformed task",
			log.Uint64("task_id", task.ID), log.Err(err))
		w.ack(ctx, task.ID)
		return true
	}

	logger := w.logger.With(log.Uint64("task_id", task.ID), log.Int64("event_id", payload.EventID))

	if w.opts.ProcessDelay > 0 {
		if !w.sleep(ctx, w.opts.ProcessDelay) {
			// Shutting down mid-task: leave the lease to expire so another
			// worker picks the task up.
			logger.Info("shutdown during processing, task left for redelivery")
			return true
		}
	}

	if _, err := w.store.MarkCompleted(ctx, payload.EventID); err != nil {
		if errors.Is(err, event.ErrNotFound) {
			// The event is gone; the task is unfulfillable.
			logger.Warn("event missing, dropping task")
			w.ack(ctx, task.ID)
			return true
		}
		logger.Error("mark completed failed, releasing task", log.Err(err))
		if rerr := w.queue.Release(ctx, task.ID); rerr != nil {
			// The lease will expire on its own; redelivery just takes longer.
			logger.Warn("release failed, lease expiry will redeliver", log.Err(rerr))
		}
		return false
	}

	// Ack strictly after the status is committed.
	w.ack(ctx, task.ID)
	logger.Info("event completed")
	return true
}

func (w *Worker) ack(ctx context.Context, id uint64) {
	if err := w.queue.Ack(ctx, id); err != nil {
		// Completion is idempotent, so the inevitable redelivery is a no-op.
		w.logger.Warn("ack failed, expecting redelivery", log.Uint64("task_id", id), log.Err(err))
	}
}

// sleep waits for d or until ctx is cancelled. It reports whether the full
// duration elapsed.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
