// Package sweeper reconciles the store with the queue. Events can be left
// pending with no live completion task when an enqueue was swallowed during
// a queue outage or a task was dropped; the sweep re-enqueues completion
// tasks for pending events older than a threshold. Re-enqueueing an event
// that still has a task in flight is harmless because completion is
// idempotent.
package sweeper

import (
	"context"
	"time"

	"github.com/rzbill/eventd/internal/queue"
	"github.com/rzbill/eventd/internal/store"
	"github.com/rzbill/eventd/pkg/log"
)

// Options tunes the sweep.
type Options struct {
	// Interval is the period between sweeps in Run.
	Interval time.Duration
	// Threshold is how old a pending event must be before it is considered
	// stranded. It must comfortably exceed the normal processing delay.
	Threshold time.Duration
	// Batch caps how many events one sweep re-enqueues.
	Batch int
}

func (o *Options) withDefaults() {
	if o.Interval <= 0 {
		o.Interval = time.Minute
	}
	if o.Threshold <= 0 {
		o.Threshold = 10 * time.Minute
	}
	if o.Batch <= 0 {
		o.Batch = 256
	}
}

// Sweeper re-enqueues completion tasks for stranded pending events.
type Sweeper struct {
	store  store.Store
	queue  queue.Client
	opts   Options
	logger log.Logger

	now func() time.Time
}

// New builds a Sweeper.
func New(st store.Store, q queue.Client, opts Options, logger log.Logger) *Sweeper {
	opts.withDefaults()
	return &Sweeper{
		store:  st,
		queue:  q,
		opts:   opts,
		logger: logger.WithComponent("sweeper"),
		now:    time.Now,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled. Sweep failures are
// logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("sweeper started",
		log.Dur("interval", s.opts.Interval),
		log.Dur("threshold", s.opts.Threshold))

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", log.Err(err))
			}
		}
	}
}

// Sweep performs one pass and returns how many tasks were re-enqueued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.opts.Threshold)
	stale, err := s.store.ListPendingBefore(ctx, cutoff, s.opts.Batch)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		s.logger.Debug("sweep found nothing to do")
		return 0, nil
	}

	enqueued := 0
	for _, ev := range stale {
		if _, err := s.queue.Enqueue(ctx, queue.EncodePayload(ev.ID)); err != nil {
			// Stop the pass; the rest will be picked up next time.
			s.logger.Warn("sweep enqueue failed", log.Int64("event_id", ev.ID), log.Err(err))
			return enqueued, err
		}
		enqueued++
	}
	s.logger.Info("sweep re-enqueued stranded events",
		log.Int("count", enqueued),
		log.Str("cutoff", cutoff.Format(time.RFC3339)))
	return enqueued, nil
}
