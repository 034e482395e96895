// Package service implements the event operations behind the API surface:
// submit, list, get and force-complete. It owns the decision of when a
// completion task is enqueued and of what happens when the queue is down.
package service

import (
	"context"
	"time"

	"github.com/rzbill/eventd/internal/event"
	"github.com/rzbill/eventd/internal/queue"
	"github.com/rzbill/eventd/internal/store"
	"github.com/rzbill/eventd/pkg/log"
)

const (
	// defaultListLimit applies when the caller does not specify one.
	defaultListLimit = 100
	// maxListLimit caps a single page regardless of what was asked for.
	maxListLimit = 1000
)

// Service wires the event store to the work queue.
type Service struct {
	store  store.Store
	queue  queue.Client
	logger log.Logger
}

// New builds a Service.
func New(st store.Store, q queue.Client, logger log.Logger) *Service {
	return &Service{
		store:  st,
		queue:  q,
		logger: logger.WithComponent("service"),
	}
}

// Submit validates and persists a new event, then enqueues its completion
// task. Persisting wins over enqueueing: if the queue is unavailable the
// event is still created and returned as pending, with a warning logged.
// The reconciliation sweep picks such events up later.
func (s *Service) Submit(ctx context.Context, title, description string, eventTime time.Time) (event.Event, error) {
	if err := event.Validate(title, eventTime); err != nil {
		return event.Event{}, err
	}

	ev, err := s.store.Create(ctx, title, description, eventTime)
	if err != nil {
		return event.Event{}, err
	}

	if _, err := s.queue.Enqueue(ctx, queue.EncodePayload(ev.ID)); err != nil {
		s.logger.Warn("completion task not enqueued, event stays pending until swept",
			log.Int64("event_id", ev.ID), log.Err(err))
	} else {
		s.logger.Debug("completion task enqueued", log.Int64("event_id", ev.ID))
	}
	return ev, nil
}

// List returns a page of events in insertion order. Negative offsets are
// treated as zero; limits are clamped to a sane page size.
func (s *Service) List(ctx context.Context, offset, limit int) ([]event.Event, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.List(ctx, offset, limit)
}

// Get returns one event by id.
func (s *Service) Get(ctx context.Context, id int64) (event.Event, error) {
	return s.store.Get(ctx, id)
}

// ForceComplete marks an event completed immediately, bypassing the queue.
// Any completion task still in flight becomes a no-op on redelivery.
func (s *Service) ForceComplete(ctx context.Context, id int64) (event.Event, error) {
	ev, err := s.store.MarkCompleted(ctx, id)
	if err != nil {
		return event.Event{}, err
	}
	s.logger.Info("event force-completed", log.Int64("event_id", id))
	return ev, nil
}
