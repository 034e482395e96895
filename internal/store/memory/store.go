// Package memory implements the Event Store in process memory. It backs
// tests and local development where no database is available.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rzbill/eventd/internal/event"
)

// Store is an in-memory event store. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	events map[int64]event.Event

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		events: make(map[int64]event.Event),
		now:    time.Now,
	}
}

func (s *Store) Create(ctx context.Context, title, description string, eventTime time.Time) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ev := event.Event{
		ID:          s.nextID,
		Title:       title,
		Description: description,
		EventTime:   eventTime,
		Status:      event.StatusPending,
		CreatedAt:   s.now().UTC(),
	}
	s.events[ev.ID] = ev
	return ev, nil
}

func (s *Store) List(ctx context.Context, offset, limit int) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]event.Event, 0, len(s.events))
	for _, ev := range s.events {
		all = append(all, ev)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return []event.Event{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]event.Event, len(all))
	copy(out, all)
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return ev, nil
}

func (s *Store) MarkCompleted(ctx context.Context, id int64) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	ev.Status = event.StatusCompleted
	s.events[id] = ev
	return ev, nil
}

func (s *Store) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]event.Event, 0)
	for _, ev := range s.events {
		if ev.Status == event.StatusPending && ev.CreatedAt.Before(cutoff) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
