// Package store defines the Event Store contract. The store is the source
// of truth for event state; queue state never is.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rzbill/eventd/internal/event"
)

// Store is the durable record of events and their status.
//
// MarkCompleted is idempotent: completing an already-completed event is a
// no-op success, which is what makes at-least-once task redelivery safe.
type Store interface {
	// Create persists a new event with status pending and returns the full
	// record. Callers must not enqueue a completion task if Create fails.
	Create(ctx context.Context, title, description string, eventTime time.Time) (event.Event, error)

	// List returns events in insertion order.
	List(ctx context.Context, offset, limit int) ([]event.Event, error)

	// Get returns one event or event.ErrNotFound.
	Get(ctx context.Context, id int64) (event.Event, error)

	// MarkCompleted transitions the event to completed and returns the
	// updated record. Returns event.ErrNotFound if the id does not exist.
	MarkCompleted(ctx context.Context, id int64) (event.Event, error)

	// ListPendingBefore returns pending events created before cutoff, for
	// the reconciliation sweep.
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]event.Event, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// StorageError marks a transient persistence failure: the worker retries
// with backoff, the API surfaces it without retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err with the failing operation name.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
