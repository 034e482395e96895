// Package queue defines the work queue client contract shared by the
// beanstalk and embedded backends.
//
// The queue is the source of truth for pending work only, never for
// business state: a task must never be the only record that an event needs
// completion. Delivery is at-least-once; a reservation grants a
// time-bounded exclusive lease, and a task acked only after the
// corresponding state transition committed can never be lost.
package queue

import (
	"context"
	"errors"
	"time"
)

// Task is a reserved queue message. ID identifies the reservation for
// Ack/Release; Payload is the raw wire bytes.
type Task struct {
	ID      uint64
	Payload []byte
}

// ErrUnavailable reports that the queue backend could not be reached.
// Enqueue callers treat it as non-fatal: the event is already durably
// pending and the reconciliation sweep recovers the task.
var ErrUnavailable = errors.New("queue unavailable")

// Client is the lease-based work queue contract.
type Client interface {
	// Enqueue inserts a task and returns its queue id.
	Enqueue(ctx context.Context, payload []byte) (uint64, error)

	// Reserve blocks up to timeout waiting for an available task and takes
	// a lease on it. Returns (nil, nil) when no task became available;
	// "no work" is never an error.
	Reserve(ctx context.Context, timeout time.Duration) (*Task, error)

	// Ack permanently removes a reserved task. Callers must commit the
	// state transition first; the order is commit-then-ack, never the
	// reverse.
	Ack(ctx context.Context, id uint64) error

	// Release returns a reserved task to availability immediately, for
	// fast redelivery after a transient failure instead of waiting out
	// the lease.
	Release(ctx context.Context, id uint64) error

	Close() error
}
