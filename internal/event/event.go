package event

import (
	"errors"
	"strings"
	"time"
)

// Status is the lifecycle state of an event. The only transition is
// pending -> completed; completed is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Event is a scheduled event record. The store's status column is always
// independently sufficient to determine whether completion has happened;
// queue state never carries business state.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventTime   time.Time `json:"event_time"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	// ErrNotFound is returned when an event id does not exist.
	ErrNotFound = errors.New("event not found")

	ErrInvalidTitle     = errors.New("title must not be empty")
	ErrInvalidEventTime = errors.New("event_time must be set")
)

// Validate checks submitted fields before persistence. Validation failures
// are never retried.
func Validate(title string, eventTime time.Time) error {
	if strings.TrimSpace(title) == "" {
		return ErrInvalidTitle
	}
	if eventTime.IsZero() {
		return ErrInvalidEventTime
	}
	return nil
}
