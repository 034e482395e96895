// Package postgres implements the Event Store on PostgreSQL via
// database/sql and the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rzbill/eventd/internal/event"
	"github.com/rzbill/eventd/internal/store"
	"github.com/rzbill/eventd/pkg/log"
)

// Store is a PostgreSQL-backed event store.
type Store struct {
	db *sql.DB
}

// Connect opens the database with retries and runs migrations. Retrying
// covers the common case of the database container still coming up.
func Connect(ctx context.Context, databaseURL string, logger log.Logger) (*Store, error) {
	var db *sql.DB
	var err error

	for i := 0; i < 30; i++ {
		db, err = sql.Open("pgx", databaseURL)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				break
			}
			_ = db.Close()
		}
		logger.Warn("database not ready, retrying", log.Err(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("connected to postgres")
	return s, nil
}

// New wraps an existing database handle. Used by tests.
func New(db *sql.DB) *Store { return &Store{db: db} }

const scanColumns = "id, title, description, event_time, status, created_at"

func scanEvent(row interface{ Scan(dest ...any) error }) (event.Event, error) {
	var ev event.Event
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.EventTime, &ev.Status, &ev.CreatedAt)
	return ev, err
}

// Create inserts a pending event and returns the stored record.
func (s *Store) Create(ctx context.Context, title, description string, eventTime time.Time) (event.Event, error) {
	const q = `
INSERT INTO events (title, description, event_time, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + scanColumns + `;`
	ev, err := scanEvent(s.db.QueryRowContext(ctx, q, title, description, eventTime, event.StatusPending))
	if err != nil {
		return event.Event{}, store.NewStorageError("create", err)
	}
	return ev, nil
}

// List returns events in insertion order.
func (s *Store) List(ctx context.Context, offset, limit int) ([]event.Event, error) {
	const q = `
SELECT ` + scanColumns + `
FROM events
ORDER BY id
OFFSET $1 LIMIT $2;`
	rows, err := s.db.QueryContext(ctx, q, offset, limit)
	if err != nil {
		return nil, store.NewStorageError("list", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0, limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, store.NewStorageError("list scan", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError("list rows", err)
	}
	return events, nil
}

// Get returns one event.
func (s *Store) Get(ctx context.Context, id int64) (event.Event, error) {
	const q = `
SELECT ` + scanColumns + `
FROM events
WHERE id = $1;`
	ev, err := scanEvent(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, store.NewStorageError("get", err)
	}
	return ev, nil
}

// MarkCompleted transitions the event to completed. The single-row UPDATE
// is the transactional boundary; re-applying it to a completed event is a
// no-op success.
func (s *Store) MarkCompleted(ctx context.Context, id int64) (event.Event, error) {
	const q = `
UPDATE events
SET status = $2
WHERE id = $1
RETURNING ` + scanColumns + `;`
	ev, err := scanEvent(s.db.QueryRowContext(ctx, q, id, event.StatusCompleted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, store.NewStorageError("mark completed", err)
	}
	return ev, nil
}

// ListPendingBefore returns pending events created before cutoff, oldest
// first, for the reconciliation sweep.
func (s *Store) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]event.Event, error) {
	const q = `
SELECT ` + scanColumns + `
FROM events
WHERE status = $1 AND created_at < $2
ORDER BY id
LIMIT $3;`
	rows, err := s.db.QueryContext(ctx, q, event.StatusPending, cutoff, limit)
	if err != nil {
		return nil, store.NewStorageError("list pending", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0, limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, store.NewStorageError("list pending scan", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError("list pending rows", err)
	}
	return events, nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }
