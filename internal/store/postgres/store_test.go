package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/rzbill/eventd/internal/event"
	"github.com/rzbill/eventd/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func eventRows(evs ...event.Event) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "title", "description", "event_time", "status", "created_at"})
	for _, ev := range evs {
		rows.AddRow(ev.ID, ev.Title, ev.Description, ev.EventTime, string(ev.Status), ev.CreatedAt)
	}
	return rows
}

func TestCreateReturnsStoredRecord(t *testing.T) {
	s, mock := newMockStore(t)
	when := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	want := event.Event{ID: 7, Title: "standup", Description: "daily", EventTime: when, Status: event.StatusPending, CreatedAt: time.Now().UTC()}

	mock.ExpectQuery(`INSERT INTO events`).
		WithArgs("standup", "daily", when, string(event.StatusPending)).
		WillReturnRows(eventRows(want))

	got, err := s.Create(context.Background(), "standup", "daily", when)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID != 7 || got.Status != event.StatusPending {
		t.Fatalf("unexpected event: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateWrapsDriverError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO events`).WillReturnError(errors.New("connection refused"))

	_, err := s.Create(context.Background(), "t", "", time.Now())
	var serr *store.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("want StorageError, got %v", err)
	}
}

func TestListOrdersByID(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM events ORDER BY id OFFSET \$1 LIMIT \$2`).
		WithArgs(0, 10).
		WillReturnRows(eventRows(
			event.Event{ID: 1, Title: "a", EventTime: now, Status: event.StatusPending, CreatedAt: now},
			event.Event{ID: 2, Title: "b", EventTime: now, Status: event.StatusCompleted, CreatedAt: now},
		))

	got, err := s.List(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestGetMapsNoRowsToNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), 42)
	if !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMarkCompletedUpdatesStatus(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`UPDATE events SET status = \$2 WHERE id = \$1`).
		WithArgs(int64(3), string(event.StatusCompleted)).
		WillReturnRows(eventRows(event.Event{ID: 3, Title: "t", EventTime: now, Status: event.StatusCompleted, CreatedAt: now}))

	got, err := s.MarkCompleted(context.Background(), 3)
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if got.Status != event.StatusCompleted {
		t.Fatalf("status not updated: %+v", got)
	}
}

func TestMarkCompletedMissingEvent(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`UPDATE events SET status = \$2 WHERE id = \$1`).
		WithArgs(int64(99), string(event.StatusCompleted)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.MarkCompleted(context.Background(), 99)
	if !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListPendingBeforeFiltersByStatusAndCutoff(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	cutoff := now.Add(-10 * time.Minute)
	mock.ExpectQuery(`SELECT .+ FROM events WHERE status = \$1 AND created_at < \$2`).
		WithArgs(string(event.StatusPending), cutoff).
		WillReturnRows(eventRows(event.Event{ID: 5, Title: "stale", EventTime: now, Status: event.StatusPending, CreatedAt: cutoff.Add(-time.Minute)}))

	got, err := s.ListPendingBefore(context.Background(), cutoff, 256)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(got) != 1 || got[0].ID != 5 {
		t.Fatalf("unexpected result: %+v", got)
	}
}
