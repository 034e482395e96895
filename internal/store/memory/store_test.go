package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rzbill/eventd/internal/event"
)

func TestCreateAssignsIncreasingIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, err := s.Create(ctx, "a", "", time.Now())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, _ := s.Create(ctx, "b", "", time.Now())
	if b.ID <= a.ID {
		t.Fatalf("ids must increase: %d then %d", a.ID, b.ID)
	}
	if a.Status != event.StatusPending {
		t.Fatalf("new event must be pending, got %s", a.Status)
	}
}

func TestListPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = s.Create(ctx, "e", "", time.Now())
	}

	page, err := s.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != 2 || page[1].ID != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}

	empty, _ := s.List(ctx, 10, 2)
	if len(empty) != 0 {
		t.Fatalf("offset past end must be empty, got %+v", empty)
	}
}

func TestGetMissing(t *testing.T) {
	s := New()
	if _, err := s.Get(context.Background(), 404); !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMarkCompletedIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	ev, _ := s.Create(ctx, "e", "", time.Now())

	first, err := s.MarkCompleted(ctx, ev.ID)
	if err != nil || first.Status != event.StatusCompleted {
		t.Fatalf("first mark: %+v %v", first, err)
	}
	second, err := s.MarkCompleted(ctx, ev.ID)
	if err != nil || second.Status != event.StatusCompleted {
		t.Fatalf("repeat mark must succeed: %+v %v", second, err)
	}
}

func TestListPendingBefore(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	old, _ := s.Create(ctx, "old", "", time.Now())
	done, _ := s.Create(ctx, "done", "", time.Now())
	_, _ = s.MarkCompleted(ctx, done.ID)
	clock = base.Add(time.Hour)
	_, _ = s.Create(ctx, "fresh", "", time.Now())

	got, err := s.ListPendingBefore(ctx, base.Add(30*time.Minute), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(got) != 1 || got[0].ID != old.ID {
		t.Fatalf("want only stale pending event %d, got %+v", old.ID, got)
	}
}
