package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rzbill/eventd/internal/event"
	"github.com/rzbill/eventd/internal/queue"
	"github.com/rzbill/eventd/internal/store/memory"
	"github.com/rzbill/eventd/pkg/log"
)

// fakeQueue records enqueued payloads and can be told to fail.
type fakeQueue struct {
	payloads [][]byte
	failPut  bool
}

func (f *fakeQueue) Enqueue(ctx context.Context, payload []byte) (uint64, error) {
	if f.failPut {
		return 0, fmt.Errorf("%w: connection refused", queue.ErrUnavailable)
	}
	f.payloads = append(f.payloads, payload)
	return uint64(len(f.payloads)), nil
}

func (f *fakeQueue) Reserve(ctx context.Context, timeout time.Duration) (*queue.Task, error) {
	return nil, nil
}

func (f *fakeQueue) Ack(ctx context.Context, id uint64) error     { return nil }
func (f *fakeQueue) Release(ctx context.Context, id uint64) error { return nil }
func (f *fakeQueue) Close() error                                 { return nil }

func newTestService(q queue.Client) *Service {
	return New(memory.New(), q, log.NewTestLogger())
}

func TestSubmitPersistsAndEnqueues(t *testing.T) {
	fq := &fakeQueue{}
	svc := newTestService(fq)

	ev, err := svc.Submit(context.Background(), "standup", "daily sync", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ev.ID == 0 || ev.Status != event.StatusPending {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if len(fq.payloads) != 1 {
		t.Fatalf("want one enqueued task, got %d", len(fq.payloads))
	}
	p, err := queue.ParsePayload(fq.payloads[0])
	if err != nil || p.EventID != ev.ID {
		t.Fatalf("payload must carry the event id: %+v %v", p, err)
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	fq := &fakeQueue{}
	svc := newTestService(fq)

	if _, err := svc.Submit(context.Background(), "", "", time.Now()); !errors.Is(err, event.ErrInvalidTitle) {
		t.Fatalf("want ErrInvalidTitle, got %v", err)
	}
	if _, err := svc.Submit(context.Background(), "ok", "", time.Time{}); !errors.Is(err, event.ErrInvalidEventTime) {
		t.Fatalf("want ErrInvalidEventTime, got %v", err)
	}
	if len(fq.payloads) != 0 {
		t.Fatalf("invalid submits must not enqueue")
	}
}

func TestSubmitSurvivesQueueOutage(t *testing.T) {
	fq := &fakeQueue{failPut: true}
	svc := newTestService(fq)

	ev, err := svc.Submit(context.Background(), "standup", "", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("queue outage must not fail submit: %v", err)
	}
	if ev.Status != event.StatusPending {
		t.Fatalf("event must stay pending, got %s", ev.Status)
	}
	got, err := svc.Get(context.Background(), ev.ID)
	if err != nil || got.ID != ev.ID {
		t.Fatalf("event must be persisted: %+v %v", got, err)
	}
}

func TestListClampsLimits(t *testing.T) {
	fq := &fakeQueue{}
	svc := newTestService(fq)
	ctx := context.Background()
	for i := 0; i < 150; i++ {
		_, _ = svc.Submit(ctx, "e", "", time.Now().Add(time.Hour))
	}

	page, err := svc.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != defaultListLimit {
		t.Fatalf("zero limit must default to %d, got %d", defaultListLimit, len(page))
	}

	page, _ = svc.List(ctx, -5, 10)
	if len(page) != 10 || page[0].ID != 1 {
		t.Fatalf("negative offset must read from the start: %+v", page[:1])
	}
}

func TestForceComplete(t *testing.T) {
	fq := &fakeQueue{}
	svc := newTestService(fq)
	ctx := context.Background()

	ev, _ := svc.Submit(ctx, "e", "", time.Now().Add(time.Hour))
	done, err := svc.ForceComplete(ctx, ev.ID)
	if err != nil || done.Status != event.StatusCompleted {
		t.Fatalf("force complete: %+v %v", done, err)
	}
	if _, err := svc.ForceComplete(ctx, 404); !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
