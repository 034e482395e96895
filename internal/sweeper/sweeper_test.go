package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rzbill/eventd/internal/queue"
	"github.com/rzbill/eventd/internal/store/memory"
	"github.com/rzbill/eventd/pkg/log"
)

type captureQueue struct {
	mu       sync.Mutex
	payloads [][]byte
	failPut  bool
}

func (c *captureQueue) Enqueue(ctx context.Context, payload []byte) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failPut {
		return 0, fmt.Errorf("%w: connection refused", queue.ErrUnavailable)
	}
	c.payloads = append(c.payloads, payload)
	return uint64(len(c.payloads)), nil
}

func (c *captureQueue) Reserve(ctx context.Context, timeout time.Duration) (*queue.Task, error) {
	return nil, nil
}

func (c *captureQueue) Ack(ctx context.Context, id uint64) error     { return nil }
func (c *captureQueue) Release(ctx context.Context, id uint64) error { return nil }
func (c *captureQueue) Close() error                                 { return nil }

func (c *captureQueue) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func TestSweepReEnqueuesStalePendingEvents(t *testing.T) {
	st := memory.New()
	q := &captureQueue{}
	ctx := context.Background()

	old, _ := st.Create(ctx, "stranded", "", time.Now())
	done, _ := st.Create(ctx, "done", "", time.Now())
	_, _ = st.MarkCompleted(ctx, done.ID)
	stranded2, _ := st.Create(ctx, "stranded too", "", time.Now())

	s := New(st, q, Options{Threshold: 10 * time.Minute}, log.NewTestLogger())
	// Pretend the sweep runs 11 minutes after the events were created.
	s.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 re-enqueued, got %d", n)
	}
	first, err := queue.ParsePayload(q.payloads[0])
	if err != nil || first.EventID != old.ID {
		t.Fatalf("first payload must be the oldest stranded event: %+v %v", first, err)
	}
	second, _ := queue.ParsePayload(q.payloads[1])
	if second.EventID != stranded2.ID {
		t.Fatalf("completed event must not be swept: %+v", second)
	}
}

func TestSweepSkipsWhenNothingStale(t *testing.T) {
	st := memory.New()
	q := &captureQueue{}
	ctx := context.Background()

	_, _ = st.Create(ctx, "fresh", "", time.Now())

	s := New(st, q, Options{Threshold: 10 * time.Minute}, log.NewTestLogger())
	n, err := s.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("fresh events must not be swept: n=%d err=%v", n, err)
	}
	if q.count() != 0 {
		t.Fatalf("unexpected enqueues: %d", q.count())
	}
}

func TestSweepHonorsBatchLimit(t *testing.T) {
	st := memory.New()
	q := &captureQueue{}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = st.Create(ctx, "e", "", time.Now())
	}

	s := New(st, q, Options{Threshold: time.Minute, Batch: 3}, log.NewTestLogger())
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err := s.Sweep(ctx)
	if err != nil || n != 3 {
		t.Fatalf("want batch of 3, got n=%d err=%v", n, err)
	}
}

func TestSweepStopsOnQueueOutage(t *testing.T) {
	st := memory.New()
	q := &captureQueue{failPut: true}
	ctx := context.Background()
	_, _ = st.Create(ctx, "e", "", time.Now())

	s := New(st, q, Options{Threshold: time.Minute}, log.NewTestLogger())
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err := s.Sweep(ctx)
	if !errors.Is(err, queue.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if n != 0 {
		t.Fatalf("no tasks should count as enqueued, got %d", n)
	}
}

func TestRunSweepsPeriodically(t *testing.T) {
	st := memory.New()
	q := &captureQueue{}
	ctx, cancel := context.WithCancel(context.Background())

	_, _ = st.Create(ctx, "e", "", time.Now())

	s := New(st, q, Options{Interval: 20 * time.Millisecond, Threshold: time.Minute, Batch: 10}, log.NewTestLogger())
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && q.count() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if q.count() == 0 {
		t.Fatal("periodic sweep never enqueued")
	}
}
