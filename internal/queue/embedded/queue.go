package embedded

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/eventd/internal/queue"
	pebblestore "github.com/rzbill/eventd/internal/storage/pebble"
)

const (
	// pollInterval bounds how often Reserve rescans the ready index while
	// waiting for work.
	pollInterval = 50 * time.Millisecond
	// reclaimMax bounds how many expired leases one inline reclaim pass
	// returns to availability.
	reclaimMax = 64
)

// Queue is a Pebble-backed lease queue implementing queue.Client.
type Queue struct {
	db      *pebblestore.DB
	name    string
	leaseMs int64

	mu      sync.Mutex
	lastSeq uint64

	nowMs func() int64

	sweepStop chan struct{}
}

// Options configures an embedded queue.
type Options struct {
	// Name namespaces the queue's keyspace.
	Name string
	// LeaseTTR is how long a reservation stays exclusive before the task
	// becomes reservable again.
	LeaseTTR time.Duration
}

// Open initializes a Queue and restores lastSeq from metadata if present.
func Open(db *pebblestore.DB, opts Options) (*Queue, error) {
	if opts.Name == "" {
		opts.Name = "default"
	}
	if opts.LeaseTTR <= 0 {
		opts.LeaseTTR = 60 * time.Second
	}
	q := &Queue{
		db:      db,
		name:    opts.Name,
		leaseMs: opts.LeaseTTR.Milliseconds(),
		nowMs:   func() int64 { return time.Now().UnixMilli() },
	}
	if meta, err := db.Get(metaKey(opts.Name)); err == nil && len(meta) >= 8 {
		q.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return q, nil
}

// Enqueue inserts a task and indexes it for immediate availability.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	b := q.db.NewBatch()
	defer b.Close()

	q.lastSeq++
	seq := q.lastSeq
	if err := b.Set(msgKey(q.name, seq), encodeRecord(payload), nil); err != nil {
		return 0, err
	}
	if err := b.Set(readyKey(q.name, seq), nil, nil); err != nil {
		return 0, err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], q.lastSeq)
	if err := b.Set(metaKey(q.name), meta[:], nil); err != nil {
		return 0, err
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	return seq, nil
}

// Reserve blocks up to timeout for an available task, taking a lease on it.
// Expired leases are reclaimed inline so crashed holders cannot strand work
// even when no background sweeper runs.
func (q *Queue) Reserve(ctx context.Context, timeout time.Duration) (*queue.Task, error) {
	deadline := time.Now().Add(timeout)
	for {
		now := q.nowMs()
		_, _ = q.ReclaimExpired(ctx, now, reclaimMax)

		task, err := q.reserveOne(ctx, now)
		if err != nil {
			return nil, err
		}
		if task != nil {
			return task, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// reserveOne takes the lowest ready sequence, if any.
func (q *Queue) reserveOne(ctx context.Context, nowMs int64) (*queue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	prefix := readyPrefix(q.name)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for ok := iter.First(); ok; ok = iter.Next() {
		k := iter.Key()
		if len(k) < len(prefix)+8 {
			continue
		}
		seq := binary.BigEndian.Uint64(k[len(k)-8:])

		val, errGet := q.db.Get(msgKey(q.name, seq))
		if errGet != nil {
			// Orphaned index entry; drop it and keep scanning.
			_ = q.db.Delete(readyKey(q.name, seq))
			continue
		}
		payload, okDec := decodeRecord(val)
		if !okDec {
			// Corrupt record; unrecoverable, remove both sides.
			_ = q.db.Delete(readyKey(q.name, seq))
			_ = q.db.Delete(msgKey(q.name, seq))
			continue
		}

		exp := uint64(nowMs + q.leaseMs)
		var lbuf [8]byte
		binary.BigEndian.PutUint64(lbuf[:], exp)

		b := q.db.NewBatch()
		defer b.Close()
		if err := b.Set(leaseKey(q.name, seq), lbuf[:], nil); err != nil {
			return nil, err
		}
		if err := b.Set(leaseIdxKey(q.name, exp, seq), nil, nil); err != nil {
			return nil, err
		}
		if err := b.Delete(readyKey(q.name, seq), nil); err != nil {
			return nil, err
		}
		if err := q.db.CommitBatch(ctx, b); err != nil {
			return nil, err
		}
		return &queue.Task{ID: seq, Payload: payload}, nil
	}
	return nil, nil
}

// Ack permanently removes a reserved task: lease, expiry index and payload.
func (q *Queue) Ack(ctx context.Context, id uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	b := q.db.NewBatch()
	defer b.Close()
	if lv, err := q.db.Get(leaseKey(q.name, id)); err == nil && len(lv) >= 8 {
		exp := binary.BigEndian.Uint64(lv[:8])
		if err := b.Delete(leaseIdxKey(q.name, exp, id), nil); err != nil {
			return err
		}
	}
	if err := b.Delete(leaseKey(q.name, id), nil); err != nil {
		return err
	}
	if err := b.Delete(msgKey(q.name, id), nil); err != nil {
		return err
	}
	return q.db.CommitBatch(ctx, b)
}

// Release returns a reserved task to availability immediately.
func (q *Queue) Release(ctx context.Context, id uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	b := q.db.NewBatch()
	defer b.Close()
	if lv, err := q.db.Get(leaseKey(q.name, id)); err == nil && len(lv) >= 8 {
		exp := binary.BigEndian.Uint64(lv[:8])
		if err := b.Delete(leaseIdxKey(q.name, exp, id), nil); err != nil {
			return err
		}
	}
	if err := b.Delete(leaseKey(q.name, id), nil); err != nil {
		return err
	}
	if err := b.Set(readyKey(q.name, id), nil, nil); err != nil {
		return err
	}
	return q.db.CommitBatch(ctx, b)
}

// ReclaimExpired scans the lease expiry index and returns expired tasks to
// availability. Returns the number reclaimed.
func (q *Queue) ReclaimExpired(ctx context.Context, nowMs int64, max int) (int, error) {
	if nowMs <= 0 {
		nowMs = q.nowMs()
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	prefix := leaseIdxPrefix(q.name)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	b := q.db.NewBatch()
	defer b.Close()
	reclaimed := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		k := iter.Key()
		if len(k) < len(prefix)+8+8 {
			continue
		}
		exp := int64(binary.BigEndian.Uint64(k[len(prefix) : len(prefix)+8]))
		if exp > nowMs {
			// Index is sorted by expiry; nothing further is due.
			break
		}
		seq := binary.BigEndian.Uint64(k[len(k)-8:])
		if err := b.Delete(k, nil); err != nil {
			return reclaimed, err
		}
		if err := b.Delete(leaseKey(q.name, seq), nil); err != nil {
			return reclaimed, err
		}
		if err := b.Set(readyKey(q.name, seq), nil, nil); err != nil {
			return reclaimed, err
		}
		reclaimed++
		if max > 0 && reclaimed >= max {
			break
		}
	}
	if reclaimed > 0 {
		if err := q.db.CommitBatch(ctx, b); err != nil {
			return reclaimed, err
		}
	}
	return reclaimed, nil
}

// StartSweeper runs a background loop reclaiming expired leases, for
// processes that enqueue but never call Reserve.
func (q *Queue) StartSweeper(interval time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sweepStop != nil {
		return
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	q.sweepStop = make(chan struct{})
	go func(stop chan struct{}) {
		for {
			select {
			case <-stop:
				return
			case <-time.After(interval):
				_, _ = q.ReclaimExpired(context.Background(), q.nowMs(), 1024)
			}
		}
	}(q.sweepStop)
}

// StopSweeper stops the background sweeper. Safe to call repeatedly and
// concurrently with StartSweeper.
func (q *Queue) StopSweeper() {
	q.mu.Lock()
	stop := q.sweepStop
	q.sweepStop = nil
	q.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// Close stops background work. The underlying DB is owned by the caller.
func (q *Queue) Close() error {
	q.StopSweeper()
	return nil
}
