// Package beanstalk implements the queue.Client contract over a beanstalkd
// server. Reserve/delete/release and the per-job TTR map one to one onto
// the lease contract: a reserved job whose holder crashes is redelivered by
// the server when its TTR runs out.
package beanstalk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beanstalkd/go-beanstalk"

	"github.com/rzbill/eventd/internal/queue"
)

// defaultPriority is the beanstalkd priority for all completion tasks; the
// pipeline has no priority ordering requirements.
const defaultPriority = 1024

// Options configures the client.
type Options struct {
	// Addr is the beanstalkd TCP address.
	Addr string
	// Tube isolates eventd's tasks from other users of the server.
	Tube string
	// LeaseTTR is the time-to-run granted to each reservation.
	LeaseTTR time.Duration
}

// Client talks to a beanstalkd server. Safe for concurrent use; the
// underlying text protocol connection is serialized by a mutex and redialed
// on demand after failures.
type Client struct {
	opts Options

	mu   sync.Mutex
	conn *beanstalk.Conn
	tube *beanstalk.Tube
	set  *beanstalk.TubeSet
}

// Dial connects to beanstalkd.
func Dial(opts Options) (*Client, error) {
	if opts.Tube == "" {
		opts.Tube = "default"
	}
	if opts.LeaseTTR <= 0 {
		opts.LeaseTTR = 60 * time.Second
	}
	c := &Client{opts: opts}
	if err := c.redial(); err != nil {
		return nil, err
	}
	return c, nil
}

// redial (re)establishes the connection. Callers hold c.mu or are the
// constructor.
func (c *Client) redial() error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	conn, err := beanstalk.Dial("tcp", c.opts.Addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", queue.ErrUnavailable, c.opts.Addr, err)
	}
	c.conn = conn
	c.tube = &beanstalk.Tube{Conn: conn, Name: c.opts.Tube}
	c.set = beanstalk.NewTubeSet(conn, c.opts.Tube)
	return nil
}

// Enqueue puts a task into the tube. Failures are reported as
// queue.ErrUnavailable so callers can apply the swallow-and-warn policy.
func (c *Client) Enqueue(ctx context.Context, payload []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.tube.Put(payload, defaultPriority, 0, c.opts.LeaseTTR)
	if err != nil {
		// One redial attempt covers server restarts between calls.
		if rerr := c.redial(); rerr != nil {
			return 0, rerr
		}
		id, err = c.tube.Put(payload, defaultPriority, 0, c.opts.LeaseTTR)
		if err != nil {
			return 0, fmt.Errorf("%w: put: %v", queue.ErrUnavailable, err)
		}
	}
	return id, nil
}

// Reserve waits up to timeout for a job. A server-side timeout is not an
// error: it returns (nil, nil).
func (c *Client) Reserve(ctx context.Context, timeout time.Duration) (*queue.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id, body, err := c.set.Reserve(timeout)
	if err != nil {
		if isTimeout(err) {
			return nil, nil
		}
		if rerr := c.redial(); rerr != nil {
			return nil, rerr
		}
		return nil, fmt.Errorf("%w: reserve: %v", queue.ErrUnavailable, err)
	}
	return &queue.Task{ID: id, Payload: body}, nil
}

// Ack deletes the job from the server.
func (c *Client) Ack(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.Delete(id); err != nil {
		return fmt.Errorf("%w: delete %d: %v", queue.ErrUnavailable, id, err)
	}
	return nil
}

// Release returns the job to the ready queue immediately.
func (c *Client) Release(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.Release(id, defaultPriority, 0); err != nil {
		return fmt.Errorf("%w: release %d: %v", queue.ErrUnavailable, id, err)
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// isTimeout reports whether err is the server's TIMED_OUT (or
// DEADLINE_SOON) reply to reserve-with-timeout.
func isTimeout(err error) bool {
	var cerr beanstalk.ConnError
	if errors.As(err, &cerr) {
		return errors.Is(cerr.Err, beanstalk.ErrTimeout) || errors.Is(cerr.Err, beanstalk.ErrDeadline)
	}
	return errors.Is(err, beanstalk.ErrTimeout) || errors.Is(err, beanstalk.ErrDeadline)
}
