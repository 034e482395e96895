// Package runtime assembles the process-wide dependencies (store, queue,
// logger) from configuration and owns their lifecycle.
package runtime

import (
	"context"
	"fmt"

	"github.com/rzbill/eventd/internal/config"
	"github.com/rzbill/eventd/internal/queue"
	"github.com/rzbill/eventd/internal/queue/beanstalk"
	"github.com/rzbill/eventd/internal/queue/embedded"
	"github.com/rzbill/eventd/internal/store"
	"github.com/rzbill/eventd/internal/store/memory"
	"github.com/rzbill/eventd/internal/store/postgres"
	pebblestore "github.com/rzbill/eventd/internal/storage/pebble"
	"github.com/rzbill/eventd/pkg/log"
)

// Runtime holds the live dependencies of one eventd process.
type Runtime struct {
	cfg    *config.Config
	logger log.Logger

	store store.Store
	queue queue.Client
	db    *pebblestore.DB
}

// Open builds a Runtime from configuration. With no database URL the store
// is in-memory, which only makes sense when the API, worker and sweeper all
// run in one process.
func Open(ctx context.Context, cfg *config.Config, logger log.Logger) (*Runtime, error) {
	rt := &Runtime{cfg: cfg, logger: logger}

	if cfg.DatabaseURL != "" {
		st, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		rt.store = st
	} else {
		logger.Warn("no database configured, using in-memory store")
		rt.store = memory.New()
	}

	q, err := rt.openQueue()
	if err != nil {
		_ = rt.store.Close()
		return nil, err
	}
	rt.queue = q
	return rt, nil
}

func (rt *Runtime) openQueue() (queue.Client, error) {
	cfg := rt.cfg
	switch cfg.Queue.Driver {
	case config.QueueDriverBeanstalk:
		c, err := beanstalk.Dial(beanstalk.Options{
			Addr:     cfg.Queue.Addr,
			Tube:     cfg.Queue.Tube,
			LeaseTTR: cfg.Queue.LeaseTTR.Std(),
		})
		if err != nil {
			return nil, err
		}
		rt.logger.Info("queue connected",
			log.Str("driver", cfg.Queue.Driver),
			log.Str("addr", cfg.Queue.Addr),
			log.Str("tube", cfg.Queue.Tube))
		return c, nil
	case config.QueueDriverEmbedded:
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir: cfg.DataDir,
			Fsync:   pebblestore.FsyncModeAlways,
		})
		if err != nil {
			return nil, err
		}
		q, err := embedded.Open(db, embedded.Options{
			Name:     cfg.Queue.Tube,
			LeaseTTR: cfg.Queue.LeaseTTR.Std(),
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		rt.db = db
		rt.logger.Info("queue opened",
			log.Str("driver", cfg.Queue.Driver),
			log.Str("data_dir", cfg.DataDir),
			log.Str("tube", cfg.Queue.Tube))
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}

// Config returns the runtime's configuration.
func (rt *Runtime) Config() *config.Config { return rt.cfg }

// Logger returns the process logger.
func (rt *Runtime) Logger() log.Logger { return rt.logger }

// Store returns the event store.
func (rt *Runtime) Store() store.Store { return rt.store }

// Queue returns the work queue client.
func (rt *Runtime) Queue() queue.Client { return rt.queue }

// CheckHealth verifies the backing dependencies are reachable.
func (rt *Runtime) CheckHealth(ctx context.Context) error {
	return rt.store.Ping(ctx)
}

// Close releases the runtime's resources in reverse open order.
func (rt *Runtime) Close() error {
	var firstErr error
	if rt.queue != nil {
		if err := rt.queue.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
