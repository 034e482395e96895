// Package startrun runs every role (HTTP API, completion worker and
// reconciliation sweep) inside one process over a single Runtime. This is
// the only topology that works with the embedded queue, whose data
// directory is locked by the owning process.
package startrun

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	serverrun "github.com/rzbill/eventd/internal/cmd/server"
	"github.com/rzbill/eventd/internal/runtime"
	httpserver "github.com/rzbill/eventd/internal/server/http"
	"github.com/rzbill/eventd/internal/sweeper"
	"github.com/rzbill/eventd/internal/worker"
	logpkg "github.com/rzbill/eventd/pkg/log"
)

// Run starts all roles and blocks until ctx is cancelled or the HTTP
// server fails.
func Run(ctx context.Context, opts serverrun.Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := serverrun.Load(opts)
	if err != nil {
		return err
	}
	logger := serverrun.NewLogger(cfg)

	rt, err := runtime.Open(sctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting eventd",
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("queue_driver", cfg.Queue.Driver),
		logpkg.Str("level", cfg.LogLevel),
		logpkg.Str("format", cfg.LogFormat),
	)

	wctx, cancel := context.WithCancel(sctx)
	defer cancel()

	var wg sync.WaitGroup

	w := worker.New(rt.Store(), rt.Queue(), worker.Options{
		ReserveTimeout: cfg.Worker.ReserveTimeout.Std(),
		ProcessDelay:   cfg.Worker.ProcessDelay.Std(),
		BackoffBase:    cfg.Worker.BackoffBase.Std(),
		BackoffMax:     cfg.Worker.BackoffMax.Std(),
	}, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.Run(wctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped", logpkg.Err(err))
		}
	}()

	s := sweeper.New(rt.Store(), rt.Queue(), sweeper.Options{
		Interval:  cfg.Sweep.Interval.Std(),
		Threshold: cfg.Sweep.Threshold.Std(),
		Batch:     cfg.Sweep.Batch,
	}, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Run(wctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sweeper stopped", logpkg.Err(err))
		}
	}()

	srv := httpserver.New(rt)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(sctx, cfg.HTTPAddr) }()

	var runErr error
	select {
	case <-sctx.Done():
		srv.Close()
		<-errCh
	case err := <-errCh:
		runErr = err
	}

	cancel()
	wg.Wait()
	return runErr
}
