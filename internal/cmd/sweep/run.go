// Package sweeprun starts the reconciliation sweep, either periodically or
// as a one-shot pass.
package sweeprun

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	serverrun "github.com/rzbill/eventd/internal/cmd/server"
	"github.com/rzbill/eventd/internal/runtime"
	"github.com/rzbill/eventd/internal/sweeper"
	logpkg "github.com/rzbill/eventd/pkg/log"
)

// Options overrides configuration from the command line.
type Options struct {
	ConfigPath  string
	DatabaseURL string
	DataDir     string
	QueueDriver string
	QueueAddr   string

	// Once runs a single sweep pass instead of the periodic loop.
	Once bool
}

// Run executes the sweep per Options and blocks until done or cancelled.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := serverrun.Load(serverrun.Options{
		ConfigPath:  opts.ConfigPath,
		DatabaseURL: opts.DatabaseURL,
		DataDir:     opts.DataDir,
		QueueDriver: opts.QueueDriver,
		QueueAddr:   opts.QueueAddr,
	})
	if err != nil {
		return err
	}
	if err := serverrun.RequireNetworkQueue(cfg); err != nil {
		return err
	}
	logger := serverrun.NewLogger(cfg)

	rt, err := runtime.Open(sctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	s := sweeper.New(rt.Store(), rt.Queue(), sweeper.Options{
		Interval:  cfg.Sweep.Interval.Std(),
		Threshold: cfg.Sweep.Threshold.Std(),
		Batch:     cfg.Sweep.Batch,
	}, logger)

	if opts.Once {
		n, err := s.Sweep(sctx)
		if err != nil {
			return err
		}
		logger.Info("sweep finished", logpkg.Int("re_enqueued", n))
		return nil
	}

	if err := s.Run(sctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
