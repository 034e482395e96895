// Package workerrun starts the completion worker process.
package workerrun

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	serverrun "github.com/rzbill/eventd/internal/cmd/server"
	"github.com/rzbill/eventd/internal/runtime"
	"github.com/rzbill/eventd/internal/worker"
	logpkg "github.com/rzbill/eventd/pkg/log"
)

// Options overrides configuration from the command line.
type Options struct {
	ConfigPath  string
	DatabaseURL string
	DataDir     string
	QueueDriver string
	QueueAddr   string
}

// Run starts the worker loop and blocks until ctx is cancelled.
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

	logger.Info("starting eventd worker",
		logpkg.Str("queue_driver", cfg.Queue.Driver),
		logpkg.Dur("process_delay", cfg.Worker.ProcessDelay.Std()),
	)

	w := worker.New(rt.Store(), rt.Queue(), worker.Options{
		ReserveTimeout: cfg.Worker.ReserveTimeout.Std(),
		ProcessDelay:   cfg.Worker.ProcessDelay.Std(),
		BackoffBase:    cfg.Worker.BackoffBase.Std(),
		BackoffMax:     cfg.Worker.BackoffMax.Std(),
	}, logger)

	if err := w.Run(sctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
