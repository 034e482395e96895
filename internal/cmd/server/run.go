// Package serverrun starts the HTTP API process.
package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/rzbill/eventd/internal/config"
	"github.com/rzbill/eventd/internal/runtime"
	httpserver "github.com/rzbill/eventd/internal/server/http"
	logpkg "github.com/rzbill/eventd/pkg/log"
)

// Options overrides configuration from the command line. Empty fields keep
// the file/env value.
type Options struct {
	ConfigPath  string
	HTTPAddr    string
	DatabaseURL string
	DataDir     string
	QueueDriver string
	QueueAddr   string
}

// Load resolves the effective configuration: defaults, then file, then
// environment, then flags.
func Load(opts Options) (cfgpkg.Config, error) {
	cfg, err := cfgpkg.Load(opts.ConfigPath)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)
	if opts.HTTPAddr != "" {
		cfg.HTTPAddr = opts.HTTPAddr
	}
	if opts.DatabaseURL != "" {
		cfg.DatabaseURL = opts.DatabaseURL
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.QueueDriver != "" {
		cfg.Queue.Driver = opts.QueueDriver
	}
	if opts.QueueAddr != "" {
		cfg.Queue.Addr = opts.QueueAddr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = cfgpkg.DefaultDataDir()
	}
	return cfg, nil
}

// RequireNetworkQueue rejects queue drivers that cannot be shared between
// processes. The embedded queue lives inside one process's data directory
// under an exclusive lock; the split server/worker/sweep roles can only
// meet through a network queue.
func RequireNetworkQueue(cfg cfgpkg.Config) error {
	if cfg.Queue.Driver == cfgpkg.QueueDriverEmbedded {
		return fmt.Errorf("embedded queue is single-process: run \"eventd start\" (all roles in one process) or set the queue driver to %q", cfgpkg.QueueDriverBeanstalk)
	}
	return nil
}

// NewLogger builds the process logger from configuration and routes stdlib
// logging through it.
func NewLogger(cfg cfgpkg.Config) logpkg.Logger {
	logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.LogLevel); e == nil {
			lvl = l
		}
		logger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	logpkg.RedirectStdLog(logger)
	return logger
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := Load(opts)
	if err != nil {
		return err
	}
	if err := RequireNetworkQueue(cfg); err != nil {
		return err
	}
	logger := NewLogger(cfg)

	rt, err := runtime.Open(sctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting eventd server",
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("queue_driver", cfg.Queue.Driver),
		logpkg.Str("level", cfg.LogLevel),
		logpkg.Str("format", cfg.LogFormat),
	)

	srv := httpserver.New(rt)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(sctx, cfg.HTTPAddr) }()

	select {
	case <-sctx.Done():
		srv.Close()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
