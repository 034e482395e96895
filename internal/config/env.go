package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays EVENTD_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("EVENTD_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("EVENTD_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("EVENTD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("EVENTD_QUEUE_DRIVER"); v != "" {
		cfg.Queue.Driver = v
	}
	if v := os.Getenv("EVENTD_QUEUE_ADDR"); v != "" {
		cfg.Queue.Addr = v
	}
	if v := os.Getenv("EVENTD_QUEUE_TUBE"); v != "" {
		cfg.Queue.Tube = v
	}
	if d, ok := envDuration("EVENTD_QUEUE_LEASE_TTR"); ok {
		cfg.Queue.LeaseTTR = d
	}
	if d, ok := envDuration("EVENTD_WORKER_RESERVE_TIMEOUT"); ok {
		cfg.Worker.ReserveTimeout = d
	}
	if d, ok := envDuration("EVENTD_WORKER_PROCESS_DELAY"); ok {
		cfg.Worker.ProcessDelay = d
	}
	if d, ok := envDuration("EVENTD_WORKER_BACKOFF_BASE"); ok {
		cfg.Worker.BackoffBase = d
	}
	if d, ok := envDuration("EVENTD_WORKER_BACKOFF_MAX"); ok {
		cfg.Worker.BackoffMax = d
	}
	if d, ok := envDuration("EVENTD_SWEEP_INTERVAL"); ok {
		cfg.Sweep.Interval = d
	}
	if d, ok := envDuration("EVENTD_SWEEP_THRESHOLD"); ok {
		cfg.Sweep.Threshold = d
	}
	if v := os.Getenv("EVENTD_SWEEP_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sweep.Batch = n
		}
	}
	if v := os.Getenv("EVENTD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("EVENTD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

func envDuration(key string) (Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return Duration(d), true
}
