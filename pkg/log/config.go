package log

import (
	stdlog "log"
	"strings"
)

// Config is a declarative logger configuration, typically sourced from
// flags or environment.
type Config struct {
	// Level is the minimum level name: debug|info|warn|error|fatal.
	Level string
	// Format selects the formatter: text|json.
	Format string
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "json":
		formatter = &JSONFormatter{}
	case "text", "":
		formatter = &TextFormatter{}
	default:
		return nil, errUnknownFormat(cfg.Format)
	}
	return NewLogger(
		WithLevel(level),
		WithFormatter(formatter),
		WithOutput(NewConsoleOutput()),
	), nil
}

type errUnknownFormat string

func (e errUnknownFormat) Error() string { return "log: unknown format " + string(e) }

// RedirectStdLog routes standard library log output (used by Pebble and
// other dependencies) through the provided logger at Info level.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdLogWriter{l: l})
}

type stdLogWriter struct{ l Logger }

func (w stdLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.l.Info(msg)
	}
	return len(p), nil
}
