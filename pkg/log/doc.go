// Package log provides eventd's structured logging facade.
//
// The package exposes a small Logger interface with leveled methods and a
// typed Field for structured context. Internally it is backed by Go's
// standard library slog via a bridge handler that preserves the
// formatter/outputs pipeline, so output stays consistent across the
// codebase while remaining interoperable with the slog ecosystem.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("worker"))
//	l.Info("task acknowledged", log.Int64("event_id", 42))
//
// Use ApplyConfig to build a logger from a declarative Config (level plus
// text or JSON formatting). To integrate with libraries that expect the
// standard library logger, use RedirectStdLog.
package log
