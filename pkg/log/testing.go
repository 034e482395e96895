package log

import "io"

// NewTestLogger returns a quiet logger for use in tests. Entries are
// formatted but discarded.
func NewTestLogger() Logger {
	return NewLogger(
		WithLevel(ErrorLevel),
		WithFormatter(&TextFormatter{}),
		WithOutput(NewWriterOutput(io.Discard)),
	)
}
