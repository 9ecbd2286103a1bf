// Package logging decouples the pipeline from the underlying logging
// framework. Components receive a Logger through their constructors, which
// keeps them testable and keeps logrus out of everything but the adapter.
package logging

// Logger is the structured logging interface used across the pipeline.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithError returns a new logger with an error field attached.
	WithError(err error) Logger

	// WithField returns a new logger with a single field attached.
	WithField(key string, value interface{}) Logger

	// WithFields returns a new logger with multiple fields attached.
	WithFields(fields ...Field) Logger

	// Fatal logs a fatal-level message and exits the program.
	Fatal(msg string, fields ...Field)
}

// Field is a key-value pair attached to a log message.
type Field struct {
	Key   string
	Value interface{}
}
