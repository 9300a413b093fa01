// Package ports defines the core interfaces for the application.
package ports

// Logger defines the interface for structured logging.
type Logger interface {
	// Debug logs a debug message. Hidden unless verbosity is raised twice.
	Debug(msg string)

	// Info logs an informational message.
	Info(msg string)

	// Warn logs a warning message.
	Warn(msg string)

	// Error logs an error, rendering wrapped causes hierarchically.
	Error(err error)

	// SetVerbosity maps a repeatable -v count to a log level:
	// 0 warn, 1 info, 2+ debug.
	SetVerbosity(count int)
}
