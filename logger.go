package colorize

import (
	"log/slog"
	"sync/atomic"
)

// logger holds the package logger. It is never nil.
var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(discardLogger())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// SetLogger installs l for colorize and the registered accelerator.
// colorize is silent until SetLogger is called; nil restores silence.
// SetLogger is safe for concurrent use.
//
// Levels:
//   - [slog.LevelDebug]: palette size, CPU workers, accelerator declines
//   - [slog.LevelInfo]: accelerator registration, GPU adapter selected
//   - [slog.LevelWarn]: accelerator and frame failures
//
// Example:
//
//	colorize.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = discardLogger()
	}
	logger.Store(l)
	if a := RegisteredAccelerator(); a != nil {
		propagateLogger(a, l)
	}
}

// Logger returns the logger set by SetLogger.
func Logger() *slog.Logger {
	return logger.Load()
}

// propagateLogger hands l to accelerators that log on their own.
func propagateLogger(a Accelerator, l *slog.Logger) {
	if ls, ok := a.(interface{ SetLogger(*slog.Logger) }); ok {
		ls.SetLogger(l)
	}
}
