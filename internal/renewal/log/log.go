// Package log configures the process-wide slog logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Setup installs the default slog handler once. A nil w logs to stderr.
func Setup(w io.Writer, debug bool) {
	initOnce.Do(func() {
		if w == nil {
			w = os.Stderr
		}
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}

		handler := slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: debug,
		})

		slog.SetDefault(slog.New(handler))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// Component returns the default logger tagged with the part of renewal
// that logs through it.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

// RecoverPanic logs a panic of the named component and runs cleanup.
// It must be deferred directly. Panics raised before Setup still reach
// stderr.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		logger := Component(name)
		if !Initialized() {
			logger = slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", name)
		}
		logger.Error(fmt.Sprintf("Panic in %s", name),
			"panic", r,
			"stack", string(debug.Stack()))
		if cleanup != nil {
			cleanup()
		}
	}
}
