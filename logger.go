package frameloop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/frameloop/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for frameloop and its gpu package.
// By default, frameloop produces no log output. Orchestrators created
// without WithLogger use the logger current at New.
//
// SetLogger is safe for concurrent use. Pass nil to disable logging.
//
// Log levels used by frameloop:
//   - [slog.LevelDebug]: frame internals (phase timings, slot waits, releases)
//   - [slog.LevelInfo]: lifecycle (run started, stopped)
//   - [slog.LevelWarn]: non-critical module failures, expired surfaces, release panics
//   - [slog.LevelError]: critical module failures
//
// Example:
//
//	frameloop.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
}

// Logger returns the current package logger.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
