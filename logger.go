package shaderport

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/shaderport/fbcache"
	"github.com/gogpu/shaderport/glsl"
	"github.com/gogpu/shaderport/layout"
	"github.com/gogpu/shaderport/shadercache"
	"github.com/gogpu/shaderport/transform"
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
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for shaderport and all its sub-packages.
// By default, shaderport produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by shaderport:
//   - [slog.LevelDebug]: internal diagnostics (ported stages, cache churn)
//   - [slog.LevelWarn]: recoverable pack incompatibilities (conflicting
//     uniform types, unannotatable declarations, layout mismatches)
//
// Example:
//
//	// Enable warning-level logging to stderr:
//	shaderport.SetLogger(slog.Default())
//
//	// Enable debug-level logging for full diagnostics:
//	shaderport.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	glsl.SetLogger(l)
	layout.SetLogger(l)
	transform.SetLogger(l)
	shadercache.SetLogger(l)
	fbcache.SetLogger(l)
}

// Logger returns the current logger used by shaderport.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger { return loggerPtr.Load() }
