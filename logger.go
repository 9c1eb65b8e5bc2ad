package termdraw

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message
// formatting entirely, making disabled logging effectively zero-cost.
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

// SetLogger configures the logger for termdraw and its sub-packages.
// By default, termdraw produces no log output.
//
// Log levels used by termdraw:
//   - [slog.LevelDebug]: per-frame diagnostics (generation dispatch,
//     mid-frame flushes)
//   - [slog.LevelInfo]: rare lifecycle events (atlas reset, atlas
//     growth, device recreation)
//   - [slog.LevelWarn]: non-fatal fallbacks (replacement glyph,
//     atlas-full retry)
//
// SetLogger is safe for concurrent use. Pass nil to disable logging.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by termdraw. Sub-packages
// (gpu/, backend/wgpu/) call this to share the same logger
// configuration without introducing import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
