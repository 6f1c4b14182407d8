package modhost

import (
	"io"
	"log/slog"
)

// Logger defines the structured logging surface used by the host.
// Arguments are key-value pairs:
//
//	logger.Info("Module started", "module", "demo:core", "version", "1.0")
//
// *slog.Logger satisfies it directly.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// NopLogger discards everything.
func NopLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// moduleAttrs returns the attribution keys logged with every module event.
func moduleAttrs(w *Wrapper, extra ...any) []any {
	d := w.Descriptor()
	args := []any{"module", d.ID(), "group", d.Group, "version", d.Version}
	return append(args, extra...)
}
