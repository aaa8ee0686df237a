package logging

import (
	"context"
	"log/slog"
)

// teeHandler duplicates every record to a set of destination handlers,
// typically stdout plus the systemd journal. A record reaches each
// destination that is enabled for its level.
type teeHandler struct {
	dests []slog.Handler
}

func newTeeHandler(dests ...slog.Handler) *teeHandler {
	return &teeHandler{dests: dests}
}

// Enabled reports whether at least one destination accepts the level.
func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, d := range t.dests {
		if d.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every enabled destination. Delivery
// failures are swallowed so one sink cannot silence the others.
func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, d := range t.dests {
		if d.Enabled(ctx, r.Level) {
			_ = d.Handle(ctx, r.Clone())
		}
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(d slog.Handler) slog.Handler { return d.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(d slog.Handler) slog.Handler { return d.WithGroup(name) })
}

func (t *teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	dests := make([]slog.Handler, len(t.dests))
	for i, d := range t.dests {
		dests[i] = fn(d)
	}
	return &teeHandler{dests: dests}
}
