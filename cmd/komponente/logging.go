package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// splitHandler sends records below ERROR to out and the rest to errOut.
// Records below minLevel are dropped.
type splitHandler struct {
	minLevel slog.Leveler
	out      slog.Handler
	errOut   slog.Handler
}

func (h *splitHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel.Level()
}

func (h *splitHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return h.errOut.Handle(ctx, r)
	}
	return h.out.Handle(ctx, r)
}

func (h *splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &splitHandler{minLevel: h.minLevel, out: h.out.WithAttrs(attrs), errOut: h.errOut.WithAttrs(attrs)}
}

func (h *splitHandler) WithGroup(name string) slog.Handler {
	return &splitHandler{minLevel: h.minLevel, out: h.out.WithGroup(name), errOut: h.errOut.WithGroup(name)}
}

// newLogger builds the server logger. Every record carries service=komponente.
func newLogger(out, errOut io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(&splitHandler{
		minLevel: level,
		out:      slog.NewTextHandler(out, opts),
		errOut:   slog.NewTextHandler(errOut, opts),
	}).With("service", "komponente")
}

// setupLogger installs the default logger at level. When logPath is set,
// every record is also appended to that file; the returned func closes it.
func setupLogger(logPath string, level slog.Level) (func(), error) {
	if logPath == "" {
		slog.SetDefault(newLogger(os.Stdout, os.Stderr, level))
		return func() {}, nil
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	slog.SetDefault(newLogger(io.MultiWriter(os.Stdout, f), io.MultiWriter(os.Stderr, f), level))
	return func() { f.Close() }, nil
}
