// Package logger builds the process-wide slog logger: a size-rotated file under
// the log directory plus stdout, with records aimed at excluded targets dropped.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"

	"voisia/internal/config"
)

const (
	fileName = "voisia.log"

	// TargetKey is the attribute naming the subsystem a record is aimed at.
	TargetKey = "target"
)

// New constructs the logger described by cfg. The returned closer flushes and
// closes the rotating file; it is a no-op when only stdout is active.
func New(cfg config.LogConfig, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{slog.NewTextHandler(stdout, opts)}
	var closer io.Closer = nopCloser{}

	dir, err := ensureDir(cfg.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logs directory, logging to stdout only: %v\n", err)
	} else {
		rotator := &lumberjack.Logger{
			Filename:  filepath.Join(dir, fileName),
			MaxSize:   cfg.MaxSizeMB,
			LocalTime: true,
		}
		handlers = append(handlers, slog.NewTextHandler(rotator, opts))
		closer = rotator
	}

	var handler slog.Handler = slogmulti.
		Pipe(slogmulti.NewHandleInlineMiddleware(contextAttrs)).
		Handler(slogmulti.Fanout(handlers...))
	if len(cfg.ExcludeTargets) > 0 {
		handler = &targetFilter{next: handler, exclude: cfg.ExcludeTargets}
	}
	return slog.New(handler), closer, nil
}

type ctxKey struct{}

// WithAttrs returns a context whose log records, when emitted through a
// logger built by New, carry the given attributes.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

func contextAttrs(ctx context.Context, r slog.Record, next func(context.Context, slog.Record) error) error {
	if args, ok := ctx.Value(ctxKey{}).([]any); ok && len(args) > 0 {
		r = r.Clone()
		r.Add(args...)
	}
	return next(ctx, r)
}

// StdLogger bridges packages that only accept *log.Logger, tagging every line with target.
func StdLogger(l *slog.Logger, target string) *log.Logger {
	return slog.NewLogLogger(l.With(TargetKey, target).Handler(), slog.LevelError)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ensureDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = config.DefaultLogDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve logs directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("create logs directory %q: %w", abs, err)
	}
	return abs, nil
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return 0, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return l, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// targetFilter drops records whose target attribute, set either on the record
// or through WithAttrs, is in the exclude list.
type targetFilter struct {
	next     slog.Handler
	exclude  []string
	excluded bool
}

func (h *targetFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return !h.excluded && h.next.Enabled(ctx, level)
}

func (h *targetFilter) Handle(ctx context.Context, r slog.Record) error {
	if h.excluded {
		return nil
	}
	drop := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == TargetKey && slices.Contains(h.exclude, a.Value.String()) {
			drop = true
			return false
		}
		return true
	})
	if drop {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *targetFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	excluded := h.excluded
	for _, a := range attrs {
		if a.Key == TargetKey && slices.Contains(h.exclude, a.Value.String()) {
			excluded = true
		}
	}
	return &targetFilter{next: h.next.WithAttrs(attrs), exclude: h.exclude, excluded: excluded}
}

func (h *targetFilter) WithGroup(name string) slog.Handler {
	return &targetFilter{next: h.next.WithGroup(name), exclude: h.exclude, excluded: h.excluded}
}
