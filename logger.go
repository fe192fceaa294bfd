package neighbors

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/neighbors/lattice"
	"github.com/hupe1980/neighbors/spatial"
)

// Logger wraps slog.Logger with neighbor-search specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithRadius returns a logger that tags every record with the query radius.
func (l *Logger) WithRadius(r float64) *Logger {
	return &Logger{
		Logger: l.Logger.With("radius", r),
	}
}

// LogRebuild logs a spatial index rebuild after an update.
func (l *Logger) LogRebuild(points, added int, backend spatial.Backend, d time.Duration, err error) {
	if err != nil {
		l.Error("index rebuild failed",
			"points", points,
			"error", err,
		)
		return
	}
	l.Debug("index rebuilt",
		"points", points,
		"added", added,
		"backend", backend.String(),
		"duration", d,
	)
}

// LogLattice logs a lattice change. A nil lattice means periodic mode was cleared.
func (l *Logger) LogLattice(lat *lattice.Lattice, err error) {
	switch {
	case err != nil:
		l.Error("set lattice failed",
			"error", err,
		)
	case lat == nil:
		l.Info("lattice cleared")
	default:
		l.Info("lattice set",
			"widths", lat.Widths(),
			"volume", lat.Volume(),
		)
	}
}

// LogHaloBuild logs the construction of an enlarged periodic index.
func (l *Logger) LogHaloBuild(radius float64, images int, d time.Duration) {
	l.Debug("halo index built",
		"radius", radius,
		"images", images,
		"duration", d,
	)
}

// LogBulk logs a bulk neighbor-list run.
func (l *Logger) LogBulk(ctx context.Context, hosts, neighbors int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "neighbor list failed",
			"hosts", hosts,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "neighbor list completed",
		"hosts", hosts,
		"neighbors", neighbors,
		"duration", d,
	)
}
