package fd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// Logger wraps slog.Logger with solver-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger

	progress *rate.Sometimes
}

// ProgressInterval is the minimum spacing between two progress lines.
const ProgressInterval = 5 * time.Second

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return wrap(slog.New(handler))
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return wrap(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return wrap(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return wrap(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	})))
}

func wrap(l *slog.Logger) *Logger {
	return &Logger{
		Logger:   l,
		progress: &rate.Sometimes{Interval: ProgressInterval},
	}
}

// WithRunID tags every line with a run identifier.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{Logger: l.Logger.With("run", id), progress: l.progress}
}

// WithWorker tags every line with a portfolio worker index.
func (l *Logger) WithWorker(worker int) *Logger {
	return &Logger{Logger: l.Logger.With("worker", worker), progress: &rate.Sometimes{Interval: ProgressInterval}}
}

// WithModel tags every line with the model variant name.
func (l *Logger) WithModel(name string) *Logger {
	return &Logger{Logger: l.Logger.With("model", name), progress: l.progress}
}

// LogSolution logs an improving solution.
func (l *Logger) LogSolution(ctx context.Context, objective int, elapsed time.Duration) {
	l.InfoContext(ctx, "solution found",
		"objective", objective,
		"elapsed", elapsed,
	)
}

// LogRestart logs a restart from the root.
func (l *Logger) LogRestart(ctx context.Context, restarts int) {
	l.DebugContext(ctx, "search restarted",
		"restarts", restarts,
	)
}

// LogProgress logs search progress at most once per ProgressInterval.
func (l *Logger) LogProgress(ctx context.Context, nodes, depth int) {
	l.progress.Do(func() {
		l.DebugContext(ctx, "search progress",
			"nodes", nodes,
			"depth", depth,
		)
	})
}

// LogSearchDone logs the end of a search.
func (l *Logger) LogSearchDone(ctx context.Context, stats *SolverStats, err error) {
	if err != nil {
		l.WarnContext(ctx, "search stopped",
			"nodes", stats.NodesExplored,
			"solutions", stats.SolutionsFound,
			"elapsed", stats.SearchTime,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "search completed",
		"nodes", stats.NodesExplored,
		"backtracks", stats.Backtracks,
		"solutions", stats.SolutionsFound,
		"failures", stats.Failures,
		"elapsed", stats.SearchTime,
	)
}
