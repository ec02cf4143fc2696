// Package logging builds the process logger. Library packages log through
// log/slog; the CLI installs a charmbracelet/log logger as the slog handler.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// TimeFormat renders timestamps as "HH:MM:SS.ms" (e.g. "14:32:01.45").
const TimeFormat = "15:04:05.00"

// New creates a logger writing to w at the given level ("debug", "info",
// "warn", "error") with a "text" or "json" formatter.
func New(w io.Writer, level, format string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	formatter := log.TextFormatter
	switch format {
	case "", "text":
	case "json":
		formatter = log.JSONFormatter
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           lvl,
		Formatter:       formatter,
	}), nil
}

// Slog wraps l so it can be handed to packages taking a *slog.Logger
func Slog(l *log.Logger) *slog.Logger {
	return slog.New(l)
}

// Install makes l the process-wide default for both log and slog
func Install(l *log.Logger) *slog.Logger {
	log.SetDefault(l)
	s := Slog(l)
	slog.SetDefault(s)
	return s
}

// Progress tracks the start time of an operation and logs completion with elapsed duration.
type Progress struct {
	logger *slog.Logger
	start  time.Time
}

// NewProgress starts a progress tracker
func NewProgress(l *slog.Logger) *Progress {
	return &Progress{logger: l, start: time.Now()}
}

// Done logs msg along with the elapsed time since the tracker was created.
func (p *Progress) Done(msg string, args ...any) {
	args = append(args, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, args...)
}

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the logger from ctx, falling back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
