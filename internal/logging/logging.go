// Package logging builds the structured loggers used across erdep.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Channel names a logical component in log records.
type Channel string

const (
	ChannelIndex   Channel = "index"   // reference index maintenance and reindex batches
	ChannelCascade Channel = "cascade" // delete hook and reference cleanup
	ChannelWorker  Channel = "worker"  // deferred delete worker ticks
	ChannelHTTP    Channel = "http"    // API requests
	ChannelConfig  Channel = "config"  // configuration reloads
)

// Options configures the root logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is "text" or "json". Empty means text.
	Format string
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a root logger.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		h = slog.NewTextHandler(w, handlerOpts)
	case "json":
		h = slog.NewJSONHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return slog.New(h), nil
}

// For tags a logger with its channel. A nil logger yields a discarding one.
func For(l *slog.Logger, ch Channel) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l.With("channel", string(ch))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
