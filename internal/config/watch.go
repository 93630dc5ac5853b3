package config

import (
	"context"
	"log/slog"

	"github.com/IgorPritula/entity-ref-dependency/internal/watcher"
)

// Watch reloads the config file at path whenever it changes and passes the
// result to fn. A file that fails to parse is reported with a nil config; the
// caller keeps its previous settings. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(*Config, error)) error {
	w, err := watcher.New(watcher.Config{
		Paths:  []string{path},
		Logger: logger,
		OnChange: func(string) {
			fn(LoadFrom(path))
		},
	})
	if err != nil {
		return err
	}
	return w.Start(ctx)
}
