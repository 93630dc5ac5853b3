// Package worker executes deferred delete jobs.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// Loader batch-loads entities of one type. Missing ids are skipped.
type Loader interface {
	LoadMultiple(ctx context.Context, entityType string, ids []string) ([]*model.Entity, error)
}

// Deleter deletes loaded entities of one type in a single call.
type Deleter interface {
	DeleteMultiple(ctx context.Context, entities []*model.Entity) error
}

// DeleteWorker deletes the dependents listed in a DeleteJob.
type DeleteWorker struct {
	loader  Loader
	deleter Deleter
	logger  *slog.Logger
}

// NewDeleteWorker creates a DeleteWorker.
func NewDeleteWorker(loader Loader, deleter Deleter, logger *slog.Logger) *DeleteWorker {
	return &DeleteWorker{loader: loader, deleter: deleter, logger: logging.For(logger, logging.ChannelWorker)}
}

// Process deletes the job's dependents with one load and one delete call per
// entity type and returns how many were deleted. Dependents that no longer
// exist are skipped, so redelivered jobs are harmless.
func (w *DeleteWorker) Process(ctx context.Context, job model.DeleteJob) (int, error) {
	var types []string
	idsByType := make(map[string][]string)
	for _, key := range job.Dependents {
		ref, err := model.ParseKey(key)
		if err != nil {
			w.logger.Warn("skip malformed dependent", "source", job.Source, "key", key)
			continue
		}
		if _, ok := idsByType[ref.Type]; !ok {
			types = append(types, ref.Type)
		}
		idsByType[ref.Type] = append(idsByType[ref.Type], ref.ID)
	}

	deleted := 0
	for _, typ := range types {
		entities, err := w.loader.LoadMultiple(ctx, typ, idsByType[typ])
		if err != nil {
			return deleted, fmt.Errorf("load %s dependents of %s: %w", typ, job.Source, err)
		}
		if len(entities) == 0 {
			continue
		}
		if err := w.deleter.DeleteMultiple(ctx, entities); err != nil {
			return deleted, fmt.Errorf("delete %s dependents of %s: %w", typ, job.Source, err)
		}
		deleted += len(entities)
	}

	if deleted > 0 {
		w.logger.Info("deleted dependent entities", "source", job.Source, "count", deleted)
	}
	return deleted, nil
}
