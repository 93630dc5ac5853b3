package app

import (
	"context"
	"fmt"

	"github.com/IgorPritula/entity-ref-dependency/internal/indexer"
)

// ReindexOptions configures PerformIndexing.
type ReindexOptions struct {
	// Resume continues a checkpointed batch instead of starting over. With
	// no checkpoint a fresh rebuild runs.
	Resume     bool
	PageSize   int
	OnProgress func(indexer.Progress)
}

// ReindexResult is the outcome of a full reindex.
type ReindexResult struct {
	Count    int                     `json:"count"`
	Resumed  bool                    `json:"resumed"`
	Failures []indexer.EntityFailure `json:"failures,omitempty"`
	Message  string                  `json:"message"`
}

// PerformIndexing rebuilds the whole reference index: clear the table, then
// index every bundle of every fieldable type chunk by chunk. The batch is
// checkpointed after each chunk so an interrupted run can resume.
func (a *App) PerformIndexing(ctx context.Context, opts ReindexOptions) (*ReindexResult, error) {
	lock, err := a.DB.AcquireRebuildLock()
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	if opts.PageSize <= 0 {
		opts.PageSize = a.Config().Index.PageSize
	}

	res := &ReindexResult{}
	var batch *indexer.Batch
	if opts.Resume {
		batch, err = indexer.LoadCheckpoint(ctx, a.DB)
		if err != nil {
			return nil, err
		}
		res.Resumed = batch != nil
	}
	if batch == nil {
		if err := a.Indexer.ClearAll(ctx); err != nil {
			return nil, fmt.Errorf("clear index: %w", err)
		}
		batch = a.Indexer.Plan()
	}

	err = a.Indexer.Run(ctx, batch, indexer.RunOptions{
		PageSize:   opts.PageSize,
		OnProgress: opts.OnProgress,
		Checkpoint: func(ctx context.Context, b *indexer.Batch) error {
			return indexer.SaveCheckpoint(ctx, a.DB, b)
		},
	})
	res.Count = batch.Count
	res.Failures = batch.Failures
	if err != nil {
		res.Message = indexer.FailureMessage
		a.logger.Error("reindex aborted", "error", err, "entities", batch.Count)
		return res, err
	}

	if err := indexer.ClearCheckpoint(ctx, a.DB); err != nil {
		return res, err
	}
	if err := a.DB.Analyze(ctx); err != nil {
		a.logger.Warn("analyze after reindex failed", "error", err)
	}
	res.Message = indexer.CompletionMessage(batch.Count)
	return res, nil
}
