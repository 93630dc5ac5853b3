package indexer

import (
	"context"
	"encoding/json"
	"fmt"
)

// FailureMessage is the operator notice for an aborted reindex.
const FailureMessage = "Finished with an error."

// CompletionMessage is the operator notice for a successful reindex.
func CompletionMessage(count int) string {
	return fmt.Sprintf("Was indexed %d entities", count)
}

// Operation is one (type, bundle) unit of a full reindex.
type Operation struct {
	EntityType string `json:"entity_type"`
	Bundle     string `json:"bundle"`
}

// Batch is the serialisable state of a full reindex: the operations still
// to run, the cursor of the one in progress and the running totals.
type Batch struct {
	Operations []Operation     `json:"operations"`
	Active     Operation       `json:"active"`
	Current    *Cursor         `json:"current,omitempty"`
	Total      int             `json:"total"`
	Count      int             `json:"count"`
	Failures   []EntityFailure `json:"failures,omitempty"`
}

// Finished reports whether no work remains.
func (b *Batch) Finished() bool {
	return len(b.Operations) == 0 && (b.Current == nil || b.Current.Done)
}

// Plan enumerates every bundle of every fieldable entity type.
func (ix *Indexer) Plan() *Batch {
	b := &Batch{}
	for _, typ := range ix.fields.FieldableTypeIDs() {
		for _, bundle := range ix.fields.Bundles(typ) {
			b.Operations = append(b.Operations, Operation{EntityType: typ, Bundle: bundle})
		}
	}
	b.Total = len(b.Operations)
	return b
}

// Progress is reported after every processed chunk.
type Progress struct {
	Operation Operation `json:"operation"`
	// Index is the 1-based position of Operation within the plan.
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
	Count    int     `json:"count"`
}

// RunOptions tunes Run.
type RunOptions struct {
	PageSize int
	// OnProgress is called after each chunk.
	OnProgress func(Progress)
	// Checkpoint persists the batch after each chunk so it can be resumed.
	Checkpoint func(ctx context.Context, b *Batch) error
}

// Step advances the batch by one chunk.
func (ix *Indexer) Step(ctx context.Context, b *Batch, pageSize int) (*Progress, error) {
	if b.Current == nil || b.Current.Done {
		if len(b.Operations) == 0 {
			return nil, nil
		}
		op := b.Operations[0]
		b.Operations = b.Operations[1:]
		cur, err := ix.NewCursor(ctx, op.EntityType, op.Bundle)
		if err != nil {
			return nil, err
		}
		b.Active = op
		b.Current = cur
	}

	cur := b.Current
	if !cur.Done {
		res, err := ix.ReindexChunk(ctx, cur, pageSize)
		if err != nil {
			return nil, err
		}
		b.Count += res.Processed
		b.Failures = append(b.Failures, res.Failures...)
	}

	return &Progress{
		Operation: b.Active,
		Index:     b.Total - len(b.Operations),
		Total:     b.Total,
		Fraction:  cur.Fraction(),
		Count:     b.Count,
	}, nil
}

// Run drives the batch to completion.
func (ix *Indexer) Run(ctx context.Context, b *Batch, opts RunOptions) error {
	for !b.Finished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := ix.Step(ctx, b, opts.PageSize)
		if err != nil {
			return err
		}
		if p == nil {
			break
		}
		if opts.Checkpoint != nil {
			if err := opts.Checkpoint(ctx, b); err != nil {
				return fmt.Errorf("%w: checkpoint: %v", ErrBatchAborted, err)
			}
		}
		if opts.OnProgress != nil {
			opts.OnProgress(*p)
		}
	}
	ix.logger.Info("reindex finished", "entities", b.Count, "failures", len(b.Failures))
	return nil
}

// CheckpointKey is the meta key holding an unfinished batch.
const CheckpointKey = "reindex_checkpoint"

// MetaStore persists small string values next to the index.
type MetaStore interface {
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
	DeleteMeta(ctx context.Context, key string) error
}

// SaveCheckpoint stores b under CheckpointKey.
func SaveCheckpoint(ctx context.Context, m MetaStore, b *Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return m.SetMeta(ctx, CheckpointKey, string(data))
}

// LoadCheckpoint returns the saved batch, or nil if none exists.
func LoadCheckpoint(ctx context.Context, m MetaStore) (*Batch, error) {
	raw, err := m.GetMeta(ctx, CheckpointKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var b Batch
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("decode reindex checkpoint: %w", err)
	}
	return &b, nil
}

// ClearCheckpoint removes any saved batch.
func ClearCheckpoint(ctx context.Context, m MetaStore) error {
	return m.DeleteMeta(ctx, CheckpointKey)
}
