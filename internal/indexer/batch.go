package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/IgorPritula/entity-ref-dependency/internal/content"
	"github.com/IgorPritula/entity-ref-dependency/internal/schema"
)

// DefaultPageSize is the number of entities processed per chunk.
const DefaultPageSize = 50

// ErrBatchAborted wraps store or query failures that stop a bulk reindex.
var ErrBatchAborted = errors.New("reindex batch aborted")

// EntityFailure records an entity skipped during a bulk reindex.
type EntityFailure struct {
	EntityType string `json:"entity_type"`
	ID         string `json:"id"`
	Error      string `json:"error"`
}

// Cursor is the resumable position of one (type, bundle) reindex operation.
type Cursor struct {
	EntityType string                  `json:"entity_type"`
	Bundle     string                  `json:"bundle"`
	Fields     []schema.ReferenceField `json:"fields"`
	// LastID is the highest id processed so far.
	LastID   string `json:"last_id"`
	Progress int    `json:"progress"`
	Max      int    `json:"max"`
	Done     bool   `json:"done"`
}

// Fraction reports completion in [0, 1].
func (c *Cursor) Fraction() float64 {
	if c.Done || c.Max == 0 {
		return 1
	}
	return float64(c.Progress) / float64(c.Max)
}

func (c *Cursor) query(limit int) content.Query {
	return content.Query{Type: c.EntityType, Bundle: c.Bundle, AfterID: c.LastID, Limit: limit}
}

// NewCursor prepares a reindex over one bundle. The reference fields and
// the total count are resolved once. A bundle without reference fields, or
// without entities, yields a finished cursor.
func (ix *Indexer) NewCursor(ctx context.Context, entityType, bundle string) (*Cursor, error) {
	cur := &Cursor{
		EntityType: entityType,
		Fields:     ix.fields.ReferenceFields(entityType, bundle),
	}
	if ix.fields.BundleKey(entityType) != "" {
		cur.Bundle = bundle
	}
	if len(cur.Fields) == 0 {
		cur.Done = true
		return cur, nil
	}

	n, err := ix.content.Count(ctx, cur.query(0))
	if err != nil {
		return nil, fmt.Errorf("%w: count %s/%s: %v", ErrBatchAborted, entityType, bundle, err)
	}
	cur.Max = n
	cur.Done = n == 0
	return cur, nil
}

// ChunkResult summarizes one processed page.
type ChunkResult struct {
	Processed int             `json:"processed"`
	Rows      int             `json:"rows"`
	Failures  []EntityFailure `json:"failures,omitempty"`
}

// ReindexChunk processes the next page after cur.LastID and advances the
// cursor. Entities that fail to index are recorded and skipped.
//
// Each entity's rows are replaced rather than appended, so a page that was
// interrupted and is run again from the same cursor leaves no duplicates.
// The cursor only moves once the whole page is done.
func (ix *Indexer) ReindexChunk(ctx context.Context, cur *Cursor, pageSize int) (*ChunkResult, error) {
	res := &ChunkResult{}
	if cur.Done {
		return res, nil
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	ids, err := ix.content.QueryIDs(ctx, cur.query(pageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: query %s ids: %v", ErrBatchAborted, cur.EntityType, err)
	}
	if len(ids) == 0 {
		cur.Done = true
		return res, nil
	}

	entities, err := ix.content.LoadMultiple(ctx, cur.EntityType, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s entities: %v", ErrBatchAborted, cur.EntityType, err)
	}
	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := ix.replaceEntity(ctx, e, cur.Fields)
		if err != nil {
			ix.logger.Warn("skip entity", "entity", e.Ref().Key(), "error", err)
			res.Failures = append(res.Failures, EntityFailure{EntityType: e.Type, ID: e.ID, Error: err.Error()})
			continue
		}
		res.Rows += n
	}

	res.Processed = len(ids)
	cur.Progress += len(ids)
	cur.LastID = ids[len(ids)-1]
	if cur.Progress >= cur.Max {
		cur.Done = true
	}
	return res, nil
}
