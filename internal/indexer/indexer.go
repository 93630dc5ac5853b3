// Package indexer keeps the reference index in step with the content store,
// both incrementally on save and in bulk by type and bundle.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IgorPritula/entity-ref-dependency/internal/content"
	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/schema"
)

// Store is the subset of the reference index the indexer writes to.
type Store interface {
	InsertRows(ctx context.Context, rows []model.IndexRow) error
	ReplaceRows(ctx context.Context, subject model.EntityRef, rows []model.IndexRow) error
	DeleteBySubject(ctx context.Context, ref model.EntityRef) (int64, error)
	DeleteByTarget(ctx context.Context, ref model.EntityRef) (int64, error)
	FindByTarget(ctx context.Context, ref model.EntityRef, allowed model.TypeSet) ([]model.IndexRow, error)
	Truncate(ctx context.Context) error
}

// FieldProvider answers which fields of a bundle hold indexable references.
type FieldProvider interface {
	ReferenceFields(entityType, bundle string) []schema.ReferenceField
	BundleKey(entityType string) string
	FieldableTypeIDs() []string
	Bundles(entityType string) []string
}

// Options tunes an Indexer.
type Options struct {
	// TargetTypes limits indexing to references pointing at these types.
	// Empty indexes every target type.
	TargetTypes []string
	Logger      *slog.Logger
}

// Indexer builds index rows from entities.
type Indexer struct {
	store       Store
	content     content.Store
	fields      FieldProvider
	targetTypes model.TypeSet
	logger      *slog.Logger
}

// New creates an Indexer.
func New(store Store, cs content.Store, fields FieldProvider, opts Options) *Indexer {
	ix := &Indexer{
		store:   store,
		content: cs,
		fields:  fields,
		logger:  logging.For(opts.Logger, logging.ChannelIndex),
	}
	if targets := model.NewTypeSet(opts.TargetTypes...); len(targets) > 0 {
		ix.targetTypes = targets
	}
	return ix
}

// Fields resolves the reference fields for an entity's bundle.
func (ix *Indexer) Fields(e *model.Entity) []schema.ReferenceField {
	return ix.fields.ReferenceFields(e.Type, bundleOf(e))
}

func bundleOf(e *model.Entity) string {
	if e.Bundle == "" {
		return e.Type
	}
	return e.Bundle
}

// Rows computes the index rows for e over the given fields. Target ids are
// deduplicated per (target type, field) and empty items are skipped.
func (ix *Indexer) Rows(e *model.Entity, fields []schema.ReferenceField) []model.IndexRow {
	subject := e.Ref()
	var rows []model.IndexRow
	for _, f := range fields {
		if ix.targetTypes != nil && !ix.targetTypes.Has(f.TargetType) {
			continue
		}
		items, ok := e.Field(f.Name)
		if !ok {
			continue
		}
		seen := make(map[string]struct{}, len(items))
		for _, item := range items {
			if item.IsEmpty() {
				continue
			}
			if _, dup := seen[item.TargetID]; dup {
				continue
			}
			seen[item.TargetID] = struct{}{}
			rows = append(rows, model.IndexRow{
				Subject:   subject,
				Target:    model.Ref(f.TargetType, item.TargetID),
				FieldName: f.Name,
			})
		}
	}
	return rows
}

// IndexEntity appends the rows for e in one batched insert and returns how
// many rows were written. When fields is nil they are resolved from the
// content model. Existing rows for e are left untouched.
func (ix *Indexer) IndexEntity(ctx context.Context, e *model.Entity, fields []schema.ReferenceField) (int, error) {
	if fields == nil {
		fields = ix.Fields(e)
	}
	if len(fields) == 0 {
		return 0, nil
	}
	rows := ix.Rows(e, fields)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := ix.store.InsertRows(ctx, rows); err != nil {
		return 0, fmt.Errorf("index %s: %w", e.Ref(), err)
	}
	return len(rows), nil
}

func (ix *Indexer) replaceEntity(ctx context.Context, e *model.Entity, fields []schema.ReferenceField) (int, error) {
	rows := ix.Rows(e, fields)
	if err := ix.store.ReplaceRows(ctx, e.Ref(), rows); err != nil {
		return 0, fmt.Errorf("index %s: %w", e.Ref(), err)
	}
	return len(rows), nil
}

// ReindexEntity replaces every row recorded for e with its current
// references in a single transaction. Used by the save hook.
func (ix *Indexer) ReindexEntity(ctx context.Context, e *model.Entity) (int, error) {
	return ix.replaceEntity(ctx, e, ix.Fields(e))
}

// IndexEntitiesOfBundle indexes every entity of one bundle page by page and
// returns the number of entities processed.
func (ix *Indexer) IndexEntitiesOfBundle(ctx context.Context, entityType, bundle string, pageSize int) (int, error) {
	cur, err := ix.NewCursor(ctx, entityType, bundle)
	if err != nil {
		return 0, err
	}
	for !cur.Done {
		if _, err := ix.ReindexChunk(ctx, cur, pageSize); err != nil {
			return cur.Progress, err
		}
	}
	return cur.Progress, nil
}

// ClearAll empties the index before a full reindex.
func (ix *Indexer) ClearAll(ctx context.Context) error {
	return ix.store.Truncate(ctx)
}

// DeleteEntityIndex removes the rows where e is the referencing entity.
func (ix *Indexer) DeleteEntityIndex(ctx context.Context, ref model.EntityRef) (int64, error) {
	return ix.store.DeleteBySubject(ctx, ref)
}

// DeleteRefEntityIndex removes the rows where e is the referenced entity.
func (ix *Indexer) DeleteRefEntityIndex(ctx context.Context, ref model.EntityRef) (int64, error) {
	return ix.store.DeleteByTarget(ctx, ref)
}

// DeleteReferenceItem strips references to target from every entity that
// points at it, except those in exclude, then drops target's rows on both
// sides of the index. It returns the number of entities saved.
//
// Referencing entities that fail to load, and fields that no longer exist on
// them, are skipped.
func (ix *Indexer) DeleteReferenceItem(ctx context.Context, target model.EntityRef, exclude model.KeySet) (int, error) {
	rows, err := ix.store.FindByTarget(ctx, target, nil)
	if err != nil {
		return 0, fmt.Errorf("find references to %s: %w", target, err)
	}

	type subjectFields struct {
		ref    model.EntityRef
		fields []string
	}
	var subjects []*subjectFields
	bySubject := make(map[string]*subjectFields)
	for _, r := range rows {
		if r.Subject == target || exclude.Has(r.Subject) {
			continue
		}
		sf, ok := bySubject[r.Subject.Key()]
		if !ok {
			sf = &subjectFields{ref: r.Subject}
			bySubject[r.Subject.Key()] = sf
			subjects = append(subjects, sf)
		}
		sf.fields = append(sf.fields, r.FieldName)
	}

	saved := 0
	for _, sf := range subjects {
		e, err := ix.content.Load(ctx, sf.ref)
		if err != nil {
			ix.logger.Debug("skip unloadable referencing entity", "entity", sf.ref.Key(), "error", err)
			continue
		}
		removed := 0
		for _, name := range sf.fields {
			if _, ok := e.Field(name); !ok {
				continue
			}
			removed += e.RemoveTarget(name, target.ID)
		}
		if removed == 0 {
			continue
		}
		if err := ix.content.Save(ctx, e); err != nil {
			return saved, fmt.Errorf("save %s: %w", e.Ref(), err)
		}
		saved++
	}

	if _, err := ix.store.DeleteByTarget(ctx, target); err != nil {
		return saved, err
	}
	if _, err := ix.store.DeleteBySubject(ctx, target); err != nil {
		return saved, err
	}
	if saved > 0 {
		ix.logger.Info("removed dangling references", "target", target.Key(), "entities", saved)
	}
	return saved, nil
}
