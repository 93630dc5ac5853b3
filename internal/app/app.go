// Package app wires the reference index components together and implements
// the host save and delete hooks on top of them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/IgorPritula/entity-ref-dependency/internal/cascade"
	"github.com/IgorPritula/entity-ref-dependency/internal/config"
	"github.com/IgorPritula/entity-ref-dependency/internal/content"
	"github.com/IgorPritula/entity-ref-dependency/internal/dependency"
	"github.com/IgorPritula/entity-ref-dependency/internal/index"
	"github.com/IgorPritula/entity-ref-dependency/internal/indexer"
	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/queue"
	"github.com/IgorPritula/entity-ref-dependency/internal/schema"
	"github.com/IgorPritula/entity-ref-dependency/internal/worker"
)

// ErrInvalidEntity indicates an entity that does not fit the content model.
var ErrInvalidEntity = errors.New("invalid entity")

// InvalidEntityError lists the content model violations of a save.
type InvalidEntityError struct {
	Ref      model.EntityRef
	Problems []schema.ValidationError
}

func (e *InvalidEntityError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Error())
	}
	return fmt.Sprintf("invalid entity %s: %s", e.Ref, strings.Join(msgs, "; "))
}

func (e *InvalidEntityError) Unwrap() error { return ErrInvalidEntity }

// App holds the wired components for one database.
type App struct {
	DB       *index.Database
	Content  *content.SQLStorage
	Model    *schema.Model
	Indexer  *indexer.Indexer
	Resolver *dependency.Resolver
	Queue    queue.Queue
	Cascade  *cascade.Coordinator
	Worker   *worker.DeleteWorker
	Runner   *worker.Runner

	logger *slog.Logger

	mu  sync.RWMutex
	cfg *config.Config
}

// Open opens the database named by cfg, loads the content model and wires
// every component.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	m, err := schema.Load(cfg.ModelPath())
	if err != nil {
		return nil, err
	}
	db, err := index.Open(index.Options{Driver: cfg.Database.Driver, DSN: cfg.DatabaseDSN()})
	if err != nil {
		return nil, err
	}
	a, err := New(ctx, db, m, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// New wires components around an already open database.
func New(ctx context.Context, db *index.Database, m *schema.Model, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Discard()
	}

	cs, err := content.NewSQLStorage(ctx, db.DB())
	if err != nil {
		return nil, err
	}
	q, err := queue.NewSQL(ctx, db.DB())
	if err != nil {
		return nil, err
	}

	a := &App{
		DB:      db,
		Content: cs,
		Model:   m,
		Queue:   q,
		logger:  logger,
		cfg:     cfg,
	}
	a.Indexer = indexer.New(db, cs, m, indexer.Options{TargetTypes: cfg.Index.TargetTypes, Logger: logger})
	a.Resolver = dependency.New(db, cs, logger)
	a.Cascade = cascade.New(a.Resolver, a.Indexer, q, logger)
	// Dependents are deleted through the delete hook so their own
	// dependents cascade on the next tick.
	a.Worker = worker.NewDeleteWorker(cs, a, logger)
	a.Runner = worker.NewRunner(q, a.Worker, worker.Options{
		Interval:    cfg.Worker.Interval.Duration,
		TimeBudget:  cfg.Worker.TimeBudget.Duration,
		Lease:       cfg.Worker.Lease.Duration,
		MaxAttempts: cfg.Worker.MaxAttempts,
	}, logger)
	return a, nil
}

// Close closes the database.
func (a *App) Close() error {
	return a.DB.Close()
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// ApplyConfig swaps in reloaded operator settings. Only the [cascade]
// section takes effect: the indexer, queue and runner keep the [index],
// [worker] and [database] values they were built with until restart.
// Operations already in flight keep the policy they started with.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
}

// Policy snapshots the cascade settings for one top-level operation.
func (a *App) Policy() cascade.Policy {
	cfg := a.Config()
	return cascade.Policy{
		CascadeDelete: cfg.Cascade.AllowCascadeDelete,
		AllowedTypes:  cfg.AllowedTypes(),
		MaxDepth:      cfg.Cascade.MaxDepth,
	}
}

// SaveResult reports the effect of a save.
type SaveResult struct {
	Ref  model.EntityRef `json:"ref"`
	Rows int             `json:"rows"`
}

// SaveEntity validates and stores e, then replaces its index rows.
func (a *App) SaveEntity(ctx context.Context, e *model.Entity) (*SaveResult, error) {
	if e.Bundle == "" && a.Model.BundleKey(e.Type) == "" {
		e.Bundle = e.Type
	}
	if problems := a.Model.ValidateEntity(e); len(problems) > 0 {
		return nil, &InvalidEntityError{Ref: e.Ref(), Problems: problems}
	}
	if err := a.Content.Save(ctx, e); err != nil {
		return nil, fmt.Errorf("save %s: %w", e.Ref(), err)
	}
	n, err := a.Indexer.ReindexEntity(ctx, e)
	if err != nil {
		return nil, err
	}
	return &SaveResult{Ref: e.Ref(), Rows: n}, nil
}

// DeleteEntity runs the delete hook for ref under the current policy and
// removes the entity from the content store.
func (a *App) DeleteEntity(ctx context.Context, ref model.EntityRef) (*cascade.Result, error) {
	e, err := a.Content.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	res, err := a.Cascade.OnDelete(ctx, ref, a.Policy())
	if err != nil {
		return res, err
	}
	if err := a.Content.Delete(ctx, []*model.Entity{e}); err != nil {
		return res, fmt.Errorf("delete %s: %w", ref, err)
	}
	return res, nil
}

// DeleteMultiple deletes entities the way the host storage does: the delete
// hook runs for each of them under one policy snapshot.
func (a *App) DeleteMultiple(ctx context.Context, entities []*model.Entity) error {
	policy := a.Policy()
	for _, e := range entities {
		if _, err := a.Cascade.OnDelete(ctx, e.Ref(), policy); err != nil {
			return err
		}
	}
	return a.Content.Delete(ctx, entities)
}

// Resolve builds the dependency tree of req.Target. A zero MaxDepth uses
// the configured cap.
func (a *App) Resolve(ctx context.Context, req dependency.Request) (*dependency.Tree, error) {
	if req.MaxDepth == 0 {
		req.MaxDepth = a.Config().Cascade.MaxDepth
	}
	return a.Resolver.Resolve(ctx, req)
}

// Refs lists every index row pointing at ref.
func (a *App) Refs(ctx context.Context, ref model.EntityRef) ([]model.IndexRow, error) {
	return a.DB.FindByTarget(ctx, ref, nil)
}

// Stats summarizes the index and the deferred delete queue.
type Stats struct {
	Rows     int    `json:"rows"`
	Subjects int    `json:"subjects"`
	Targets  int    `json:"targets"`
	Queued   int    `json:"queued"`
	Driver   string `json:"driver"`
}

// Stats returns index and queue counts.
func (a *App) Stats(ctx context.Context) (*Stats, error) {
	s, err := a.DB.Stats(ctx)
	if err != nil {
		return nil, err
	}
	n, err := a.Queue.Len(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Rows:     s.RowCount,
		Subjects: s.SubjectCount,
		Targets:  s.TargetCount,
		Queued:   n,
		Driver:   a.DB.Driver(),
	}, nil
}
