// Package cascade decides what happens to dependents when an entity is
// deleted: queue them for deletion or strip the dangling reference.
package cascade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IgorPritula/entity-ref-dependency/internal/dependency"
	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// Policy is the operator configuration snapshot for one delete.
type Policy struct {
	CascadeDelete bool
	AllowedTypes  model.TypeSet
	MaxDepth      int
}

// Resolver finds the dependents of an entity.
type Resolver interface {
	Resolve(ctx context.Context, req dependency.Request) (*dependency.Tree, error)
}

// Cleaner strips references to a deleted entity from its referencers.
type Cleaner interface {
	DeleteReferenceItem(ctx context.Context, target model.EntityRef, exclude model.KeySet) (int, error)
}

// Enqueuer schedules deferred deletes.
type Enqueuer interface {
	Enqueue(ctx context.Context, job model.DeleteJob) (string, error)
}

// Result reports what OnDelete scheduled.
type Result struct {
	JobID string `json:"job_id,omitempty"`
	// Queued lists the dependents scheduled for deletion as type__id keys.
	Queued []string `json:"queued,omitempty"`
	// Cleaned counts referencing entities saved without the reference.
	Cleaned int `json:"cleaned"`
}

// Coordinator runs the delete hook.
type Coordinator struct {
	resolver Resolver
	cleaner  Cleaner
	queue    Enqueuer
	logger   *slog.Logger
}

// New creates a Coordinator.
func New(resolver Resolver, cleaner Cleaner, queue Enqueuer, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		resolver: resolver,
		cleaner:  cleaner,
		queue:    queue,
		logger:   logging.For(logger, logging.ChannelCascade),
	}
}

// OnDelete handles the deletion of ref. When cascading is enabled, direct
// dependents of an allowed type are queued as one DeleteJob; every other
// referencer has its reference to ref removed. The index rows of ref are
// dropped in both directions. Dependents are not deleted by the time this
// returns.
func (c *Coordinator) OnDelete(ctx context.Context, ref model.EntityRef, policy Policy) (*Result, error) {
	res := &Result{}
	queued := model.KeySet{}

	if policy.CascadeDelete && len(policy.AllowedTypes) > 0 {
		tree, err := c.resolver.Resolve(ctx, dependency.Request{
			Target:   ref,
			Allowed:  policy.AllowedTypes,
			MaxDepth: policy.MaxDepth,
		})
		if err != nil {
			return nil, fmt.Errorf("resolve dependents of %s: %w", ref, err)
		}
		for _, dep := range tree.Root.ChildRefs() {
			queued.Add(dep)
			res.Queued = append(res.Queued, dep.Key())
		}
	}

	if len(res.Queued) > 0 {
		id, err := c.queue.Enqueue(ctx, model.DeleteJob{Source: ref.Key(), Dependents: res.Queued})
		if err != nil {
			return nil, fmt.Errorf("queue dependents of %s: %w", ref, err)
		}
		res.JobID = id
		c.logger.Info("queued dependents for deletion", "source", ref.Key(), "count", len(res.Queued), "job", id)
	}

	cleaned, err := c.cleaner.DeleteReferenceItem(ctx, ref, queued)
	if err != nil {
		return res, fmt.Errorf("clean references to %s: %w", ref, err)
	}
	res.Cleaned = cleaned
	return res, nil
}
