// Package content is the host content store the dependency index is built
// from: entities with bundles and multi-valued fields.
package content

import (
	"context"
	"errors"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// ErrNotFound is returned by Load when no entity has the requested identity.
var ErrNotFound = errors.New("entity not found")

// Query selects entity ids of one type in ascending id order.
type Query struct {
	Type string
	// Bundle restricts the query when non-empty.
	Bundle string
	// AfterID starts the page strictly after this id.
	AfterID string
	// Limit caps the page size; zero means no limit.
	Limit int
}

// Store is the storage API the indexing core calls.
type Store interface {
	Load(ctx context.Context, ref model.EntityRef) (*model.Entity, error)
	// LoadMultiple returns the entities that exist, in request order.
	// Missing ids are skipped.
	LoadMultiple(ctx context.Context, entityType string, ids []string) ([]*model.Entity, error)
	Save(ctx context.Context, e *model.Entity) error
	// Delete removes the given entities. Entities already gone are ignored.
	Delete(ctx context.Context, entities []*model.Entity) error
	QueryIDs(ctx context.Context, q Query) ([]string, error)
	Count(ctx context.Context, q Query) (int, error)
}
