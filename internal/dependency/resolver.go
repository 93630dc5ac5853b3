// Package dependency walks the reference index from a target entity to the
// entities that depend on it.
package dependency

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// DefaultMaxDepth bounds recursive resolution.
const DefaultMaxDepth = 64

// Finder looks up index rows by target.
type Finder interface {
	FindByTarget(ctx context.Context, ref model.EntityRef, allowed model.TypeSet) ([]model.IndexRow, error)
}

// Loader batch-loads entities of one type.
type Loader interface {
	LoadMultiple(ctx context.Context, entityType string, ids []string) ([]*model.Entity, error)
}

// Request describes one resolution.
type Request struct {
	Target    model.EntityRef
	Recursive bool
	// Allowed is the snapshot of entity types eligible as dependents.
	// Nil or empty resolves to a leaf.
	Allowed model.TypeSet
	// MaxDepth caps recursion; zero means DefaultMaxDepth.
	MaxDepth int
}

// Node is one entity in a dependency tree. Children are keyed by the
// referencing entity's type, then id.
type Node struct {
	Ref    model.EntityRef `json:"ref"`
	Entity *model.Entity   `json:"entity,omitempty"`
	// Seen marks a node reached again through a cycle; it is not expanded.
	Seen     bool                        `json:"seen,omitempty"`
	Children map[string]map[string]*Node `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no dependents.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// ChildRefs returns the direct dependents ordered by type then id.
func (n *Node) ChildRefs() []model.EntityRef {
	var out []model.EntityRef
	for _, typ := range sortedKeys(n.Children) {
		for _, id := range sortedKeys(n.Children[typ]) {
			out = append(out, model.Ref(typ, id))
		}
	}
	return out
}

// Child returns a direct dependent.
func (n *Node) Child(ref model.EntityRef) (*Node, bool) {
	c, ok := n.Children[ref.Type][ref.ID]
	return c, ok
}

func (n *Node) addChild(c *Node) {
	if n.Children == nil {
		n.Children = make(map[string]map[string]*Node)
	}
	byID, ok := n.Children[c.Ref.Type]
	if !ok {
		byID = make(map[string]*Node)
		n.Children[c.Ref.Type] = byID
	}
	byID[c.Ref.ID] = c
}

func (n *Node) hasChild(ref model.EntityRef) bool {
	_, ok := n.Child(ref)
	return ok
}

// Tree is the result of one resolution. The root entity itself is not loaded.
type Tree struct {
	Root *Node `json:"root"`
	// Truncated is set when MaxDepth stopped the walk above further dependents.
	Truncated bool `json:"truncated,omitempty"`
}

// Walk visits every node below the root depth-first in type/id order.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		for _, ref := range n.ChildRefs() {
			c, _ := n.Child(ref)
			fn(c, depth)
			walk(c, depth+1)
		}
	}
	walk(t.Root, 1)
}

// Resolver builds dependency trees.
type Resolver struct {
	index   Finder
	content Loader
	logger  *slog.Logger
}

// New creates a Resolver.
func New(index Finder, content Loader, logger *slog.Logger) *Resolver {
	return &Resolver{index: index, content: content, logger: logging.For(logger, logging.ChannelCascade)}
}

type walk struct {
	req       Request
	visited   model.KeySet
	truncated bool
}

// Resolve returns the entities that reference req.Target, restricted to
// req.Allowed. In recursive mode each dependent is expanded in turn; a node
// reached twice is kept as an unexpanded leaf so reference cycles terminate.
// Dependents that cannot be loaded are dropped with their subtrees.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Tree, error) {
	if req.MaxDepth <= 0 {
		req.MaxDepth = DefaultMaxDepth
	}
	w := &walk{req: req, visited: model.KeySet{}}
	w.visited.Add(req.Target)

	root, err := r.expand(ctx, w, req.Target, 0)
	if err != nil {
		return nil, err
	}
	if err := r.load(ctx, root); err != nil {
		return nil, err
	}
	return &Tree{Root: root, Truncated: w.truncated}, nil
}

func (r *Resolver) expand(ctx context.Context, w *walk, ref model.EntityRef, depth int) (*Node, error) {
	node := &Node{Ref: ref}
	if len(w.req.Allowed) == 0 {
		return node, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := r.index.FindByTarget(ctx, ref, w.req.Allowed)
	if err != nil {
		return nil, fmt.Errorf("find dependents of %s: %w", ref, err)
	}

	for _, row := range rows {
		child := row.Subject
		if child == ref || node.hasChild(child) {
			continue
		}
		if depth >= w.req.MaxDepth {
			w.truncated = true
			r.logger.Warn("dependency depth limit reached", "entity", ref.Key(), "max_depth", w.req.MaxDepth)
			break
		}
		if !w.visited.Add(child) {
			node.addChild(&Node{Ref: child, Seen: true})
			continue
		}
		if !w.req.Recursive {
			node.addChild(&Node{Ref: child})
			continue
		}
		c, err := r.expand(ctx, w, child, depth+1)
		if err != nil {
			return nil, err
		}
		node.addChild(c)
	}
	return node, nil
}

// load fills Entity on every descendant with one batch load per type and
// parent, then descends into nested branches.
func (r *Resolver) load(ctx context.Context, node *Node) error {
	for _, typ := range sortedKeys(node.Children) {
		byID := node.Children[typ]
		entities, err := r.content.LoadMultiple(ctx, typ, sortedKeys(byID))
		if err != nil {
			return fmt.Errorf("load %s dependents of %s: %w", typ, node.Ref, err)
		}
		loaded := make(map[string]*model.Entity, len(entities))
		for _, e := range entities {
			loaded[e.ID] = e
		}

		for id, child := range byID {
			e, ok := loaded[id]
			if !ok {
				r.logger.Debug("drop unloadable dependent", "entity", child.Ref.Key())
				delete(byID, id)
				continue
			}
			child.Entity = e
			if err := r.load(ctx, child); err != nil {
				return err
			}
		}
		if len(byID) == 0 {
			delete(node.Children, typ)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
