// Package testutil provides fixtures for erdep tests: an in-memory index and
// content store seeded from a content model and a list of entities.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IgorPritula/entity-ref-dependency/internal/content"
	"github.com/IgorPritula/entity-ref-dependency/internal/index"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/schema"
)

// Site is a seeded content store with its reference index.
type Site struct {
	DB      *index.Database
	Content *content.SQLStorage
	Model   *schema.Model
	// Dir holds files written by WriteConfig; empty until then.
	Dir string

	t        *testing.T
	model    string
	entities []*model.Entity
	onDisk   bool
}

// NewSite creates a site builder using StandardModel.
// Call Build() to open the stores.
func NewSite(t *testing.T) *Site {
	t.Helper()
	return &Site{t: t, model: StandardModel()}
}

// WithModel replaces the content model YAML.
func (s *Site) WithModel(yaml string) *Site {
	s.model = yaml
	return s
}

// WithEntity adds an entity to seed.
func (s *Site) WithEntity(e *model.Entity) *Site {
	s.entities = append(s.entities, e)
	return s
}

// OnDisk stores the database in a temp directory instead of memory so a
// subprocess (the CLI) can open it.
func (s *Site) OnDisk() *Site {
	s.onDisk = true
	return s
}

// Build opens the stores and saves the seeded entities. Entities are not
// indexed; callers index through the component under test.
func (s *Site) Build() *Site {
	s.t.Helper()

	m, err := schema.Parse([]byte(s.model))
	if err != nil {
		s.t.Fatalf("failed to parse content model: %v", err)
	}
	s.Model = m

	if s.onDisk {
		s.Dir = s.t.TempDir()
		s.DB, err = index.Open(index.Options{DSN: filepath.Join(s.Dir, "erdep.db")})
	} else {
		s.DB, err = index.OpenInMemory()
	}
	if err != nil {
		s.t.Fatalf("failed to open database: %v", err)
	}
	s.t.Cleanup(func() { s.DB.Close() })

	s.Content, err = content.NewSQLStorage(context.Background(), s.DB.DB())
	if err != nil {
		s.t.Fatalf("failed to open content store: %v", err)
	}
	for _, e := range s.entities {
		s.Save(e)
	}
	return s
}

// Save writes an entity straight to the content store.
func (s *Site) Save(e *model.Entity) {
	s.t.Helper()
	if err := s.Content.Save(context.Background(), e); err != nil {
		s.t.Fatalf("failed to save %s: %v", e.Ref(), err)
	}
}

// Load reads an entity and fails the test if it is missing.
func (s *Site) Load(ref model.EntityRef) *model.Entity {
	s.t.Helper()
	e, err := s.Content.Load(context.Background(), ref)
	if err != nil {
		s.t.Fatalf("failed to load %s: %v", ref, err)
	}
	return e
}

// WriteConfig writes an erdep.toml pointing at the on-disk database and
// content model and returns its path. Extra TOML is appended verbatim.
func (s *Site) WriteConfig(extra string) string {
	s.t.Helper()
	if !s.onDisk {
		s.t.Fatal("WriteConfig requires OnDisk()")
	}
	s.writeFile("content_model.yaml", s.model)
	cfg := fmt.Sprintf("[database]\ndsn = %q\n\n[content]\nmodel = %q\n\n%s",
		filepath.ToSlash(filepath.Join(s.Dir, "erdep.db")), "content_model.yaml", strings.TrimSpace(extra))
	return s.writeFile("erdep.toml", cfg+"\n")
}

func (s *Site) writeFile(name, data string) string {
	s.t.Helper()
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		s.t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// Article builds a node/article entity tagged with the given term ids.
func Article(id string, tagIDs ...string) *model.Entity {
	e := &model.Entity{Type: "node", ID: id, Bundle: "article", Label: "Article " + id, Fields: map[string]model.Field{}}
	if len(tagIDs) > 0 {
		f := make(model.Field, 0, len(tagIDs))
		for _, tid := range tagIDs {
			f = append(f, model.Item{TargetID: tid})
		}
		e.Fields["field_tags"] = f
	}
	return e
}

// Term builds a taxonomy_term/tags entity.
func Term(id string) *model.Entity {
	return &model.Entity{Type: "taxonomy_term", ID: id, Bundle: "tags", Label: "Term " + id}
}

// Ref builds an entity with one reference field pointing at targets.
func Ref(entityType, id, bundle, field string, targetIDs ...string) *model.Entity {
	f := make(model.Field, 0, len(targetIDs))
	for _, tid := range targetIDs {
		f = append(f, model.Item{TargetID: tid})
	}
	return &model.Entity{
		Type:   entityType,
		ID:     id,
		Bundle: bundle,
		Fields: map[string]model.Field{field: f},
	}
}

// StandardModel is the content model most tests run against.
//
//	node/article:  field_tags -> taxonomy_term, field_related -> node, field_image -> file
//	node/page:     no reference fields
//	taxonomy_term/tags: field_parent -> taxonomy_term
//	comment:       field_node -> node (unbundled)
//	file:          not fieldable
func StandardModel() string {
	return `entity_types:
  node:
    bundle_key: type
    base_fields:
      uid: {type: entity_reference, target_type: user}
    bundles:
      article:
        fields:
          field_tags: {type: entity_reference, target_type: taxonomy_term}
          field_related: {type: entity_reference, target_type: node}
          field_image: {type: image, target_type: file}
          field_body: {type: text}
      page: {}
  taxonomy_term:
    bundle_key: vid
    bundles:
      tags:
        fields:
          field_parent: {type: entity_reference, target_type: taxonomy_term}
  comment:
    fields:
      field_node: {type: entity_reference, target_type: node}
  user: {}
  file:
    fieldable: false
`
}
