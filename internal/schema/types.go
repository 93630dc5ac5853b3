// Package schema describes the host content model and answers which fields
// hold references to other entities.
package schema

// Built-in field kinds.
const (
	KindEntityReference          = "entity_reference"
	KindEntityReferenceRevisions = "entity_reference_revisions"
	KindFile                     = "file"
	KindImage                    = "image"
)

// builtinKinds maps a field kind to its parent kind.
var builtinKinds = map[string]string{
	KindEntityReference:          "",
	KindEntityReferenceRevisions: KindEntityReference,
	KindFile:                     KindEntityReference,
	KindImage:                    KindFile,
	"string":                     "",
	"text":                       "",
	"integer":                    "",
	"boolean":                    "",
	"datetime":                   "",
}

// Model is the content model loaded from content_model.yaml.
type Model struct {
	// FieldTypes declares additional field kinds. A kind whose parent chain
	// reaches entity_reference is a reference kind.
	FieldTypes map[string]*FieldType `yaml:"field_types"`

	// EntityTypes maps entity type id to its definition.
	EntityTypes map[string]*EntityType `yaml:"entity_types"`
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		FieldTypes:  make(map[string]*FieldType),
		EntityTypes: make(map[string]*EntityType),
	}
}

// FieldType declares a custom field kind.
type FieldType struct {
	Parent string `yaml:"parent"`
}

// EntityType defines an entity type (node, taxonomy_term, user, ...).
type EntityType struct {
	Label string `yaml:"label,omitempty"`

	// BundleKey names the bundle property. Empty means the type has a single
	// implicit bundle named after the type.
	BundleKey string `yaml:"bundle_key,omitempty"`

	// Fieldable controls whether configurable fields may be attached. Defaults to true.
	Fieldable *bool `yaml:"fieldable,omitempty"`

	// BaseFields are defined by the type itself and never indexed.
	BaseFields map[string]*FieldDefinition `yaml:"base_fields,omitempty"`

	// Fields are the configurable fields of the implicit bundle (types without BundleKey).
	Fields map[string]*FieldDefinition `yaml:"fields,omitempty"`

	// Bundles maps bundle id to its definition (types with BundleKey).
	Bundles map[string]*Bundle `yaml:"bundles,omitempty"`
}

// IsFieldable reports whether the type accepts configurable fields.
func (t *EntityType) IsFieldable() bool {
	return t != nil && (t.Fieldable == nil || *t.Fieldable)
}

// Bundle is a named variant of an entity type with its own fields.
type Bundle struct {
	Label  string                      `yaml:"label,omitempty"`
	Fields map[string]*FieldDefinition `yaml:"fields,omitempty"`
}

// FieldDefinition defines one field.
type FieldDefinition struct {
	Type       string `yaml:"type"`
	TargetType string `yaml:"target_type,omitempty"`

	// CustomStorage marks fields stored outside the generic storage layer.
	CustomStorage bool `yaml:"custom_storage,omitempty"`

	// Cardinality of -1 means unlimited; 0 is treated as 1.
	Cardinality int `yaml:"cardinality,omitempty"`
}

// ReferenceField is an indexable reference field on a bundle.
type ReferenceField struct {
	Name       string `json:"name"`
	TargetType string `json:"target_type"`
}
