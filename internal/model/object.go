package model

// Entity is a record loaded from the host content store.
type Entity struct {
	// Type is the entity type id (e.g. "node", "taxonomy_term").
	Type string `json:"type" yaml:"type"`

	// ID is unique within Type.
	ID string `json:"id" yaml:"id"`

	// Bundle is the sub-type carrying the field set. For entity types without
	// bundles it equals Type.
	Bundle string `json:"bundle,omitempty" yaml:"bundle,omitempty"`

	// Label is a human-readable title.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Fields holds multi-valued field items keyed by field name.
	Fields map[string]Field `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Field is the ordered list of items stored in one field.
type Field []Item

// Item is one value of a field. Reference fields use TargetID; other fields
// use Value.
type Item struct {
	TargetID string `json:"target_id,omitempty" yaml:"target_id,omitempty"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
}

// IsEmpty reports whether the item carries no reference.
func (i Item) IsEmpty() bool { return i.TargetID == "" }

// Ref returns the entity's identity.
func (e *Entity) Ref() EntityRef {
	return EntityRef{Type: e.Type, ID: e.ID}
}

// Field returns the named field and whether the entity has it.
func (e *Entity) Field(name string) (Field, bool) {
	if e == nil || e.Fields == nil {
		return nil, false
	}
	f, ok := e.Fields[name]
	return f, ok
}

// RemoveTarget drops every item of the named field pointing at targetID and
// returns how many were removed. The field is kept (possibly empty).
func (e *Entity) RemoveTarget(fieldName, targetID string) int {
	f, ok := e.Field(fieldName)
	if !ok {
		return 0
	}
	kept := f[:0:0]
	removed := 0
	for _, item := range f {
		if item.TargetID == targetID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	if removed > 0 {
		e.Fields[fieldName] = kept
	}
	return removed
}
