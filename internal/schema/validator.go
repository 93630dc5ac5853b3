package schema

import (
	"fmt"
	"sort"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("Field '%s': %s", e.Field, e.Message)
}

// ValidateEntity checks an entity against the model before it is saved:
// the type and bundle must exist, and reference items and cardinality must
// match their field definitions. Fields the model does not declare are
// allowed.
func (m *Model) ValidateEntity(e *model.Entity) []ValidationError {
	var errs []ValidationError

	et, ok := m.EntityTypes[e.Type]
	if !ok {
		return []ValidationError{{Message: fmt.Sprintf("unknown entity type '%s'", e.Type)}}
	}
	if e.ID == "" {
		errs = append(errs, ValidationError{Message: "entity id is required"})
	}

	bundle := e.Bundle
	if bundle == "" {
		bundle = e.Type
	}
	if et.BundleKey != "" {
		if _, ok := et.Bundles[bundle]; !ok {
			return append(errs, ValidationError{Message: fmt.Sprintf("unknown bundle '%s' for %s", bundle, e.Type)})
		}
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def, _, ok := m.FieldDefinition(e.Type, bundle, name)
		if !ok {
			continue
		}
		if err := m.validateField(e.Fields[name], def); err != nil {
			errs = append(errs, ValidationError{Field: name, Message: err.Error()})
		}
	}
	return errs
}

func (m *Model) validateField(f model.Field, def *FieldDefinition) error {
	limit := def.Cardinality
	if limit == 0 {
		limit = 1
	}
	if limit > 0 && len(f) > limit {
		return fmt.Errorf("has %d items, cardinality is %d", len(f), limit)
	}

	if !m.IsReferenceKind(def.Type) {
		for _, item := range f {
			if item.TargetID != "" {
				return fmt.Errorf("target_id is only valid on reference fields")
			}
		}
		return nil
	}
	for i, item := range f {
		if item.Value != "" {
			return fmt.Errorf("item %d: reference items take target_id, not value", i)
		}
	}
	return nil
}
