package schema

import "sort"

// FieldableTypes returns the entity types that accept configurable fields.
func (m *Model) FieldableTypes() map[string]*EntityType {
	out := make(map[string]*EntityType)
	for id, et := range m.EntityTypes {
		if et.IsFieldable() {
			out[id] = et
		}
	}
	return out
}

// FieldableTypeIDs returns FieldableTypes keys in lexical order.
func (m *Model) FieldableTypeIDs() []string {
	return sortedKeys(m.FieldableTypes())
}

// BundleKey returns the bundle property of entityType, or "" when the type
// has no bundles (or is unknown).
func (m *Model) BundleKey(entityType string) string {
	if et, ok := m.EntityTypes[entityType]; ok {
		return et.BundleKey
	}
	return ""
}

// Bundles lists the bundle ids of entityType in lexical order. Types without
// a bundle key have one implicit bundle named after the type.
func (m *Model) Bundles(entityType string) []string {
	et, ok := m.EntityTypes[entityType]
	if !ok {
		return nil
	}
	if et.BundleKey == "" {
		return []string{entityType}
	}
	return sortedKeys(et.Bundles)
}

// bundleFields returns the configurable field definitions of a bundle.
func (m *Model) bundleFields(entityType, bundle string) map[string]*FieldDefinition {
	et, ok := m.EntityTypes[entityType]
	if !ok {
		return nil
	}
	if et.BundleKey == "" {
		if bundle != entityType {
			return nil
		}
		return et.Fields
	}
	if b, ok := et.Bundles[bundle]; ok {
		return b.Fields
	}
	return nil
}

// FieldDefinition looks up a field on a bundle, base fields included.
func (m *Model) FieldDefinition(entityType, bundle, name string) (def *FieldDefinition, base bool, ok bool) {
	et, exists := m.EntityTypes[entityType]
	if !exists {
		return nil, false, false
	}
	if d, exists := et.BaseFields[name]; exists && d != nil {
		return d, true, true
	}
	if d, exists := m.bundleFields(entityType, bundle)[name]; exists && d != nil {
		return d, false, true
	}
	return nil, false, false
}

// IsReferenceKind reports whether kind is entity_reference or derives from it.
func (m *Model) IsReferenceKind(kind string) bool {
	seen := make(map[string]bool)
	for kind != "" {
		if kind == KindEntityReference {
			return true
		}
		if seen[kind] {
			return false
		}
		seen[kind] = true

		if parent, ok := builtinKinds[kind]; ok {
			kind = parent
			continue
		}
		ft, ok := m.FieldTypes[kind]
		if !ok || ft == nil {
			return false
		}
		kind = ft.Parent
	}
	return false
}

// ReferenceFields returns the indexable reference fields of a bundle ordered
// by name. Base fields and fields with custom storage are excluded. The result
// is never nil.
func (m *Model) ReferenceFields(entityType, bundle string) []ReferenceField {
	fields := m.bundleFields(entityType, bundle)
	out := make([]ReferenceField, 0, len(fields))
	for name, def := range fields {
		if def == nil || def.CustomStorage || !m.IsReferenceKind(def.Type) {
			continue
		}
		if et := m.EntityTypes[entityType]; et != nil {
			if _, isBase := et.BaseFields[name]; isBase {
				continue
			}
		}
		out = append(out, ReferenceField{Name: name, TargetType: def.TargetType})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListReferenceFields returns just the names of ReferenceFields.
func (m *Model) ListReferenceFields(entityType, bundle string) []string {
	fields := m.ReferenceFields(entityType, bundle)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
