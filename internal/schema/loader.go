package schema

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Load loads the content model from a YAML file.
// Returns an empty model if the file doesn't exist.
func Load(path string) (*Model, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewModel(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content model %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content model %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a content model document.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	if m.FieldTypes == nil {
		m.FieldTypes = make(map[string]*FieldType)
	}
	if m.EntityTypes == nil {
		m.EntityTypes = make(map[string]*EntityType)
	}
	for name, ft := range m.FieldTypes {
		if ft == nil {
			m.FieldTypes[name] = &FieldType{}
		}
	}
	for id, et := range m.EntityTypes {
		if et == nil {
			et = &EntityType{}
			m.EntityTypes[id] = et
		}
		if et.BundleKey == "" && len(et.Bundles) > 0 {
			return nil, fmt.Errorf("entity type %s declares bundles without bundle_key", id)
		}
		if et.BundleKey != "" && len(et.Fields) > 0 {
			return nil, fmt.Errorf("entity type %s has bundle_key; declare fields per bundle", id)
		}
		for bid, b := range et.Bundles {
			if b == nil {
				et.Bundles[bid] = &Bundle{}
			}
		}
	}

	if err := m.validateReferenceTargets(); err != nil {
		return nil, err
	}
	return &m, nil
}

// validateReferenceTargets requires every configurable reference field to
// name its target type.
func (m *Model) validateReferenceTargets() error {
	for _, typeID := range sortedKeys(m.EntityTypes) {
		for _, bundle := range m.Bundles(typeID) {
			fields := m.bundleFields(typeID, bundle)
			for _, name := range sortedKeys(fields) {
				def := fields[name]
				if def == nil {
					return fmt.Errorf("field %s on %s.%s has no definition", name, typeID, bundle)
				}
				if m.IsReferenceKind(def.Type) && def.TargetType == "" {
					return fmt.Errorf("reference field %s on %s.%s is missing target_type", name, typeID, bundle)
				}
			}
		}
	}
	return nil
}

// CreateDefault writes an example content model if none exists.
func CreateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(defaultModel), 0o644)
}

const defaultModel = `# Content model for erdep.
#
# Reference fields (entity_reference and kinds derived from it) on bundles are
# indexed. Base fields and fields with custom_storage are never indexed.

field_types:
  # Custom kinds may derive from a built-in one.
  # media_reference:
  #   parent: entity_reference

entity_types:
  node:
    label: Content
    bundle_key: type
    base_fields:
      uid: {type: entity_reference, target_type: user}
    bundles:
      article:
        label: Article
        fields:
          field_tags: {type: entity_reference, target_type: taxonomy_term, cardinality: -1}
          field_image: {type: image, target_type: file}
      page:
        label: Basic page
        fields:
          field_related: {type: entity_reference, target_type: node, cardinality: -1}

  taxonomy_term:
    label: Taxonomy term
    bundle_key: vid
    bundles:
      tags:
        label: Tags
        fields:
          field_parent_term: {type: entity_reference, target_type: taxonomy_term}

  user:
    label: User

  file:
    label: File
    fieldable: false
`

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
