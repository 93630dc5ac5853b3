package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// KeySeparator joins an entity type and id into a composite key ("node__5").
const KeySeparator = "__"

// ErrInvalidKey indicates a composite key that is not of the form type__id.
var ErrInvalidKey = errors.New("invalid entity key")

// EntityRef identifies one record in the content store.
type EntityRef struct {
	Type string `json:"type" msgpack:"type"`
	ID   string `json:"id" msgpack:"id"`
}

// Ref is a shorthand constructor for EntityRef.
func Ref(entityType, id string) EntityRef {
	return EntityRef{Type: entityType, ID: id}
}

// Key returns the composite type__id form used in visited sets and job payloads.
func (r EntityRef) Key() string {
	return r.Type + KeySeparator + r.ID
}

// String implements fmt.Stringer.
func (r EntityRef) String() string { return r.Key() }

// IsZero reports whether the ref names nothing.
func (r EntityRef) IsZero() bool { return r.Type == "" && r.ID == "" }

// ParseKey splits a type__id key. The type is everything before the first
// separator, so ids may themselves contain "__".
func ParseKey(key string) (EntityRef, error) {
	idx := strings.Index(key, KeySeparator)
	if idx <= 0 || idx+len(KeySeparator) >= len(key) {
		return EntityRef{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return EntityRef{Type: key[:idx], ID: key[idx+len(KeySeparator):]}, nil
}

// IndexRow records that Subject references Target through FieldName.
type IndexRow struct {
	Subject   EntityRef `json:"subject"`
	Target    EntityRef `json:"target"`
	FieldName string    `json:"field_name"`
}

// TypeSet is a set of entity type ids. A nil TypeSet means "no filter" where
// callers document it; an empty non-nil set matches nothing.
type TypeSet map[string]struct{}

// NewTypeSet builds a set from a list, ignoring blanks and duplicates.
func NewTypeSet(types ...string) TypeSet {
	set := make(TypeSet, len(types))
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s TypeSet) Has(t string) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the members in lexical order.
func (s TypeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// KeySet is a set of composite entity keys.
type KeySet map[string]struct{}

// Add inserts a ref and reports whether it was new.
func (s KeySet) Add(r EntityRef) bool {
	k := r.Key()
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = struct{}{}
	return true
}

// Has reports whether the ref is in the set.
func (s KeySet) Has(r EntityRef) bool {
	_, ok := s[r.Key()]
	return ok
}
