package testutil

import (
	"context"
	"errors"
	"reflect"

	"github.com/IgorPritula/entity-ref-dependency/internal/content"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// AssertRowsTo fails the test unless exactly want rows target ref.
func (s *Site) AssertRowsTo(ref model.EntityRef, want int) {
	s.t.Helper()
	rows, err := s.DB.FindByTarget(context.Background(), ref, nil)
	if err != nil {
		s.t.Fatalf("find rows targeting %s: %v", ref, err)
	}
	if len(rows) != want {
		s.t.Errorf("expected %d rows targeting %s, got %d: %v", want, ref, len(rows), rows)
	}
}

// AssertRowsFrom fails the test unless exactly want rows have ref as subject.
func (s *Site) AssertRowsFrom(ref model.EntityRef, want int) {
	s.t.Helper()
	rows, err := s.DB.FindBySubject(context.Background(), ref)
	if err != nil {
		s.t.Fatalf("find rows of %s: %v", ref, err)
	}
	if len(rows) != want {
		s.t.Errorf("expected %d rows from %s, got %d: %v", want, ref, len(rows), rows)
	}
}

// AssertExists fails the test if the entity is missing.
func (s *Site) AssertExists(ref model.EntityRef) {
	s.t.Helper()
	if _, err := s.Content.Load(context.Background(), ref); err != nil {
		s.t.Errorf("expected %s to exist: %v", ref, err)
	}
}

// AssertDeleted fails the test if the entity still exists.
func (s *Site) AssertDeleted(ref model.EntityRef) {
	s.t.Helper()
	_, err := s.Content.Load(context.Background(), ref)
	if !errors.Is(err, content.ErrNotFound) {
		s.t.Errorf("expected %s to be deleted, got err=%v", ref, err)
	}
}

// AssertTargets fails the test unless the field's target ids equal want.
func (s *Site) AssertTargets(ref model.EntityRef, field string, want ...string) {
	s.t.Helper()
	e := s.Load(ref)
	var got []string
	f, _ := e.Field(field)
	for _, item := range f {
		got = append(got, item.TargetID)
	}
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		s.t.Errorf("%s.%s targets = %v, want %v", ref, field, got, want)
	}
}
