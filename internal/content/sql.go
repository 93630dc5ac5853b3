package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/sqlutil"
)

// SQLStorage keeps entities in the `entities` table of a shared SQLite
// database. Field data is stored as a JSON document per entity.
type SQLStorage struct {
	db *sql.DB
}

// NewSQLStorage creates the entities table if needed and returns the store.
func NewSQLStorage(ctx context.Context, db *sql.DB) (*SQLStorage, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS entities (
			type TEXT NOT NULL,
			id TEXT NOT NULL,
			bundle TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			fields TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (type, id)
		);
		CREATE INDEX IF NOT EXISTS idx_entities_bundle ON entities(type, bundle, id);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to initialize content schema: %w", err)
	}
	return &SQLStorage{db: db}, nil
}

const selectEntity = `SELECT type, id, bundle, label, fields FROM entities`

func scanEntity(rows *sql.Rows) (*model.Entity, error) {
	var (
		e      model.Entity
		fields string
	)
	if err := rows.Scan(&e.Type, &e.ID, &e.Bundle, &e.Label, &fields); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of %s: %w", e.Ref(), err)
	}
	return &e, nil
}

// Load returns one entity or ErrNotFound.
func (s *SQLStorage) Load(ctx context.Context, ref model.EntityRef) (*model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, selectEntity+" WHERE type = ? AND id = ?", ref.Type, ref.ID)
	if err != nil {
		return nil, err
	}
	found, err := sqlutil.ScanRows(rows, scanEntity)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return found[0], nil
}

// LoadMultiple loads ids of one type, skipping missing ones.
func (s *SQLStorage) LoadMultiple(ctx context.Context, entityType string, ids []string) ([]*model.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ph, args := sqlutil.InClauseArgs(ids)
	rows, err := s.db.QueryContext(ctx,
		selectEntity+" WHERE type = ? AND id IN ("+ph+")",
		append([]any{entityType}, args...)...)
	if err != nil {
		return nil, err
	}
	found, err := sqlutil.ScanRows(rows, scanEntity)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Entity, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}
	out := make([]*model.Entity, 0, len(found))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
			delete(byID, id)
		}
	}
	return out, nil
}

// Save inserts or replaces an entity. An empty bundle defaults to the type.
func (s *SQLStorage) Save(ctx context.Context, e *model.Entity) error {
	if e == nil || e.Type == "" || e.ID == "" {
		return errors.New("entity type and id are required")
	}
	if e.Bundle == "" {
		e.Bundle = e.Type
	}
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("encode fields of %s: %w", e.Ref(), err)
	}
	if e.Fields == nil {
		fields = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (type, id, bundle, label, fields) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(type, id) DO UPDATE SET bundle = excluded.bundle, label = excluded.label, fields = excluded.fields
	`, e.Type, e.ID, e.Bundle, e.Label, string(fields))
	if err != nil {
		return fmt.Errorf("save %s: %w", e.Ref(), err)
	}
	return nil
}

// Delete removes entities in one statement per type.
func (s *SQLStorage) Delete(ctx context.Context, entities []*model.Entity) error {
	byType := make(map[string][]string)
	var order []string
	for _, e := range entities {
		if _, ok := byType[e.Type]; !ok {
			order = append(order, e.Type)
		}
		byType[e.Type] = append(byType[e.Type], e.ID)
	}
	for _, typ := range order {
		ph, args := sqlutil.InClauseArgs(byType[typ])
		if _, err := s.db.ExecContext(ctx,
			"DELETE FROM entities WHERE type = ? AND id IN ("+ph+")",
			append([]any{typ}, args...)...); err != nil {
			return fmt.Errorf("delete %s entities: %w", typ, err)
		}
	}
	return nil
}

func (q Query) where() (string, []any) {
	clause := " WHERE type = ?"
	args := []any{q.Type}
	if q.Bundle != "" {
		clause += " AND bundle = ?"
		args = append(args, q.Bundle)
	}
	if q.AfterID != "" {
		clause += " AND id > ?"
		args = append(args, q.AfterID)
	}
	return clause, args
}

// QueryIDs returns a page of ids in ascending order.
func (s *SQLStorage) QueryIDs(ctx context.Context, q Query) ([]string, error) {
	clause, args := q.where()
	query := "SELECT id FROM entities" + clause + " ORDER BY id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, func(r *sql.Rows) (string, error) {
		var id string
		err := r.Scan(&id)
		return id, err
	})
}

// Count returns the number of ids matching q, ignoring Limit.
func (s *SQLStorage) Count(ctx context.Context, q Query) (int, error) {
	clause, args := q.where()
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities"+clause, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
