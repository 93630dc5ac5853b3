package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/sqlutil"
)

// InsertRows appends rows to the index. A batch that fits in one statement
// is written with a single multi-row INSERT; larger batches are chunked
// inside one transaction. Existing rows are never touched.
func (d *Database) InsertRows(ctx context.Context, rows []model.IndexRow) error {
	if len(rows) == 0 {
		return nil
	}
	if len(rows) <= maxRowsPerInsert {
		return insertChunk(ctx, d.db, rows)
	}
	return sqlutil.WithTx(ctx, d.db, func(tx *sql.Tx) error {
		return insertRows(ctx, tx, rows)
	})
}

// ReplaceRows atomically swaps every row recorded for subject with rows.
func (d *Database) ReplaceRows(ctx context.Context, subject model.EntityRef, rows []model.IndexRow) error {
	return sqlutil.WithTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := deleteBySubject(ctx, tx, subject); err != nil {
			return err
		}
		return insertRows(ctx, tx, rows)
	})
}

// DeleteBySubject removes all rows where ref is the referencing entity.
func (d *Database) DeleteBySubject(ctx context.Context, ref model.EntityRef) (int64, error) {
	return deleteBySubject(ctx, d.db, ref)
}

// DeleteByTarget removes all rows where ref is the referenced entity.
func (d *Database) DeleteByTarget(ctx context.Context, ref model.EntityRef) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM entity_ref_dependency WHERE ref_entity_type_id = ? AND ref_entity_id = ?",
		ref.Type, ref.ID)
	if err != nil {
		return 0, fmt.Errorf("delete rows referencing %s: %w", ref, err)
	}
	return res.RowsAffected()
}

// FindBySubject returns the rows recorded for a referencing entity.
func (d *Database) FindBySubject(ctx context.Context, ref model.EntityRef) ([]model.IndexRow, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT entity_type_id, entity_id, ref_entity_type_id, ref_entity_id, field_name
		FROM entity_ref_dependency
		WHERE entity_type_id = ? AND entity_id = ?
		ORDER BY ref_entity_type_id, ref_entity_id, field_name
	`, ref.Type, ref.ID)
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, scanIndexRow)
}

// FindByTarget returns the rows whose referenced entity is ref. A nil allowed
// set applies no filter; an empty non-nil set matches nothing.
func (d *Database) FindByTarget(ctx context.Context, ref model.EntityRef, allowed model.TypeSet) ([]model.IndexRow, error) {
	query := `
		SELECT entity_type_id, entity_id, ref_entity_type_id, ref_entity_id, field_name
		FROM entity_ref_dependency
		WHERE ref_entity_type_id = ? AND ref_entity_id = ?`
	args := []any{ref.Type, ref.ID}

	if allowed != nil {
		if len(allowed) == 0 {
			return nil, nil
		}
		ph, typeArgs := sqlutil.InClauseArgs(allowed.Sorted())
		query += " AND entity_type_id IN (" + ph + ")"
		args = append(args, typeArgs...)
	}
	query += " ORDER BY entity_type_id, entity_id, field_name"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, scanIndexRow)
}

// Truncate removes every row from the index.
func (d *Database) Truncate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM entity_ref_dependency"); err != nil {
		return fmt.Errorf("truncate index: %w", err)
	}
	return nil
}
