package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/sqlutil"
)

// rowColumns is the number of bound columns per index row.
const rowColumns = 5

// maxRowsPerInsert keeps a multi-row INSERT under SQLite's 999 bound
// variable limit on older builds.
const maxRowsPerInsert = 999 / rowColumns

const insertPrefix = `INSERT INTO entity_ref_dependency
	(entity_type_id, entity_id, ref_entity_type_id, ref_entity_id, field_name) VALUES `

func insertChunk(ctx context.Context, q sqlutil.Querier, rows []model.IndexRow) error {
	args := make([]any, 0, len(rows)*rowColumns)
	for _, r := range rows {
		args = append(args, r.Subject.Type, r.Subject.ID, r.Target.Type, r.Target.ID, r.FieldName)
	}
	if _, err := q.ExecContext(ctx, insertPrefix+sqlutil.ValuesClause(len(rows), rowColumns), args...); err != nil {
		return fmt.Errorf("insert reference rows: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, q sqlutil.Querier, rows []model.IndexRow) error {
	for start := 0; start < len(rows); start += maxRowsPerInsert {
		end := min(start+maxRowsPerInsert, len(rows))
		if err := insertChunk(ctx, q, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func deleteBySubject(ctx context.Context, q sqlutil.Querier, subject model.EntityRef) (int64, error) {
	res, err := q.ExecContext(ctx,
		"DELETE FROM entity_ref_dependency WHERE entity_type_id = ? AND entity_id = ?",
		subject.Type, subject.ID)
	if err != nil {
		return 0, fmt.Errorf("delete rows for %s: %w", subject, err)
	}
	return res.RowsAffected()
}

func scanIndexRow(rows *sql.Rows) (model.IndexRow, error) {
	var r model.IndexRow
	err := rows.Scan(&r.Subject.Type, &r.Subject.ID, &r.Target.Type, &r.Target.ID, &r.FieldName)
	return r, err
}
