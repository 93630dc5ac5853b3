// Package sqlutil holds small helpers shared by the SQL-backed stores.
package sqlutil

import (
	"context"
	"database/sql"
	"strings"
)

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InClauseArgs returns a comma-separated list of "?" placeholders and the
// corresponding args slice.
//
// If items is empty, it returns "NULL" and no args, so `IN (NULL)` matches nothing.
func InClauseArgs(items []string) (placeholders string, args []any) {
	if len(items) == 0 {
		return "NULL", nil
	}
	ph := make([]string, len(items))
	args = make([]any, len(items))
	for i, item := range items {
		ph[i] = "?"
		args[i] = item
	}
	return strings.Join(ph, ", "), args
}

// ValuesClause returns "(?, ?), (?, ?)" style placeholders for a multi-row
// INSERT of rows tuples with cols columns each.
func ValuesClause(rows, cols int) string {
	if rows <= 0 || cols <= 0 {
		return ""
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	var b strings.Builder
	b.Grow(rows * (len(tuple) + 2))
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

// ScanRows scans all rows into a slice using the provided scanner.
func ScanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// WithTx runs fn inside a transaction, committing on success.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
