// Package index stores the entity reference dependency table.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverLibSQL = "libsql"
)

// TableName is the reference index table.
const TableName = "entity_ref_dependency"

var (
	// ErrIndexLocked indicates another process is rebuilding the index.
	ErrIndexLocked = errors.New("index is locked for rebuild")
	// ErrUnknownDriver indicates an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown database driver")
)

// Options selects the backing database.
type Options struct {
	// Driver is DriverSQLite (local file via modernc) or DriverLibSQL (remote).
	Driver string
	// DSN is a file path for sqlite and a libsql:// or https:// URL for libsql.
	DSN string
}

// Database is the handle to the reference index. It also owns the shared
// *sql.DB used by the content and queue stores.
type Database struct {
	db       *sql.DB
	driver   string
	lockPath string
}

// DB returns the underlying sql.DB for stores sharing the connection.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Driver returns the driver name the database was opened with.
func (d *Database) Driver() string {
	return d.driver
}

// Open opens or creates the database and its schema.
func Open(opts Options) (*Database, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var (
		dsn      string
		lockPath string
	)
	switch driver {
	case DriverSQLite:
		if opts.DSN == "" {
			return nil, fmt.Errorf("sqlite database path is required")
		}
		if err := os.MkdirAll(filepath.Dir(opts.DSN), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = sqliteDSN(opts.DSN)
		lockPath = opts.DSN + ".lock"
	case DriverLibSQL:
		if opts.DSN == "" {
			return nil, fmt.Errorf("libsql database URL is required")
		}
		dsn = opts.DSN
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Database{db: db, driver: driver, lockPath: lockPath}
	if err := d.initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// sqliteDSN adds connection-level pragmas so every pooled connection waits on
// locks instead of failing with SQLITE_BUSY.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
}

// OpenInMemory opens an in-memory database (for testing).
func OpenInMemory() (*Database, error) {
	db, err := sql.Open(DriverSQLite, ":memory:")
	if err != nil {
		return nil, err
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	d := &Database{db: db, driver: DriverSQLite}
	if err := d.initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Wrap adopts an already-initialized connection without running migrations.
func Wrap(db *sql.DB) *Database {
	return &Database{db: db, driver: DriverSQLite}
}

// Close closes the database.
func (d *Database) Close() error {
	return d.db.Close()
}

// Analyze runs SQLite's ANALYZE command to update query planner statistics.
// This should be called after bulk indexing operations for optimal query performance.
func (d *Database) Analyze(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, "ANALYZE")
	return err
}

// CurrentDBVersion is the current database schema version.
const CurrentDBVersion = 1

// initialize creates the database schema.
func (d *Database) initialize(ctx context.Context) error {
	schema := `
		-- Metadata table for version tracking and reindex checkpoints
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		-- "entity references ref_entity via field_name"; no key beyond the 5-tuple
		CREATE TABLE IF NOT EXISTS entity_ref_dependency (
			entity_type_id TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			ref_entity_type_id TEXT NOT NULL,
			ref_entity_id TEXT NOT NULL,
			field_name TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_erd_subject ON entity_ref_dependency(entity_type_id, entity_id);
		CREATE INDEX IF NOT EXISTS idx_erd_target ON entity_ref_dependency(ref_entity_type_id, ref_entity_id);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	if err := d.SetMeta(ctx, "version", fmt.Sprintf("%d", CurrentDBVersion)); err != nil {
		return fmt.Errorf("failed to set database version: %w", err)
	}
	return nil
}

// GetMeta returns a value from the meta table, or "" if unset.
func (d *Database) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetMeta stores a value in the meta table.
func (d *Database) SetMeta(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// DeleteMeta removes a key from the meta table.
func (d *Database) DeleteMeta(ctx context.Context, key string) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM meta WHERE key = ?", key)
	return err
}

// Stats returns statistics about the index.
func (d *Database) Stats(ctx context.Context) (*IndexStats, error) {
	var stats IndexStats

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM entity_ref_dependency", &stats.RowCount},
		{"SELECT COUNT(*) FROM (SELECT DISTINCT entity_type_id, entity_id FROM entity_ref_dependency)", &stats.SubjectCount},
		{"SELECT COUNT(*) FROM (SELECT DISTINCT ref_entity_type_id, ref_entity_id FROM entity_ref_dependency)", &stats.TargetCount},
	}
	for _, q := range queries {
		if err := d.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

// IndexStats contains index statistics.
type IndexStats struct {
	RowCount     int `json:"rows"`
	SubjectCount int `json:"subjects"`
	TargetCount  int `json:"targets"`
}
