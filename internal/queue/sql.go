package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// claimRetries bounds how often Claim retries after losing a race for the
// same item to another worker.
const claimRetries = 5

// SQL is a Queue persisted in the entity_ref_delete_queue table. Payloads
// are msgpack-encoded DeleteJobs; times are unix milliseconds.
type SQL struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQL creates the queue table if needed.
func NewSQL(ctx context.Context, db *sql.DB) (*SQL, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS entity_ref_delete_queue (
			id TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			created INTEGER NOT NULL,
			expire INTEGER NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_delete_queue_expire ON entity_ref_delete_queue(expire, id);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to initialize queue schema: %w", err)
	}
	return &SQL{db: db, now: time.Now}, nil
}

func (q *SQL) Enqueue(ctx context.Context, job model.DeleteJob) (string, error) {
	payload, err := encodeJob(job)
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}
	id := newID()
	_, err = q.db.ExecContext(ctx,
		"INSERT INTO entity_ref_delete_queue (id, payload, created) VALUES (?, ?, ?)",
		id, payload, q.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

func (q *SQL) Claim(ctx context.Context, lease time.Duration) (*Item, error) {
	for attempt := 0; attempt < claimRetries; attempt++ {
		now := q.now().UnixMilli()

		var id string
		err := q.db.QueryRowContext(ctx,
			"SELECT id FROM entity_ref_delete_queue WHERE expire <= ? ORDER BY id LIMIT 1", now).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select queue item: %w", err)
		}

		res, err := q.db.ExecContext(ctx,
			"UPDATE entity_ref_delete_queue SET expire = ?, attempts = attempts + 1 WHERE id = ? AND expire <= ?",
			now+lease.Milliseconds(), id, now)
		if err != nil {
			return nil, fmt.Errorf("claim queue item: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if n == 0 {
			continue
		}
		return q.load(ctx, id)
	}
	return nil, nil
}

func (q *SQL) load(ctx context.Context, id string) (*Item, error) {
	var (
		payload []byte
		created int64
		item    = Item{ID: id}
	)
	err := q.db.QueryRowContext(ctx,
		"SELECT payload, created, attempts FROM entity_ref_delete_queue WHERE id = ?", id).
		Scan(&payload, &created, &item.Attempts)
	if err != nil {
		return nil, fmt.Errorf("load queue item %s: %w", id, err)
	}
	item.Enqueued = time.UnixMilli(created)
	if item.Job, err = decodeJob(payload); err != nil {
		item.Job = model.DeleteJob{}
		return &item, fmt.Errorf("%w %s: %v", ErrCorruptItem, id, err)
	}
	return &item, nil
}

func (q *SQL) Ack(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM entity_ref_delete_queue WHERE id = ?", id)
	return err
}

func (q *SQL) Release(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, "UPDATE entity_ref_delete_queue SET expire = 0 WHERE id = ?", id)
	return err
}

func (q *SQL) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entity_ref_delete_queue").Scan(&n)
	return n, err
}
