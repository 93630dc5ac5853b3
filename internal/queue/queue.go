// Package queue holds deferred delete jobs until a worker claims them.
// Delivery is at least once: a claimed item that is neither acknowledged nor
// released becomes claimable again when its lease expires.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// ErrCorruptItem is returned by Claim, together with the claimed item, when
// the stored payload cannot be decoded. Such an item can never succeed.
var ErrCorruptItem = errors.New("corrupt queue item")

// Item is a claimed job.
type Item struct {
	ID       string          `json:"id"`
	Job      model.DeleteJob `json:"job"`
	Attempts int             `json:"attempts"`
	Enqueued time.Time       `json:"enqueued"`
}

// Queue is the deferred work queue.
type Queue interface {
	// Enqueue adds a job and returns its id.
	Enqueue(ctx context.Context, job model.DeleteJob) (string, error)
	// Claim leases the oldest available item for lease. It returns nil, nil
	// when nothing is available. An undecodable item is still leased and
	// returned, with an error wrapping ErrCorruptItem and a zero Job.
	Claim(ctx context.Context, lease time.Duration) (*Item, error)
	// Ack removes a processed item.
	Ack(ctx context.Context, id string) error
	// Release makes a claimed item available again immediately.
	Release(ctx context.Context, id string) error
	// Len counts items, claimed or not.
	Len(ctx context.Context) (int, error)
}

// newID returns a time-ordered id so that claims are FIFO.
func newID() string {
	return ulid.Make().String()
}

func encodeJob(job model.DeleteJob) ([]byte, error) {
	return msgpack.Marshal(&job)
}

func decodeJob(data []byte) (model.DeleteJob, error) {
	var job model.DeleteJob
	err := msgpack.Unmarshal(data, &job)
	return job, err
}
