package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/queue"
)

// Defaults for Options fields left zero.
const (
	DefaultInterval    = 10 * time.Second
	DefaultTimeBudget  = 10 * time.Second
	DefaultLease       = time.Minute
	DefaultMaxAttempts = 5
)

// Processor handles one job and returns how many entities it deleted.
type Processor interface {
	Process(ctx context.Context, job model.DeleteJob) (int, error)
}

// Options configures a Runner.
type Options struct {
	// Interval between ticks in Run.
	Interval time.Duration
	// TimeBudget caps the wall time one tick spends claiming jobs.
	TimeBudget time.Duration
	// Lease is how long a claimed job stays invisible to other runners.
	Lease time.Duration
	// MaxAttempts drops a job delivered more often than this.
	MaxAttempts int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.TimeBudget <= 0 {
		o.TimeBudget = DefaultTimeBudget
	}
	if o.Lease <= 0 {
		o.Lease = DefaultLease
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// TickResult summarizes one tick.
type TickResult struct {
	Jobs    int `json:"jobs"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
	Dropped int `json:"dropped"`
}

// Runner drains the queue on a schedule.
type Runner struct {
	queue     queue.Queue
	processor Processor
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(q queue.Queue, p Processor, opts Options, logger *slog.Logger) *Runner {
	return &Runner{
		queue:     q,
		processor: p,
		opts:      opts.withDefaults(),
		logger:    logging.For(logger, logging.ChannelWorker),
		now:       time.Now,
	}
}

// Tick claims and processes jobs until the queue is empty or the time
// budget is spent. A failed job stays leased and is redelivered after the
// lease expires. Jobs that cannot be decoded are dropped.
func (r *Runner) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult
	deadline := r.now().Add(r.opts.TimeBudget)

	for r.now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		item, err := r.queue.Claim(ctx, r.opts.Lease)
		if errors.Is(err, queue.ErrCorruptItem) && item != nil {
			r.logger.Error("dropping undecodable job", "job", item.ID, "attempts", item.Attempts, "error", err)
			if err := r.queue.Ack(ctx, item.ID); err != nil {
				return res, err
			}
			res.Dropped++
			continue
		}
		if err != nil {
			return res, err
		}
		if item == nil {
			break
		}

		if item.Attempts > r.opts.MaxAttempts {
			r.logger.Error("dropping job after too many attempts",
				"job", item.ID, "source", item.Job.Source, "attempts", item.Attempts)
			if err := r.queue.Ack(ctx, item.ID); err != nil {
				return res, err
			}
			res.Dropped++
			continue
		}

		n, err := r.processor.Process(ctx, item.Job)
		res.Deleted += n
		if err != nil {
			r.logger.Warn("job failed", "job", item.ID, "source", item.Job.Source, "attempt", item.Attempts, "error", err)
			res.Failed++
			continue
		}
		if err := r.queue.Ack(ctx, item.ID); err != nil {
			return res, err
		}
		res.Jobs++
	}
	return res, nil
}

// Run ticks immediately and then every Interval until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		res, err := r.Tick(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Error("tick failed", "error", err)
		} else if res.Jobs+res.Failed+res.Dropped > 0 {
			r.logger.Debug("tick", "jobs", res.Jobs, "deleted", res.Deleted, "failed", res.Failed, "dropped", res.Dropped)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunPool runs n concurrent Run loops over the same queue until ctx is done.
func (r *Runner) RunPool(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(n)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			return r.Run(ctx)
		})
	}
	return eg.Wait()
}
