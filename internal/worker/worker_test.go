package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/queue"
	"github.com/IgorPritula/entity-ref-dependency/internal/testutil"
)

// recordingDeleter deletes through the content store and records each call.
type recordingDeleter struct {
	site  *testutil.Site
	calls [][]string
}

func (d *recordingDeleter) DeleteMultiple(ctx context.Context, entities []*model.Entity) error {
	var keys []string
	for _, e := range entities {
		keys = append(keys, e.Ref().Key())
	}
	d.calls = append(d.calls, keys)
	return d.site.Content.Delete(ctx, entities)
}

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func logLines(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err == nil {
			out = append(out, rec)
		}
	}
	return out
}

func TestDeleteWorkerProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("groups by type and skips missing", func(t *testing.T) {
		site := testutil.NewSite(t).
			WithEntity(testutil.Article("5")).
			WithEntity(testutil.Term("9")).
			Build()
		deleter := &recordingDeleter{site: site}
		var logs bytes.Buffer
		w := NewDeleteWorker(site.Content, deleter, jsonLogger(&logs))

		n, err := w.Process(ctx, model.DeleteJob{
			Source:     "taxonomy_term__1",
			Dependents: []string{"node__5", "node__7", "taxonomy_term__9"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, [][]string{{"node__5"}, {"taxonomy_term__9"}}, deleter.calls)

		site.AssertDeleted(model.Ref("node", "5"))
		site.AssertDeleted(model.Ref("taxonomy_term", "9"))

		lines := logLines(&logs)
		require.Len(t, lines, 1)
		assert.Equal(t, "taxonomy_term__1", lines[0]["source"])
		assert.EqualValues(t, 2, lines[0]["count"])
	})

	t.Run("nothing deleted logs nothing", func(t *testing.T) {
		site := testutil.NewSite(t).Build()
		deleter := &recordingDeleter{site: site}
		var logs bytes.Buffer
		w := NewDeleteWorker(site.Content, deleter, jsonLogger(&logs))

		n, err := w.Process(ctx, model.DeleteJob{Source: "node__1", Dependents: []string{"comment__1", "bogus"}})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, deleter.calls)

		for _, rec := range logLines(&logs) {
			assert.NotEqual(t, "INFO", rec["level"])
		}
	})

	t.Run("redelivery is harmless", func(t *testing.T) {
		site := testutil.NewSite(t).WithEntity(testutil.Article("5")).Build()
		w := NewDeleteWorker(site.Content, &recordingDeleter{site: site}, nil)
		job := model.DeleteJob{Source: "taxonomy_term__9", Dependents: []string{"node__5"}}

		n, err := w.Process(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = w.Process(ctx, job)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

type fakeProcessor struct {
	err  error
	jobs []model.DeleteJob
}

func (p *fakeProcessor) Process(_ context.Context, job model.DeleteJob) (int, error) {
	p.jobs = append(p.jobs, job)
	if p.err != nil {
		return 0, p.err
	}
	return len(job.Dependents), nil
}

func enqueue(t *testing.T, q queue.Queue, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := q.Enqueue(context.Background(), model.DeleteJob{Source: "node__1", Dependents: []string{"comment__1"}})
		require.NoError(t, err)
	}
}

func TestRunnerTick(t *testing.T) {
	ctx := context.Background()

	t.Run("drains the queue", func(t *testing.T) {
		q := queue.NewMemory()
		enqueue(t, q, 3)
		p := &fakeProcessor{}

		res, err := NewRunner(q, p, Options{}, nil).Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, TickResult{Jobs: 3, Deleted: 3}, res)

		n, err := q.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("failed jobs stay queued", func(t *testing.T) {
		q := queue.NewMemory()
		enqueue(t, q, 1)

		res, err := NewRunner(q, &fakeProcessor{err: errors.New("db locked")}, Options{}, nil).Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed)

		n, err := q.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("drops jobs past max attempts", func(t *testing.T) {
		q := queue.NewMemory()
		enqueue(t, q, 1)
		for i := 0; i < 2; i++ {
			item, err := q.Claim(ctx, time.Hour)
			require.NoError(t, err)
			require.NoError(t, q.Release(ctx, item.ID))
		}
		p := &fakeProcessor{}

		res, err := NewRunner(q, p, Options{MaxAttempts: 2}, nil).Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Dropped)
		assert.Empty(t, p.jobs)
	})

	t.Run("drops undecodable jobs and keeps draining", func(t *testing.T) {
		site := testutil.NewSite(t).Build()
		q, err := queue.NewSQL(ctx, site.DB.DB())
		require.NoError(t, err)
		_, err = site.DB.DB().ExecContext(ctx,
			"INSERT INTO entity_ref_delete_queue (id, payload, created) VALUES (?, ?, ?)",
			"00000000000000000000000000", []byte{0xc1}, int64(0))
		require.NoError(t, err)
		enqueue(t, q, 1)
		p := &fakeProcessor{}

		var buf bytes.Buffer
		r := NewRunner(q, p, Options{Lease: time.Millisecond, MaxAttempts: 2}, jsonLogger(&buf))
		res, err := r.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, TickResult{Jobs: 1, Deleted: 1, Dropped: 1}, res)
		require.Len(t, p.jobs, 1)
		assert.Equal(t, "node__1", p.jobs[0].Source)

		n, err := q.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		var dropped bool
		for _, rec := range logLines(&buf) {
			if rec["msg"] == "dropping undecodable job" {
				dropped = true
				assert.Equal(t, "ERROR", rec["level"])
				assert.Equal(t, "00000000000000000000000000", rec["job"])
			}
		}
		assert.True(t, dropped)
	})

	t.Run("respects the time budget", func(t *testing.T) {
		q := queue.NewMemory()
		enqueue(t, q, 3)
		p := &fakeProcessor{}

		r := NewRunner(q, p, Options{TimeBudget: 10 * time.Second}, nil)
		start := time.Unix(0, 0)
		calls := 0
		r.now = func() time.Time {
			calls++
			return start.Add(time.Duration(calls-1) * 6 * time.Second)
		}

		res, err := r.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Jobs)
	})
}

func TestRunPoolStopsOnCancel(t *testing.T) {
	q := queue.NewMemory()
	enqueue(t, q, 4)
	p := &fakeProcessor{}
	r := NewRunner(q, p, Options{Interval: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.RunPool(ctx, 1) }()

	require.Eventually(t, func() bool {
		n, _ := q.Len(context.Background())
		return n == 0
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pool did not stop")
	}
}
