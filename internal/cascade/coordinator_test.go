package cascade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgorPritula/entity-ref-dependency/internal/dependency"
	"github.com/IgorPritula/entity-ref-dependency/internal/indexer"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/queue"
	"github.com/IgorPritula/entity-ref-dependency/internal/testutil"
)

type fixture struct {
	site  *testutil.Site
	queue *queue.Memory
	coord *Coordinator
}

func newFixture(t *testing.T, entities ...*model.Entity) *fixture {
	t.Helper()
	b := testutil.NewSite(t)
	for _, e := range entities {
		b.WithEntity(e)
	}
	site := b.Build()

	ix := indexer.New(site.DB, site.Content, site.Model, indexer.Options{})
	for _, e := range entities {
		_, err := ix.IndexEntity(context.Background(), e, nil)
		require.NoError(t, err)
	}

	q := queue.NewMemory()
	res := dependency.New(site.DB, site.Content, nil)
	return &fixture{site: site, queue: q, coord: New(res, ix, q, nil)}
}

func (f *fixture) queued(t *testing.T) *queue.Item {
	t.Helper()
	item, err := f.queue.Claim(context.Background(), time.Minute)
	require.NoError(t, err)
	return item
}

func TestOnDelete(t *testing.T) {
	ctx := context.Background()
	term9 := model.Ref("taxonomy_term", "9")
	node5 := model.Ref("node", "5")

	t.Run("cascade disabled strips the reference", func(t *testing.T) {
		f := newFixture(t, testutil.Article("5", "9", "10"), testutil.Term("9"))

		res, err := f.coord.OnDelete(ctx, term9, Policy{CascadeDelete: false, AllowedTypes: model.NewTypeSet("node")})
		require.NoError(t, err)
		assert.Empty(t, res.Queued)
		assert.Equal(t, 1, res.Cleaned)

		f.site.AssertTargets(node5, "field_tags", "10")
		f.site.AssertRowsTo(term9, 0)
		assert.Nil(t, f.queued(t))
	})

	t.Run("type not allowed strips the reference", func(t *testing.T) {
		f := newFixture(t, testutil.Article("5", "9"))

		res, err := f.coord.OnDelete(ctx, term9, Policy{CascadeDelete: true, AllowedTypes: model.NewTypeSet("comment")})
		require.NoError(t, err)
		assert.Empty(t, res.Queued)
		f.site.AssertTargets(node5, "field_tags")
		assert.Nil(t, f.queued(t))
	})

	t.Run("allowed dependents are queued, others cleaned", func(t *testing.T) {
		comment := testutil.Ref("comment", "1", "", "field_node", "5")
		related := testutil.Ref("node", "6", "article", "field_related", "5", "7")
		f := newFixture(t, testutil.Article("5"), comment, related)

		res, err := f.coord.OnDelete(ctx, node5, Policy{CascadeDelete: true, AllowedTypes: model.NewTypeSet("comment")})
		require.NoError(t, err)
		assert.Equal(t, []string{"comment__1"}, res.Queued)
		assert.NotEmpty(t, res.JobID)
		assert.Equal(t, 1, res.Cleaned)

		item := f.queued(t)
		require.NotNil(t, item)
		assert.Equal(t, model.DeleteJob{Source: "node__5", Dependents: []string{"comment__1"}}, item.Job)

		// Queued dependents keep their reference until the worker deletes them.
		f.site.AssertTargets(comment.Ref(), "field_node", "5")
		f.site.AssertTargets(related.Ref(), "field_related", "7")
		f.site.AssertRowsTo(node5, 0)
	})

	t.Run("nothing to do", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.coord.OnDelete(ctx, node5, Policy{CascadeDelete: true, AllowedTypes: model.NewTypeSet("node")})
		require.NoError(t, err)
		assert.Equal(t, &Result{}, res)
		assert.Nil(t, f.queued(t))
	})

	t.Run("enqueue failure", func(t *testing.T) {
		f := newFixture(t, testutil.Article("5", "9"))
		c := New(dependency.New(f.site.DB, f.site.Content, nil), nopCleaner{}, failingQueue{}, nil)

		_, err := c.OnDelete(ctx, term9, Policy{CascadeDelete: true, AllowedTypes: model.NewTypeSet("node")})
		assert.ErrorContains(t, err, "queue down")
	})
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, model.DeleteJob) (string, error) {
	return "", errors.New("queue down")
}

type nopCleaner struct{}

func (nopCleaner) DeleteReferenceItem(context.Context, model.EntityRef, model.KeySet) (int, error) {
	return 0, nil
}
