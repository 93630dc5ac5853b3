package dependency

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/testutil"
)

func link(t *testing.T, site *testutil.Site, subject, target model.EntityRef) {
	t.Helper()
	require.NoError(t, site.DB.InsertRows(context.Background(), []model.IndexRow{
		{Subject: subject, Target: target, FieldName: "field_ref"},
	}))
}

func node(id string) model.EntityRef { return model.Ref("node", id) }
func term(id string) model.EntityRef { return model.Ref("taxonomy_term", id) }

// countingFinder counts index lookups.
type countingFinder struct {
	Finder
	calls int
}

func (f *countingFinder) FindByTarget(ctx context.Context, ref model.EntityRef, allowed model.TypeSet) ([]model.IndexRow, error) {
	f.calls++
	return f.Finder.FindByTarget(ctx, ref, allowed)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	all := model.NewTypeSet("node", "taxonomy_term", "comment")

	t.Run("non recursive is one level", func(t *testing.T) {
		site := testutil.NewSite(t).
			WithEntity(testutil.Article("5", "9")).
			WithEntity(testutil.Article("6", "9")).
			WithEntity(testutil.Article("7")).
			Build()
		link(t, site, node("5"), term("9"))
		link(t, site, node("6"), term("9"))
		link(t, site, node("7"), node("5"))

		tree, err := New(site.DB, site.Content, nil).Resolve(ctx, Request{Target: term("9"), Allowed: all})
		require.NoError(t, err)

		assert.Equal(t, []model.EntityRef{node("5"), node("6")}, tree.Root.ChildRefs())
		for _, ref := range tree.Root.ChildRefs() {
			c, _ := tree.Root.Child(ref)
			assert.True(t, c.IsLeaf(), "%s should be a leaf", ref)
			require.NotNil(t, c.Entity)
			assert.Equal(t, ref.ID, c.Entity.ID)
		}
		assert.Nil(t, tree.Root.Entity)
	})

	t.Run("recursive expands descendants", func(t *testing.T) {
		site := testutil.NewSite(t).
			WithEntity(testutil.Article("5", "9")).
			WithEntity(testutil.Article("7")).
			WithEntity(&model.Entity{Type: "comment", ID: "1"}).
			Build()
		link(t, site, node("5"), term("9"))
		link(t, site, node("7"), node("5"))
		link(t, site, model.Ref("comment", "1"), node("7"))

		tree, err := New(site.DB, site.Content, nil).Resolve(ctx, Request{Target: term("9"), Recursive: true, Allowed: all})
		require.NoError(t, err)

		n5, ok := tree.Root.Child(node("5"))
		require.True(t, ok)
		assert.Equal(t, "5", n5.Entity.ID)
		n7, ok := n5.Child(node("7"))
		require.True(t, ok)
		assert.Equal(t, "7", n7.Entity.ID)
		c1, ok := n7.Child(model.Ref("comment", "1"))
		require.True(t, ok)
		assert.True(t, c1.IsLeaf())
		assert.False(t, tree.Truncated)

		var visited []string
		tree.Walk(func(n *Node, depth int) { visited = append(visited, fmt.Sprintf("%d:%s", depth, n.Ref)) })
		assert.Equal(t, []string{"1:node__5", "2:node__7", "3:comment__1"}, visited)
	})

	t.Run("cycle terminates", func(t *testing.T) {
		site := testutil.NewSite(t).
			WithEntity(testutil.Article("1")).
			WithEntity(testutil.Article("2")).
			WithEntity(testutil.Article("3")).
			Build()
		// 1 <- 2 <- 3 <- 1
		link(t, site, node("2"), node("1"))
		link(t, site, node("3"), node("2"))
		link(t, site, node("1"), node("3"))

		finder := &countingFinder{Finder: site.DB}
		tree, err := New(finder, site.Content, nil).Resolve(ctx, Request{Target: node("1"), Recursive: true, Allowed: all})
		require.NoError(t, err)

		// Each node is expanded at most once.
		assert.Equal(t, 3, finder.calls)

		n2, _ := tree.Root.Child(node("2"))
		n3, ok := n2.Child(node("3"))
		require.True(t, ok)
		back, ok := n3.Child(node("1"))
		require.True(t, ok)
		assert.True(t, back.Seen)
		assert.True(t, back.IsLeaf())
	})

	t.Run("two node cycle", func(t *testing.T) {
		site := testutil.NewSite(t).
			WithEntity(testutil.Article("1")).
			WithEntity(testutil.Article("2")).
			Build()
		link(t, site, node("2"), node("1"))
		link(t, site, node("1"), node("2"))

		tree, err := New(site.DB, site.Content, nil).Resolve(ctx, Request{Target: node("1"), Recursive: true, Allowed: all})
		require.NoError(t, err)

		count := 0
		tree.Walk(func(n *Node, depth int) { count++ })
		assert.Equal(t, 2, count)
	})

	t.Run("empty allowed set yields a leaf", func(t *testing.T) {
		site := testutil.NewSite(t).WithEntity(testutil.Article("5", "9")).Build()
		link(t, site, node("5"), term("9"))

		finder := &countingFinder{Finder: site.DB}
		r := New(finder, site.Content, nil)
		for _, allowed := range []model.TypeSet{nil, model.NewTypeSet()} {
			tree, err := r.Resolve(ctx, Request{Target: term("9"), Recursive: true, Allowed: allowed})
			require.NoError(t, err)
			assert.True(t, tree.Root.IsLeaf())
		}
		assert.Zero(t, finder.calls)
	})

	t.Run("types outside the allowed set are ignored", func(t *testing.T) {
		site := testutil.NewSite(t).
			WithEntity(testutil.Article("5")).
			WithEntity(&model.Entity{Type: "comment", ID: "1"}).
			Build()
		link(t, site, node("5"), term("9"))
		link(t, site, model.Ref("comment", "1"), term("9"))

		tree, err := New(site.DB, site.Content, nil).Resolve(ctx, Request{Target: term("9"), Allowed: model.NewTypeSet("comment")})
		require.NoError(t, err)
		assert.Equal(t, []model.EntityRef{model.Ref("comment", "1")}, tree.Root.ChildRefs())
	})

	t.Run("self references are skipped", func(t *testing.T) {
		site := testutil.NewSite(t).WithEntity(testutil.Article("5")).Build()
		link(t, site, node("5"), node("5"))

		tree, err := New(site.DB, site.Content, nil).Resolve(ctx, Request{Target: node("5"), Recursive: true, Allowed: all})
		require.NoError(t, err)
		assert.True(t, tree.Root.IsLeaf())
	})

	t.Run("unloadable dependents are dropped with their subtree", func(t *testing.T) {
		site := testutil.NewSite(t).
			WithEntity(testutil.Article("6")).
			WithEntity(testutil.Article("8")).
			Build()
		link(t, site, node("5"), term("9")) // node 5 does not exist
		link(t, site, node("8"), node("5"))
		link(t, site, node("6"), term("9"))

		tree, err := New(site.DB, site.Content, nil).Resolve(ctx, Request{Target: term("9"), Recursive: true, Allowed: all})
		require.NoError(t, err)
		assert.Equal(t, []model.EntityRef{node("6")}, tree.Root.ChildRefs())
	})

	t.Run("duplicate rows yield one child", func(t *testing.T) {
		site := testutil.NewSite(t).WithEntity(testutil.Article("5")).Build()
		require.NoError(t, site.DB.InsertRows(ctx, []model.IndexRow{
			{Subject: node("5"), Target: term("9"), FieldName: "field_tags"},
			{Subject: node("5"), Target: term("9"), FieldName: "field_tags"},
			{Subject: node("5"), Target: term("9"), FieldName: "field_other"},
		}))

		tree, err := New(site.DB, site.Content, nil).Resolve(ctx, Request{Target: term("9"), Recursive: true, Allowed: all})
		require.NoError(t, err)
		assert.Len(t, tree.Root.ChildRefs(), 1)
	})

	t.Run("depth cap truncates", func(t *testing.T) {
		site := testutil.NewSite(t).Build()
		for i := 1; i <= 6; i++ {
			site.Save(testutil.Article(fmt.Sprint(i)))
			if i > 1 {
				link(t, site, node(fmt.Sprint(i)), node(fmt.Sprint(i-1)))
			}
		}

		tree, err := New(site.DB, site.Content, nil).Resolve(ctx, Request{Target: node("1"), Recursive: true, Allowed: all, MaxDepth: 3})
		require.NoError(t, err)
		assert.True(t, tree.Truncated)

		maxDepth := 0
		tree.Walk(func(n *Node, depth int) { maxDepth = max(maxDepth, depth) })
		assert.Equal(t, 3, maxDepth)
	})

	t.Run("index errors propagate", func(t *testing.T) {
		_, err := New(failingFinder{}, nil, nil).Resolve(ctx, Request{Target: term("9"), Allowed: all})
		assert.ErrorContains(t, err, "index offline")
	})
}

type failingFinder struct{}

func (failingFinder) FindByTarget(context.Context, model.EntityRef, model.TypeSet) ([]model.IndexRow, error) {
	return nil, errors.New("index offline")
}
