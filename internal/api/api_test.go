package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgorPritula/entity-ref-dependency/internal/app"
	"github.com/IgorPritula/entity-ref-dependency/internal/cascade"
	"github.com/IgorPritula/entity-ref-dependency/internal/config"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/testutil"
	"github.com/IgorPritula/entity-ref-dependency/internal/worker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	site   *testutil.Site
	app    *app.App
	router *gin.Engine
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	site := testutil.NewSite(t).Build()
	a, err := app.New(context.Background(), site.DB, site.Model, cfg, nil)
	require.NoError(t, err)
	return &fixture{site: site, app: a, router: NewRouter(a, Options{CORSOrigins: []string{"http://localhost:3000"}})}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	for _, body := range []string{
		`{"type":"taxonomy_term","id":"9","bundle":"tags"}`,
		`{"type":"node","id":"5","bundle":"article","fields":{"field_tags":[{"target_id":"9"}]}}`,
		`{"type":"comment","id":"1","fields":{"field_node":[{"target_id":"5"}]}}`,
	} {
		w := f.do(t, http.MethodPost, "/api/v1/entities", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

func TestSaveEntity(t *testing.T) {
	f := newFixture(t, config.Default())

	w := f.do(t, http.MethodPost, "/api/v1/entities",
		`{"type":"node","id":"5","bundle":"article","fields":{"field_tags":[{"target_id":"9"}]}}`)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[app.SaveResult](t, w)
	assert.Equal(t, 1, res.Rows)
	f.site.AssertRowsTo(model.Ref("taxonomy_term", "9"), 1)

	t.Run("malformed body", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/entities", `{"type":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, CodeInvalidInput, decode[ErrorBody](t, w).Error.Code)
	})

	t.Run("missing id", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/entities", `{"type":"node"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("content model violation", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/entities", `{"type":"node","id":"6","bundle":"blog"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decode[ErrorBody](t, w)
		assert.Equal(t, CodeInvalidEntity, body.Error.Code)
		assert.NotNil(t, body.Error.Details)
	})
}

func TestDeleteEntity(t *testing.T) {
	cfg := config.Default()
	cfg.SetCascade(true)
	cfg.Allow("node")
	f := newFixture(t, cfg)
	f.seed(t)

	w := f.do(t, http.MethodDelete, "/api/v1/entities/taxonomy_term/9", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[cascade.Result](t, w)
	assert.Equal(t, []string{"node__5"}, res.Queued)
	assert.NotEmpty(t, res.JobID)

	w = f.do(t, http.MethodPost, "/api/v1/queue/tick", "")
	require.Equal(t, http.StatusOK, w.Code)
	tick := decode[worker.TickResult](t, w)
	assert.Equal(t, 1, tick.Jobs)
	f.site.AssertDeleted(model.Ref("node", "5"))
	// comment is not an allowed type, so its reference to node 5 is stripped.
	f.site.AssertExists(model.Ref("comment", "1"))
	f.site.AssertTargets(model.Ref("comment", "1"), "field_node")

	w = f.do(t, http.MethodDelete, "/api/v1/entities/taxonomy_term/9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorBody](t, w).Error.Code)
}

func TestDependents(t *testing.T) {
	f := newFixture(t, config.Default())
	f.seed(t)

	t.Run("no allowed types yields a leaf", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/entities/taxonomy_term/9/dependents?recursive=true", "")
		require.Equal(t, http.StatusOK, w.Code)
		var tree struct {
			Root struct {
				Children map[string]any `json:"children"`
			} `json:"root"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tree))
		assert.Empty(t, tree.Root.Children)
	})

	t.Run("recursive with explicit types", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/entities/taxonomy_term/9/dependents?recursive=1&types=node,comment", "")
		require.Equal(t, http.StatusOK, w.Code)
		var tree struct {
			Root struct {
				Children map[string]map[string]struct {
					Entity   *model.Entity  `json:"entity"`
					Children map[string]any `json:"children"`
				} `json:"children"`
			} `json:"root"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tree))
		node5, ok := tree.Root.Children["node"]["5"]
		require.True(t, ok)
		require.NotNil(t, node5.Entity)
		assert.Equal(t, "article", node5.Entity.Bundle)
		assert.Contains(t, node5.Children, "comment")
	})

	t.Run("bad query", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/entities/taxonomy_term/9/dependents?recursive=maybe", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRefsAndStats(t *testing.T) {
	f := newFixture(t, config.Default())
	f.seed(t)

	w := f.do(t, http.MethodGet, "/api/v1/entities/node/5/refs", "")
	require.Equal(t, http.StatusOK, w.Code)
	refs := decode[map[string][]model.IndexRow](t, w)["refs"]
	require.Len(t, refs, 1)
	assert.Equal(t, model.Ref("comment", "1"), refs[0].Subject)
	assert.Equal(t, "field_node", refs[0].FieldName)

	w = f.do(t, http.MethodGet, "/api/v1/entities/user/1/refs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"refs":[]}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[app.Stats](t, w)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 2, stats.Targets)
}

func TestReindex(t *testing.T) {
	f := newFixture(t, config.Default())
	f.site.Save(testutil.Article("5", "9"))
	f.site.Save(testutil.Term("9"))

	w := f.do(t, http.MethodPost, "/api/v1/reindex", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[app.ReindexResult](t, w)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "Was indexed 2 entities", res.Message)
	f.site.AssertRowsTo(model.Ref("taxonomy_term", "9"), 1)

	w = f.do(t, http.MethodPost, "/api/v1/reindex", `{"resume":"yes"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, config.Default())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/stats", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]string](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "devel", body["version"])
}
