package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/IgorPritula/entity-ref-dependency/internal/app"
	"github.com/IgorPritula/entity-ref-dependency/internal/dependency"
	"github.com/IgorPritula/entity-ref-dependency/internal/indexer"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

func refParam(c *gin.Context) model.EntityRef {
	return model.Ref(c.Param("type"), c.Param("id"))
}

// SaveEntity handles POST /api/v1/entities: store an entity and refresh its
// index rows.
func (h *Handler) SaveEntity(c *gin.Context) {
	var e model.Entity
	if err := c.ShouldBindJSON(&e); err != nil {
		abort(c, http.StatusBadRequest, CodeInvalidInput, "invalid entity body: "+err.Error(), nil)
		return
	}
	if e.Type == "" || e.ID == "" {
		abort(c, http.StatusBadRequest, CodeInvalidInput, "type and id are required", nil)
		return
	}

	res, err := h.app.SaveEntity(c.Request.Context(), &e)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteEntity handles DELETE /api/v1/entities/:type/:id: run the delete
// hook and remove the entity.
func (h *Handler) DeleteEntity(c *gin.Context) {
	res, err := h.app.DeleteEntity(c.Request.Context(), refParam(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Dependents handles GET /api/v1/entities/:type/:id/dependents.
//
// Query parameters: recursive (bool), types (comma separated; defaults to
// the configured cascade types), max_depth (int).
func (h *Handler) Dependents(c *gin.Context) {
	req := dependency.Request{Target: refParam(c)}

	if v := c.Query("recursive"); v != "" {
		recursive, err := strconv.ParseBool(v)
		if err != nil {
			abort(c, http.StatusBadRequest, CodeInvalidInput, "recursive must be a boolean", nil)
			return
		}
		req.Recursive = recursive
	}
	if v := c.Query("max_depth"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil || depth < 0 {
			abort(c, http.StatusBadRequest, CodeInvalidInput, "max_depth must be a non-negative integer", nil)
			return
		}
		req.MaxDepth = depth
	}
	if v, ok := c.GetQuery("types"); ok {
		req.Allowed = model.NewTypeSet(strings.Split(v, ",")...)
	} else {
		req.Allowed = h.app.Policy().AllowedTypes
	}

	tree, err := h.app.Resolve(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// Refs handles GET /api/v1/entities/:type/:id/refs: every index row
// targeting the entity.
func (h *Handler) Refs(c *gin.Context) {
	rows, err := h.app.Refs(c.Request.Context(), refParam(c))
	if err != nil {
		fail(c, err)
		return
	}
	if rows == nil {
		rows = []model.IndexRow{}
	}
	c.JSON(http.StatusOK, gin.H{"refs": rows})
}

type reindexRequest struct {
	Resume   bool `json:"resume"`
	PageSize int  `json:"page_size"`
}

// Reindex handles POST /api/v1/reindex. The rebuild runs in the request.
func (h *Handler) Reindex(c *gin.Context) {
	var req reindexRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, CodeInvalidInput, "invalid reindex body: "+err.Error(), nil)
			return
		}
	}

	res, err := h.app.PerformIndexing(c.Request.Context(), app.ReindexOptions{
		Resume:   req.Resume,
		PageSize: req.PageSize,
	})
	if err != nil {
		if res != nil {
			h.logger.Error("reindex failed", "error", err, "entities", res.Count)
			abort(c, http.StatusInternalServerError, CodeReindexFailed, indexer.FailureMessage, nil)
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// QueueTick handles POST /api/v1/queue/tick: drain the deferred delete queue
// once, within the configured time budget.
func (h *Handler) QueueTick(c *gin.Context) {
	res, err := h.app.Runner.Tick(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(c *gin.Context) {
	s, err := h.app.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
