package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IgorPritula/entity-ref-dependency/internal/app"
	"github.com/IgorPritula/entity-ref-dependency/internal/content"
	"github.com/IgorPritula/entity-ref-dependency/internal/index"
	"github.com/IgorPritula/entity-ref-dependency/internal/indexer"
)

// Error codes returned in the error body.
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeInvalidEntity = "INVALID_ENTITY"
	CodeNotFound      = "NOT_FOUND"
	CodeIndexLocked   = "INDEX_LOCKED"
	CodeReindexFailed = "REINDEX_FAILED"
	CodeInternal      = "INTERNAL_ERROR"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func abort(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Code: code, Message: message, Details: details}})
}

// fail maps a domain error to a status code and error body.
func fail(c *gin.Context, err error) {
	var invalid *app.InvalidEntityError
	switch {
	case errors.As(err, &invalid):
		abort(c, http.StatusUnprocessableEntity, CodeInvalidEntity, err.Error(), invalid.Problems)
	case errors.Is(err, content.ErrNotFound):
		abort(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, index.ErrIndexLocked):
		abort(c, http.StatusConflict, CodeIndexLocked, err.Error(), nil)
	case errors.Is(err, indexer.ErrBatchAborted):
		abort(c, http.StatusInternalServerError, CodeReindexFailed, indexer.FailureMessage, nil)
	default:
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, CodeInternal, err.Error(), nil)
	}
}
