package cli

import (
	"errors"

	"github.com/IgorPritula/entity-ref-dependency/internal/app"
	"github.com/IgorPritula/entity-ref-dependency/internal/content"
	"github.com/IgorPritula/entity-ref-dependency/internal/index"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Config errors
	ErrConfigInvalid = "CONFIG_INVALID"
	ErrModelInvalid  = "CONTENT_MODEL_INVALID"

	// Entity errors
	ErrEntityNotFound = "ENTITY_NOT_FOUND"
	ErrEntityInvalid  = "ENTITY_INVALID"
	ErrRefInvalid     = "REF_INVALID"

	// File errors
	ErrFileReadError  = "FILE_READ_ERROR"
	ErrFileWriteError = "FILE_WRITE_ERROR"

	// Database errors
	ErrDatabaseError = "DATABASE_ERROR"
	ErrIndexLocked   = "INDEX_LOCKED"
	ErrReindexFailed = "REINDEX_FAILED"

	// Input errors
	ErrInvalidInput         = "INVALID_INPUT"
	ErrMissingArgument      = "MISSING_ARGUMENT"
	ErrConfirmationRequired = "CONFIRMATION_REQUIRED"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnUnknownType    = "UNKNOWN_ENTITY_TYPE"
	WarnEntityFailures = "ENTITY_FAILURES"
	WarnNoChange       = "NO_CHANGE"
)

// errorCode maps a domain error to its stable code.
func errorCode(err error) string {
	var invalid *app.InvalidEntityError
	switch {
	case errors.As(err, &invalid):
		return ErrEntityInvalid
	case errors.Is(err, content.ErrNotFound):
		return ErrEntityNotFound
	case errors.Is(err, index.ErrIndexLocked):
		return ErrIndexLocked
	case errors.Is(err, model.ErrInvalidKey):
		return ErrRefInvalid
	default:
		return ErrDatabaseError
	}
}

// handleDomainError reports err under the code errorCode picks.
func handleDomainError(err error, suggestion string) error {
	var invalid *app.InvalidEntityError
	if errors.As(err, &invalid) {
		return handleErrorWithDetails(ErrEntityInvalid, err.Error(), suggestion, invalid.Problems)
	}
	return handleError(errorCode(err), err, suggestion)
}
