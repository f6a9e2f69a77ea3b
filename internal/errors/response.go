package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrorResponse is the API representation of an error
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Display   string         `json:"display"`
	Internal  string         `json:"internal"`
	Kind      string         `json:"kind"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// Kind returns a stable machine readable name for the sentinel err is marked with
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDataIntegrity):
		return "data_integrity"
	case errors.Is(err, ErrMissingPricing):
		return "missing_pricing"
	case errors.Is(err, ErrMissingPrecedingPeriod):
		return "missing_preceding_period"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrDatabase):
		return "database"
	default:
		return "internal"
	}
}

// HTTPStatusFromErr maps a marked error to the status code the API layer should return
func HTTPStatusFromErr(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, ErrDataIntegrity), errors.Is(err, ErrMissingPricing),
		errors.Is(err, ErrMissingPrecedingPeriod), errors.Is(err, ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse converts err into its API representation
func NewErrorResponse(err error) ErrorResponse {
	display := GetHint(err)
	if display == "" {
		display = "An unexpected error occurred"
	}
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display:   display,
			Internal:  err.Error(),
			Kind:      Kind(err),
			Retryable: errors.Is(err, ErrConcurrencyConflict),
			Details:   GetReportableDetails(err),
		},
	}
}
