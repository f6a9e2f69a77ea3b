package errors

import (
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorBuilder_Mark(t *testing.T) {
	err := NewError("no pricing for service").
		WithHint("No price is effective for the billing date").
		WithReportableDetails(map[string]any{"service_id": "svc_1"}).
		Mark(ErrMissingPricing)

	assert.True(t, IsMissingPricing(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "No price is effective for the billing date", GetHint(err))
	assert.Equal(t, "svc_1", GetReportableDetails(err)["service_id"])
	assert.Contains(t, err.Error(), "no pricing for service")
}

func TestWithError_PreservesCause(t *testing.T) {
	cause := errors.New("unique violation")
	err := WithError(cause).WithHintf("reading for %s already exists", "m1").Mark(ErrAlreadyExists)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsAlreadyExists(err))
	assert.Equal(t, "reading for m1 already exists", GetHint(err))
}

func TestHTTPStatusFromErr(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
		status   int
		kind     string
	}{
		{"not found", ErrNotFound, http.StatusNotFound, "not_found"},
		{"conflict", ErrConcurrencyConflict, http.StatusConflict, "concurrency_conflict"},
		{"validation", ErrValidation, http.StatusBadRequest, "validation"},
		{"configuration", ErrConfiguration, http.StatusUnprocessableEntity, "configuration"},
		{"data integrity", ErrDataIntegrity, http.StatusUnprocessableEntity, "data_integrity"},
		{"database", ErrDatabase, http.StatusInternalServerError, "database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewError("boom").Mark(tt.sentinel)
			assert.Equal(t, tt.status, HTTPStatusFromErr(err))
			assert.Equal(t, tt.kind, Kind(err))
		})
	}
}

func TestNewErrorResponse_Retryable(t *testing.T) {
	resp := NewErrorResponse(NewError("lock held").WithHint("Try again").Mark(ErrConcurrencyConflict))
	assert.True(t, resp.Error.Retryable)
	assert.Equal(t, "Try again", resp.Error.Display)

	resp = NewErrorResponse(NewError("boom").Mark(ErrInternal))
	assert.False(t, resp.Error.Retryable)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Display)
}
