package validator

import (
	"testing"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceRequest struct {
	ServiceID    string          `json:"service_id" validate:"required"`
	PricePerUnit decimal.Decimal `json:"price_per_unit" validate:"gte=0"`
}

func TestValidateRequest(t *testing.T) {
	require.NoError(t, ValidateRequest(priceRequest{ServiceID: "svc_1", PricePerUnit: decimal.NewFromFloat(45.5)}))

	err := ValidateRequest(priceRequest{PricePerUnit: decimal.NewFromInt(-1)})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	details := ierr.GetReportableDetails(err)
	assert.Equal(t, "required", details["service_id"])
	assert.Equal(t, "gte", details["price_per_unit"])
}
