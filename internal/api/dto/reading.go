package dto

import (
	"strings"
	"time"

	"github.com/brfledger/utilitybilling/internal/domain/reading"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/validator"
	"github.com/shopspring/decimal"
)

// RecordHouseholdReadingRequest identifies the meter by household number and service,
// and the period by name, which is how readings arrive from the field
type RecordHouseholdReadingRequest struct {
	HouseholdNumber     string           `json:"household_number" validate:"required"`
	ServiceID           string           `json:"service_id" validate:"required"`
	PeriodName          string           `json:"period_name" validate:"required"`
	Reading             decimal.Decimal  `json:"reading"`
	ReadingDate         time.Time        `json:"reading_date" validate:"required"`
	ConsumptionOverride *decimal.Decimal `json:"consumption_override,omitempty"`
}

func (r *RecordHouseholdReadingRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return validateReadingValues(r.Reading, r.ConsumptionOverride)
}

type RecordMainReadingRequest struct {
	MainMeterID         string           `json:"main_meter_id" validate:"required"`
	PeriodName          string           `json:"period_name" validate:"required"`
	Reading             decimal.Decimal  `json:"reading"`
	ReadingDate         time.Time        `json:"reading_date" validate:"required"`
	ConsumptionOverride *decimal.Decimal `json:"consumption_override,omitempty"`
}

func (r *RecordMainReadingRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return validateReadingValues(r.Reading, r.ConsumptionOverride)
}

func validateReadingValues(value decimal.Decimal, override *decimal.Decimal) error {
	if value.IsNegative() {
		return ierr.NewError("reading is negative").
			WithHint("Meter readings are cumulative and cannot be negative").
			WithReportableDetails(map[string]interface{}{"reading": value.String()}).
			Mark(ierr.ErrValidation)
	}
	if override != nil && override.IsNegative() {
		return ierr.NewError("consumption override is negative").
			WithHint("Consumption override cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type MeterReadingResponse struct {
	*reading.MeterReading
}

// ImportReadingsRequest carries a batch of household readings from the ingestion boundary
type ImportReadingsRequest struct {
	Readings []RecordHouseholdReadingRequest `json:"readings" validate:"required,min=1"`
}

func (r *ImportReadingsRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ImportReadingsResponse struct {
	Imported int           `json:"imported"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportError points at the row of the batch that was rejected
type ImportError struct {
	Row             int    `json:"row"`
	HouseholdNumber string `json:"household_number"`
	Kind            string `json:"kind"`
	Message         string `json:"message"`
}

// ReadingCSVRow is one line of a field reading sheet uploaded as CSV
type ReadingCSVRow struct {
	HouseholdNumber     string `csv:"household_number"`
	ServiceID           string `csv:"service_id"`
	PeriodName          string `csv:"period_name"`
	Reading             string `csv:"reading"`
	ReadingDate         string `csv:"reading_date"`
	ConsumptionOverride string `csv:"consumption_override"`
}

// ToRequest parses the row's text columns; row is the 1-based data row used in hints
func (r *ReadingCSVRow) ToRequest(row int) (RecordHouseholdReadingRequest, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(r.Reading))
	if err != nil {
		return RecordHouseholdReadingRequest{}, ierr.WithError(err).
			WithHintf("Row %d: reading %q is not a number", row, r.Reading).
			Mark(ierr.ErrValidation)
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(r.ReadingDate))
	if err != nil {
		return RecordHouseholdReadingRequest{}, ierr.WithError(err).
			WithHintf("Row %d: reading_date must be formatted as YYYY-MM-DD", row).
			Mark(ierr.ErrValidation)
	}

	req := RecordHouseholdReadingRequest{
		HouseholdNumber: strings.TrimSpace(r.HouseholdNumber),
		ServiceID:       strings.TrimSpace(r.ServiceID),
		PeriodName:      strings.TrimSpace(r.PeriodName),
		Reading:         value,
		ReadingDate:     date,
	}

	if raw := strings.TrimSpace(r.ConsumptionOverride); raw != "" {
		override, err := decimal.NewFromString(raw)
		if err != nil {
			return RecordHouseholdReadingRequest{}, ierr.WithError(err).
				WithHintf("Row %d: consumption_override %q is not a number", row, r.ConsumptionOverride).
				Mark(ierr.ErrValidation)
		}
		req.ConsumptionOverride = &override
	}

	return req, nil
}
