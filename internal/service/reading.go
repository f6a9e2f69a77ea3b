package service

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/reading"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// ReadingService is the ingestion boundary for meter readings.
// Readings are keyed by household number and period name; recording twice replaces.
type ReadingService interface {
	RecordHouseholdReading(ctx context.Context, req dto.RecordHouseholdReadingRequest) (*dto.MeterReadingResponse, error)
	RecordMainReading(ctx context.Context, req dto.RecordMainReadingRequest) (*dto.MeterReadingResponse, error)
	ImportReadings(ctx context.Context, req dto.ImportReadingsRequest) (*dto.ImportReadingsResponse, error)
	ListMeterReadings(ctx context.Context, kind types.MeterKind, meterID string) ([]*dto.MeterReadingResponse, error)
}

type readingService struct {
	ServiceParams
}

func NewReadingService(params ServiceParams) ReadingService {
	return &readingService{
		ServiceParams: params,
	}
}

func (s *readingService) RecordHouseholdReading(ctx context.Context, req dto.RecordHouseholdReadingRequest) (*dto.MeterReadingResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	h, err := s.HouseholdRepo.GetByNumber(ctx, req.HouseholdNumber)
	if err != nil {
		return nil, err
	}

	meters, err := s.MeterRepo.ListHouseholdMeters(ctx, &types.HouseholdMeterFilter{
		HouseholdID: h.ID,
		ServiceID:   req.ServiceID,
	})
	if err != nil {
		return nil, err
	}
	if len(meters) == 0 {
		return nil, ierr.NewError("household meter not found").
			WithHintf("Household %s has no meter for this service", h.HouseholdNumber).
			WithReportableDetails(map[string]any{
				"household_number": h.HouseholdNumber,
				"service_id":       req.ServiceID,
			}).
			Mark(ierr.ErrNotFound)
	}

	return s.record(ctx, types.MeterKindHousehold, meters[0].ID, req.PeriodName, req.Reading, req.ReadingDate, req.ConsumptionOverride)
}

func (s *readingService) RecordMainReading(ctx context.Context, req dto.RecordMainReadingRequest) (*dto.MeterReadingResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m, err := s.MeterRepo.GetMainMeter(ctx, req.MainMeterID)
	if err != nil {
		return nil, err
	}

	return s.record(ctx, types.MeterKindMain, m.ID, req.PeriodName, req.Reading, req.ReadingDate, req.ConsumptionOverride)
}

// ImportReadings records each row independently; one bad row does not reject the batch
func (s *readingService) ImportReadings(ctx context.Context, req dto.ImportReadingsRequest) (*dto.ImportReadingsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp := &dto.ImportReadingsResponse{}
	for i, row := range req.Readings {
		if _, err := s.RecordHouseholdReading(ctx, row); err != nil {
			if ierr.IsDatabase(err) {
				return nil, err
			}
			resp.Errors = append(resp.Errors, dto.ImportError{
				Row:             i + 1,
				HouseholdNumber: row.HouseholdNumber,
				Kind:            ierr.Kind(err),
				Message:         err.Error(),
			})
			continue
		}
		resp.Imported++
	}

	s.Logger.Infow("imported meter readings",
		"imported", resp.Imported,
		"rejected", len(resp.Errors))

	return resp, nil
}

func (s *readingService) ListMeterReadings(ctx context.Context, kind types.MeterKind, meterID string) ([]*dto.MeterReadingResponse, error) {
	if meterID == "" {
		return nil, ierr.NewError("meter id is required").
			WithHint("Please provide a meter ID").
			Mark(ierr.ErrValidation)
	}

	readings, err := s.ReadingRepo.ListByMeter(ctx, kind, meterID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.MeterReadingResponse, 0, len(readings))
	for _, r := range readings {
		items = append(items, &dto.MeterReadingResponse{MeterReading: r})
	}
	return items, nil
}

func (s *readingService) record(
	ctx context.Context,
	kind types.MeterKind,
	meterID, periodName string,
	value decimal.Decimal,
	readingDate time.Time,
	override *decimal.Decimal,
) (*dto.MeterReadingResponse, error) {
	p, err := s.PeriodRepo.GetByName(ctx, periodName)
	if err != nil {
		return nil, err
	}

	r := &reading.MeterReading{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_READING),
		MeterKind:           kind,
		MeterID:             meterID,
		BillingPeriodID:     p.ID,
		Reading:             value,
		ReadingDate:         readingDate.UTC(),
		ConsumptionOverride: override,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	previous, err := s.ReadingRepo.Get(ctx, r.Key())
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if previous != nil && !previous.Reading.Equal(r.Reading) {
		s.Logger.Warnw("replacing meter reading",
			"meter_kind", kind,
			"meter_id", meterID,
			"billing_period_id", p.ID,
			"previous_reading", previous.Reading.String(),
			"reading", r.Reading.String())
	}

	if err := s.ReadingRepo.Upsert(ctx, r); err != nil {
		return nil, err
	}
	return &dto.MeterReadingResponse{MeterReading: r}, nil
}
