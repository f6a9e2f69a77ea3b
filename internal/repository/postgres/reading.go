package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/reading"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

const readingColumns = `r.id, r.meter_kind, r.meter_id, r.billing_period_id, r.reading, r.reading_date,
	r.consumption_override, r.status, r.created_at, r.updated_at, r.created_by, r.updated_by`

type readingRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewReadingRepository(client *postgres.Client, log *logger.Logger) reading.Repository {
	return &readingRepository{client: client, log: log}
}

// Upsert keeps the id and created_at of an existing row for the same meter and period
func (r *readingRepository) Upsert(ctx context.Context, m *reading.MeterReading) error {
	span := StartRepositorySpan(ctx, "reading", "upsert", map[string]interface{}{
		"meter_id":  m.MeterID,
		"period_id": m.BillingPeriodID,
	})
	defer FinishSpan(span)

	override := decimal.NullDecimal{}
	if m.ConsumptionOverride != nil {
		override = decimal.NullDecimal{Decimal: *m.ConsumptionOverride, Valid: true}
	}

	err := r.client.Querier(ctx).QueryRowContext(ctx, `
		INSERT INTO meter_readings (id, meter_kind, meter_id, billing_period_id, reading, reading_date,
			consumption_override, status, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (meter_kind, meter_id, billing_period_id) DO UPDATE SET
			reading = EXCLUDED.reading,
			reading_date = EXCLUDED.reading_date,
			consumption_override = EXCLUDED.consumption_override,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
		RETURNING id, created_at, created_by`,
		m.ID, m.MeterKind, m.MeterID, m.BillingPeriodID, m.Reading, m.ReadingDate,
		override, m.Status, m.CreatedAt, m.UpdatedAt, m.CreatedBy, m.UpdatedBy,
	).Scan(&m.ID, &m.CreatedAt, &m.CreatedBy)
	if err != nil {
		SetSpanError(span, err)
		return postgres.WrapError(err, "Failed to store meter reading", map[string]any{
			"meter_kind": m.MeterKind,
			"meter_id":   m.MeterID,
			"period_id":  m.BillingPeriodID,
		})
	}
	return nil
}

func (r *readingRepository) Get(ctx context.Context, key reading.Key) (*reading.MeterReading, error) {
	m, err := scanReading(r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+readingColumns+` FROM meter_readings r
		WHERE r.meter_kind = $1 AND r.meter_id = $2 AND r.billing_period_id = $3 AND r.status = $4`,
		key.MeterKind, key.MeterID, key.BillingPeriodID, types.StatusPublished))
	if err != nil {
		return nil, postgres.WrapError(err, "Meter reading not found", map[string]any{
			"meter_kind": key.MeterKind,
			"meter_id":   key.MeterID,
			"period_id":  key.BillingPeriodID,
		})
	}
	return m, nil
}

func (r *readingRepository) ListByMeter(ctx context.Context, kind types.MeterKind, meterID string) ([]*reading.MeterReading, error) {
	return r.list(ctx, `
		SELECT `+readingColumns+` FROM meter_readings r
		WHERE r.meter_kind = $1 AND r.meter_id = $2 AND r.status = $3
		ORDER BY r.reading_date, r.id`,
		kind, meterID, types.StatusPublished)
}

func (r *readingRepository) ListByPeriod(ctx context.Context, periodID string) ([]*reading.MeterReading, error) {
	return r.list(ctx, `
		SELECT `+readingColumns+` FROM meter_readings r
		WHERE r.billing_period_id = $1 AND r.status = $2
		ORDER BY r.meter_kind, r.meter_id`,
		periodID, types.StatusPublished)
}

func (r *readingRepository) list(ctx context.Context, query string, args ...any) ([]*reading.MeterReading, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.WrapError(err, "Failed to list meter readings", nil)
	}
	defer rows.Close()

	var out []*reading.MeterReading
	for rows.Next() {
		m, err := scanReading(rows)
		if err != nil {
			return nil, postgres.WrapError(err, "Failed to read meter reading", nil)
		}
		out = append(out, m)
	}
	return out, postgres.WrapError(rows.Err(), "Failed to list meter readings", nil)
}

func scanReading(row rowScanner) (*reading.MeterReading, error) {
	var (
		m        reading.MeterReading
		override decimal.NullDecimal
	)
	dest := append([]any{&m.ID, &m.MeterKind, &m.MeterID, &m.BillingPeriodID, &m.Reading, &m.ReadingDate,
		&override}, baseDest(&m.BaseModel)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if override.Valid {
		v := override.Decimal
		m.ConsumptionOverride = &v
	}
	return &m, nil
}
