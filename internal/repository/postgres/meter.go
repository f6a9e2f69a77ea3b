package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/meter"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
)

const (
	mainMeterColumns      = `id, service_id, identifier, ` + baseColumns
	householdMeterColumns = `id, household_id, service_id, serial, ` + baseColumns
)

type meterRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewMeterRepository(client *postgres.Client, log *logger.Logger) meter.Repository {
	return &meterRepository{client: client, log: log}
}

func (r *meterRepository) CreateMainMeter(ctx context.Context, m *meter.MainMeter) error {
	args := append([]any{m.ID, m.ServiceID, m.Identifier}, baseArgs(&m.BaseModel)...)
	_, err := r.client.Querier(ctx).ExecContext(ctx,
		`INSERT INTO main_meters (`+mainMeterColumns+`) VALUES (`+placeholders(1, len(args))+`)`, args...)
	if err != nil {
		return postgres.WrapError(err, "Failed to create main meter", map[string]any{
			"service_id": m.ServiceID,
			"identifier": m.Identifier,
		})
	}
	return nil
}

func (r *meterRepository) GetMainMeter(ctx context.Context, id string) (*meter.MainMeter, error) {
	var m meter.MainMeter
	dest := append([]any{&m.ID, &m.ServiceID, &m.Identifier}, baseDest(&m.BaseModel)...)
	err := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+mainMeterColumns+` FROM main_meters WHERE id = $1 AND status = $2`,
		id, types.StatusPublished).Scan(dest...)
	if err != nil {
		return nil, postgres.WrapError(err, "Main meter not found", map[string]any{"meter_id": id})
	}
	return &m, nil
}

func (r *meterRepository) ListMainMeters(ctx context.Context, serviceID string) ([]*meter.MainMeter, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx,
		`SELECT `+mainMeterColumns+` FROM main_meters WHERE service_id = $1 AND status = $2 ORDER BY identifier`,
		serviceID, types.StatusPublished)
	if err != nil {
		return nil, postgres.WrapError(err, "Failed to list main meters", map[string]any{"service_id": serviceID})
	}
	defer rows.Close()

	var out []*meter.MainMeter
	for rows.Next() {
		var m meter.MainMeter
		dest := append([]any{&m.ID, &m.ServiceID, &m.Identifier}, baseDest(&m.BaseModel)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, postgres.WrapError(err, "Failed to read main meter", nil)
		}
		out = append(out, &m)
	}
	return out, postgres.WrapError(rows.Err(), "Failed to list main meters", nil)
}

func (r *meterRepository) CreateHouseholdMeter(ctx context.Context, m *meter.HouseholdMeter) error {
	args := append([]any{m.ID, m.HouseholdID, m.ServiceID, m.Serial}, baseArgs(&m.BaseModel)...)
	_, err := r.client.Querier(ctx).ExecContext(ctx,
		`INSERT INTO household_meters (`+householdMeterColumns+`) VALUES (`+placeholders(1, len(args))+`)`, args...)
	if err != nil {
		return postgres.WrapError(err, "Household already has a meter for this service", map[string]any{
			"household_id": m.HouseholdID,
			"service_id":   m.ServiceID,
		})
	}
	return nil
}

func (r *meterRepository) GetHouseholdMeter(ctx context.Context, id string) (*meter.HouseholdMeter, error) {
	m, err := scanHouseholdMeter(r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+householdMeterColumns+` FROM household_meters WHERE id = $1 AND status = $2`,
		id, types.StatusPublished))
	if err != nil {
		return nil, postgres.WrapError(err, "Household meter not found", map[string]any{"meter_id": id})
	}
	return m, nil
}

func (r *meterRepository) ListHouseholdMeters(ctx context.Context, filter *types.HouseholdMeterFilter) ([]*meter.HouseholdMeter, error) {
	w := &whereBuilder{}
	w.add("status = ?", types.StatusPublished)
	if filter != nil {
		if filter.HouseholdID != "" {
			w.add("household_id = ?", filter.HouseholdID)
		}
		if filter.ServiceID != "" {
			w.add("service_id = ?", filter.ServiceID)
		}
	}

	rows, err := r.client.Querier(ctx).QueryContext(ctx,
		`SELECT `+householdMeterColumns+` FROM household_meters`+w.sql()+` ORDER BY household_id, service_id`,
		w.args...)
	if err != nil {
		return nil, postgres.WrapError(err, "Failed to list household meters", nil)
	}
	defer rows.Close()

	var out []*meter.HouseholdMeter
	for rows.Next() {
		m, err := scanHouseholdMeter(rows)
		if err != nil {
			return nil, postgres.WrapError(err, "Failed to read household meter", nil)
		}
		out = append(out, m)
	}
	return out, postgres.WrapError(rows.Err(), "Failed to list household meters", nil)
}

func scanHouseholdMeter(row rowScanner) (*meter.HouseholdMeter, error) {
	var m meter.HouseholdMeter
	dest := append([]any{&m.ID, &m.HouseholdID, &m.ServiceID, &m.Serial}, baseDest(&m.BaseModel)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &m, nil
}
