package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
)

const periodColumns = `id, name, start_date, end_date, reading_deadline, is_official_billing,
	is_billing_enabled, ` + baseColumns

type periodRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewPeriodRepository(client *postgres.Client, log *logger.Logger) period.Repository {
	return &periodRepository{client: client, log: log}
}

// Create relies on the exclusion constraint to reject overlaps that raced past the service check
func (r *periodRepository) Create(ctx context.Context, p *period.BillingPeriod) error {
	args := append([]any{p.ID, p.Name, p.StartDate, p.EndDate, p.ReadingDeadline, p.IsOfficialBilling,
		p.IsBillingEnabled}, baseArgs(&p.BaseModel)...)
	_, err := r.client.Querier(ctx).ExecContext(ctx,
		`INSERT INTO billing_periods (`+periodColumns+`) VALUES (`+placeholders(1, len(args))+`)`, args...)
	if err != nil {
		return postgres.WrapError(err, "Failed to create billing period", map[string]any{"name": p.Name})
	}
	return nil
}

func (r *periodRepository) Get(ctx context.Context, id string) (*period.BillingPeriod, error) {
	p, err := scanPeriod(r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM billing_periods WHERE id = $1 AND status = $2`,
		id, types.StatusPublished))
	if err != nil {
		return nil, postgres.WrapError(err, "Billing period not found", map[string]any{"period_id": id})
	}
	return p, nil
}

func (r *periodRepository) GetByName(ctx context.Context, name string) (*period.BillingPeriod, error) {
	p, err := scanPeriod(r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM billing_periods WHERE name = $1 AND status = $2`,
		name, types.StatusPublished))
	if err != nil {
		return nil, postgres.WrapError(err, "Billing period not found", map[string]any{"name": name})
	}
	return p, nil
}

func (r *periodRepository) List(ctx context.Context) ([]*period.BillingPeriod, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx,
		`SELECT `+periodColumns+` FROM billing_periods WHERE status = $1 ORDER BY start_date`,
		types.StatusPublished)
	if err != nil {
		return nil, postgres.WrapError(err, "Failed to list billing periods", nil)
	}
	defer rows.Close()

	var out []*period.BillingPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, postgres.WrapError(err, "Failed to read billing period", nil)
		}
		out = append(out, p)
	}
	return out, postgres.WrapError(rows.Err(), "Failed to list billing periods", nil)
}

func (r *periodRepository) Update(ctx context.Context, p *period.BillingPeriod) error {
	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE billing_periods SET
			name = $2, start_date = $3, end_date = $4, reading_deadline = $5,
			is_official_billing = $6, is_billing_enabled = $7, updated_at = $8, updated_by = $9
		WHERE id = $1 AND status = 'published'`,
		p.ID, p.Name, p.StartDate, p.EndDate, p.ReadingDeadline,
		p.IsOfficialBilling, p.IsBillingEnabled, p.UpdatedAt, p.UpdatedBy)
	if err != nil {
		return postgres.WrapError(err, "Failed to update billing period", map[string]any{"period_id": p.ID})
	}
	return requireAffected(res, "billing period", p.ID)
}

func scanPeriod(row rowScanner) (*period.BillingPeriod, error) {
	var p period.BillingPeriod
	dest := append([]any{&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.ReadingDeadline,
		&p.IsOfficialBilling, &p.IsBillingEnabled}, baseDest(&p.BaseModel)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}
