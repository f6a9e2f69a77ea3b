package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/sharedcost"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
)

const sharedCostColumns = `id, year, quarter, description, total_amount, per_household_share,
	active_household_count, ` + baseColumns

type sharedCostRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewSharedCostRepository(client *postgres.Client, log *logger.Logger) sharedcost.Repository {
	return &sharedCostRepository{client: client, log: log}
}

func (r *sharedCostRepository) Create(ctx context.Context, c *sharedcost.SharedCost) error {
	args := append([]any{c.ID, c.Year, c.Quarter, c.Description, c.TotalAmount, c.PerHouseholdShare,
		c.ActiveHouseholdCount}, baseArgs(&c.BaseModel)...)
	_, err := r.client.Querier(ctx).ExecContext(ctx,
		`INSERT INTO shared_costs (`+sharedCostColumns+`) VALUES (`+placeholders(1, len(args))+`)`, args...)
	if err != nil {
		return postgres.WrapError(err, "Failed to create shared cost", map[string]any{
			"year":    c.Year,
			"quarter": c.Quarter,
		})
	}
	return nil
}

func (r *sharedCostRepository) Get(ctx context.Context, id string) (*sharedcost.SharedCost, error) {
	c, err := scanSharedCost(r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+sharedCostColumns+` FROM shared_costs WHERE id = $1 AND status = $2`,
		id, types.StatusPublished))
	if err != nil {
		return nil, postgres.WrapError(err, "Shared cost not found", map[string]any{"shared_cost_id": id})
	}
	return c, nil
}

func (r *sharedCostRepository) ListByQuarter(ctx context.Context, year, quarter int) ([]*sharedcost.SharedCost, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT `+sharedCostColumns+` FROM shared_costs
		WHERE year = $1 AND quarter = $2 AND status = $3 ORDER BY created_at, id`,
		year, quarter, types.StatusPublished)
	if err != nil {
		return nil, postgres.WrapError(err, "Failed to list shared costs", map[string]any{
			"year":    year,
			"quarter": quarter,
		})
	}
	defer rows.Close()

	var out []*sharedcost.SharedCost
	for rows.Next() {
		c, err := scanSharedCost(rows)
		if err != nil {
			return nil, postgres.WrapError(err, "Failed to read shared cost", nil)
		}
		out = append(out, c)
	}
	return out, postgres.WrapError(rows.Err(), "Failed to list shared costs", nil)
}

func (r *sharedCostRepository) Update(ctx context.Context, c *sharedcost.SharedCost) error {
	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE shared_costs SET
			description = $2, total_amount = $3, per_household_share = $4,
			active_household_count = $5, updated_at = $6, updated_by = $7
		WHERE id = $1 AND status = 'published'`,
		c.ID, c.Description, c.TotalAmount, c.PerHouseholdShare, c.ActiveHouseholdCount, c.UpdatedAt, c.UpdatedBy)
	if err != nil {
		return postgres.WrapError(err, "Failed to update shared cost", map[string]any{"shared_cost_id": c.ID})
	}
	return requireAffected(res, "shared cost", c.ID)
}

func scanSharedCost(row rowScanner) (*sharedcost.SharedCost, error) {
	var c sharedcost.SharedCost
	dest := append([]any{&c.ID, &c.Year, &c.Quarter, &c.Description, &c.TotalAmount, &c.PerHouseholdShare,
		&c.ActiveHouseholdCount}, baseDest(&c.BaseModel)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &c, nil
}
