package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/lib/pq"
)

const billingColumns = `id, household_id, service_id, billing_period_id, category, raw_consumption,
	consumption_source, reconciliation_adjustment, adjusted_consumption, cost_per_unit, consumption_cost,
	fixed_fee_share, total_utility_cost, pricing_id, ` + baseColumns

type billingRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewBillingRepository(client *postgres.Client, log *logger.Logger) billing.Repository {
	return &billingRepository{client: client, log: log}
}

func (r *billingRepository) UpsertMany(ctx context.Context, items []*billing.UtilityBilling) error {
	span := StartRepositorySpan(ctx, "utility_billing", "upsert_many", map[string]interface{}{"count": len(items)})
	defer FinishSpan(span)

	q := r.client.Querier(ctx)
	for _, b := range items {
		args := append([]any{b.ID, b.HouseholdID, b.ServiceID, b.BillingPeriodID, b.Category, b.RawConsumption,
			b.ConsumptionSource, b.ReconciliationAdjustment, b.AdjustedConsumption, b.CostPerUnit, b.ConsumptionCost,
			b.FixedFeeShare, b.TotalUtilityCost, b.PricingID}, baseArgs(&b.BaseModel)...)

		err := q.QueryRowContext(ctx, `
			INSERT INTO utility_billings (`+billingColumns+`) VALUES (`+placeholders(1, len(args))+`)
			ON CONFLICT (household_id, service_id, billing_period_id) DO UPDATE SET
				category = EXCLUDED.category,
				raw_consumption = EXCLUDED.raw_consumption,
				consumption_source = EXCLUDED.consumption_source,
				reconciliation_adjustment = EXCLUDED.reconciliation_adjustment,
				adjusted_consumption = EXCLUDED.adjusted_consumption,
				cost_per_unit = EXCLUDED.cost_per_unit,
				consumption_cost = EXCLUDED.consumption_cost,
				fixed_fee_share = EXCLUDED.fixed_fee_share,
				total_utility_cost = EXCLUDED.total_utility_cost,
				pricing_id = EXCLUDED.pricing_id,
				status = EXCLUDED.status,
				updated_at = EXCLUDED.updated_at,
				updated_by = EXCLUDED.updated_by
			RETURNING id, created_at, created_by`, args...,
		).Scan(&b.ID, &b.CreatedAt, &b.CreatedBy)
		if err != nil {
			SetSpanError(span, err)
			return postgres.WrapError(err, "Failed to store utility billing line", map[string]any{
				"household_id": b.HouseholdID,
				"service_id":   b.ServiceID,
				"period_id":    b.BillingPeriodID,
			})
		}
	}
	return nil
}

func (r *billingRepository) ListByPeriod(ctx context.Context, periodID string) ([]*billing.UtilityBilling, error) {
	return r.list(ctx, `
		SELECT `+billingColumns+` FROM utility_billings
		WHERE billing_period_id = $1 AND status = $2 ORDER BY household_id, service_id`,
		periodID, types.StatusPublished)
}

func (r *billingRepository) ListByHouseholdAndPeriod(ctx context.Context, householdID, periodID string) ([]*billing.UtilityBilling, error) {
	return r.list(ctx, `
		SELECT `+billingColumns+` FROM utility_billings
		WHERE household_id = $1 AND billing_period_id = $2 AND status = $3 ORDER BY service_id`,
		householdID, periodID, types.StatusPublished)
}

func (r *billingRepository) DeleteStale(ctx context.Context, periodID string, keep []billing.Key) (int, error) {
	span := StartRepositorySpan(ctx, "utility_billing", "delete_stale", map[string]interface{}{"period_id": periodID})
	defer FinishSpan(span)

	households := make([]string, 0, len(keep))
	services := make([]string, 0, len(keep))
	for _, k := range keep {
		if k.BillingPeriodID != periodID {
			continue
		}
		households = append(households, k.HouseholdID)
		services = append(services, k.ServiceID)
	}

	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		DELETE FROM utility_billings b
		WHERE b.billing_period_id = $1
		AND NOT EXISTS (
			SELECT 1 FROM unnest($2::text[], $3::text[]) AS k(household_id, service_id)
			WHERE k.household_id = b.household_id AND k.service_id = b.service_id
		)`,
		periodID, pq.Array(households), pq.Array(services))
	if err != nil {
		SetSpanError(span, err)
		return 0, postgres.WrapError(err, "Failed to remove stale utility billing lines", map[string]any{"period_id": periodID})
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, postgres.WrapError(err, "Failed to remove stale utility billing lines", nil)
	}
	return int(n), nil
}

func (r *billingRepository) list(ctx context.Context, query string, args ...any) ([]*billing.UtilityBilling, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.WrapError(err, "Failed to list utility billing lines", nil)
	}
	defer rows.Close()

	var out []*billing.UtilityBilling
	for rows.Next() {
		var b billing.UtilityBilling
		dest := append([]any{&b.ID, &b.HouseholdID, &b.ServiceID, &b.BillingPeriodID, &b.Category, &b.RawConsumption,
			&b.ConsumptionSource, &b.ReconciliationAdjustment, &b.AdjustedConsumption, &b.CostPerUnit,
			&b.ConsumptionCost, &b.FixedFeeShare, &b.TotalUtilityCost, &b.PricingID}, baseDest(&b.BaseModel)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, postgres.WrapError(err, "Failed to read utility billing line", nil)
		}
		out = append(out, &b)
	}
	return out, postgres.WrapError(rows.Err(), "Failed to list utility billing lines", nil)
}
