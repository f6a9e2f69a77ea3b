package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/reconciliation"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
)

const reconciliationColumns = `id, service_id, billing_period_id, main_total, household_total, difference,
	active_household_count, adjustment_per_household, split_mode, household_adjustments, computed_at, ` + baseColumns

type reconciliationRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewReconciliationRepository(client *postgres.Client, log *logger.Logger) reconciliation.Repository {
	return &reconciliationRepository{client: client, log: log}
}

func (r *reconciliationRepository) Upsert(ctx context.Context, rec *reconciliation.Reconciliation) error {
	span := StartRepositorySpan(ctx, "reconciliation", "upsert", map[string]interface{}{
		"service_id": rec.ServiceID,
		"period_id":  rec.BillingPeriodID,
	})
	defer FinishSpan(span)

	adjustments, err := marshalJSON(rec.HouseholdAdjustments)
	if err != nil {
		return err
	}

	args := append([]any{rec.ID, rec.ServiceID, rec.BillingPeriodID, rec.MainTotal, rec.HouseholdTotal,
		rec.Difference, rec.ActiveHouseholdCount, rec.AdjustmentPerHousehold, rec.SplitMode, adjustments,
		rec.ComputedAt}, baseArgs(&rec.BaseModel)...)
	err = r.client.Querier(ctx).QueryRowContext(ctx, `
		INSERT INTO reconciliations (`+reconciliationColumns+`) VALUES (`+placeholders(1, len(args))+`)
		ON CONFLICT (service_id, billing_period_id) DO UPDATE SET
			main_total = EXCLUDED.main_total,
			household_total = EXCLUDED.household_total,
			difference = EXCLUDED.difference,
			active_household_count = EXCLUDED.active_household_count,
			adjustment_per_household = EXCLUDED.adjustment_per_household,
			split_mode = EXCLUDED.split_mode,
			household_adjustments = EXCLUDED.household_adjustments,
			computed_at = EXCLUDED.computed_at,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
		RETURNING id, created_at, created_by`, args...,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.CreatedBy)
	if err != nil {
		SetSpanError(span, err)
		return postgres.WrapError(err, "Failed to store reconciliation", map[string]any{
			"service_id": rec.ServiceID,
			"period_id":  rec.BillingPeriodID,
		})
	}
	return nil
}

func (r *reconciliationRepository) Get(ctx context.Context, serviceID, periodID string) (*reconciliation.Reconciliation, error) {
	rec, err := scanReconciliation(r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+reconciliationColumns+` FROM reconciliations
		WHERE service_id = $1 AND billing_period_id = $2 AND status = $3`,
		serviceID, periodID, types.StatusPublished))
	if err != nil {
		return nil, postgres.WrapError(err, "Reconciliation not found", map[string]any{
			"service_id": serviceID,
			"period_id":  periodID,
		})
	}
	return rec, nil
}

func (r *reconciliationRepository) ListByPeriod(ctx context.Context, periodID string) ([]*reconciliation.Reconciliation, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT `+reconciliationColumns+` FROM reconciliations
		WHERE billing_period_id = $1 AND status = $2 ORDER BY service_id`,
		periodID, types.StatusPublished)
	if err != nil {
		return nil, postgres.WrapError(err, "Failed to list reconciliations", map[string]any{"period_id": periodID})
	}
	defer rows.Close()

	var out []*reconciliation.Reconciliation
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, postgres.WrapError(err, "Failed to read reconciliation", nil)
		}
		out = append(out, rec)
	}
	return out, postgres.WrapError(rows.Err(), "Failed to list reconciliations", nil)
}

func (r *reconciliationRepository) Archive(ctx context.Context, serviceID, periodID string) (bool, error) {
	span := StartRepositorySpan(ctx, "reconciliation", "archive", map[string]interface{}{
		"service_id": serviceID,
		"period_id":  periodID,
	})
	defer FinishSpan(span)

	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE reconciliations SET status = $1, updated_at = now(), updated_by = $2
		WHERE service_id = $3 AND billing_period_id = $4 AND status = $5`,
		types.StatusArchived, types.GetUserID(ctx), serviceID, periodID, types.StatusPublished)
	if err != nil {
		SetSpanError(span, err)
		return false, postgres.WrapError(err, "Failed to archive reconciliation", map[string]any{
			"service_id": serviceID,
			"period_id":  periodID,
		})
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, postgres.WrapError(err, "Failed to archive reconciliation", nil)
	}
	return n > 0, nil
}

func scanReconciliation(row rowScanner) (*reconciliation.Reconciliation, error) {
	var (
		rec         reconciliation.Reconciliation
		adjustments []byte
	)
	dest := append([]any{&rec.ID, &rec.ServiceID, &rec.BillingPeriodID, &rec.MainTotal, &rec.HouseholdTotal,
		&rec.Difference, &rec.ActiveHouseholdCount, &rec.AdjustmentPerHousehold, &rec.SplitMode, &adjustments,
		&rec.ComputedAt}, baseDest(&rec.BaseModel)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(adjustments, &rec.HouseholdAdjustments); err != nil {
		return nil, err
	}
	return &rec, nil
}
