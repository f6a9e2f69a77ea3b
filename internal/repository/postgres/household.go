package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/household"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/lib/pq"
)

const householdColumns = `id, household_number, name, email, share_ratio, annual_membership_fee,
	household_status, metadata, status, created_at, updated_at, created_by, updated_by`

type householdRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewHouseholdRepository(client *postgres.Client, log *logger.Logger) household.Repository {
	return &householdRepository{client: client, log: log}
}

func (r *householdRepository) Create(ctx context.Context, h *household.Household) error {
	span := StartRepositorySpan(ctx, "household", "create", map[string]interface{}{"household_id": h.ID})
	defer FinishSpan(span)

	metadata, err := marshalJSON(h.Metadata)
	if err != nil {
		return err
	}

	_, err = r.client.Querier(ctx).ExecContext(ctx, `
		INSERT INTO households (`+householdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		h.ID, h.HouseholdNumber, h.Name, h.Email, h.ShareRatio, h.AnnualMembershipFee,
		h.HouseholdStatus, metadata, h.Status, h.CreatedAt, h.UpdatedAt, h.CreatedBy, h.UpdatedBy,
	)
	if err != nil {
		SetSpanError(span, err)
		return postgres.WrapError(err, "Failed to create household", map[string]any{
			"household_number": h.HouseholdNumber,
		})
	}
	return nil
}

func (r *householdRepository) Get(ctx context.Context, id string) (*household.Household, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+householdColumns+` FROM households WHERE id = $1 AND status = $2`,
		id, types.StatusPublished)

	h, err := scanHousehold(row)
	if err != nil {
		return nil, postgres.WrapError(err, "Household not found", map[string]any{"household_id": id})
	}
	return h, nil
}

func (r *householdRepository) GetByNumber(ctx context.Context, householdNumber string) (*household.Household, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+householdColumns+` FROM households WHERE household_number = $1 AND status = $2`,
		householdNumber, types.StatusPublished)

	h, err := scanHousehold(row)
	if err != nil {
		return nil, postgres.WrapError(err, "Household not found", map[string]any{"household_number": householdNumber})
	}
	return h, nil
}

func (r *householdRepository) where(filter *types.HouseholdFilter) *whereBuilder {
	w := &whereBuilder{}
	w.add("status = ?", types.StatusPublished)
	if filter == nil {
		return w
	}
	if len(filter.HouseholdIDs) > 0 {
		w.add("id = ANY(?)", pq.Array(filter.HouseholdIDs))
	}
	if len(filter.HouseholdNumbers) > 0 {
		w.add("household_number = ANY(?)", pq.Array(filter.HouseholdNumbers))
	}
	if filter.HouseholdStatus != nil {
		w.add("household_status = ?", *filter.HouseholdStatus)
	}
	return w
}

func (r *householdRepository) List(ctx context.Context, filter *types.HouseholdFilter) ([]*household.Household, error) {
	span := StartRepositorySpan(ctx, "household", "list", nil)
	defer FinishSpan(span)

	w := r.where(filter)
	query := `SELECT ` + householdColumns + ` FROM households` + w.sql() + ` ORDER BY household_number`
	if filter != nil && filter.QueryFilter != nil {
		query += w.page(filter.GetLimit(), filter.GetOffset())
	}

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		SetSpanError(span, err)
		return nil, postgres.WrapError(err, "Failed to list households", nil)
	}
	defer rows.Close()

	var out []*household.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, postgres.WrapError(err, "Failed to read household", nil)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.WrapError(err, "Failed to list households", nil)
	}
	return out, nil
}

func (r *householdRepository) Count(ctx context.Context, filter *types.HouseholdFilter) (int, error) {
	w := r.where(filter)
	var count int
	if err := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM households`+w.sql(), w.args...,
	).Scan(&count); err != nil {
		return 0, postgres.WrapError(err, "Failed to count households", nil)
	}
	return count, nil
}

func (r *householdRepository) Update(ctx context.Context, h *household.Household) error {
	span := StartRepositorySpan(ctx, "household", "update", map[string]interface{}{"household_id": h.ID})
	defer FinishSpan(span)

	metadata, err := marshalJSON(h.Metadata)
	if err != nil {
		return err
	}

	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE households SET
			name = $2, email = $3, share_ratio = $4, annual_membership_fee = $5,
			household_status = $6, metadata = $7, updated_at = $8, updated_by = $9
		WHERE id = $1 AND status = 'published'`,
		h.ID, h.Name, h.Email, h.ShareRatio, h.AnnualMembershipFee,
		h.HouseholdStatus, metadata, h.UpdatedAt, h.UpdatedBy,
	)
	if err != nil {
		SetSpanError(span, err)
		return postgres.WrapError(err, "Failed to update household", map[string]any{"household_id": h.ID})
	}
	return requireAffected(res, "household", h.ID)
}

func scanHousehold(row rowScanner) (*household.Household, error) {
	var (
		h        household.Household
		metadata []byte
	)
	if err := row.Scan(
		&h.ID, &h.HouseholdNumber, &h.Name, &h.Email, &h.ShareRatio, &h.AnnualMembershipFee,
		&h.HouseholdStatus, &metadata, &h.Status, &h.CreatedAt, &h.UpdatedAt, &h.CreatedBy, &h.UpdatedBy,
	); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(metadata, &h.Metadata); err != nil {
		return nil, err
	}
	return &h, nil
}
