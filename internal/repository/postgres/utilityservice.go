package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/utilityservice"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/lib/pq"
)

const utilityServiceColumns = `id, name, unit, category, is_metered, has_main_meters,
	requires_reconciliation, metadata, ` + baseColumns

type utilityServiceRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewUtilityServiceRepository(client *postgres.Client, log *logger.Logger) utilityservice.Repository {
	return &utilityServiceRepository{client: client, log: log}
}

func (r *utilityServiceRepository) Create(ctx context.Context, s *utilityservice.UtilityService) error {
	metadata, err := marshalJSON(s.Metadata)
	if err != nil {
		return err
	}

	args := append([]any{s.ID, s.Name, s.Unit, s.Category, s.IsMetered, s.HasMainMeters,
		s.RequiresReconciliation, metadata}, baseArgs(&s.BaseModel)...)
	_, err = r.client.Querier(ctx).ExecContext(ctx,
		`INSERT INTO utility_services (`+utilityServiceColumns+`) VALUES (`+placeholders(1, len(args))+`)`,
		args...)
	if err != nil {
		return postgres.WrapError(err, "Failed to create utility service", map[string]any{"name": s.Name})
	}
	return nil
}

func (r *utilityServiceRepository) Get(ctx context.Context, id string) (*utilityservice.UtilityService, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+utilityServiceColumns+` FROM utility_services WHERE id = $1 AND status = $2`,
		id, types.StatusPublished)
	s, err := scanUtilityService(row)
	if err != nil {
		return nil, postgres.WrapError(err, "Utility service not found", map[string]any{"service_id": id})
	}
	return s, nil
}

func (r *utilityServiceRepository) List(ctx context.Context, filter *types.UtilityServiceFilter) ([]*utilityservice.UtilityService, error) {
	w := &whereBuilder{}
	w.add("status = ?", types.StatusPublished)
	if filter != nil {
		if len(filter.ServiceIDs) > 0 {
			w.add("id = ANY(?)", pq.Array(filter.ServiceIDs))
		}
		if filter.Category != nil {
			w.add("category = ?", *filter.Category)
		}
	}

	rows, err := r.client.Querier(ctx).QueryContext(ctx,
		`SELECT `+utilityServiceColumns+` FROM utility_services`+w.sql()+` ORDER BY name`, w.args...)
	if err != nil {
		return nil, postgres.WrapError(err, "Failed to list utility services", nil)
	}
	defer rows.Close()

	var out []*utilityservice.UtilityService
	for rows.Next() {
		s, err := scanUtilityService(rows)
		if err != nil {
			return nil, postgres.WrapError(err, "Failed to read utility service", nil)
		}
		out = append(out, s)
	}
	return out, postgres.WrapError(rows.Err(), "Failed to list utility services", nil)
}

func (r *utilityServiceRepository) Update(ctx context.Context, s *utilityservice.UtilityService) error {
	metadata, err := marshalJSON(s.Metadata)
	if err != nil {
		return err
	}

	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE utility_services SET
			name = $2, unit = $3, category = $4, is_metered = $5, has_main_meters = $6,
			requires_reconciliation = $7, metadata = $8, updated_at = $9, updated_by = $10
		WHERE id = $1 AND status = 'published'`,
		s.ID, s.Name, s.Unit, s.Category, s.IsMetered, s.HasMainMeters,
		s.RequiresReconciliation, metadata, s.UpdatedAt, s.UpdatedBy)
	if err != nil {
		return postgres.WrapError(err, "Failed to update utility service", map[string]any{"service_id": s.ID})
	}
	return requireAffected(res, "utility service", s.ID)
}

func scanUtilityService(row rowScanner) (*utilityservice.UtilityService, error) {
	var (
		s        utilityservice.UtilityService
		metadata []byte
	)
	dest := append([]any{&s.ID, &s.Name, &s.Unit, &s.Category, &s.IsMetered, &s.HasMainMeters,
		&s.RequiresReconciliation, &metadata}, baseDest(&s.BaseModel)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(metadata, &s.Metadata); err != nil {
		return nil, err
	}
	return &s, nil
}
