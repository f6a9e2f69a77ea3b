package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/cache"
	"github.com/brfledger/utilitybilling/internal/domain/pricing"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
)

const pricingColumns = `id, service_id, effective_date, price_per_unit, fixed_fee_per_household, ` + baseColumns

type pricingRepository struct {
	client *postgres.Client
	log    *logger.Logger
	cache  cache.Cache
}

// pricingHistory is the cached form of a service's price list
type pricingHistory struct {
	Items []*pricing.UtilityPricing `json:"items"`
}

// NewPricingRepository returns a price history repository. c may be nil to disable caching.
func NewPricingRepository(client *postgres.Client, log *logger.Logger, c cache.Cache) pricing.Repository {
	return &pricingRepository{client: client, log: log, cache: c}
}

func (r *pricingRepository) Create(ctx context.Context, p *pricing.UtilityPricing) error {
	span := StartRepositorySpan(ctx, "pricing", "create", map[string]interface{}{"service_id": p.ServiceID})
	defer FinishSpan(span)

	args := append([]any{p.ID, p.ServiceID, p.EffectiveDate, p.PricePerUnit, p.FixedFeePerHousehold},
		baseArgs(&p.BaseModel)...)
	_, err := r.client.Querier(ctx).ExecContext(ctx,
		`INSERT INTO utility_pricing (`+pricingColumns+`) VALUES (`+placeholders(1, len(args))+`)`, args...)
	if err != nil {
		SetSpanError(span, err)
		return postgres.WrapError(err, "A price with this effective date already exists for the service", map[string]any{
			"service_id":     p.ServiceID,
			"effective_date": p.EffectiveDate,
		})
	}

	r.DeleteCache(ctx, p.ServiceID)
	return nil
}

func (r *pricingRepository) Get(ctx context.Context, id string) (*pricing.UtilityPricing, error) {
	p, err := scanPricing(r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+pricingColumns+` FROM utility_pricing WHERE id = $1 AND status = $2`,
		id, types.StatusPublished))
	if err != nil {
		return nil, postgres.WrapError(err, "Pricing not found", map[string]any{"pricing_id": id})
	}
	return p, nil
}

func (r *pricingRepository) ListByService(ctx context.Context, serviceID string) ([]*pricing.UtilityPricing, error) {
	if cached := r.GetCache(ctx, serviceID); cached != nil {
		return cached, nil
	}

	span := StartRepositorySpan(ctx, "pricing", "list_by_service", map[string]interface{}{"service_id": serviceID})
	defer FinishSpan(span)

	rows, err := r.client.Querier(ctx).QueryContext(ctx,
		`SELECT `+pricingColumns+` FROM utility_pricing WHERE service_id = $1 AND status = $2 ORDER BY effective_date`,
		serviceID, types.StatusPublished)
	if err != nil {
		SetSpanError(span, err)
		return nil, postgres.WrapError(err, "Failed to list pricing", map[string]any{"service_id": serviceID})
	}
	defer rows.Close()

	var out []*pricing.UtilityPricing
	for rows.Next() {
		p, err := scanPricing(rows)
		if err != nil {
			return nil, postgres.WrapError(err, "Failed to read pricing", nil)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.WrapError(err, "Failed to list pricing", nil)
	}

	// reads inside a transaction may see uncommitted rows
	if r.client.TxFromContext(ctx) == nil {
		r.SetCache(ctx, serviceID, out)
	}
	return out, nil
}

func (r *pricingRepository) GetCache(ctx context.Context, serviceID string) []*pricing.UtilityPricing {
	if r.cache == nil {
		return nil
	}
	span := cache.StartCacheSpan(ctx, "pricing", "get", map[string]interface{}{"service_id": serviceID})
	defer cache.FinishSpan(span)

	value, found := r.cache.Get(ctx, cache.GenerateKey(cache.PrefixPricingHistory, serviceID))
	if !found {
		return nil
	}
	history, ok := cache.UnmarshalCacheValue[pricingHistory](value)
	if !ok {
		return nil
	}
	cache.SetSpanSuccess(span)
	return append([]*pricing.UtilityPricing(nil), history.Items...)
}

func (r *pricingRepository) SetCache(ctx context.Context, serviceID string, items []*pricing.UtilityPricing) {
	if r.cache == nil {
		return
	}
	span := cache.StartCacheSpan(ctx, "pricing", "set", map[string]interface{}{"service_id": serviceID})
	defer cache.FinishSpan(span)

	r.cache.Set(ctx, cache.GenerateKey(cache.PrefixPricingHistory, serviceID),
		&pricingHistory{Items: items}, cache.ExpiryDefaultInMemory)
}

func (r *pricingRepository) DeleteCache(ctx context.Context, serviceID string) {
	if r.cache == nil {
		return
	}
	span := cache.StartCacheSpan(ctx, "pricing", "delete", map[string]interface{}{"service_id": serviceID})
	defer cache.FinishSpan(span)

	r.cache.Delete(ctx, cache.GenerateKey(cache.PrefixPricingHistory, serviceID))
}

func scanPricing(row rowScanner) (*pricing.UtilityPricing, error) {
	var p pricing.UtilityPricing
	dest := append([]any{&p.ID, &p.ServiceID, &p.EffectiveDate, &p.PricePerUnit, &p.FixedFeePerHousehold},
		baseDest(&p.BaseModel)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}
