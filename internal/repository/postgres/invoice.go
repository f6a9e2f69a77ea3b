package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

const invoiceColumns = `id, household_id, billing_period_id, currency, total_utility_costs, member_fee,
	shared_costs, total_amount, paid_amount, due_date, invoice_status, paid_at, ` + baseColumns

type invoiceRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewInvoiceRepository(client *postgres.Client, log *logger.Logger) invoice.Repository {
	return &invoiceRepository{client: client, log: log}
}

// Upsert writes the invoice as given; merging with the stored row is the caller's job
func (r *invoiceRepository) Upsert(ctx context.Context, inv *invoice.Invoice) error {
	span := StartRepositorySpan(ctx, "invoice", "upsert", map[string]interface{}{
		"household_id": inv.HouseholdID,
		"period_id":    inv.BillingPeriodID,
	})
	defer FinishSpan(span)

	args := append([]any{inv.ID, inv.HouseholdID, inv.BillingPeriodID, inv.Currency, inv.TotalUtilityCosts,
		inv.MemberFee, inv.SharedCosts, inv.TotalAmount, inv.PaidAmount, inv.DueDate, inv.InvoiceStatus,
		inv.PaidAt}, baseArgs(&inv.BaseModel)...)
	err := r.client.Querier(ctx).QueryRowContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`) VALUES (`+placeholders(1, len(args))+`)
		ON CONFLICT (household_id, billing_period_id) DO UPDATE SET
			currency = EXCLUDED.currency,
			total_utility_costs = EXCLUDED.total_utility_costs,
			member_fee = EXCLUDED.member_fee,
			shared_costs = EXCLUDED.shared_costs,
			total_amount = EXCLUDED.total_amount,
			paid_amount = EXCLUDED.paid_amount,
			due_date = EXCLUDED.due_date,
			invoice_status = EXCLUDED.invoice_status,
			paid_at = EXCLUDED.paid_at,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
		RETURNING id, created_at, created_by`, args...,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.CreatedBy)
	if err != nil {
		SetSpanError(span, err)
		return postgres.WrapError(err, "Failed to store invoice", map[string]any{
			"household_id": inv.HouseholdID,
			"period_id":    inv.BillingPeriodID,
		})
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := scanInvoice(r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND status = $2`,
		id, types.StatusPublished))
	if err != nil {
		return nil, postgres.WrapError(err, "Invoice not found", map[string]any{"invoice_id": id})
	}
	return inv, nil
}

func (r *invoiceRepository) GetByHouseholdAndPeriod(ctx context.Context, householdID, periodID string) (*invoice.Invoice, error) {
	inv, err := scanInvoice(r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE household_id = $1 AND billing_period_id = $2 AND status = $3`,
		householdID, periodID, types.StatusPublished))
	if err != nil {
		return nil, postgres.WrapError(err, "Invoice not found", map[string]any{
			"household_id": householdID,
			"period_id":    periodID,
		})
	}
	return inv, nil
}

func (r *invoiceRepository) where(filter *types.InvoiceFilter) *whereBuilder {
	w := &whereBuilder{}
	w.add("status = ?", types.StatusPublished)
	if filter == nil {
		return w
	}
	if filter.HouseholdID != "" {
		w.add("household_id = ?", filter.HouseholdID)
	}
	if filter.BillingPeriodID != "" {
		w.add("billing_period_id = ?", filter.BillingPeriodID)
	}
	if len(filter.InvoiceStatus) > 0 {
		statuses := lo.Map(filter.InvoiceStatus, func(s types.InvoiceStatus, _ int) string { return string(s) })
		w.add("invoice_status = ANY(?)", pq.Array(statuses))
	}
	return w
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	span := StartRepositorySpan(ctx, "invoice", "list", nil)
	defer FinishSpan(span)

	w := r.where(filter)
	query := `SELECT ` + invoiceColumns + ` FROM invoices` + w.sql() + ` ORDER BY due_date, household_id`
	if filter != nil && filter.QueryFilter != nil {
		query += w.page(filter.GetLimit(), filter.GetOffset())
	}

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		SetSpanError(span, err)
		return nil, postgres.WrapError(err, "Failed to list invoices", nil)
	}
	defer rows.Close()

	var out []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, postgres.WrapError(err, "Failed to read invoice", nil)
		}
		out = append(out, inv)
	}
	return out, postgres.WrapError(rows.Err(), "Failed to list invoices", nil)
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	w := r.where(filter)
	var count int
	if err := r.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM invoices`+w.sql(), w.args...,
	).Scan(&count); err != nil {
		return 0, postgres.WrapError(err, "Failed to count invoices", nil)
	}
	return count, nil
}

func scanInvoice(row rowScanner) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	dest := append([]any{&inv.ID, &inv.HouseholdID, &inv.BillingPeriodID, &inv.Currency, &inv.TotalUtilityCosts,
		&inv.MemberFee, &inv.SharedCosts, &inv.TotalAmount, &inv.PaidAmount, &inv.DueDate, &inv.InvoiceStatus,
		&inv.PaidAt}, baseDest(&inv.BaseModel)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &inv, nil
}
