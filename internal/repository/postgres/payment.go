package postgres

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/payment"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/types"
)

const paymentColumns = `id, invoice_id, amount, paid_at, reference, ` + baseColumns

type paymentRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewPaymentRepository(client *postgres.Client, log *logger.Logger) payment.Repository {
	return &paymentRepository{client: client, log: log}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	args := append([]any{p.ID, p.InvoiceID, p.Amount, p.PaidAt, p.Reference}, baseArgs(&p.BaseModel)...)
	_, err := r.client.Querier(ctx).ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (`+placeholders(1, len(args))+`)`, args...)
	if err != nil {
		return postgres.WrapError(err, "Failed to record payment", map[string]any{"invoice_id": p.InvoiceID})
	}
	return nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE invoice_id = $1 AND status = $2 ORDER BY paid_at`,
		invoiceID, types.StatusPublished)
	if err != nil {
		return nil, postgres.WrapError(err, "Failed to list payments", map[string]any{"invoice_id": invoiceID})
	}
	defer rows.Close()

	var out []*payment.Payment
	for rows.Next() {
		var p payment.Payment
		dest := append([]any{&p.ID, &p.InvoiceID, &p.Amount, &p.PaidAt, &p.Reference}, baseDest(&p.BaseModel)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, postgres.WrapError(err, "Failed to read payment", nil)
		}
		out = append(out, &p)
	}
	return out, postgres.WrapError(rows.Err(), "Failed to list payments", nil)
}
