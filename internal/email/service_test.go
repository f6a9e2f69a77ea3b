package email

import (
	"context"
	"testing"
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDisabledEmail() *Email {
	cfg := config.GetDefaultConfig()
	cfg.Email.Enabled = false
	return NewEmail(NewEmailClient(cfg), logger.NewNopLogger())
}

func TestEmail_RenderInvoiceTemplate(t *testing.T) {
	s := newDisabledEmail()

	content, err := s.readTemplate(templateInvoiceGenerated)
	require.NoError(t, err)

	html, err := s.renderTemplate(content, map[string]interface{}{
		"invoice_id":       "inv_1",
		"household_name":   "Andersson",
		"household_number": "1101",
		"period_name":      "2025-H1",
		"total_amount":     "1445.43",
		"currency":         "SEK",
		"due_date":         "2025-10-31",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Amount due: 1445.43 SEK")
	assert.Contains(t, html, "apartment 1101")
}

func TestEmail_UnknownTemplate(t *testing.T) {
	_, err := newDisabledEmail().readTemplate("missing.html")
	assert.Error(t, err)
}

func TestEmail_DisabledClientSkipsSend(t *testing.T) {
	s := newDisabledEmail()

	resp, err := s.SendEmail(context.Background(), SendEmailRequest{ToAddress: "a@example.com", Subject: "x"})
	require.NoError(t, err)
	assert.False(t, resp.Success)

	err = s.NotifyInvoice(context.Background(), InvoiceNotification{
		InvoiceID:   "inv_1",
		ToAddress:   "a@example.com",
		TotalAmount: decimal.NewFromInt(100),
		Currency:    "sek",
		DueDate:     time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
}
