package email

import (
	"time"

	"github.com/shopspring/decimal"
)

type SendEmailRequest struct {
	FromAddress string
	ToAddress   string
	Subject     string
	Text        string
}

type SendEmailResponse struct {
	MessageID string `json:"message_id,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type SendEmailWithTemplateRequest struct {
	FromAddress  string
	ToAddress    string
	Subject      string
	TemplatePath string
	Data         map[string]interface{}
}

type SendEmailWithTemplateResponse = SendEmailResponse

// InvoiceNotification carries what a household needs to know about a new invoice
type InvoiceNotification struct {
	InvoiceID       string
	ToAddress       string
	HouseholdName   string
	HouseholdNumber string
	PeriodName      string
	TotalAmount     decimal.Decimal
	Currency        string
	DueDate         time.Time
}
