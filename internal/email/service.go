package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/brfledger/utilitybilling/internal/logger"
)

// emailTemplates stores email templates as string constants
const templateInvoiceGenerated = "invoice-generated.html"

// emailTemplates stores email templates as string constants
var emailTemplates = map[string]string{
	templateInvoiceGenerated: `<!DOCTYPE html>
<html>
<head>
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
    <title>Invoice {{.period_name}}</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; font-size: 14px; line-height: 1.6; color: #333;">
    <p>Hello {{.household_name}},</p>
    <p>The invoice for apartment {{.household_number}} covering {{.period_name}} is ready.</p>
    <p><strong>Amount due: {{.total_amount}} {{.currency}}</strong><br/>
    Due date: {{.due_date}}</p>
    <p>Reference: {{.invoice_id}}</p>
</body>
</html>`,
}

// InvoiceNotifier tells a household that an invoice was generated
type InvoiceNotifier interface {
	NotifyInvoice(ctx context.Context, n InvoiceNotification) error
}

// Email handles email operations
type Email struct {
	client *EmailClient
	logger *logger.Logger
}

func NewEmail(client *EmailClient, log *logger.Logger) *Email {
	return &Email{
		client: client,
		logger: log,
	}
}

// NotifyInvoice sends the invoice-generated template. Households without an email are skipped.
func (s *Email) NotifyInvoice(ctx context.Context, n InvoiceNotification) error {
	if n.ToAddress == "" {
		s.logger.Debugw("household has no email, skipping invoice notification",
			"invoice_id", n.InvoiceID,
			"household_number", n.HouseholdNumber,
		)
		return nil
	}

	_, err := s.SendEmailWithTemplate(ctx, SendEmailWithTemplateRequest{
		ToAddress:    n.ToAddress,
		Subject:      fmt.Sprintf("Invoice %s, apartment %s", n.PeriodName, n.HouseholdNumber),
		TemplatePath: templateInvoiceGenerated,
		Data: map[string]interface{}{
			"invoice_id":       n.InvoiceID,
			"household_name":   n.HouseholdName,
			"household_number": n.HouseholdNumber,
			"period_name":      n.PeriodName,
			"total_amount":     n.TotalAmount.StringFixed(2),
			"currency":         strings.ToUpper(n.Currency),
			"due_date":         n.DueDate.Format("2006-01-02"),
		},
	})
	return err
}

// SendEmail sends a plain text email
func (s *Email) SendEmail(ctx context.Context, req SendEmailRequest) (*SendEmailResponse, error) {
	if !s.client.IsEnabled() {
		s.logger.Warnw("email client is disabled, skipping email send",
			"to", req.ToAddress,
			"subject", req.Subject,
		)
		return &SendEmailResponse{
			Success: false,
			Error:   "email client is disabled",
		}, nil
	}

	// Prioritize env var from address over request from address
	fromAddress := s.client.GetFromAddress()
	if fromAddress == "" {
		fromAddress = req.FromAddress
	}

	messageID, err := s.client.SendEmail(ctx, fromAddress, req.ToAddress, req.Subject, "", req.Text)
	if err != nil {
		s.logger.Errorw("failed to send email",
			"error", err,
			"to", req.ToAddress,
			"subject", req.Subject,
		)
		return &SendEmailResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	s.logger.Infow("email sent successfully",
		"message_id", messageID,
		"to", req.ToAddress,
		"subject", req.Subject,
	)

	return &SendEmailResponse{
		MessageID: messageID,
		Success:   true,
	}, nil
}

// SendEmailWithTemplate sends an email using an HTML template
func (s *Email) SendEmailWithTemplate(ctx context.Context, req SendEmailWithTemplateRequest) (*SendEmailWithTemplateResponse, error) {
	if !s.client.IsEnabled() {
		s.logger.Warnw("email client is disabled, skipping email send",
			"to", req.ToAddress,
			"subject", req.Subject,
			"template", req.TemplatePath,
		)
		return &SendEmailWithTemplateResponse{
			Success: false,
			Error:   "email client is disabled",
		}, nil
	}

	// Prioritize env var from address over request from address
	fromAddress := s.client.GetFromAddress()
	if fromAddress == "" {
		fromAddress = req.FromAddress
	}

	s.logger.Debugw("preparing to send templated email",
		"from", fromAddress,
		"to", req.ToAddress,
		"subject", req.Subject,
		"template", req.TemplatePath,
	)

	// Retrieve the template from in-memory store
	htmlContent, err := s.readTemplate(req.TemplatePath)
	if err != nil {
		s.logger.Errorw("failed to read email template",
			"error", err,
			"template", req.TemplatePath,
		)
		return &SendEmailWithTemplateResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	s.logger.Debugw("template read successfully",
		"template", req.TemplatePath,
		"content_length", len(htmlContent),
	)

	// Render template with data using html/template
	htmlContent, err = s.renderTemplate(htmlContent, req.Data)
	if err != nil {
		s.logger.Errorw("failed to render email template",
			"error", err,
			"template", req.TemplatePath,
		)
		return &SendEmailWithTemplateResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	messageID, err := s.client.SendEmail(ctx, fromAddress, req.ToAddress, req.Subject, htmlContent, "")
	if err != nil {
		s.logger.Errorw("failed to send templated email",
			"error", err,
			"from", fromAddress,
			"to", req.ToAddress,
			"subject", req.Subject,
			"template", req.TemplatePath,
		)
		return &SendEmailWithTemplateResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	s.logger.Infow("templated email sent successfully",
		"message_id", messageID,
		"from", fromAddress,
		"to", req.ToAddress,
		"subject", req.Subject,
		"template", req.TemplatePath,
	)

	return &SendEmailWithTemplateResponse{
		MessageID: messageID,
		Success:   true,
	}, nil
}

func (s *Email) readTemplate(templatePath string) (string, error) {
	templateContent, exists := emailTemplates[templatePath]
	if !exists {
		return "", fmt.Errorf("template not found: %s", templatePath)
	}

	return templateContent, nil
}

// renderTemplate renders an HTML template using Go's html/template for safe HTML rendering
func (s *Email) renderTemplate(templateContent string, data map[string]interface{}) (string, error) {
	// Parse the template
	tmpl, err := template.New("email").Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	// Execute the template with data
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
