package email

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/cenkalti/backoff/v4"
	"github.com/resend/resend-go/v2"
)

const maxSendElapsed = 30 * time.Second

// EmailClient wraps the resend API client
type EmailClient struct {
	client  *resend.Client
	cfg     config.EmailConfig
	enabled bool
}

func NewEmailClient(cfg *config.Configuration) *EmailClient {
	enabled := cfg.Email.Enabled && cfg.Email.ResendAPIKey != ""
	c := &EmailClient{cfg: cfg.Email, enabled: enabled}
	if enabled {
		c.client = resend.NewClient(cfg.Email.ResendAPIKey)
	}
	return c
}

func (c *EmailClient) IsEnabled() bool {
	return c.enabled
}

func (c *EmailClient) GetFromAddress() string {
	return c.cfg.FromAddress
}

// SendEmail sends one message and returns the provider message id.
// Transient failures are retried with exponential backoff.
func (c *EmailClient) SendEmail(ctx context.Context, from, to, subject, html, text string) (string, error) {
	if !c.enabled {
		return "", ierr.NewError("email client is disabled").
			WithHint("Set email.enabled and email.resend_api_key to send email").
			Mark(ierr.ErrConfiguration)
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
		ReplyTo: c.cfg.ReplyTo,
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxSendElapsed

	var messageID string
	err := backoff.Retry(func() error {
		sent, err := c.client.Emails.SendWithContext(ctx, params)
		if err != nil {
			return err
		}
		messageID = sent.Id
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to send email").
			WithReportableDetails(map[string]interface{}{"to": to, "subject": subject}).
			Mark(ierr.ErrInternal)
	}
	return messageID, nil
}
