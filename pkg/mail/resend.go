package mail

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendSettings configures delivery through the Resend HTTP API.
type ResendSettings struct {
	APIKey  string
	From    string
	BaseURL string
}

type resendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer builds a Resend backed mailer.
func NewResendMailer(cfg ResendSettings) (Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("resend: api key is required")
	}

	client := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		baseURL, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("resend: parse base url: %w", err)
		}
		client.BaseURL = baseURL
	}

	return &resendMailer{client: client, from: cfg.From}, nil
}

func (m *resendMailer) Send(ctx context.Context, msg Message) error {
	from, recipients, err := prepareEnvelope(msg, m.from)
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      recipients,
		Subject: escapeHeader(msg.Subject),
		Html:    msg.HTML,
		Text:    msg.Body,
	}

	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			return fmt.Errorf("resend: rate limit exceeded (limit %s, resets in %ss): %w",
				rateLimitErr.Limit, rateLimitErr.Reset, err)
		}
		return fmt.Errorf("resend: send: %w", err)
	}
	return nil
}
