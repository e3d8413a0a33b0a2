package mailer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/resend/resend-go/v2"
)

type resendClient struct {
	client *resend.Client
}

// NewResendClient creates a client for the Resend API. baseURL is only set
// in tests.
func NewResendClient(apiKey, baseURL string) (Client, error) {
	client := resend.NewClient(apiKey)

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("error parsing Resend base URL: %w", err)
		}
		client.BaseURL = u
	}

	return &resendClient{client: client}, nil
}

func (c *resendClient) Name() string { return "resend" }

func (c *resendClient) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	from := msg.From.Email
	if msg.From.Name != "" {
		from = fmt.Sprintf("%s <%s>", msg.From.Name, msg.From.Email)
	}

	if _, err := c.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}); err != nil {
		return fmt.Errorf("error sending email via Resend: %w", err)
	}

	return nil
}
