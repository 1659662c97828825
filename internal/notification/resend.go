package notification

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/resend/resend-go/v3"

	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/credential"
)

// ResendConfig configures ResendProvider.
type ResendConfig struct {
	// SenderName is shown in the From header when set.
	SenderName string
	// BaseURL overrides the Resend API endpoint.
	BaseURL    string
	HTTPClient *http.Client
}

// ResendProvider delivers messages through the Resend API. The API key is
// taken from the credential on every send so rotated keys are picked up.
type ResendProvider struct {
	config ResendConfig
}

// NewResendProvider creates a ResendProvider.
func NewResendProvider(cfg ResendConfig) *ResendProvider {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &ResendProvider{config: cfg}
}

// Name returns the provider identifier.
func (p *ResendProvider) Name() string { return "resend" }

// Send implements Provider.
func (p *ResendProvider) Send(ctx context.Context, cred credential.Credential, msg contact.OutboundMessage) error {
	client := resend.NewCustomClient(p.config.HTTPClient, cred.Bearer())
	if p.config.BaseURL != "" {
		u, err := url.Parse(p.config.BaseURL)
		if err != nil {
			return &DeliveryError{Provider: p.Name(), Err: fmt.Errorf("invalid base URL: %w", err)}
		}
		client.BaseURL = u
	}

	from := msg.From
	if p.config.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", p.config.SenderName, msg.From)
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.Recipient},
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
		Text:    msg.TextBody,
		ReplyTo: msg.ReplyTo,
	}

	if _, err := client.Emails.SendWithContext(ctx, req); err != nil {
		return &DeliveryError{Provider: p.Name(), Err: fmt.Errorf("resend: %w", err)}
	}
	return nil
}
