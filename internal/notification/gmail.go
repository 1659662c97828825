package notification

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/credential"
)

// GmailConfig configures GmailProvider.
type GmailConfig struct {
	// User is the mailbox the service account impersonates; "me" also works.
	User string
	// Endpoint overrides the Gmail API base URL.
	Endpoint   string
	HTTPClient *http.Client
}

// GmailProvider sends the MIME message through users.messages.send.
type GmailProvider struct {
	config GmailConfig
}

// NewGmailProvider creates a GmailProvider.
func NewGmailProvider(cfg GmailConfig) *GmailProvider {
	if cfg.User == "" {
		cfg.User = "me"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &GmailProvider{config: cfg}
}

// Name returns the provider identifier.
func (p *GmailProvider) Name() string { return "gmail" }

// Send implements Provider.
func (p *GmailProvider) Send(ctx context.Context, cred credential.Credential, msg contact.OutboundMessage) error {
	if cred.Token == nil {
		return &DeliveryError{Provider: p.Name(), Err: errors.New("gmail requires a bearer token")}
	}

	from := msg.From
	if from == "" {
		from = p.config.User
	}
	m, err := buildMsg(from, msg)
	if err != nil {
		return &DeliveryError{Provider: p.Name(), Err: err}
	}
	var raw bytes.Buffer
	if _, err := m.WriteTo(&raw); err != nil {
		return &DeliveryError{Provider: p.Name(), Err: fmt.Errorf("encoding message: %w", err)}
	}

	httpCtx := context.WithValue(ctx, oauth2.HTTPClient, p.config.HTTPClient)
	opts := []option.ClientOption{
		option.WithHTTPClient(oauth2.NewClient(httpCtx, oauth2.StaticTokenSource(cred.Token))),
	}
	if p.config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.config.Endpoint))
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return &DeliveryError{Provider: p.Name(), Err: fmt.Errorf("creating gmail client: %w", err)}
	}

	_, err = svc.Users.Messages.Send(p.config.User, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw.Bytes()),
	}).Context(ctx).Do()
	if err != nil {
		de := &DeliveryError{Provider: p.Name(), Err: err}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			de.StatusCode = gerr.Code
		}
		return de
	}
	return nil
}
