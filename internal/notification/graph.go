package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaharia-lab/formrelay/internal/build"
	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/credential"
)

// DefaultGraphEndpoint is the Microsoft Graph v1.0 base URL.
const DefaultGraphEndpoint = "https://graph.microsoft.com/v1.0"

// GraphConfig configures GraphProvider.
type GraphConfig struct {
	// Endpoint defaults to DefaultGraphEndpoint.
	Endpoint string
	// Timeout bounds the single POST. Defaults to 15 seconds.
	Timeout time.Duration
	// HTTPClient is the base client; its Timeout is overridden by Timeout.
	HTTPClient *http.Client
	// SaveToSentItems keeps a copy in the mailbox's Sent Items.
	SaveToSentItems bool
}

// GraphProvider sends mail through the Microsoft Graph sendMail action of
// the sender's mailbox, authenticated with a bearer token.
type GraphProvider struct {
	endpoint        string
	client          *http.Client
	saveToSentItems bool
}

// NewGraphProvider creates a GraphProvider.
func NewGraphProvider(cfg GraphConfig) *GraphProvider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultGraphEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		c.Timeout = timeout
		client = &c
	}
	return &GraphProvider{
		endpoint:        strings.TrimRight(endpoint, "/"),
		client:          client,
		saveToSentItems: cfg.SaveToSentItems,
	}
}

// Name returns the provider identifier.
func (p *GraphProvider) Name() string { return "graph" }

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphMessage struct {
	Subject      string         `json:"subject"`
	Body         graphBody      `json:"body"`
	ToRecipients []graphAddress `json:"toRecipients"`
	ReplyTo      []graphAddress `json:"replyTo,omitempty"`
}

type graphSendMail struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

func address(a string) graphAddress {
	var ga graphAddress
	ga.EmailAddress.Address = a
	return ga
}

// Send posts msg to /users/{from}/sendMail. Only 200 and 202 count as success.
func (p *GraphProvider) Send(ctx context.Context, cred credential.Credential, msg contact.OutboundMessage) error {
	payload := graphSendMail{
		Message: graphMessage{
			Subject:      msg.Subject,
			Body:         graphBody{ContentType: "HTML", Content: msg.HTMLBody},
			ToRecipients: []graphAddress{address(msg.Recipient)},
		},
		SaveToSentItems: p.saveToSentItems,
	}
	if msg.ReplyTo != "" {
		payload.Message.ReplyTo = []graphAddress{address(msg.ReplyTo)}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{Provider: p.Name(), Err: fmt.Errorf("encoding sendMail payload: %w", err)}
	}

	u := fmt.Sprintf("%s/users/%s/sendMail", p.endpoint, url.PathEscape(msg.From))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Provider: p.Name(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.Bearer())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", build.UserAgent())

	resp, err := p.client.Do(req)
	if err != nil {
		return &DeliveryError{Provider: p.Name(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeliveryError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("graph sendMail: %s", strings.TrimSpace(string(detail))),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
