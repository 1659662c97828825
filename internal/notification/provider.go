// Package notification delivers outbound messages through a single mail
// channel: SMTP, Microsoft Graph, Resend or Gmail. Every provider performs
// exactly one delivery attempt per call and never retries.
package notification

import (
	"context"
	"fmt"

	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/credential"
)

// Provider is the interface for notification delivery backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "smtp").
	Name() string
	// Send delivers msg authenticated with cred.
	Send(ctx context.Context, cred credential.Credential, msg contact.OutboundMessage) error
}

// DeliveryError is returned when the outbound channel rejects or fails the send.
type DeliveryError struct {
	Provider string
	// StatusCode is the upstream HTTP status, 0 for transport failures and SMTP.
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s delivery failed: %v", e.Provider, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
