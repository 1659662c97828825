// Package contact validates contact-form submissions and derives the
// outbound message that relays them.
package contact

import (
	"strings"
	"time"
)

// ContactRequest is the raw JSON body posted by the contact form.
//
//nolint:revive
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Phone   string `json:"phone,omitempty"`

	// Website and Honeypot are hidden form fields. Humans leave them empty.
	Website  string `json:"website,omitempty"`
	Honeypot string `json:"honeypot,omitempty"`
}

// IsBot reports whether a honeypot field was filled in.
func (r ContactRequest) IsBot() bool {
	return strings.TrimSpace(r.Website) != "" || strings.TrimSpace(r.Honeypot) != ""
}

// Submission is a validated contact request. It lives for a single request
// and is never persisted.
type Submission struct {
	ID         string
	Name       string `validate:"required,max=200"`
	Email      string `validate:"required,email"`
	Message    string `validate:"required,max=8000"`
	Phone      string `validate:"omitempty,max=100"`
	ReceivedAt time.Time
}

// OutboundMessage is the email derived from a Submission.
type OutboundMessage struct {
	Subject   string
	HTMLBody  string
	TextBody  string
	From      string
	Recipient string
	ReplyTo   string
}

// Addresses are the resolved sender and recipient of outbound messages.
type Addresses struct {
	From string
	To   string
}
