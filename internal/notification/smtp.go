package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/credential"
)

// SMTPConfig holds connection parameters for the SMTP provider.
type SMTPConfig struct {
	Host       string
	Port       int
	Encryption string // "none", "starttls", "ssl_tls"
	Timeout    time.Duration
}

// SMTPProvider delivers messages via SMTP using the go-mail library.
// Each Send opens its own session and closes it before returning.
type SMTPProvider struct {
	config SMTPConfig
}

// NewSMTPProvider creates a new SMTPProvider with the given configuration.
func NewSMTPProvider(config SMTPConfig) *SMTPProvider {
	return &SMTPProvider{config: config}
}

// Name returns the provider identifier.
func (p *SMTPProvider) Name() string { return "smtp" }

// Send delivers msg using the configured SMTP server and the static
// username/password in cred.
func (p *SMTPProvider) Send(ctx context.Context, cred credential.Credential, msg contact.OutboundMessage) error {
	from := msg.From
	if from == "" {
		from = cred.Username
	}
	m, err := buildMsg(from, msg)
	if err != nil {
		return &DeliveryError{Provider: p.Name(), Err: err}
	}

	opts := []mail.Option{
		mail.WithPort(p.config.Port),
		mail.WithSMTPAuth(authFromEncryption(p.config.Encryption)),
		mail.WithUsername(cred.Username),
		mail.WithPassword(cred.Password),
		mail.WithTLSPolicy(tlsPolicyFromEncryption(p.config.Encryption)),
	}
	if p.config.Encryption == "ssl_tls" {
		opts = append(opts, mail.WithSSL())
	}
	if p.config.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(p.config.Timeout))
	}

	c, err := mail.NewClient(p.config.Host, opts...)
	if err != nil {
		return &DeliveryError{Provider: p.Name(), Err: fmt.Errorf("creating mail client: %w", err)}
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return &DeliveryError{Provider: p.Name(), Err: err}
	}
	return nil
}

// buildMsg converts msg into a go-mail message with a plain-text body and
// an HTML alternative.
func buildMsg(from string, msg contact.OutboundMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.Recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.Recipient, err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to %q: %w", msg.ReplyTo, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	return m, nil
}

// tlsPolicyFromEncryption converts the encryption string to a go-mail TLSPolicy.
func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case "ssl_tls", "starttls":
		return mail.TLSMandatory
	default:
		return mail.NoTLS
	}
}

// authFromEncryption picks the PLAIN variant. Without TLS the plain
// mechanism would only authenticate against localhost.
func authFromEncryption(enc string) mail.SMTPAuthType {
	if enc == "ssl_tls" || enc == "starttls" {
		return mail.SMTPAuthPlain
	}
	return mail.SMTPAuthPlainNoEnc
}
