package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Mail provider identifiers accepted by MAIL_PROVIDER.
const (
	ProviderSMTP   = "smtp"
	ProviderGraph  = "graph"
	ProviderResend = "resend"
	ProviderGmail  = "gmail"
)

// SecretStoreEnv resolves secrets from environment variables instead of Key Vault.
const SecretStoreEnv = "env"

// AppConfig holds all application-level configuration loaded from environment variables.
// It is read once at startup and passed explicitly to every component.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8080.
	Port int `envconfig:"PORT" default:"8080"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// LogFormat selects the slog handler: json or text.
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	// LogFile, when set, sends logs to a size-rotated file instead of stdout.
	LogFile string `envconfig:"LOG_FILE"`

	SentryDSN         string `envconfig:"SENTRY_DSN"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`

	// AllowedOrigins is the comma-separated list of CORS origins.
	// SWA_ORIGIN is honored as a legacy alias.
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS"`
	SWAOrigin      string `envconfig:"SWA_ORIGIN"`

	// MailProvider selects the outbound channel: smtp, graph, resend or gmail.
	MailProvider string `envconfig:"MAIL_PROVIDER" default:"graph"`

	// Static addressing. A static value always wins over the *_SECRET lookup.
	MailFrom string `envconfig:"MAIL_FROM"`
	MailTo   string `envconfig:"MAIL_TO"`
	// MailFromName is the display name put in front of the Resend sender.
	MailFromName string `envconfig:"MAIL_FROM_NAME"`
	// Names of secrets in the secret store holding the sender/recipient addresses.
	MailFromSecret string `envconfig:"MAIL_FROM_SECRET"`
	MailToSecret   string `envconfig:"MAIL_TO_SECRET"`

	// MailboxUPN is the Graph mailbox used as sender and default recipient.
	MailboxUPN string `envconfig:"MAILBOX_UPN"`

	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"` // "none", "starttls", "ssl_tls"

	// AzureClientID selects a user-assigned managed identity, or the app
	// registration when AzureTenantID and AzureClientSecret are also set.
	AzureClientID     string `envconfig:"AZURE_CLIENT_ID"`
	AzureTenantID     string `envconfig:"AZURE_TENANT_ID"`
	AzureClientSecret string `envconfig:"AZURE_CLIENT_SECRET"`

	// SecretStore selects where *_SECRET names are resolved: keyvault, or env
	// for local development.
	SecretStore string `envconfig:"SECRET_STORE" default:"keyvault"`
	// KeyVaultURL is the secret store endpoint, e.g. https://my-vault.vault.azure.net.
	KeyVaultURL string `envconfig:"KEY_VAULT_URL"`

	SecretCacheTTL           time.Duration `envconfig:"SECRET_CACHE_TTL" default:"5m"`
	SecretCachePruneInterval time.Duration `envconfig:"SECRET_CACHE_PRUNE_INTERVAL" default:"1m"`

	ResendAPIKey       string `envconfig:"RESEND_API_KEY"`
	ResendAPIKeySecret string `envconfig:"RESEND_API_KEY_SECRET"`

	GoogleCredentialsFile string `envconfig:"GOOGLE_CREDENTIALS_FILE"`
	GmailUser             string `envconfig:"GMAIL_USER"`

	// DeliveryTimeout bounds the single outbound delivery attempt.
	DeliveryTimeout time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"15s"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"formrelay"`
}

// Load reads AppConfig from environment variables using envconfig.
// It does not validate provider requirements; call Validate for that.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, &ConfigError{Problems: []string{err.Error()}}
	}
	c.MailProvider = strings.ToLower(strings.TrimSpace(c.MailProvider))
	return &c, nil
}

// Validate checks that every option required by the selected mail provider
// is present. All problems are reported at once.
func (c *AppConfig) Validate() error {
	var problems []string
	missing := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, fmt.Sprintf("%s is required", name))
		}
	}

	switch c.MailProvider {
	case ProviderSMTP:
		missing("SMTP_HOST", c.SMTPHost)
		missing("SMTP_USERNAME", c.SMTPUsername)
		missing("SMTP_PASSWORD", c.SMTPPassword)
		if c.MailTo == "" && c.MailToSecret == "" {
			problems = append(problems, "MAIL_TO or MAIL_TO_SECRET is required")
		}
		switch c.SMTPEncryption {
		case "none", "starttls", "ssl_tls":
		default:
			problems = append(problems, fmt.Sprintf("SMTP_ENCRYPTION %q is not one of none, starttls, ssl_tls", c.SMTPEncryption))
		}
	case ProviderGraph:
		if c.MailboxUPN == "" && c.MailFromSecret == "" {
			problems = append(problems, "MAILBOX_UPN or MAIL_FROM_SECRET is required")
		}
		if (c.AzureTenantID != "" || c.AzureClientSecret != "") && (c.AzureTenantID == "" || c.AzureClientSecret == "" || c.AzureClientID == "") {
			problems = append(problems, "AZURE_TENANT_ID, AZURE_CLIENT_ID and AZURE_CLIENT_SECRET must be set together")
		}
	case ProviderResend:
		if c.ResendAPIKey == "" && c.ResendAPIKeySecret == "" {
			problems = append(problems, "RESEND_API_KEY or RESEND_API_KEY_SECRET is required")
		}
		if c.MailFrom == "" && c.MailFromSecret == "" {
			problems = append(problems, "MAIL_FROM or MAIL_FROM_SECRET is required")
		}
		if c.MailTo == "" && c.MailToSecret == "" {
			problems = append(problems, "MAIL_TO or MAIL_TO_SECRET is required")
		}
	case ProviderGmail:
		missing("GOOGLE_CREDENTIALS_FILE", c.GoogleCredentialsFile)
		missing("GMAIL_USER", c.GmailUser)
		if c.MailTo == "" && c.MailToSecret == "" && c.GmailUser == "" {
			problems = append(problems, "MAIL_TO or MAIL_TO_SECRET is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("MAIL_PROVIDER %q is not one of smtp, graph, resend, gmail", c.MailProvider))
	}

	if c.UsesSecretStore() && c.SecretStore != SecretStoreEnv && c.KeyVaultURL == "" {
		problems = append(problems, "KEY_VAULT_URL is required when a *_SECRET option is set")
	}
	if c.SecretCacheTTL <= 0 {
		problems = append(problems, "SECRET_CACHE_TTL must be positive")
	}
	if c.DeliveryTimeout <= 0 {
		problems = append(problems, "DELIVERY_TIMEOUT must be positive")
	}
	if len(c.Origins()) == 0 {
		problems = append(problems, "ALLOWED_ORIGINS (or SWA_ORIGIN) is required")
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// UsesSecretStore reports whether any option is resolved through the secret store.
func (c *AppConfig) UsesSecretStore() bool {
	return c.MailFromSecret != "" || c.MailToSecret != "" || c.ResendAPIKeySecret != ""
}

// UsesClientSecret reports whether Azure identity should use the
// client-credentials flow rather than a managed identity.
func (c *AppConfig) UsesClientSecret() bool {
	return c.AzureTenantID != "" && c.AzureClientSecret != ""
}

// Origins returns the allowed CORS origins, trimmed and without empties.
func (c *AppConfig) Origins() []string {
	raw := c.AllowedOrigins
	if raw == "" {
		raw = c.SWAOrigin
	}
	var out []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Redacted returns a copy with every credential replaced by a mask, for display.
func (c *AppConfig) Redacted() AppConfig {
	out := *c
	for _, s := range []*string{&out.SMTPPassword, &out.AzureClientSecret, &out.ResendAPIKey, &out.SentryDSN} {
		if *s != "" {
			*s = maskedSecret
		}
	}
	return out
}

const maskedSecret = "***"
