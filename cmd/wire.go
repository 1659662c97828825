package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/shaharia-lab/formrelay/internal/build"
	"github.com/shaharia-lab/formrelay/internal/config"
	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/credential"
	"github.com/shaharia-lab/formrelay/internal/identity"
	"github.com/shaharia-lab/formrelay/internal/logger"
	"github.com/shaharia-lab/formrelay/internal/metrics"
	"github.com/shaharia-lab/formrelay/internal/notification"
	"github.com/shaharia-lab/formrelay/internal/secrets"
	"github.com/shaharia-lab/formrelay/internal/service"
	"github.com/shaharia-lab/formrelay/internal/telemetry"
)

const keyVaultTimeout = 10 * time.Second

// app is the assembled relay and the resources that must be released on exit.
type app struct {
	logger      *slog.Logger
	closeLogger func() error
	metrics     *metrics.Metrics
	telemetry   *telemetry.Provider
	// cache is nil when no option is resolved through the secret store.
	cache *secrets.Cache
	relay service.RelayService
}

// newApp validates cfg and builds every component of the relay.
func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, closeLogger, err := logger.New(logger.Options{
		Level:             cfg.SlogLevel(),
		Format:            cfg.LogFormat,
		File:              cfg.LogFile,
		SentryDSN:         cfg.SentryDSN,
		SentryEnvironment: cfg.SentryEnvironment,
		Release:           build.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	tp, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: build.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	}, log)
	if err != nil {
		_ = closeLogger()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	a := &app{
		logger:      log,
		closeLogger: closeLogger,
		metrics:     metrics.New(),
		telemetry:   tp,
	}

	a.cache = buildSecretCache(ctx, cfg, a.metrics)
	var getter credential.SecretGetter
	if a.cache != nil {
		getter = a.cache
	}

	creds, notifier, err := buildDelivery(ctx, cfg, getter)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.relay = service.NewRelayService(service.Deps{
		Validator:       contact.NewValidator(),
		Addresses:       buildAddresses(cfg, getter),
		Credentials:     creds,
		Notifier:        notifier,
		Metrics:         a.metrics,
		Tracer:          tp.Tracer(),
		Logger:          log,
		DeliveryTimeout: cfg.DeliveryTimeout,
	})

	log.Info("relay configured",
		slog.String("provider", notifier.Name()),
		slog.Bool("secret_store", a.cache != nil),
		slog.String("version", build.Version),
	)
	return a, nil
}

// Close flushes traces and logs.
func (a *app) Close(ctx context.Context) {
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("flushing traces", "error", err)
	}
	_ = a.closeLogger()
}

// azureTokenSource authenticates as the app registration when a client
// secret is configured, otherwise as the platform managed identity.
func azureTokenSource(ctx context.Context, cfg *config.AppConfig, scope string) oauth2.TokenSource {
	if cfg.UsesClientSecret() {
		cc := identity.ClientCredentials{
			TenantID:     cfg.AzureTenantID,
			ClientID:     cfg.AzureClientID,
			ClientSecret: cfg.AzureClientSecret,
		}
		return cc.TokenSource(ctx, scope)
	}
	return identity.ManagedIdentityTokenSource(ctx, scope, identity.ManagedIdentityOptionsFromEnv(cfg.AzureClientID))
}

// buildSecretCache returns nil when no option names a secret.
func buildSecretCache(ctx context.Context, cfg *config.AppConfig, m *metrics.Metrics) *secrets.Cache {
	if !cfg.UsesSecretStore() {
		return nil
	}

	var store secrets.Store
	if cfg.SecretStore == config.SecretStoreEnv {
		store = secrets.NewEnvStore()
	} else {
		client := oauth2.NewClient(ctx, azureTokenSource(ctx, cfg, secrets.KeyVaultScope))
		client.Timeout = keyVaultTimeout
		store = secrets.NewKeyVaultStore(cfg.KeyVaultURL, client)
	}

	return secrets.NewCache(store,
		secrets.WithTTL(cfg.SecretCacheTTL),
		secrets.WithObserver(m.CacheLookup),
	)
}

// buildAddresses picks the sender and recipient sources for the provider.
func buildAddresses(cfg *config.AppConfig, getter credential.SecretGetter) *credential.AddressResolver {
	from := credential.AddressSource{Static: cfg.MailFrom, Secret: cfg.MailFromSecret}
	to := credential.AddressSource{Static: cfg.MailTo, Secret: cfg.MailToSecret}

	// Graph and Gmail send as a mailbox, which is also the default recipient.
	var mailbox string
	switch cfg.MailProvider {
	case config.ProviderGraph:
		mailbox = cfg.MailboxUPN
	case config.ProviderGmail:
		mailbox = cfg.GmailUser
	default:
		return credential.NewAddressResolver(getter, from, to)
	}
	if mailbox != "" {
		from = credential.AddressSource{Static: mailbox}
	}
	if to.Static == "" && to.Secret == "" {
		to = from
	}
	return credential.NewAddressResolver(getter, from, to)
}

func resendConfig(cfg *config.AppConfig) notification.ResendConfig {
	return notification.ResendConfig{
		SenderName: cfg.MailFromName,
		HTTPClient: &http.Client{Timeout: cfg.DeliveryTimeout},
	}
}

// buildDelivery returns the credential provider and notifier for the
// configured mail provider.
func buildDelivery(ctx context.Context, cfg *config.AppConfig, getter credential.SecretGetter) (credential.Provider, notification.Provider, error) {
	switch cfg.MailProvider {
	case config.ProviderSMTP:
		creds, err := credential.NewStatic(cfg.SMTPUsername, cfg.SMTPPassword)
		if err != nil {
			return nil, nil, &config.ConfigError{Problems: []string{err.Error()}}
		}
		return creds, notification.NewSMTPProvider(notification.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Encryption: cfg.SMTPEncryption,
			Timeout:    cfg.DeliveryTimeout,
		}), nil

	case config.ProviderGraph:
		creds := credential.NewBearer(azureTokenSource(ctx, cfg, identity.GraphScope))
		return creds, notification.NewGraphProvider(notification.GraphConfig{
			Timeout:         cfg.DeliveryTimeout,
			SaveToSentItems: true,
		}), nil

	case config.ProviderResend:
		notifier := notification.NewResendProvider(resendConfig(cfg))
		if cfg.ResendAPIKey != "" {
			creds, err := credential.NewStatic("", cfg.ResendAPIKey)
			if err != nil {
				return nil, nil, &config.ConfigError{Problems: []string{err.Error()}}
			}
			return creds, notifier, nil
		}
		if getter == nil {
			return nil, nil, &config.ConfigError{Problems: []string{"RESEND_API_KEY_SECRET needs a secret store"}}
		}
		return credential.NewSecretBacked(getter, cfg.ResendAPIKeySecret), notifier, nil

	case config.ProviderGmail:
		key, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, nil, &config.ConfigError{Problems: []string{fmt.Sprintf("reading GOOGLE_CREDENTIALS_FILE: %v", err)}}
		}
		ts, err := identity.GoogleServiceAccountTokenSource(ctx, key, cfg.GmailUser, identity.GmailSendScope)
		if err != nil {
			return nil, nil, &config.ConfigError{Problems: []string{err.Error()}}
		}
		return credential.NewBearer(ts), notification.NewGmailProvider(notification.GmailConfig{
			User:       cfg.GmailUser,
			HTTPClient: &http.Client{Timeout: cfg.DeliveryTimeout},
		}), nil
	}
	return nil, nil, &config.ConfigError{Problems: []string{fmt.Sprintf("unsupported MAIL_PROVIDER %q", cfg.MailProvider)}}
}
