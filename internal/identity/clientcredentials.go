package identity

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/google"
)

const defaultAuthorityHost = "https://login.microsoftonline.com"

// ClientCredentials is an Entra ID app registration used when no managed
// identity is available, e.g. outside Azure.
type ClientCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// AuthorityHost defaults to https://login.microsoftonline.com.
	AuthorityHost string
}

// TokenURL returns the v2 token endpoint of the tenant.
func (c ClientCredentials) TokenURL() string {
	host := c.AuthorityHost
	if host == "" {
		host = defaultAuthorityHost
	}
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(host, "/"), c.TenantID)
}

// TokenSource returns a reusing token source for scope.
func (c ClientCredentials) TokenSource(ctx context.Context, scope string) oauth2.TokenSource {
	cfg := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL(),
		Scopes:       []string{scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return cfg.TokenSource(ctx)
}

// GmailSendScope allows sending mail only.
const GmailSendScope = "https://www.googleapis.com/auth/gmail.send"

// GoogleServiceAccountTokenSource returns a token source for a Google
// service account impersonating subject through domain-wide delegation.
func GoogleServiceAccountTokenSource(ctx context.Context, jsonKey []byte, subject string, scopes ...string) (oauth2.TokenSource, error) {
	cfg, err := google.JWTConfigFromJSON(jsonKey, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}
	cfg.Subject = subject
	return cfg.TokenSource(ctx), nil
}
