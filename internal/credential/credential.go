// Package credential produces the authentication material the notifier
// needs, either a fixed secret or a short-lived bearer token, and resolves
// the auxiliary addressing secrets.
package credential

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// Credential is the resolved authentication material for one delivery.
// Static modes fill Username/Password; token modes fill Token.
type Credential struct {
	Username string
	Password string
	Token    *oauth2.Token
}

// Bearer returns the access token, or the password when the credential is a
// static API key.
func (c Credential) Bearer() string {
	if c.Token != nil {
		return c.Token.AccessToken
	}
	return c.Password
}

// Provider produces a valid credential on demand.
type Provider interface {
	Credential(ctx context.Context) (Credential, error)
}

// SecretGetter reads named secrets, normally a *secrets.Cache.
type SecretGetter interface {
	Get(ctx context.Context, name string) (string, error)
}

// SecretError reports that a secret could not be read from the secret store.
type SecretError struct {
	Name string
	Err  error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("resolving secret %q: %v", e.Name, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// Static is a fixed username/password (or API key) read from configuration.
type Static struct {
	cred Credential
}

// NewStatic creates a static-secret provider. An empty password is a
// configuration error.
func NewStatic(username, password string) (*Static, error) {
	if password == "" {
		return nil, errors.New("static credential requires a password or API key")
	}
	return &Static{cred: Credential{Username: username, Password: password}}, nil
}

// Credential implements Provider.
func (s *Static) Credential(context.Context) (Credential, error) {
	return s.cred, nil
}

// SecretBacked is a static API key kept in the secret store and read
// through the cache on every use.
type SecretBacked struct {
	secrets SecretGetter
	name    string
}

// NewSecretBacked creates a provider reading the secret name.
func NewSecretBacked(secrets SecretGetter, name string) *SecretBacked {
	return &SecretBacked{secrets: secrets, name: name}
}

// Credential implements Provider.
func (s *SecretBacked) Credential(ctx context.Context) (Credential, error) {
	v, err := s.secrets.Get(ctx, s.name)
	if err != nil {
		return Credential{}, &SecretError{Name: s.name, Err: err}
	}
	return Credential{Password: v}, nil
}

// Bearer obtains access tokens from an identity token source.
type Bearer struct {
	source oauth2.TokenSource
}

// NewBearer creates a token-mode provider. The token source should reuse
// tokens (see package identity) since it is shared by all requests.
func NewBearer(source oauth2.TokenSource) *Bearer {
	return &Bearer{source: source}
}

// Credential implements Provider.
func (b *Bearer) Credential(context.Context) (Credential, error) {
	tok, err := b.source.Token()
	if err != nil {
		return Credential{}, fmt.Errorf("acquiring access token: %w", err)
	}
	if !tok.Valid() {
		return Credential{}, errors.New("identity service returned an invalid token")
	}
	return Credential{Token: tok}, nil
}

var errNoSecretStore = errors.New("no secret store configured")
