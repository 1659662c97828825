// Package secrets resolves named secret values from a remote secret store
// and caches them in memory for a bounded time.
package secrets

import (
	"context"
	"errors"
	"os"
	"strings"
)

// ErrSecretNotFound is returned when the store has no secret with the given name.
var ErrSecretNotFound = errors.New("secret not found")

// Store is the secret-store capability: fetch the latest value of a named secret.
type Store interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// EnvStore resolves secrets from the process environment. The secret name is
// upper-cased and dashes become underscores, so "contact-recipient" is read
// from CONTACT_RECIPIENT. Intended for local development.
type EnvStore struct {
	lookup func(string) (string, bool)
}

// NewEnvStore creates an EnvStore reading os.LookupEnv.
func NewEnvStore() *EnvStore {
	return &EnvStore{lookup: os.LookupEnv}
}

// GetSecret implements Store.
func (s *EnvStore) GetSecret(_ context.Context, name string) (string, error) {
	key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	v, ok := s.lookup(key)
	if !ok || v == "" {
		return "", ErrSecretNotFound
	}
	return v, nil
}
