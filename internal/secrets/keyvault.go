package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shaharia-lab/formrelay/internal/build"
)

// KeyVaultScope is the OAuth2 scope for Azure Key Vault data-plane access.
const KeyVaultScope = "https://vault.azure.net/.default"

const keyVaultAPIVersion = "7.4"

// KeyVaultStore reads secrets from an Azure Key Vault over its REST API.
// The HTTP client must attach a bearer token for KeyVaultScope, e.g. one
// built with oauth2.NewClient.
type KeyVaultStore struct {
	vaultURL string
	client   *http.Client
}

// NewKeyVaultStore creates a KeyVaultStore for vaultURL.
func NewKeyVaultStore(vaultURL string, client *http.Client) *KeyVaultStore {
	return &KeyVaultStore{
		vaultURL: strings.TrimRight(vaultURL, "/"),
		client:   client,
	}
}

type keyVaultSecret struct {
	Value string `json:"value"`
}

// GetSecret fetches the latest version of the named secret.
func (s *KeyVaultStore) GetSecret(ctx context.Context, name string) (string, error) {
	u := fmt.Sprintf("%s/secrets/%s?api-version=%s", s.vaultURL, url.PathEscape(name), keyVaultAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("building key vault request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", build.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching secret %q: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("secret %q: %w", name, ErrSecretNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("fetching secret %q: key vault returned %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sec keyVaultSecret
	if err := json.NewDecoder(resp.Body).Decode(&sec); err != nil {
		return "", fmt.Errorf("decoding secret %q: %w", name, err)
	}
	if sec.Value == "" {
		return "", fmt.Errorf("secret %q: %w", name, ErrSecretNotFound)
	}
	return sec.Value, nil
}
