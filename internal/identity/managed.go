// Package identity acquires short-lived OAuth2 access tokens from the
// hosting platform's identity service. Every constructor returns an
// oauth2.TokenSource that reuses a token until shortly before it expires,
// so one source can be shared by all requests.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// GraphScope is the Microsoft Graph application scope.
const GraphScope = "https://graph.microsoft.com/.default"

const (
	imdsEndpoint         = "http://169.254.169.254/metadata/identity/oauth2/token"
	imdsAPIVersion       = "2018-02-01"
	appServiceAPIVersion = "2019-08-01"
	defaultHTTPTimeout   = 10 * time.Second
)

// ManagedIdentityOptions configures ManagedIdentityTokenSource.
type ManagedIdentityOptions struct {
	// ClientID selects a user-assigned identity. Empty means system-assigned.
	ClientID string
	// Endpoint and Header are the App Service identity endpoint and secret
	// header. When Endpoint is empty the VM instance metadata service is used.
	Endpoint string
	Header   string
	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client
}

// ManagedIdentityOptionsFromEnv fills Endpoint and Header from the
// IDENTITY_ENDPOINT and IDENTITY_HEADER variables App Service injects.
func ManagedIdentityOptionsFromEnv(clientID string) ManagedIdentityOptions {
	return ManagedIdentityOptions{
		ClientID: clientID,
		Endpoint: os.Getenv("IDENTITY_ENDPOINT"),
		Header:   os.Getenv("IDENTITY_HEADER"),
	}
}

// ManagedIdentityTokenSource returns a token source for scope backed by
// the platform managed identity.
func ManagedIdentityTokenSource(ctx context.Context, scope string, opts ManagedIdentityOptions) oauth2.TokenSource {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	src := &managedIdentitySource{
		ctx:      ctx,
		client:   client,
		resource: ScopeToResource(scope),
		opts:     opts,
	}
	return oauth2.ReuseTokenSource(nil, src)
}

// ScopeToResource converts a v2 ".default" scope into the v1 resource
// identifier managed identity endpoints expect.
func ScopeToResource(scope string) string {
	return strings.TrimSuffix(scope, "/.default")
}

type managedIdentitySource struct {
	ctx      context.Context
	client   *http.Client
	resource string
	opts     ManagedIdentityOptions
}

// msiToken is the response of both IMDS and the App Service endpoint.
// expires_on is a string on App Service and may be a number elsewhere.
type msiToken struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresOn   json.RawMessage `json:"expires_on"`
	ExpiresIn   json.RawMessage `json:"expires_in"`
}

func (s *managedIdentitySource) Token() (*oauth2.Token, error) {
	req, err := s.newRequest()
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("managed identity endpoint unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading managed identity response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &oauth2.RetrieveError{Response: resp, Body: body}
	}

	var tok msiToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decoding managed identity token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("managed identity returned an empty access token")
	}

	out := &oauth2.Token{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if on, ok := parseFlexInt(tok.ExpiresOn); ok {
		out.Expiry = time.Unix(on, 0)
	} else if in, ok := parseFlexInt(tok.ExpiresIn); ok {
		out.Expiry = time.Now().Add(time.Duration(in) * time.Second)
	}
	return out, nil
}

func (s *managedIdentitySource) newRequest() (*http.Request, error) {
	q := url.Values{}
	q.Set("resource", s.resource)
	if s.opts.ClientID != "" {
		q.Set("client_id", s.opts.ClientID)
	}

	endpoint := imdsEndpoint
	if s.opts.Endpoint != "" {
		endpoint = s.opts.Endpoint
		q.Set("api-version", appServiceAPIVersion)
	} else {
		q.Set("api-version", imdsAPIVersion)
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building managed identity request: %w", err)
	}
	if s.opts.Endpoint != "" {
		req.Header.Set("X-IDENTITY-HEADER", s.opts.Header)
	} else {
		req.Header.Set("Metadata", "true")
	}
	return req, nil
}

// parseFlexInt accepts 123 or "123".
func parseFlexInt(raw json.RawMessage) (int64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
