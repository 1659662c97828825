package service

import (
	"fmt"

	"github.com/shaharia-lab/formrelay/internal/contact"
)

// ValidationError is returned when the submission is malformed. It carries
// one entry per failing field.
type ValidationError = contact.ValidationError

// AuthError is returned when no credential could be obtained for the
// notifier, e.g. the identity service refused or was unreachable.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SecretFetchError is returned when the secret store could not supply a
// required secret.
type SecretFetchError struct {
	Name string
	Err  error
}

func (e *SecretFetchError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("fetching secret %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("fetching secret: %v", e.Err)
}

func (e *SecretFetchError) Unwrap() error { return e.Err }

// DeliveryError is returned when the outbound channel rejected or failed the
// single delivery attempt.
type DeliveryError struct {
	Provider string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery via %s failed: %v", e.Provider, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
