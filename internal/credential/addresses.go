package credential

import (
	"context"

	"github.com/shaharia-lab/formrelay/internal/contact"
)

// AddressSource is one address: a static value or the name of a secret
// holding it. Static wins when both are set.
type AddressSource struct {
	Static string
	Secret string
}

// AddressResolver resolves the sender and recipient of outbound messages.
type AddressResolver struct {
	secrets SecretGetter
	from    AddressSource
	to      AddressSource
}

// NewAddressResolver creates an AddressResolver. secrets may be nil when
// neither source names a secret.
func NewAddressResolver(secrets SecretGetter, from, to AddressSource) *AddressResolver {
	return &AddressResolver{secrets: secrets, from: from, to: to}
}

// Resolve returns both addresses. A secret that cannot be read yields a
// *SecretError.
func (r *AddressResolver) Resolve(ctx context.Context) (contact.Addresses, error) {
	from, err := r.resolve(ctx, r.from)
	if err != nil {
		return contact.Addresses{}, err
	}
	to, err := r.resolve(ctx, r.to)
	if err != nil {
		return contact.Addresses{}, err
	}
	return contact.Addresses{From: from, To: to}, nil
}

func (r *AddressResolver) resolve(ctx context.Context, src AddressSource) (string, error) {
	if src.Static != "" || src.Secret == "" {
		return src.Static, nil
	}
	if r.secrets == nil {
		return "", &SecretError{Name: src.Secret, Err: errNoSecretStore}
	}
	v, err := r.secrets.Get(ctx, src.Secret)
	if err != nil {
		return "", &SecretError{Name: src.Secret, Err: err}
	}
	return v, nil
}
