package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/credential"
)

// MockAddressResolver is a mock implementation of service.AddressResolver.
type MockAddressResolver struct {
	mock.Mock
}

//nolint:revive
func (m *MockAddressResolver) Resolve(ctx context.Context) (contact.Addresses, error) {
	args := m.Called(ctx)
	return args.Get(0).(contact.Addresses), args.Error(1)
}

// MockCredentialProvider is a mock implementation of credential.Provider.
type MockCredentialProvider struct {
	mock.Mock
}

//nolint:revive
func (m *MockCredentialProvider) Credential(ctx context.Context) (credential.Credential, error) {
	args := m.Called(ctx)
	return args.Get(0).(credential.Credential), args.Error(1)
}

// MockNotifier is a mock implementation of notification.Provider.
type MockNotifier struct {
	mock.Mock
}

//nolint:revive
func (m *MockNotifier) Name() string {
	return "mock"
}

//nolint:revive
func (m *MockNotifier) Send(ctx context.Context, cred credential.Credential, msg contact.OutboundMessage) error {
	args := m.Called(ctx, cred, msg)
	return args.Error(0)
}
