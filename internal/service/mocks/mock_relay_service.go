package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/service"
)

// MockRelayService is a mock implementation of service.RelayService.
type MockRelayService struct {
	mock.Mock
}

//nolint:revive
func (m *MockRelayService) Submit(ctx context.Context, req contact.ContactRequest) (service.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(service.Result), args.Error(1)
}

//nolint:revive
func (m *MockRelayService) TestNotification(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
