package gateway

import (
	"context"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/gateway"
	"github.com/stretchr/testify/mock"
)

// MockAuthorizationGateway is a testify mock of gateway.AuthorizationGateway
type MockAuthorizationGateway struct {
	mock.Mock
}

// NewMockAuthorizationGateway creates a mock and registers expectation checks on cleanup
func NewMockAuthorizationGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAuthorizationGateway {
	m := &MockAuthorizationGateway{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuthorizationGateway) Authorize(ctx context.Context, request gateway.AuthorizationRequest) (entity.AuthorizationDecision, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(entity.AuthorizationDecision), args.Error(1)
}
