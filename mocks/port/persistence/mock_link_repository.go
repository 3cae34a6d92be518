package persistence

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/stretchr/testify/mock"
)

// MockLinkRepository is a testify mock of persistence.LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

// NewMockLinkRepository creates a mock and registers expectation checks on cleanup
func NewMockLinkRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLinkRepository {
	m := &MockLinkRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockLinkRepository) Create(ctx context.Context, link *entity.PaymentLink) error {
	return m.Called(ctx, link).Error(0)
}

func (m *MockLinkRepository) GetByToken(ctx context.Context, token string) (*entity.PaymentLink, error) {
	args := m.Called(ctx, token)
	link, _ := args.Get(0).(*entity.PaymentLink)
	return link, args.Error(1)
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id uint64) (*entity.PaymentLink, error) {
	args := m.Called(ctx, id)
	link, _ := args.Get(0).(*entity.PaymentLink)
	return link, args.Error(1)
}

func (m *MockLinkRepository) ListByOwner(ctx context.Context, ownerID string, page persistence.Page) ([]*entity.PaymentLink, int64, error) {
	args := m.Called(ctx, ownerID, page)
	links, _ := args.Get(0).([]*entity.PaymentLink)
	return links, args.Get(1).(int64), args.Error(2)
}

func (m *MockLinkRepository) UpdateMetadata(ctx context.Context, ownerID, token string, update entity.LinkMetadataUpdate, now time.Time) (*entity.PaymentLink, error) {
	args := m.Called(ctx, ownerID, token, update, now)
	link, _ := args.Get(0).(*entity.PaymentLink)
	return link, args.Error(1)
}

func (m *MockLinkRepository) ConsumeSlot(ctx context.Context, linkID uint64, now time.Time) (bool, error) {
	args := m.Called(ctx, linkID, now)
	return args.Bool(0), args.Error(1)
}
