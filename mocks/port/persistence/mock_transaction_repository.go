package persistence

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/stretchr/testify/mock"
)

// MockTransactionRepository is a testify mock of persistence.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

// NewMockTransactionRepository creates a mock and registers expectation checks on cleanup
func NewMockTransactionRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTransactionRepository {
	m := &MockTransactionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	return m.Called(ctx, transaction).Error(0)
}

func (m *MockTransactionRepository) Finalize(ctx context.Context, transaction *entity.Transaction) error {
	return m.Called(ctx, transaction).Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	args := m.Called(ctx, id)
	tx, _ := args.Get(0).(*entity.Transaction)
	return tx, args.Error(1)
}

func (m *MockTransactionRepository) GetByIdempotencyKey(ctx context.Context, linkID uint64, key string) (*entity.Transaction, error) {
	args := m.Called(ctx, linkID, key)
	tx, _ := args.Get(0).(*entity.Transaction)
	return tx, args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, filter persistence.TransactionFilter, page persistence.Page) ([]*entity.Transaction, int64, error) {
	args := m.Called(ctx, filter, page)
	txs, _ := args.Get(0).([]*entity.Transaction)
	return txs, args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) FinalizeStale(ctx context.Context, from, to entity.TransactionStatus, reason entity.FailureReason, cutoff, now time.Time) (int64, error) {
	args := m.Called(ctx, from, to, reason, cutoff, now)
	return args.Get(0).(int64), args.Error(1)
}
