package transaction

import (
	"context"
	"testing"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/logger"
	mpers "github.com/amirhossein-jamali/paylink/mocks/port/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetTransaction(t *testing.T) {
	ctx := context.Background()
	owned := &entity.PaymentLink{ID: 3, Token: "tok", OwnerID: "merchant-1"}

	t.Run("Owner sees the attempt", func(t *testing.T) {
		// Arrange
		linkRepo := mpers.NewMockLinkRepository(t)
		txRepo := mpers.NewMockTransactionRepository(t)
		txRepo.On("GetByID", mock.Anything, "tx-1").Return(&entity.Transaction{ID: "tx-1", LinkID: 3, Status: entity.StatusCompleted}, nil)
		linkRepo.On("GetByID", mock.Anything, uint64(3)).Return(owned, nil)
		svc := NewTransactionService(linkRepo, txRepo, logger.NewNoopLogger())

		// Act
		txn, err := svc.GetTransaction(ctx, "merchant-1", "tx-1")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "tok", txn.LinkToken)
	})

	t.Run("Other owners get not found", func(t *testing.T) {
		linkRepo := mpers.NewMockLinkRepository(t)
		txRepo := mpers.NewMockTransactionRepository(t)
		txRepo.On("GetByID", mock.Anything, "tx-1").Return(&entity.Transaction{ID: "tx-1", LinkID: 3}, nil)
		linkRepo.On("GetByID", mock.Anything, uint64(3)).Return(owned, nil)
		svc := NewTransactionService(linkRepo, txRepo, logger.NewNoopLogger())

		_, err := svc.GetTransaction(ctx, "merchant-2", "tx-1")

		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)
	})

	t.Run("Unknown attempt", func(t *testing.T) {
		txRepo := mpers.NewMockTransactionRepository(t)
		txRepo.On("GetByID", mock.Anything, "nope").Return(nil, errs.ErrTransactionNotFound)
		svc := NewTransactionService(mpers.NewMockLinkRepository(t), txRepo, logger.NewNoopLogger())

		_, err := svc.GetTransaction(ctx, "merchant-1", "nope")

		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)
	})
}

func TestListLinkTransactions(t *testing.T) {
	ctx := context.Background()
	owned := &entity.PaymentLink{ID: 3, Token: "tok", OwnerID: "merchant-1"}

	t.Run("Filters by status with a clamped page", func(t *testing.T) {
		// Arrange
		linkRepo := mpers.NewMockLinkRepository(t)
		txRepo := mpers.NewMockTransactionRepository(t)
		linkRepo.On("GetByToken", mock.Anything, "tok").Return(owned, nil)
		filter := persistence.TransactionFilter{LinkID: 3, Status: entity.StatusFailed}
		page := persistence.Page{Limit: 100, Offset: 0}
		txRepo.On("List", mock.Anything, filter, page).Return([]*entity.Transaction{{ID: "tx-2", LinkID: 3}}, int64(1), nil)
		svc := NewTransactionService(linkRepo, txRepo, logger.NewNoopLogger())

		// Act
		list, err := svc.ListLinkTransactions(ctx, "merchant-1", "tok", entity.StatusFailed, persistence.Page{Limit: 500, Offset: -3})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(1), list.Total)
		assert.Equal(t, page, list.Page)
		require.Len(t, list.Transactions, 1)
		assert.Equal(t, "tok", list.Transactions[0].LinkToken)
	})

	t.Run("Other owners get not found", func(t *testing.T) {
		linkRepo := mpers.NewMockLinkRepository(t)
		linkRepo.On("GetByToken", mock.Anything, "tok").Return(owned, nil)
		svc := NewTransactionService(linkRepo, mpers.NewMockTransactionRepository(t), logger.NewNoopLogger())

		_, err := svc.ListLinkTransactions(ctx, "merchant-2", "tok", "", persistence.Page{})

		assert.ErrorIs(t, err, errs.ErrLinkNotFound)
	})
}
