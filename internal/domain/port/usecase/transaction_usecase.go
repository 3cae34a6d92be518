package usecase

import (
	"context"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
)

// TransactionList is one page of a link's ledger
type TransactionList struct {
	Transactions []*entity.Transaction
	Total        int64
	Page         persistence.Page
}

// TransactionUseCase defines owner-scoped ledger queries
type TransactionUseCase interface {
	// GetTransaction returns an attempt made against one of the owner's links
	GetTransaction(ctx context.Context, ownerID, transactionID string) (*entity.Transaction, error)

	// ListLinkTransactions returns the ledger of one of the owner's links, optionally filtered by status
	ListLinkTransactions(ctx context.Context, ownerID, token string, status entity.TransactionStatus, page persistence.Page) (*TransactionList, error)
}
