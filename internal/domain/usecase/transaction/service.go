package transaction

import (
	"context"
	"errors"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/paylink/internal/domain/usecase/link"
)

// Service answers owner-scoped questions about the ledger
type Service struct {
	linkRepo persistence.LinkRepository
	txRepo   persistence.TransactionRepository
	logger   coreport.Logger
}

// NewTransactionService creates a new transaction query service
func NewTransactionService(
	linkRepo persistence.LinkRepository,
	txRepo persistence.TransactionRepository,
	logger coreport.Logger,
) *Service {
	return &Service{
		linkRepo: linkRepo,
		txRepo:   txRepo,
		logger:   logger,
	}
}

// GetTransaction returns an attempt made against one of the owner's links.
// Attempts on other owners' links are reported as not found.
func (s *Service) GetTransaction(ctx context.Context, ownerID, transactionID string) (*entity.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	owner, err := s.linkRepo.GetByID(ctx, txn.LinkID)
	if err != nil {
		if errors.Is(err, errs.ErrLinkNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		return nil, err
	}
	if !owner.IsOwnedBy(ownerID) {
		s.logger.Debug("Transaction lookup by non-owner", map[string]any{
			"transaction_id": transactionID,
			"owner_id":       ownerID,
		})
		return nil, errs.ErrTransactionNotFound
	}

	txn.LinkToken = owner.Token
	return txn, nil
}

// ListLinkTransactions returns the ledger of one of the owner's links, newest first
func (s *Service) ListLinkTransactions(
	ctx context.Context,
	ownerID, token string,
	status entity.TransactionStatus,
	page persistence.Page,
) (*usecase.TransactionList, error) {
	paymentLink, err := s.linkRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !paymentLink.IsOwnedBy(ownerID) {
		return nil, errs.ErrLinkNotFound
	}

	page = link.NormalizePage(page)
	txns, total, err := s.txRepo.List(ctx, persistence.TransactionFilter{
		LinkID: paymentLink.ID,
		Status: status,
	}, page)
	if err != nil {
		return nil, err
	}

	for _, txn := range txns {
		txn.LinkToken = paymentLink.Token
	}

	return &usecase.TransactionList{
		Transactions: txns,
		Total:        total,
		Page:         page,
	}, nil
}
