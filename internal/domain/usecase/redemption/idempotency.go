package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
)

// IdempotencyHandler finds earlier attempts made with the same idempotency key
type IdempotencyHandler struct {
	transactionRepo persistence.TransactionRepository
}

// NewIdempotencyHandler creates a new IdempotencyHandler
func NewIdempotencyHandler(transactionRepo persistence.TransactionRepository) *IdempotencyHandler {
	return &IdempotencyHandler{
		transactionRepo: transactionRepo,
	}
}

// CheckIdempotency returns the attempt already made against linkID with key, if any.
// An earlier attempt still in flight is reported as ErrDuplicateIdempotencyKey.
func (h *IdempotencyHandler) CheckIdempotency(
	ctx context.Context,
	linkID uint64,
	key string,
) (*entity.Transaction, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	txn, err := h.transactionRepo.GetByIdempotencyKey(ctx, linkID, key)
	if err != nil {
		if errors.Is(err, errs.ErrTransactionNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}

	if !txn.IsTerminal() {
		return nil, true, fmt.Errorf("%w: attempt %s is still in progress", errs.ErrDuplicateIdempotencyKey, txn.ID)
	}

	return txn, true, nil
}
