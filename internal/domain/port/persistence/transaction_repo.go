package persistence

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
)

// TransactionFilter narrows a ledger listing
type TransactionFilter struct {
	LinkID uint64
	Status entity.TransactionStatus // Empty means any status
}

// TransactionRepository defines essential methods to interact with the transaction ledger
type TransactionRepository interface {
	// Create appends a new ledger entry
	//
	// Possible errors:
	// - ErrDuplicateIdempotencyKey: If the link already has an attempt with the same idempotency key
	// - ErrConstraintViolation: If any other constraint is violated
	// - ErrDatabaseConnection: If database connection fails
	Create(ctx context.Context, transaction *entity.Transaction) error

	// Finalize writes a terminal outcome, but only if the stored row is still non-terminal.
	//
	// Possible errors:
	// - ErrTransactionFinalized: If the row already reached a terminal state
	// - ErrTransactionNotFound: If the row does not exist
	// - ErrDatabaseConnection: If database connection fails
	Finalize(ctx context.Context, transaction *entity.Transaction) error

	// GetByID retrieves a transaction by its identifier
	//
	// Possible errors:
	// - ErrTransactionNotFound: If transaction with the given ID doesn't exist
	// - ErrDatabaseConnection: If database connection fails
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)

	// GetByIdempotencyKey retrieves the attempt a client already made against a link with the given key
	//
	// Possible errors:
	// - ErrTransactionNotFound: If no attempt used the key
	// - ErrDatabaseConnection: If database connection fails
	GetByIdempotencyKey(ctx context.Context, linkID uint64, key string) (*entity.Transaction, error)

	// List returns the link's ledger entries newest first, and the total matching count
	List(ctx context.Context, filter TransactionFilter, page Page) ([]*entity.Transaction, int64, error)

	// FinalizeStale forces non-terminal rows in status from, last updated before cutoff,
	// into status to with the given failure reason. It returns the number of rows changed.
	FinalizeStale(ctx context.Context, from, to entity.TransactionStatus, reason entity.FailureReason, cutoff, now time.Time) (int64, error)
}
