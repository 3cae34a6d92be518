package persistence

import (
	"context"
)

// UnitOfWork coordinates repository calls that must commit or roll back together
type UnitOfWork interface {
	// Begin starts a new transaction and returns a transactional context
	Begin(ctx context.Context) (context.Context, error)

	// Commit commits the transaction in the given context
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction in the given context
	Rollback(ctx context.Context) error

	// GetLinkRepository returns a link repository bound to the current transaction
	GetLinkRepository(ctx context.Context) LinkRepository

	// GetTransactionRepository returns a transaction repository bound to the current transaction
	GetTransactionRepository(ctx context.Context) TransactionRepository
}

// Store exposes the repositories outside of any transaction plus the unit of work
type Store interface {
	UnitOfWork() UnitOfWork
	Links() LinkRepository
	Transactions() TransactionRepository
	Ping(ctx context.Context) error
}
