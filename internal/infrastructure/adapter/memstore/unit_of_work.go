package memstore

import (
	"context"
	"errors"

	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
)

type contextKey string

const journalKey contextKey = "memstore_tx"

type journal struct {
	undo   []func()
	closed bool
}

// UnitOfWork serializes units of work and rolls them back from an undo journal
type UnitOfWork struct {
	store *Store
}

// Begin takes the store's transaction lock and returns a context carrying a fresh journal
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if err := ctx.Err(); err != nil {
		return ctx, err
	}
	u.store.txMu.Lock()
	return context.WithValue(ctx, journalKey, &journal{}), nil
}

// Commit keeps the journaled writes and releases the lock
func (u *UnitOfWork) Commit(ctx context.Context) error {
	j, ok := ctx.Value(journalKey).(*journal)
	if !ok || j == nil {
		return errors.New("no transaction found in context")
	}
	if j.closed {
		return errors.New("transaction has already been committed or rolled back")
	}

	u.store.mu.Lock()
	j.closed = true
	j.undo = nil
	u.store.mu.Unlock()

	u.store.txMu.Unlock()
	return nil
}

// Rollback undoes the journaled writes in reverse order. Rolling back a finished unit is a no-op.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	j, ok := ctx.Value(journalKey).(*journal)
	if !ok || j == nil {
		return errors.New("no transaction found in context")
	}

	u.store.mu.Lock()
	if j.closed {
		u.store.mu.Unlock()
		return nil
	}
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.closed = true
	j.undo = nil
	u.store.mu.Unlock()

	u.store.txMu.Unlock()
	return nil
}

// GetLinkRepository returns the link repository; the journal travels in ctx
func (u *UnitOfWork) GetLinkRepository(context.Context) persistence.LinkRepository {
	return u.store.linkRepo
}

// GetTransactionRepository returns the transaction repository; the journal travels in ctx
func (u *UnitOfWork) GetTransactionRepository(context.Context) persistence.TransactionRepository {
	return u.store.txRepo
}
