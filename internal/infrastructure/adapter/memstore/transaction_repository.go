package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
)

// TransactionRepository is the in-memory ledger
type TransactionRepository struct {
	store *Store
}

// Create appends a copy of transaction to the ledger
func (r *TransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[transaction.LinkID]; !ok {
		return fmt.Errorf("%w: link %d does not exist", errs.ErrConstraintViolation, transaction.LinkID)
	}
	if _, exists := s.transactions[transaction.ID]; exists {
		return fmt.Errorf("%w: transaction id already exists", errs.ErrConstraintViolation)
	}

	key := idemKey{linkID: transaction.LinkID, key: transaction.IdempotencyKey}
	if transaction.IdempotencyKey != "" {
		if _, exists := s.byIdemKey[key]; exists {
			return errs.ErrDuplicateIdempotencyKey
		}
		s.byIdemKey[key] = transaction.ID
	}
	s.transactions[transaction.ID] = transaction.Clone()

	id, hasKey := transaction.ID, transaction.IdempotencyKey != ""
	s.record(ctx, func() {
		delete(s.transactions, id)
		if hasKey {
			delete(s.byIdemKey, key)
		}
	})
	return nil
}

// Finalize replaces a non-terminal row with the terminal transaction
func (r *TransactionRepository) Finalize(ctx context.Context, transaction *entity.Transaction) error {
	if !transaction.IsTerminal() {
		return fmt.Errorf("%w: finalize requires a terminal status, got %s", errs.ErrInvalidStatusTransition, transaction.Status)
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.transactions[transaction.ID]
	if !ok {
		return errs.ErrTransactionNotFound
	}
	if stored.IsTerminal() {
		return errs.ErrTransactionFinalized
	}

	s.transactions[transaction.ID] = transaction.Clone()
	id := transaction.ID
	s.record(ctx, func() { s.transactions[id] = stored })
	return nil
}

// GetByID returns a copy of the transaction
func (r *TransactionRepository) GetByID(_ context.Context, id string) (*entity.Transaction, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[id]
	if !ok {
		return nil, errs.ErrTransactionNotFound
	}
	return txn.Clone(), nil
}

// GetByIdempotencyKey returns the attempt made against linkID with key
func (r *TransactionRepository) GetByIdempotencyKey(_ context.Context, linkID uint64, key string) (*entity.Transaction, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byIdemKey[idemKey{linkID: linkID, key: key}]
	if !ok {
		return nil, errs.ErrTransactionNotFound
	}
	return s.transactions[id].Clone(), nil
}

// List returns a link's ledger newest first
func (r *TransactionRepository) List(_ context.Context, filter persistence.TransactionFilter, page persistence.Page) ([]*entity.Transaction, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*entity.Transaction, 0)
	for _, txn := range s.transactions {
		if txn.LinkID != filter.LinkID {
			continue
		}
		if filter.Status != "" && txn.Status != filter.Status {
			continue
		}
		matched = append(matched, txn)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start, end := window(len(matched), page)
	result := make([]*entity.Transaction, 0, end-start)
	for _, txn := range matched[start:end] {
		result = append(result, txn.Clone())
	}
	return result, total, nil
}

// FinalizeStale moves rows in status from, not updated since cutoff, to status to
func (r *TransactionRepository) FinalizeStale(ctx context.Context, from, to entity.TransactionStatus, reason entity.FailureReason, cutoff, now time.Time) (int64, error) {
	if !from.CanTransitionTo(to) {
		return 0, errs.NewTransitionError("*", string(from), string(to))
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for id, txn := range s.transactions {
		if txn.Status != from || !txn.UpdatedAt.Before(cutoff) {
			continue
		}
		resolved := txn.Clone()
		if err := resolved.ResolveStale(to, reason, now); err != nil {
			return changed, err
		}
		s.transactions[id] = resolved
		changed++

		id, before := id, txn
		s.record(ctx, func() { s.transactions[id] = before })
	}
	return changed, nil
}
