package memstore

import (
	"context"
	"sync"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
)

// Store keeps links and ledger entries in process memory. Every repository call is
// atomic under mu; units of work are serialized by txMu and undone from a journal on
// rollback. Reads outside a unit of work may observe uncommitted writes.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	links        map[uint64]*entity.PaymentLink
	linksByToken map[string]uint64
	nextLinkID   uint64

	transactions map[string]*entity.Transaction
	byIdemKey    map[idemKey]string

	linkRepo *LinkRepository
	txRepo   *TransactionRepository
	uow      *UnitOfWork
}

type idemKey struct {
	linkID uint64
	key    string
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	s := &Store{
		links:        make(map[uint64]*entity.PaymentLink),
		linksByToken: make(map[string]uint64),
		transactions: make(map[string]*entity.Transaction),
		byIdemKey:    make(map[idemKey]string),
	}
	s.linkRepo = &LinkRepository{store: s}
	s.txRepo = &TransactionRepository{store: s}
	s.uow = &UnitOfWork{store: s}
	return s
}

// UnitOfWork returns the store's unit of work
func (s *Store) UnitOfWork() persistence.UnitOfWork {
	return s.uow
}

// Links returns the link repository
func (s *Store) Links() persistence.LinkRepository {
	return s.linkRepo
}

// Transactions returns the transaction repository
func (s *Store) Transactions() persistence.TransactionRepository {
	return s.txRepo
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error {
	return nil
}

// record registers an undo step with the unit of work bound to ctx, if any.
// Callers hold s.mu.
func (s *Store) record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey).(*journal); ok && j != nil && !j.closed {
		j.undo = append(j.undo, undo)
	}
}
