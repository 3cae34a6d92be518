package database

import (
	"context"

	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/repository"
)

type store struct {
	manager *Manager
	uow     persistence.UnitOfWork
	links   persistence.LinkRepository
	txs     persistence.TransactionRepository
}

func newStore(m *Manager) *store {
	return &store{
		manager: m,
		uow:     m.CreateUnitOfWork(),
		links:   repository.NewLinkRepository(m.db, m.logger),
		txs:     repository.NewTransactionRepository(m.db, m.logger),
	}
}

func (s *store) UnitOfWork() persistence.UnitOfWork {
	return s.uow
}

func (s *store) Links() persistence.LinkRepository {
	return s.links
}

func (s *store) Transactions() persistence.TransactionRepository {
	return s.txs
}

func (s *store) Ping(ctx context.Context) error {
	return s.manager.Ping(ctx)
}
