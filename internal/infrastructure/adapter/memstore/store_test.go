package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ persistence.Store                 = (*Store)(nil)
	_ persistence.LinkRepository        = (*LinkRepository)(nil)
	_ persistence.TransactionRepository = (*TransactionRepository)(nil)
	_ persistence.UnitOfWork            = (*UnitOfWork)(nil)
)

var baseTime = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func createLink(t *testing.T, s *Store, token string, maxUses *int) *entity.PaymentLink {
	t.Helper()
	link := &entity.PaymentLink{
		Token:     token,
		OwnerID:   "merchant-1",
		Amount:    decimal.RequireFromString("10.00"),
		Currency:  "USD",
		MaxUses:   maxUses,
		IsActive:  true,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	require.NoError(t, s.Links().Create(context.Background(), link))
	return link
}

func processingTx(id string, link *entity.PaymentLink, key string, at time.Time) *entity.Transaction {
	card := entity.Card{Number: "4242424242424242", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "123"}
	txn := entity.NewTransaction(id, link, entity.Payer{Email: "p@example.com", Name: "P"}, card, key, at)
	_ = txn.MarkProcessing(at)
	return txn
}

func TestLinkRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create assigns ids and rejects duplicate tokens", func(t *testing.T) {
		s := NewStore()
		first := createLink(t, s, "tok-1", nil)
		second := createLink(t, s, "tok-2", nil)

		assert.Equal(t, uint64(1), first.ID)
		assert.Equal(t, uint64(2), second.ID)

		err := s.Links().Create(ctx, &entity.PaymentLink{Token: "tok-1"})
		assert.ErrorIs(t, err, errs.ErrDuplicateLinkToken)
	})

	t.Run("Returned links are copies", func(t *testing.T) {
		s := NewStore()
		createLink(t, s, "tok", nil)

		got, err := s.Links().GetByToken(ctx, "tok")
		require.NoError(t, err)
		got.CurrentUses = 99

		again, err := s.Links().GetByToken(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, 0, again.CurrentUses)
	})

	t.Run("UpdateMetadata hides other owners' links", func(t *testing.T) {
		s := NewStore()
		createLink(t, s, "tok", nil)
		inactive := false

		_, err := s.Links().UpdateMetadata(ctx, "someone-else", "tok", entity.LinkMetadataUpdate{IsActive: &inactive}, baseTime)
		assert.ErrorIs(t, err, errs.ErrLinkNotFound)

		updated, err := s.Links().UpdateMetadata(ctx, "merchant-1", "tok", entity.LinkMetadataUpdate{IsActive: &inactive}, baseTime.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
	})

	t.Run("ListByOwner is newest first and paginated", func(t *testing.T) {
		s := NewStore()
		for i, token := range []string{"a", "b", "c"} {
			link := &entity.PaymentLink{Token: token, OwnerID: "m", Currency: "USD", IsActive: true, CreatedAt: baseTime.Add(time.Duration(i) * time.Minute)}
			require.NoError(t, s.Links().Create(ctx, link))
		}
		createLink(t, s, "other-owner", nil)

		links, total, err := s.Links().ListByOwner(ctx, "m", persistence.Page{Limit: 2, Offset: 0})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, links, 2)
		assert.Equal(t, "c", links[0].Token)
		assert.Equal(t, "b", links[1].Token)

		links, _, err = s.Links().ListByOwner(ctx, "m", persistence.Page{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "a", links[0].Token)
	})

	t.Run("ConsumeSlot never exceeds maxUses under contention", func(t *testing.T) {
		s := NewStore()
		maxUses := 3
		link := createLink(t, s, "tok", &maxUses)

		var wg sync.WaitGroup
		var granted atomic.Int32
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.Links().ConsumeSlot(ctx, link.ID, baseTime)
				assert.NoError(t, err)
				if ok {
					granted.Add(1)
				}
			}()
		}
		wg.Wait()

		stored, err := s.Links().GetByID(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(3), granted.Load())
		assert.Equal(t, 3, stored.CurrentUses)
	})
}

func TestUnitOfWork(t *testing.T) {
	ctx := context.Background()

	t.Run("Rollback undoes slot and finalize", func(t *testing.T) {
		// Arrange
		s := NewStore()
		maxUses := 1
		link := createLink(t, s, "tok", &maxUses)
		txn := processingTx("tx-1", link, "", baseTime)
		require.NoError(t, s.Transactions().Create(ctx, txn))

		// Act
		txCtx, err := s.UnitOfWork().Begin(ctx)
		require.NoError(t, err)
		ok, err := s.UnitOfWork().GetLinkRepository(txCtx).ConsumeSlot(txCtx, link.ID, baseTime)
		require.NoError(t, err)
		require.True(t, ok)
		done := txn.Clone()
		require.NoError(t, done.Complete(entity.AuthorizationDecision{Approved: true}, baseTime))
		require.NoError(t, s.UnitOfWork().GetTransactionRepository(txCtx).Finalize(txCtx, done))
		require.NoError(t, s.UnitOfWork().Rollback(txCtx))

		// Assert
		storedLink, _ := s.Links().GetByID(ctx, link.ID)
		storedTx, _ := s.Transactions().GetByID(ctx, "tx-1")
		assert.Equal(t, 0, storedLink.CurrentUses)
		assert.Equal(t, entity.StatusProcessing, storedTx.Status)
		assert.NoError(t, s.UnitOfWork().Rollback(txCtx), "second rollback is a no-op")
	})

	t.Run("Commit keeps writes", func(t *testing.T) {
		s := NewStore()
		link := createLink(t, s, "tok", nil)

		txCtx, err := s.UnitOfWork().Begin(ctx)
		require.NoError(t, err)
		_, err = s.UnitOfWork().GetLinkRepository(txCtx).ConsumeSlot(txCtx, link.ID, baseTime)
		require.NoError(t, err)
		require.NoError(t, s.UnitOfWork().Commit(txCtx))
		assert.NoError(t, s.UnitOfWork().Rollback(txCtx))

		stored, _ := s.Links().GetByID(ctx, link.ID)
		assert.Equal(t, 1, stored.CurrentUses)
	})
}

func TestTransactionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Idempotency key is unique per link", func(t *testing.T) {
		s := NewStore()
		link := createLink(t, s, "tok", nil)
		other := createLink(t, s, "tok-2", nil)

		require.NoError(t, s.Transactions().Create(ctx, processingTx("tx-1", link, "k", baseTime)))
		assert.ErrorIs(t, s.Transactions().Create(ctx, processingTx("tx-2", link, "k", baseTime)), errs.ErrDuplicateIdempotencyKey)
		assert.NoError(t, s.Transactions().Create(ctx, processingTx("tx-3", other, "k", baseTime)))

		found, err := s.Transactions().GetByIdempotencyKey(ctx, link.ID, "k")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", found.ID)
	})

	t.Run("Finalize is conditional on non-terminal status", func(t *testing.T) {
		s := NewStore()
		link := createLink(t, s, "tok", nil)
		txn := processingTx("tx-1", link, "", baseTime)
		require.NoError(t, s.Transactions().Create(ctx, txn))

		failed := txn.Clone()
		require.NoError(t, failed.Fail(entity.FailureCardDeclined, "05", "declined", baseTime))
		require.NoError(t, s.Transactions().Finalize(ctx, failed))

		completed := txn.Clone()
		require.NoError(t, completed.Complete(entity.AuthorizationDecision{Approved: true}, baseTime))
		assert.ErrorIs(t, s.Transactions().Finalize(ctx, completed), errs.ErrTransactionFinalized)

		assert.ErrorIs(t, s.Transactions().Finalize(ctx, txn), errs.ErrInvalidStatusTransition)
	})

	t.Run("FinalizeStale only touches old rows of the given status", func(t *testing.T) {
		s := NewStore()
		link := createLink(t, s, "tok", nil)
		require.NoError(t, s.Transactions().Create(ctx, processingTx("old", link, "", baseTime)))
		require.NoError(t, s.Transactions().Create(ctx, processingTx("fresh", link, "", baseTime.Add(10*time.Minute))))

		cutoff := baseTime.Add(5 * time.Minute)
		n, err := s.Transactions().FinalizeStale(ctx, entity.StatusProcessing, entity.StatusFailed, entity.FailureInternalError, cutoff, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		old, _ := s.Transactions().GetByID(ctx, "old")
		fresh, _ := s.Transactions().GetByID(ctx, "fresh")
		assert.Equal(t, entity.StatusFailed, old.Status)
		assert.Equal(t, entity.FailureInternalError, old.FailureReason)
		assert.Equal(t, entity.StatusProcessing, fresh.Status)
	})

	t.Run("List filters by status", func(t *testing.T) {
		s := NewStore()
		link := createLink(t, s, "tok", nil)
		txn := processingTx("tx-1", link, "", baseTime)
		require.NoError(t, s.Transactions().Create(ctx, txn))
		require.NoError(t, s.Transactions().Create(ctx, processingTx("tx-2", link, "", baseTime.Add(time.Second))))
		done := txn.Clone()
		require.NoError(t, done.Fail(entity.FailureCardDeclined, "", "", baseTime))
		require.NoError(t, s.Transactions().Finalize(ctx, done))

		all, total, err := s.Transactions().List(ctx, persistence.TransactionFilter{LinkID: link.ID}, persistence.Page{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, "tx-2", all[0].ID)

		failed, total, err := s.Transactions().List(ctx, persistence.TransactionFilter{LinkID: link.ID, Status: entity.StatusFailed}, persistence.Page{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "tx-1", failed[0].ID)
	})
}
