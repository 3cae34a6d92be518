package redemption

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/gateway"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/metrics"
	mgateway "github.com/amirhossein-jamali/paylink/mocks/port/gateway"
	mpers "github.com/amirhossein-jamali/paylink/mocks/port/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const txKey contextKey = "tx"

type fixture struct {
	linkRepo *mpers.MockLinkRepository
	txRepo   *mpers.MockTransactionRepository
	uow      *mpers.MockUnitOfWork
	gateway  *mgateway.MockAuthorizationGateway
	clock    *fakeClock
	coord    *Coordinator
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		linkRepo: mpers.NewMockLinkRepository(t),
		txRepo:   mpers.NewMockTransactionRepository(t),
		uow:      mpers.NewMockUnitOfWork(t),
		gateway:  mgateway.NewMockAuthorizationGateway(t),
		clock:    newFakeClock(testNow),
	}
	cfg := DefaultConfig()
	cfg.GatewayTimeout = 50 * time.Millisecond
	cfg.Retry = RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	f.coord = NewCoordinator(f.linkRepo, f.txRepo, f.uow, f.gateway, &sequenceIDs{}, f.clock, logger.NewNoopLogger(), metrics.NewNoopMetrics(), cfg)
	return f
}

// expectFinalizeUnit wires a unit of work whose repositories are the fixture mocks
func (f *fixture) expectFinalizeUnit(ctx context.Context) context.Context {
	txCtx := context.WithValue(ctx, txKey, "tx")
	f.uow.On("Begin", mock.Anything).Return(txCtx, nil)
	f.uow.On("GetLinkRepository", txCtx).Return(f.linkRepo)
	f.uow.On("GetTransactionRepository", txCtx).Return(f.txRepo)
	return txCtx
}

func withStatus(status entity.TransactionStatus, reason entity.FailureReason) any {
	return mock.MatchedBy(func(tx *entity.Transaction) bool {
		return tx.Status == status && tx.FailureReason == reason && tx.ProcessedAt != nil
	})
}

func redeemInput() usecase.RedeemInput {
	return usecase.RedeemInput{LinkToken: "tok", Payer: payer, Card: validCard}
}

func TestRedeemRejectionsBeforePersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown token", func(t *testing.T) {
		f := newFixture(t)
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(nil, errs.ErrLinkNotFound)

		out, err := f.coord.Redeem(ctx, redeemInput())

		assert.Nil(t, out)
		assert.ErrorIs(t, err, errs.ErrLinkNotFound)
	})

	t.Run("Empty token", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.coord.Redeem(ctx, usecase.RedeemInput{LinkToken: "  "})

		assert.ErrorIs(t, err, errs.ErrLinkNotFound)
	})

	tests := []struct {
		name     string
		link     func() *entity.PaymentLink
		expected error
	}{
		{
			name: "Inactive",
			link: func() *entity.PaymentLink {
				l := activeLink(nil)
				l.IsActive = false
				return l
			},
			expected: errs.ErrLinkInactive,
		},
		{
			name: "Expired exactly now",
			link: func() *entity.PaymentLink {
				l := activeLink(nil)
				expiresAt := testNow
				l.ExpiresAt = &expiresAt
				return l
			},
			expected: errs.ErrLinkExpired,
		},
		{
			name: "Exhausted",
			link: func() *entity.PaymentLink {
				l := activeLink(intPtr(2))
				l.CurrentUses = 2
				return l
			},
			expected: errs.ErrLinkExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t)
			f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(tt.link(), nil)

			// Act
			out, err := f.coord.Redeem(ctx, redeemInput())

			// Assert
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.expected)
			f.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.gateway.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
		})
	}

	t.Run("Validation lists every bad field", func(t *testing.T) {
		f := newFixture(t)
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(activeLink(nil), nil)
		input := usecase.RedeemInput{
			LinkToken: "tok",
			Payer:     entity.Payer{Email: "nope"},
			Card:      entity.Card{Number: "12", ExpiryMonth: 1, ExpiryYear: 2020, CVV: "1"},
		}

		_, err := f.coord.Redeem(ctx, input)

		var vErr *errs.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, []string{"payer.name", "payer.email", "card.number", "card.cvv", "card.expiry"}, vErr.FieldNames())
		f.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Ledger insert failure is returned", func(t *testing.T) {
		f := newFixture(t)
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(activeLink(nil), nil)
		f.txRepo.On("Create", mock.Anything, mock.Anything).Return(errs.ErrDatabaseConnection)

		_, err := f.coord.Redeem(ctx, redeemInput())

		assert.ErrorIs(t, err, errs.ErrDatabaseConnection)
		f.gateway.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
	})
}

func TestRedeemApproved(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t)
	link := activeLink(intPtr(5))
	f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(link, nil)
	f.txRepo.On("Create", mock.Anything, mock.MatchedBy(func(tx *entity.Transaction) bool {
		return tx.Status == entity.StatusProcessing && tx.Amount.Equal(link.Amount) && tx.PaymentMethod.Last4 == "4242"
	})).Return(nil)
	f.gateway.On("Authorize", mock.Anything, mock.MatchedBy(func(req gateway.AuthorizationRequest) bool {
		return req.TransactionID == "tx-1" && req.Currency == "USD" && req.Card.Number == validCard.Number
	})).Return(approve(), nil)
	txCtx := f.expectFinalizeUnit(ctx)
	f.linkRepo.On("ConsumeSlot", txCtx, link.ID, testNow).Return(true, nil)
	f.txRepo.On("Finalize", txCtx, withStatus(entity.StatusCompleted, entity.FailureNone)).Return(nil)
	f.uow.On("Commit", txCtx).Return(nil)

	// Act
	out, err := f.coord.Redeem(ctx, redeemInput())

	// Assert
	require.NoError(t, err)
	assert.False(t, out.Replayed)
	assert.Equal(t, entity.StatusCompleted, out.Transaction.Status)
	assert.Equal(t, "00", out.Transaction.GatewayResponseCode)
	f.uow.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestRedeemDeclines(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		gatewayResult  entity.AuthorizationDecision
		gatewayErr     error
		expectedReason entity.FailureReason
	}{
		{
			name:           "Gateway declines",
			gatewayResult:  entity.AuthorizationDecision{ResponseCode: "51", ResponseMessage: "insufficient funds", FailureReason: entity.FailureInsufficientFunds},
			expectedReason: entity.FailureInsufficientFunds,
		},
		{
			name:           "Decline without reason defaults to card_declined",
			gatewayResult:  entity.AuthorizationDecision{ResponseCode: "05"},
			expectedReason: entity.FailureCardDeclined,
		},
		{
			name:           "Coordinator-owned reason becomes card_declined",
			gatewayResult:  entity.AuthorizationDecision{ResponseCode: "05", FailureReason: entity.FailureLinkExhaustedConcurrently},
			expectedReason: entity.FailureCardDeclined,
		},
		{
			name:           "Timeout is a decline",
			gatewayErr:     context.DeadlineExceeded,
			expectedReason: entity.FailureGatewayTimeout,
		},
		{
			name:           "Unreachable gateway is a decline",
			gatewayErr:     errors.New("connection refused"),
			expectedReason: entity.FailureGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t)
			f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(activeLink(intPtr(1)), nil)
			f.txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
			f.gateway.On("Authorize", mock.Anything, mock.Anything).Return(tt.gatewayResult, tt.gatewayErr)
			f.txRepo.On("Finalize", mock.Anything, withStatus(entity.StatusFailed, tt.expectedReason)).Return(nil)

			// Act
			out, err := f.coord.Redeem(ctx, redeemInput())

			// Assert
			require.NoError(t, err)
			assert.Equal(t, entity.StatusFailed, out.Transaction.Status)
			assert.Equal(t, tt.expectedReason, out.Transaction.FailureReason)
			f.linkRepo.AssertNotCalled(t, "ConsumeSlot", mock.Anything, mock.Anything, mock.Anything)
			f.uow.AssertNotCalled(t, "Begin", mock.Anything)
		})
	}

	t.Run("Slow gateway hits the timeout", func(t *testing.T) {
		f := newFixture(t)
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(activeLink(nil), nil)
		f.txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.coord.gateway = funcGateway(func(ctx context.Context, _ gateway.AuthorizationRequest) (entity.AuthorizationDecision, error) {
			<-ctx.Done()
			return entity.AuthorizationDecision{}, ctx.Err()
		})
		f.txRepo.On("Finalize", mock.Anything, withStatus(entity.StatusFailed, entity.FailureGatewayTimeout)).Return(nil)

		out, err := f.coord.Redeem(ctx, redeemInput())

		require.NoError(t, err)
		assert.Equal(t, entity.FailureGatewayTimeout, out.Transaction.FailureReason)
	})

	t.Run("Late approval from a gateway ignoring ctx is dropped", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(activeLink(intPtr(1)), nil)
		f.txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		release := make(chan struct{})
		answered := make(chan struct{})
		t.Cleanup(func() {
			close(release)
			<-answered
		})
		f.coord.gateway = funcGateway(func(context.Context, gateway.AuthorizationRequest) (entity.AuthorizationDecision, error) {
			defer close(answered)
			<-release
			return approve(), nil
		})
		f.txRepo.On("Finalize", mock.Anything, withStatus(entity.StatusFailed, entity.FailureGatewayTimeout)).Return(nil)

		// Act
		started := time.Now()
		out, err := f.coord.Redeem(ctx, redeemInput())

		// Assert
		require.NoError(t, err)
		assert.Less(t, time.Since(started), 5*time.Second)
		assert.Equal(t, entity.StatusFailed, out.Transaction.Status)
		assert.Equal(t, entity.FailureGatewayTimeout, out.Transaction.FailureReason)
		f.linkRepo.AssertNotCalled(t, "ConsumeSlot", mock.Anything, mock.Anything, mock.Anything)
		f.uow.AssertNotCalled(t, "Begin", mock.Anything)
	})
}

func TestRedeemLosesSlotRace(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t)
	link := activeLink(intPtr(1))
	f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(link, nil)
	f.txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("Authorize", mock.Anything, mock.Anything).Return(approve(), nil)
	txCtx := f.expectFinalizeUnit(ctx)
	f.linkRepo.On("ConsumeSlot", txCtx, link.ID, testNow).Return(false, nil)
	f.txRepo.On("Finalize", txCtx, withStatus(entity.StatusFailed, entity.FailureLinkExhaustedConcurrently)).Return(nil)
	f.uow.On("Commit", txCtx).Return(nil)

	// Act
	out, err := f.coord.Redeem(ctx, redeemInput())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailed, out.Transaction.Status)
	assert.Equal(t, entity.FailureLinkExhaustedConcurrently, out.Transaction.FailureReason)
}

func TestRedeemFinalizeRetries(t *testing.T) {
	ctx := context.Background()

	t.Run("Transient fault is retried", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		link := activeLink(nil)
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(link, nil)
		f.txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.gateway.On("Authorize", mock.Anything, mock.Anything).Return(approve(), nil)
		txCtx := f.expectFinalizeUnit(ctx)
		f.linkRepo.On("ConsumeSlot", txCtx, link.ID, testNow).Return(false, errs.ErrDatabaseConnection).Once()
		f.linkRepo.On("ConsumeSlot", txCtx, link.ID, testNow).Return(true, nil).Once()
		f.uow.On("Rollback", txCtx).Return(nil).Once()
		f.txRepo.On("Finalize", txCtx, withStatus(entity.StatusCompleted, entity.FailureNone)).Return(nil)
		f.uow.On("Commit", txCtx).Return(nil)

		// Act
		out, err := f.coord.Redeem(ctx, redeemInput())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCompleted, out.Transaction.Status)
		assert.Len(t, f.clock.sleeps, 1)
	})

	t.Run("Exhausted retries force InternalError", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		link := activeLink(nil)
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(link, nil)
		f.txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.gateway.On("Authorize", mock.Anything, mock.Anything).Return(approve(), nil)
		f.uow.On("Begin", mock.Anything).Return(nil, errs.ErrDatabaseConnection).Times(3)
		f.txRepo.On("Finalize", mock.Anything, withStatus(entity.StatusFailed, entity.FailureInternalError)).Return(nil).Once()

		// Act
		out, err := f.coord.Redeem(ctx, redeemInput())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFailed, out.Transaction.Status)
		assert.Equal(t, entity.FailureInternalError, out.Transaction.FailureReason)
	})

	t.Run("Row finalized elsewhere returns the stored outcome", func(t *testing.T) {
		f := newFixture(t)
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(activeLink(nil), nil)
		f.txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.gateway.On("Authorize", mock.Anything, mock.Anything).Return(entity.AuthorizationDecision{FailureReason: entity.FailureCardDeclined}, nil)
		f.txRepo.On("Finalize", mock.Anything, mock.Anything).Return(errs.ErrTransactionFinalized)
		stored := &entity.Transaction{ID: "tx-1", Status: entity.StatusFailed, FailureReason: entity.FailureInternalError}
		f.txRepo.On("GetByID", mock.Anything, "tx-1").Return(stored, nil)

		out, err := f.coord.Redeem(ctx, redeemInput())

		require.NoError(t, err)
		assert.Same(t, stored, out.Transaction)
	})
}

func TestRedeemIdempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("Replays a finished attempt", func(t *testing.T) {
		f := newFixture(t)
		link := activeLink(intPtr(1))
		link.CurrentUses = 1
		previous := &entity.Transaction{ID: "tx-9", LinkID: link.ID, Status: entity.StatusCompleted}
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(link, nil)
		f.txRepo.On("GetByIdempotencyKey", mock.Anything, link.ID, "key-1").Return(previous, nil)
		input := redeemInput()
		input.IdempotencyKey = " key-1 "

		out, err := f.coord.Redeem(ctx, input)

		require.NoError(t, err)
		assert.True(t, out.Replayed)
		assert.Same(t, previous, out.Transaction)
	})

	t.Run("In-flight attempt is a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(activeLink(nil), nil)
		f.txRepo.On("GetByIdempotencyKey", mock.Anything, uint64(1), "key-1").
			Return(&entity.Transaction{ID: "tx-9", Status: entity.StatusProcessing}, nil)
		input := redeemInput()
		input.IdempotencyKey = "key-1"

		_, err := f.coord.Redeem(ctx, input)

		assert.ErrorIs(t, err, errs.ErrDuplicateIdempotencyKey)
	})

	t.Run("Insert race on the same key replays the winner", func(t *testing.T) {
		f := newFixture(t)
		winner := &entity.Transaction{ID: "tx-0", Status: entity.StatusFailed, FailureReason: entity.FailureCardDeclined}
		f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(activeLink(nil), nil)
		f.txRepo.On("GetByIdempotencyKey", mock.Anything, uint64(1), "key-1").Return(nil, errs.ErrTransactionNotFound).Once()
		f.txRepo.On("Create", mock.Anything, mock.Anything).Return(errs.ErrDuplicateIdempotencyKey)
		f.txRepo.On("GetByIdempotencyKey", mock.Anything, uint64(1), "key-1").Return(winner, nil).Once()
		input := redeemInput()
		input.IdempotencyKey = "key-1"

		out, err := f.coord.Redeem(ctx, input)

		require.NoError(t, err)
		assert.True(t, out.Replayed)
		assert.Same(t, winner, out.Transaction)
		f.gateway.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
	})
}

func TestRedeemSurvivesCallerCancellation(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t)
	f.linkRepo.On("GetByToken", mock.Anything, "tok").Return(activeLink(nil), nil)
	f.txRepo.On("Create", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel() // client disconnects right after the ledger entry
	}).Return(nil)
	f.gateway.On("Authorize", mock.MatchedBy(func(gwCtx context.Context) bool {
		return gwCtx.Err() == nil
	}), mock.Anything).Return(entity.AuthorizationDecision{FailureReason: entity.FailureExpiredCard}, nil)
	f.txRepo.On("Finalize", mock.MatchedBy(func(c context.Context) bool {
		return c.Err() == nil
	}), withStatus(entity.StatusFailed, entity.FailureExpiredCard)).Return(nil)

	// Act
	out, err := f.coord.Redeem(ctx, redeemInput())

	// Assert
	require.NoError(t, err)
	assert.True(t, out.Transaction.IsTerminal())
}

func TestRecoverStale(t *testing.T) {
	// Arrange
	f := newFixture(t)
	cutoff := testNow.Add(-DefaultConfig().StaleAfter)
	f.txRepo.On("FinalizeStale", mock.Anything, entity.StatusProcessing, entity.StatusFailed, entity.FailureInternalError, cutoff, testNow).Return(int64(2), nil)
	f.txRepo.On("FinalizeStale", mock.Anything, entity.StatusPending, entity.StatusCancelled, entity.FailureAbandoned, cutoff, testNow).Return(int64(1), nil)

	// Act
	report, err := f.coord.RecoverStale(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.FailedProcessing)
	assert.Equal(t, int64(1), report.CancelledPending)
}
