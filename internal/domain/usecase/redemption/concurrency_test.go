package redemption

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/gateway"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/memstore"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// barrierGateway holds every caller until n callers have arrived, so all of them
// pass the optimistic pre-check before any of them finalizes.
type barrierGateway struct {
	arrived sync.WaitGroup
	decide  func(req gateway.AuthorizationRequest) entity.AuthorizationDecision
}

func newBarrierGateway(n int, decide func(req gateway.AuthorizationRequest) entity.AuthorizationDecision) *barrierGateway {
	g := &barrierGateway{decide: decide}
	g.arrived.Add(n)
	return g
}

func (g *barrierGateway) Authorize(ctx context.Context, req gateway.AuthorizationRequest) (entity.AuthorizationDecision, error) {
	g.arrived.Done()
	done := make(chan struct{})
	go func() {
		g.arrived.Wait()
		close(done)
	}()
	select {
	case <-done:
		return g.decide(req), nil
	case <-ctx.Done():
		return entity.AuthorizationDecision{}, ctx.Err()
	}
}

func newStoreCoordinator(t *testing.T, store *memstore.Store, gw gateway.AuthorizationGateway) *Coordinator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.GatewayTimeout = 5 * time.Second
	return NewCoordinator(
		store.Links(), store.Transactions(), store.UnitOfWork(), gw,
		&sequenceIDs{}, newFakeClock(testNow), logger.NewNoopLogger(), metrics.NewNoopMetrics(), cfg,
	)
}

func seedLink(t *testing.T, store *memstore.Store, maxUses *int) *entity.PaymentLink {
	t.Helper()
	link := activeLink(maxUses)
	link.ID = 0
	require.NoError(t, store.Links().Create(context.Background(), link))
	return link
}

func redeemConcurrently(t *testing.T, coord *Coordinator, n int) []*entity.Transaction {
	t.Helper()
	results := make([]*entity.Transaction, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := coord.Redeem(context.Background(), usecase.RedeemInput{LinkToken: "tok", Payer: payer, Card: validCard})
			if assert.NoError(t, err) {
				results[i] = out.Transaction
			}
		}(i)
	}
	wg.Wait()
	return results
}

func tally(results []*entity.Transaction) map[entity.FailureReason]int {
	counts := make(map[entity.FailureReason]int)
	for _, tx := range results {
		if tx == nil {
			continue
		}
		if tx.Status == entity.StatusCompleted {
			counts["completed"]++
			continue
		}
		counts[tx.FailureReason]++
	}
	return counts
}

func TestConcurrentRedemptionOfSingleUseLink(t *testing.T) {
	// Arrange
	store := memstore.NewStore()
	link := seedLink(t, store, intPtr(1))
	gw := newBarrierGateway(10, func(gateway.AuthorizationRequest) entity.AuthorizationDecision { return approve() })
	coord := newStoreCoordinator(t, store, gw)

	// Act
	results := redeemConcurrently(t, coord, 10)

	// Assert
	counts := tally(results)
	assert.Equal(t, 1, counts["completed"])
	assert.Equal(t, 9, counts[entity.FailureLinkExhaustedConcurrently])

	stored, err := store.Links().GetByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentUses)

	ledger, total, err := store.Transactions().List(context.Background(), persistence.TransactionFilter{LinkID: link.ID}, persistence.Page{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	for _, tx := range ledger {
		assert.True(t, tx.IsTerminal(), "transaction %s left in %s", tx.ID, tx.Status)
	}
}

func TestConcurrentRedemptionNeverExceedsCap(t *testing.T) {
	// Arrange
	store := memstore.NewStore()
	link := seedLink(t, store, intPtr(3))
	var calls atomic.Int32
	gw := newBarrierGateway(20, func(gateway.AuthorizationRequest) entity.AuthorizationDecision {
		// every other payer is declined
		if calls.Add(1)%2 == 0 {
			return entity.AuthorizationDecision{ResponseCode: "05", FailureReason: entity.FailureCardDeclined}
		}
		return approve()
	})
	coord := newStoreCoordinator(t, store, gw)

	// Act
	results := redeemConcurrently(t, coord, 20)

	// Assert
	counts := tally(results)
	assert.Equal(t, 3, counts["completed"])
	assert.Equal(t, 10, counts[entity.FailureCardDeclined])
	assert.Equal(t, 7, counts[entity.FailureLinkExhaustedConcurrently])

	stored, err := store.Links().GetByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, counts["completed"], stored.CurrentUses)
}

func TestDeclinedAttemptsDoNotConsumeSlots(t *testing.T) {
	// Arrange
	store := memstore.NewStore()
	link := seedLink(t, store, intPtr(1))
	declineAll := funcGateway(func(context.Context, gateway.AuthorizationRequest) (entity.AuthorizationDecision, error) {
		return entity.AuthorizationDecision{ResponseCode: "05", FailureReason: entity.FailureCardDeclined}, nil
	})
	coord := newStoreCoordinator(t, store, declineAll)

	// Act
	for i := 0; i < 3; i++ {
		out, err := coord.Redeem(context.Background(), usecase.RedeemInput{LinkToken: "tok", Payer: payer, Card: validCard})
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFailed, out.Transaction.Status)
	}

	// Assert
	stored, err := store.Links().GetByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentUses)
	assert.Equal(t, entity.LinkStatusActive, stored.Status(testNow))
}

func TestIdempotentRedeemAgainstStore(t *testing.T) {
	// Arrange
	store := memstore.NewStore()
	link := seedLink(t, store, intPtr(2))
	var authorizations atomic.Int32
	gw := funcGateway(func(context.Context, gateway.AuthorizationRequest) (entity.AuthorizationDecision, error) {
		authorizations.Add(1)
		return approve(), nil
	})
	coord := newStoreCoordinator(t, store, gw)
	input := usecase.RedeemInput{LinkToken: "tok", Payer: payer, Card: validCard, IdempotencyKey: "order-77"}

	// Act
	first, err := coord.Redeem(context.Background(), input)
	require.NoError(t, err)
	second, err := coord.Redeem(context.Background(), input)
	require.NoError(t, err)

	// Assert
	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	assert.Equal(t, int32(1), authorizations.Load())

	stored, err := store.Links().GetByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentUses)
}

func TestStaleSweeperRecoversAbandonedAttempts(t *testing.T) {
	// Arrange
	store := memstore.NewStore()
	link := seedLink(t, store, nil)
	clock := newFakeClock(testNow)
	coord := NewCoordinator(store.Links(), store.Transactions(), store.UnitOfWork(), funcGateway(nil),
		&sequenceIDs{}, clock, logger.NewNoopLogger(), metrics.NewNoopMetrics(), DefaultConfig())

	stuck := entity.NewTransaction("stuck", link, payer, validCard, "", testNow)
	require.NoError(t, stuck.MarkProcessing(testNow))
	require.NoError(t, store.Transactions().Create(context.Background(), stuck))
	pending := entity.NewTransaction("pending", link, payer, validCard, "", testNow)
	require.NoError(t, store.Transactions().Create(context.Background(), pending))
	clock.Advance(DefaultConfig().StaleAfter + time.Second)

	// Act
	sweeper := NewStaleSweeper(coord, time.Hour, time.Second, logger.NewNoopLogger())
	sweeper.Start()
	sweeper.Stop()

	// Assert
	recovered, err := store.Transactions().GetByID(context.Background(), "stuck")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailed, recovered.Status)
	assert.Equal(t, entity.FailureInternalError, recovered.FailureReason)

	cancelled, err := store.Transactions().GetByID(context.Background(), "pending")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, cancelled.Status)

	stored, _ := store.Links().GetByID(context.Background(), link.ID)
	assert.Equal(t, 0, stored.CurrentUses)
}

func TestLinkReadsStableAcrossRedemptions(t *testing.T) {
	// Arrange
	store := memstore.NewStore()
	seedLink(t, store, nil)
	gw := newBarrierGateway(8, func(gateway.AuthorizationRequest) entity.AuthorizationDecision { return approve() })
	coord := newStoreCoordinator(t, store, gw)

	before, err := store.Links().GetByToken(context.Background(), "tok")
	require.NoError(t, err)

	// Act: read the link while the redemptions run
	stop := make(chan struct{})
	reads := make(chan *entity.PaymentLink, 1024)
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		defer close(reads)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if link, err := store.Links().GetByToken(context.Background(), "tok"); err == nil {
				select {
				case reads <- link:
				default:
				}
			}
		}
	}()
	results := redeemConcurrently(t, coord, 8)
	close(stop)
	readers.Wait()

	after, err := store.Links().GetByToken(context.Background(), "tok")
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 8, tally(results)["completed"])
	assert.Equal(t, before.CurrentUses+8, after.CurrentUses)

	snapshots := []*entity.PaymentLink{after}
	for link := range reads {
		snapshots = append(snapshots, link)
	}
	for _, link := range snapshots {
		assert.True(t, before.Amount.Equal(link.Amount), "amount changed to %s", link.Amount)
		assert.Equal(t, before.Currency, link.Currency)
		assert.Equal(t, before.OwnerID, link.OwnerID)
		assert.Equal(t, before.Token, link.Token)
	}
}

func TestLateApprovalAfterTimeoutKeepsSlot(t *testing.T) {
	// Arrange
	store := memstore.NewStore()
	link := seedLink(t, store, intPtr(1))
	release := make(chan struct{})
	answered := make(chan struct{})
	t.Cleanup(func() {
		close(release)
		<-answered
	})
	ignoresCtx := funcGateway(func(context.Context, gateway.AuthorizationRequest) (entity.AuthorizationDecision, error) {
		defer close(answered)
		<-release
		return approve(), nil
	})
	cfg := DefaultConfig()
	cfg.GatewayTimeout = 50 * time.Millisecond
	coord := NewCoordinator(store.Links(), store.Transactions(), store.UnitOfWork(), ignoresCtx,
		&sequenceIDs{}, newFakeClock(testNow), logger.NewNoopLogger(), metrics.NewNoopMetrics(), cfg)

	// Act
	out, err := coord.Redeem(context.Background(), usecase.RedeemInput{LinkToken: "tok", Payer: payer, Card: validCard})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailed, out.Transaction.Status)
	assert.Equal(t, entity.FailureGatewayTimeout, out.Transaction.FailureReason)

	stored, err := store.Links().GetByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentUses)
}
