package redemption

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/gateway"
	"github.com/shopspring/decimal"
)

// fakeClock is a fixed clock whose Sleep returns immediately and records the requested delays
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// sequenceIDs hands out tx-1, tx-2, ...
type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceIDs) NewTransactionID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "tx-" + strconv.Itoa(g.n)
}

func (g *sequenceIDs) NewLinkToken() string {
	return "token"
}

// funcGateway adapts a function to the gateway port
type funcGateway func(ctx context.Context, req gateway.AuthorizationRequest) (entity.AuthorizationDecision, error)

func (f funcGateway) Authorize(ctx context.Context, req gateway.AuthorizationRequest) (entity.AuthorizationDecision, error) {
	return f(ctx, req)
}

func approve() entity.AuthorizationDecision {
	return entity.AuthorizationDecision{Approved: true, ResponseCode: "00", ResponseMessage: "approved"}
}

var (
	testNow   = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	validCard = entity.Card{Number: "4242424242424242", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "123"}
	payer     = entity.Payer{Email: "payer@example.com", Name: "Pat Payer"}
)

func intPtr(v int) *int { return &v }

func activeLink(maxUses *int) *entity.PaymentLink {
	return &entity.PaymentLink{
		ID:        1,
		Token:     "tok",
		OwnerID:   "merchant-1",
		Amount:    decimal.RequireFromString("42.00"),
		Currency:  "USD",
		MaxUses:   maxUses,
		IsActive:  true,
		CreatedAt: testNow.Add(-time.Hour),
		UpdatedAt: testNow.Add(-time.Hour),
	}
}
