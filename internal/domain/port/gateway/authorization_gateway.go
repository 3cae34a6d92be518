package gateway

import (
	"context"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AuthorizationRequest carries everything needed to authorize one charge.
// Card details live only for the duration of the call.
type AuthorizationRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Card          entity.Card
}

// AuthorizationGateway approves or declines a card charge.
// A returned error means no decision was reached (unreachable, cancelled, timed out);
// the caller turns it into a decline.
type AuthorizationGateway interface {
	Authorize(ctx context.Context, request AuthorizationRequest) (entity.AuthorizationDecision, error)
}
