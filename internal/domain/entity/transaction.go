package entity

import (
	"fmt"
	"time"
	"unicode/utf8"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/shopspring/decimal"
)

// TransactionStatus defines possible status values for a transaction
type TransactionStatus string

// TransactionStatus constants
const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
)

// allowedTransitions is the ledger state machine. Terminal states have no outgoing edges.
var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
}

// ParseTransactionStatus converts a string into a known status
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch status := TransactionStatus(s); status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction status %q", errs.ErrValidation, s)
	}
}

// IsTerminal reports whether no further transition is possible
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// FailureReason is the closed set of reasons a redemption attempt can end unsuccessfully
type FailureReason string

// FailureReason constants. The first five come from the authorization gateway.
const (
	FailureNone                      FailureReason = ""
	FailureCardDeclined              FailureReason = "card_declined"
	FailureInsufficientFunds         FailureReason = "insufficient_funds"
	FailureExpiredCard               FailureReason = "expired_card"
	FailureInvalidCard               FailureReason = "invalid_card"
	FailureProcessingError           FailureReason = "processing_error"
	FailureGatewayTimeout            FailureReason = "gateway_timeout"
	FailureGatewayUnavailable        FailureReason = "gateway_unavailable"
	FailureLinkExhaustedConcurrently FailureReason = "link_exhausted_concurrently"
	FailureInternalError             FailureReason = "internal_error"
	FailureAbandoned                 FailureReason = "abandoned"
)

// IsGatewayReason reports whether the reason is a decline returned by the gateway itself
func (r FailureReason) IsGatewayReason() bool {
	switch r {
	case FailureCardDeclined, FailureInsufficientFunds, FailureExpiredCard, FailureInvalidCard, FailureProcessingError:
		return true
	default:
		return false
	}
}

// Ledger column widths for the gateway response
const (
	MaxResponseCodeLength    = 10
	MaxResponseMessageLength = 255
)

// AuthorizationDecision is the gateway's answer for a single authorization request
type AuthorizationDecision struct {
	Approved        bool
	ResponseCode    string
	ResponseMessage string
	FailureReason   FailureReason // Set only when Approved is false
}

// PaymentMethod is the non-sensitive summary of the card used
type PaymentMethod struct {
	Brand CardBrand
	Last4 string
}

// Transaction is one redemption attempt recorded in the ledger
type Transaction struct {
	ID                     string // Globally unique attempt identifier
	LinkID                 uint64
	LinkToken              string
	IdempotencyKey         string // Optional client-supplied key, unique per link
	PayerEmail             string
	PayerName              string
	Amount                 decimal.Decimal // Copied from the link at creation
	Currency               string
	Status                 TransactionStatus
	PaymentMethod          PaymentMethod
	GatewayResponseCode    string
	GatewayResponseMessage string
	FailureReason          FailureReason
	ProcessedAt            *time.Time // Set when a terminal state is reached
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NewTransaction creates a pending ledger entry for a redemption of link
func NewTransaction(id string, link *PaymentLink, payer Payer, card Card, idempotencyKey string, now time.Time) *Transaction {
	return &Transaction{
		ID:             id,
		LinkID:         link.ID,
		LinkToken:      link.Token,
		IdempotencyKey: idempotencyKey,
		PayerEmail:     payer.Email,
		PayerName:      payer.Name,
		Amount:         link.Amount,
		Currency:       link.Currency,
		Status:         StatusPending,
		PaymentMethod:  PaymentMethod{Brand: card.Brand(), Last4: card.Last4()},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsTerminal reports whether the transaction has been finalized
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// MarkProcessing moves a pending transaction to processing
func (t *Transaction) MarkProcessing(now time.Time) error {
	return t.transition(StatusProcessing, now)
}

// Complete records an approved authorization
func (t *Transaction) Complete(decision AuthorizationDecision, now time.Time) error {
	if err := t.transition(StatusCompleted, now); err != nil {
		return err
	}
	t.GatewayResponseCode = truncate(decision.ResponseCode, MaxResponseCodeLength)
	t.GatewayResponseMessage = truncate(decision.ResponseMessage, MaxResponseMessageLength)
	t.FailureReason = FailureNone
	return nil
}

// Fail records an unsuccessful attempt. Gateway response fields are kept when present.
func (t *Transaction) Fail(reason FailureReason, responseCode, responseMessage string, now time.Time) error {
	if err := t.transition(StatusFailed, now); err != nil {
		return err
	}
	t.FailureReason = reason
	if responseCode != "" {
		t.GatewayResponseCode = truncate(responseCode, MaxResponseCodeLength)
	}
	if responseMessage != "" {
		t.GatewayResponseMessage = truncate(responseMessage, MaxResponseMessageLength)
	}
	return nil
}

// Cancel abandons a non-terminal transaction
func (t *Transaction) Cancel(reason FailureReason, now time.Time) error {
	if err := t.transition(StatusCancelled, now); err != nil {
		return err
	}
	t.FailureReason = reason
	return nil
}

// ResolveStale finalizes an attempt that never finished: pending rows are cancelled,
// processing rows fail. Gateway response fields are left as they are.
func (t *Transaction) ResolveStale(to TransactionStatus, reason FailureReason, now time.Time) error {
	switch to {
	case StatusCancelled:
		return t.Cancel(reason, now)
	case StatusFailed:
		return t.Fail(reason, "", "", now)
	default:
		return errs.NewTransitionError(t.ID, string(t.Status), string(to))
	}
}

func (t *Transaction) transition(next TransactionStatus, now time.Time) error {
	if !t.Status.CanTransitionTo(next) {
		return errs.NewTransitionError(t.ID, string(t.Status), string(next))
	}
	t.Status = next
	t.UpdatedAt = now
	if next.IsTerminal() {
		processedAt := now
		t.ProcessedAt = &processedAt
	}
	return nil
}

// truncate cuts s to at most limit characters
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// Clone returns a deep copy of the transaction
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.ProcessedAt != nil {
		processedAt := *t.ProcessedAt
		c.ProcessedAt = &processedAt
	}
	return &c
}
