package usecase

import (
	"context"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
)

// RedeemInput represents one payer's attempt to pay a link
type RedeemInput struct {
	LinkToken      string
	Payer          entity.Payer
	Card           entity.Card
	IdempotencyKey string // Optional; a repeated key for the same link returns the first attempt
}

// RedeemOutput represents the outcome of a redemption attempt
type RedeemOutput struct {
	Transaction *entity.Transaction // Always terminal
	Replayed    bool                // True when an earlier attempt with the same idempotency key was returned
}

// RecoveryReport summarizes one stale-attempt sweep
type RecoveryReport struct {
	FailedProcessing int64
	CancelledPending int64
}

// RedemptionUseCase defines the redemption protocol
type RedemptionUseCase interface {
	// Redeem runs resolve, pre-check, card validation, ledger entry, authorization and atomic finalize.
	// Errors are returned only when nothing was persisted: not found, link rejections and validation.
	Redeem(ctx context.Context, input RedeemInput) (*RedeemOutput, error)

	// RecoverStale forces attempts stuck in pending or processing to a terminal state
	RecoverStale(ctx context.Context) (*RecoveryReport, error)
}
