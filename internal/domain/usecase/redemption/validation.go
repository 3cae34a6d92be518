package redemption

import (
	"strings"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
)

// MaxIdempotencyKeyLength limits client-supplied idempotency keys
const MaxIdempotencyKeyLength = 255

// RedemptionValidator checks payer and card input of a redemption
type RedemptionValidator struct{}

// NewRedemptionValidator creates a new RedemptionValidator
func NewRedemptionValidator() *RedemptionValidator {
	return &RedemptionValidator{}
}

// Normalize trims and canonicalizes the input
func (v *RedemptionValidator) Normalize(input usecase.RedeemInput) usecase.RedeemInput {
	input.LinkToken = strings.TrimSpace(input.LinkToken)
	input.IdempotencyKey = strings.TrimSpace(input.IdempotencyKey)
	input.Payer = input.Payer.Normalized()
	input.Card = input.Card.Normalized()
	return input
}

// ValidateIdempotencyKey checks the optional key
func (v *RedemptionValidator) ValidateIdempotencyKey(key string) error {
	if len(key) > MaxIdempotencyKeyLength {
		vErr := errs.NewValidationError()
		vErr.Add("idempotencyKey", "must be at most 255 characters")
		return vErr
	}
	return nil
}

// ValidatePayment checks payer and card, reporting every violated field at once
func (v *RedemptionValidator) ValidatePayment(payer entity.Payer, card entity.Card, now time.Time) error {
	vErr := errs.NewValidationError()
	payer.Validate(vErr)
	card.Validate(now, vErr)
	return vErr.OrNil()
}
