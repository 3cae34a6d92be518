package entity

import (
	"fmt"
	"strings"
	"time"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/shopspring/decimal"
)

// MaxDescriptionLength limits the free-text description of a payment link
const MaxDescriptionLength = 500

// LinkStatus is the status of a payment link as seen by payers. It is derived, never stored.
type LinkStatus string

// LinkStatus constants
const (
	LinkStatusActive    LinkStatus = "active"
	LinkStatusInactive  LinkStatus = "inactive"
	LinkStatusExpired   LinkStatus = "expired"
	LinkStatusExhausted LinkStatus = "exhausted"
)

// PaymentLink is a merchant-issued reusable invitation to pay a fixed amount
type PaymentLink struct {
	ID          uint64          // Internal storage identifier
	Token       string          // Opaque unguessable public identifier
	OwnerID     string          // Merchant that issued the link
	Amount      decimal.Decimal // Fixed amount charged per redemption
	Currency    string          // ISO 4217 code
	Description string
	ExpiresAt   *time.Time // Nil means the link never expires
	MaxUses     *int       // Nil means unlimited redemptions
	CurrentUses int        // Completed redemptions; only changed by the conditional slot update
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewLinkParams holds the merchant-supplied attributes of a new link
type NewLinkParams struct {
	OwnerID     string
	Amount      string
	Currency    string
	Description string
	ExpiresAt   *time.Time
	MaxUses     *int
}

// NewPaymentLink validates params and builds an active link with no uses.
// Every violated field is reported in a single ValidationError.
func NewPaymentLink(params NewLinkParams, token string, now time.Time) (*PaymentLink, error) {
	vErr := errs.NewValidationError()

	if strings.TrimSpace(params.OwnerID) == "" {
		vErr.Add("ownerId", "is required")
	}

	amount, err := ParseAmount(params.Amount)
	if err != nil {
		vErr.Add("amount", strings.TrimPrefix(err.Error(), errs.ErrInvalidAmount.Error()+": "))
	}

	currency, err := NormalizeCurrency(params.Currency)
	if err != nil {
		vErr.Add("currency", "must be a 3-letter ISO 4217 code")
	}

	description := strings.TrimSpace(params.Description)
	if len(description) > MaxDescriptionLength {
		vErr.Add("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLength))
	}

	if params.ExpiresAt != nil && !params.ExpiresAt.After(now) {
		vErr.Add("expiresAt", "must be in the future")
	}

	if params.MaxUses != nil && *params.MaxUses < 1 {
		vErr.Add("maxUses", "must be at least 1")
	}

	if token == "" {
		vErr.Add("token", "is required")
	}

	if err := vErr.OrNil(); err != nil {
		return nil, err
	}

	link := &PaymentLink{
		Token:       token,
		OwnerID:     params.OwnerID,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if params.ExpiresAt != nil {
		expiresAt := params.ExpiresAt.UTC()
		link.ExpiresAt = &expiresAt
	}
	if params.MaxUses != nil {
		maxUses := *params.MaxUses
		link.MaxUses = &maxUses
	}
	return link, nil
}

// IsExpired reports whether the link's expiry has been reached at now
func (l *PaymentLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// IsExhausted reports whether a capped link has used all of its slots
func (l *PaymentLink) IsExhausted() bool {
	return l.MaxUses != nil && l.CurrentUses >= *l.MaxUses
}

// RemainingUses returns the number of free slots, or nil for an unlimited link
func (l *PaymentLink) RemainingUses() *int {
	if l.MaxUses == nil {
		return nil
	}
	remaining := *l.MaxUses - l.CurrentUses
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// Status derives the payer-facing status. Inactive wins over Expired, which wins over Exhausted.
func (l *PaymentLink) Status(now time.Time) LinkStatus {
	switch {
	case !l.IsActive:
		return LinkStatusInactive
	case l.IsExpired(now):
		return LinkStatusExpired
	case l.IsExhausted():
		return LinkStatusExhausted
	default:
		return LinkStatusActive
	}
}

// CheckRedeemable is the optimistic eligibility pre-check. It is advisory only:
// the slot is actually taken by the conditional update at finalize time.
func (l *PaymentLink) CheckRedeemable(now time.Time) error {
	switch l.Status(now) {
	case LinkStatusInactive:
		return errs.NewLinkError(l.Token, "deactivated by owner", errs.ErrLinkInactive)
	case LinkStatusExpired:
		return errs.NewLinkError(l.Token, "expired at "+l.ExpiresAt.Format(time.RFC3339), errs.ErrLinkExpired)
	case LinkStatusExhausted:
		return errs.NewLinkError(l.Token, fmt.Sprintf("%d of %d uses taken", l.CurrentUses, *l.MaxUses), errs.ErrLinkExhausted)
	default:
		return nil
	}
}

// IsOwnedBy reports whether ownerID issued the link
func (l *PaymentLink) IsOwnedBy(ownerID string) bool {
	return ownerID != "" && l.OwnerID == ownerID
}

// LinkMetadataUpdate is a partial update of the owner-editable fields.
// Amount, currency, expiry and caps are immutable once issued.
type LinkMetadataUpdate struct {
	Description *string
	IsActive    *bool
}

// IsEmpty reports whether the update changes nothing
func (u LinkMetadataUpdate) IsEmpty() bool {
	return u.Description == nil && u.IsActive == nil
}

// Validate checks the editable fields
func (u LinkMetadataUpdate) Validate() error {
	vErr := errs.NewValidationError()
	if u.IsEmpty() {
		vErr.Add("body", "at least one of description or isActive must be provided")
	}
	if u.Description != nil && len(strings.TrimSpace(*u.Description)) > MaxDescriptionLength {
		vErr.Add("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLength))
	}
	return vErr.OrNil()
}

// Apply writes the update onto the link
func (l *PaymentLink) Apply(update LinkMetadataUpdate, now time.Time) {
	if update.Description != nil {
		l.Description = strings.TrimSpace(*update.Description)
	}
	if update.IsActive != nil {
		l.IsActive = *update.IsActive
	}
	l.UpdatedAt = now
}

// Clone returns a deep copy of the link
func (l *PaymentLink) Clone() *PaymentLink {
	c := *l
	if l.ExpiresAt != nil {
		expiresAt := *l.ExpiresAt
		c.ExpiresAt = &expiresAt
	}
	if l.MaxUses != nil {
		maxUses := *l.MaxUses
		c.MaxUses = &maxUses
	}
	return &c
}
