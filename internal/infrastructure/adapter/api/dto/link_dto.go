package dto

import (
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
)

// CreateLinkRequest represents the API request for issuing a payment link.
// Fields are validated by the domain so every violation is reported at once.
type CreateLinkRequest struct {
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	MaxUses     *int       `json:"maxUses"`
}

// UpdateLinkRequest represents a partial update of a link's metadata
type UpdateLinkRequest struct {
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

// PageQuery represents pagination query parameters
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// LinkResponse represents a payment link as seen by its owner
type LinkResponse struct {
	Token         string     `json:"token"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Description   string     `json:"description"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	MaxUses       *int       `json:"maxUses,omitempty"`
	CurrentUses   int        `json:"currentUses"`
	RemainingUses *int       `json:"remainingUses,omitempty"`
	IsActive      bool       `json:"isActive"`
	Status        string     `json:"status"`
	RedemptionURL string     `json:"redemptionUrl"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// LinkListResponse represents one page of an owner's links
type LinkListResponse struct {
	Links  []LinkResponse `json:"links"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// PublicLinkResponse represents what a payer sees before redeeming
type PublicLinkResponse struct {
	Token         string     `json:"token"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	RemainingUses *int       `json:"remainingUses,omitempty"`
}

// NewLinkResponse maps a link to its owner view
func NewLinkResponse(link *entity.PaymentLink, redemptionURL string, now time.Time) LinkResponse {
	return LinkResponse{
		Token:         link.Token,
		Amount:        entity.FormatAmount(link.Amount),
		Currency:      link.Currency,
		Description:   link.Description,
		ExpiresAt:     link.ExpiresAt,
		MaxUses:       link.MaxUses,
		CurrentUses:   link.CurrentUses,
		RemainingUses: link.RemainingUses(),
		IsActive:      link.IsActive,
		Status:        string(link.Status(now)),
		RedemptionURL: redemptionURL,
		CreatedAt:     link.CreatedAt,
		UpdatedAt:     link.UpdatedAt,
	}
}

// NewPublicLinkResponse maps a link to its payer view
func NewPublicLinkResponse(link *entity.PaymentLink, status entity.LinkStatus, remainingUses *int) PublicLinkResponse {
	return PublicLinkResponse{
		Token:         link.Token,
		Amount:        entity.FormatAmount(link.Amount),
		Currency:      link.Currency,
		Description:   link.Description,
		Status:        string(status),
		ExpiresAt:     link.ExpiresAt,
		RemainingUses: remainingUses,
	}
}
