package usecase

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
)

// CreateLinkInput represents the input for creating a payment link
type CreateLinkInput struct {
	OwnerID     string
	Amount      string
	Currency    string
	Description string
	ExpiresAt   *time.Time
	MaxUses     *int
}

// CreateLinkOutput represents the output of creating a payment link
type CreateLinkOutput struct {
	Link          *entity.PaymentLink
	RedemptionURL string
}

// LinkList is one page of an owner's links
type LinkList struct {
	Links []*entity.PaymentLink
	Total int64
	Page  persistence.Page
}

// PublicLinkView is what an anonymous payer may see about a link
type PublicLinkView struct {
	Link          *entity.PaymentLink
	Status        entity.LinkStatus
	RemainingUses *int
}

// LinkUseCase defines the owner-facing link management operations
type LinkUseCase interface {
	// CreateLink validates and issues a new active link with a fresh token
	CreateLink(ctx context.Context, input CreateLinkInput) (*CreateLinkOutput, error)

	// GetLink returns a link the owner holds; other owners get ErrLinkNotFound
	GetLink(ctx context.Context, ownerID, token string) (*entity.PaymentLink, error)

	// ListLinks returns the owner's links newest first
	ListLinks(ctx context.Context, ownerID string, page persistence.Page) (*LinkList, error)

	// UpdateLink changes description and/or isActive
	UpdateLink(ctx context.Context, ownerID, token string, update entity.LinkMetadataUpdate) (*entity.PaymentLink, error)

	// GetPublicLink returns the payer view of a link with its derived status
	GetPublicLink(ctx context.Context, token string) (*PublicLinkView, error)

	// RedemptionURL builds the payer-facing URL of a token
	RedemptionURL(token string) string
}
