package link

import (
	"context"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
)

// GetLink returns a link the owner holds. Links of other owners are reported as not found.
func (u *LinkUseCase) GetLink(ctx context.Context, ownerID, token string) (*entity.PaymentLink, error) {
	link, err := u.linkRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !link.IsOwnedBy(ownerID) {
		return nil, errs.ErrLinkNotFound
	}
	return link, nil
}

// ListLinks returns one page of the owner's links, newest first
func (u *LinkUseCase) ListLinks(ctx context.Context, ownerID string, page persistence.Page) (*usecase.LinkList, error) {
	page = NormalizePage(page)

	links, total, err := u.linkRepo.ListByOwner(ctx, ownerID, page)
	if err != nil {
		return nil, err
	}

	return &usecase.LinkList{
		Links: links,
		Total: total,
		Page:  page,
	}, nil
}

// GetPublicLink returns the payer view of a link
func (u *LinkUseCase) GetPublicLink(ctx context.Context, token string) (*usecase.PublicLinkView, error) {
	link, err := u.linkRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &usecase.PublicLinkView{
		Link:          link,
		Status:        link.Status(u.timeProvider.Now()),
		RemainingUses: link.RemainingUses(),
	}, nil
}
