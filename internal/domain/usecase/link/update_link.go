package link

import (
	"context"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
)

// UpdateLink changes the description and/or active flag of one of the owner's links.
// Concurrent updates are last-writer-wins.
func (u *LinkUseCase) UpdateLink(ctx context.Context, ownerID, token string, update entity.LinkMetadataUpdate) (*entity.PaymentLink, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	link, err := u.linkRepo.UpdateMetadata(ctx, ownerID, token, update, u.timeProvider.Now())
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"link_token": token,
		"owner_id":   ownerID,
	}
	if update.IsActive != nil {
		fields["is_active"] = *update.IsActive
	}
	u.logger.Info("Payment link updated", fields)

	return link, nil
}
