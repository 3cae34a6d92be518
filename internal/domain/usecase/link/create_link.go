package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
)

// maxTokenAttempts bounds retries after a token collision
const maxTokenAttempts = 3

// CreateLink validates the input and issues a new active link with a fresh token
func (u *LinkUseCase) CreateLink(ctx context.Context, input usecase.CreateLinkInput) (*usecase.CreateLinkOutput, error) {
	params := entity.NewLinkParams{
		OwnerID:     input.OwnerID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Description: input.Description,
		ExpiresAt:   input.ExpiresAt,
		MaxUses:     input.MaxUses,
	}

	var lastErr error
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		link, err := entity.NewPaymentLink(params, u.idGenerator.NewLinkToken(), u.timeProvider.Now())
		if err != nil {
			return nil, err
		}

		err = u.linkRepo.Create(ctx, link)
		if err == nil {
			u.logger.Info("Payment link created", map[string]any{
				"link_token": link.Token,
				"owner_id":   link.OwnerID,
				"amount":     entity.FormatAmount(link.Amount),
				"currency":   link.Currency,
				"max_uses":   link.MaxUses,
			})
			return &usecase.CreateLinkOutput{
				Link:          link,
				RedemptionURL: u.RedemptionURL(link.Token),
			}, nil
		}

		if !errors.Is(err, errs.ErrDuplicateLinkToken) {
			u.logger.Error("Failed to create payment link", map[string]any{
				"owner_id": input.OwnerID,
				"error":    err.Error(),
			})
			return nil, err
		}

		// Token collision, draw a new one
		lastErr = err
		u.logger.Warn("Payment link token collision, retrying", map[string]any{
			"attempt": attempt + 1,
		})
	}

	return nil, fmt.Errorf("%w: could not allocate a unique link token: %v", errs.ErrInternalServer, lastErr)
}
