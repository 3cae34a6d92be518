package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkRepository implements LinkRepository interface using GORM
type LinkRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewLinkRepository creates a new LinkRepository instance
func NewLinkRepository(db *gorm.DB, logger coreport.Logger) *LinkRepository {
	return &LinkRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

func linkToModel(link *entity.PaymentLink) model.PaymentLink {
	return model.PaymentLink{
		ID:          link.ID,
		Token:       link.Token,
		OwnerID:     link.OwnerID,
		Amount:      link.Amount,
		Currency:    link.Currency,
		Description: link.Description,
		ExpiresAt:   link.ExpiresAt,
		MaxUses:     link.MaxUses,
		CurrentUses: link.CurrentUses,
		IsActive:    link.IsActive,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

func linkToEntity(m *model.PaymentLink) *entity.PaymentLink {
	return &entity.PaymentLink{
		ID:          m.ID,
		Token:       m.Token,
		OwnerID:     m.OwnerID,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Description: m.Description,
		ExpiresAt:   m.ExpiresAt,
		MaxUses:     m.MaxUses,
		CurrentUses: m.CurrentUses,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// Create inserts a new link and assigns its ID
func (r *LinkRepository) Create(ctx context.Context, link *entity.PaymentLink) error {
	linkModel := linkToModel(link)

	if err := r.db.WithContext(ctx).Create(&linkModel).Error; err != nil {
		r.logger.Error("Failed to create payment link", map[string]any{
			"owner_id": link.OwnerID,
			"error":    err.Error(),
		})
		return r.errorClassifier.ToDomain(err)
	}

	link.ID = linkModel.ID
	r.logger.Debug("Payment link created", map[string]any{
		"link_id":  link.ID,
		"owner_id": link.OwnerID,
	})
	return nil
}

// GetByToken retrieves a link by its public token
func (r *LinkRepository) GetByToken(ctx context.Context, token string) (*entity.PaymentLink, error) {
	var linkModel model.PaymentLink
	result := r.db.WithContext(ctx).Where("token = ?", token).First(&linkModel)
	if result.Error != nil {
		return nil, r.handleLookupError(result.Error, map[string]any{"link_token": token})
	}
	return linkToEntity(&linkModel), nil
}

// GetByID retrieves a link by its storage identifier
func (r *LinkRepository) GetByID(ctx context.Context, id uint64) (*entity.PaymentLink, error) {
	var linkModel model.PaymentLink
	result := r.db.WithContext(ctx).First(&linkModel, id)
	if result.Error != nil {
		return nil, r.handleLookupError(result.Error, map[string]any{"link_id": id})
	}
	return linkToEntity(&linkModel), nil
}

// ListByOwner returns the owner's links newest first
func (r *LinkRepository) ListByOwner(ctx context.Context, ownerID string, page persistence.Page) ([]*entity.PaymentLink, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.PaymentLink{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, r.errorClassifier.ToDomain(err)
	}

	var linkModels []model.PaymentLink
	if err := query.Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&linkModels).Error; err != nil {
		r.logger.Error("Failed to list payment links", map[string]any{
			"owner_id": ownerID,
			"error":    err.Error(),
		})
		return nil, 0, r.errorClassifier.ToDomain(err)
	}

	links := make([]*entity.PaymentLink, 0, len(linkModels))
	for i := range linkModels {
		links = append(links, linkToEntity(&linkModels[i]))
	}
	return links, total, nil
}

// UpdateMetadata writes description and isActive in one statement and returns the stored row
func (r *LinkRepository) UpdateMetadata(ctx context.Context, ownerID, token string, update entity.LinkMetadataUpdate, now time.Time) (*entity.PaymentLink, error) {
	changes := map[string]any{"updated_at": now}
	if update.Description != nil {
		changes["description"] = *update.Description
	}
	if update.IsActive != nil {
		changes["is_active"] = *update.IsActive
	}

	var linkModel model.PaymentLink
	result := r.db.WithContext(ctx).Model(&linkModel).
		Clauses(clause.Returning{}).
		Where("token = ? AND owner_id = ?", token, ownerID).
		Updates(changes)
	if result.Error != nil {
		r.logger.Error("Failed to update payment link", map[string]any{
			"link_token": token,
			"error":      result.Error.Error(),
		})
		return nil, r.errorClassifier.ToDomain(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, errs.ErrLinkNotFound
	}

	return linkToEntity(&linkModel), nil
}

// ConsumeSlot increments current_uses in a single conditional UPDATE. The row lock taken by
// the UPDATE serializes concurrent callers; the WHERE clause is re-evaluated against the
// latest committed row, so the cap can never be exceeded.
func (r *LinkRepository) ConsumeSlot(ctx context.Context, linkID uint64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.PaymentLink{}).
		Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", linkID).
		Updates(map[string]any{
			"current_uses": gorm.Expr("current_uses + 1"),
			"updated_at":   now,
		})
	if result.Error != nil {
		r.logger.Error("Failed to consume link slot", map[string]any{
			"link_id": linkID,
			"error":   result.Error.Error(),
		})
		return false, r.errorClassifier.ToDomain(result.Error)
	}

	consumed := result.RowsAffected == 1
	r.logger.Debug("Link slot consumption attempted", map[string]any{
		"link_id":  linkID,
		"consumed": consumed,
	})
	return consumed, nil
}

func (r *LinkRepository) handleLookupError(err error, fields map[string]any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrLinkNotFound
	}
	fields["error"] = err.Error()
	r.logger.Error("Failed to get payment link", fields)
	return r.errorClassifier.ToDomain(err)
}
