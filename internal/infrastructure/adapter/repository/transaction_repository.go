package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var nonTerminalStatuses = []string{
	string(entity.StatusPending),
	string(entity.StatusProcessing),
}

// TransactionRepository implements TransactionRepository interface using GORM
type TransactionRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewTransactionRepository creates a new TransactionRepository instance
func NewTransactionRepository(db *gorm.DB, logger coreport.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

func transactionToModel(transaction *entity.Transaction) model.Transaction {
	return model.Transaction{
		ID:                     transaction.ID,
		LinkID:                 transaction.LinkID,
		IdempotencyKey:         transaction.IdempotencyKey,
		PayerEmail:             transaction.PayerEmail,
		PayerName:              transaction.PayerName,
		Amount:                 transaction.Amount,
		Currency:               transaction.Currency,
		Status:                 string(transaction.Status),
		CardBrand:              string(transaction.PaymentMethod.Brand),
		CardLast4:              transaction.PaymentMethod.Last4,
		GatewayResponseCode:    transaction.GatewayResponseCode,
		GatewayResponseMessage: transaction.GatewayResponseMessage,
		FailureReason:          string(transaction.FailureReason),
		ProcessedAt:            transaction.ProcessedAt,
		CreatedAt:              transaction.CreatedAt,
		UpdatedAt:              transaction.UpdatedAt,
	}
}

func transactionToEntity(m *model.Transaction) *entity.Transaction {
	return &entity.Transaction{
		ID:             m.ID,
		LinkID:         m.LinkID,
		LinkToken:      m.Link.Token,
		IdempotencyKey: m.IdempotencyKey,
		PayerEmail:     m.PayerEmail,
		PayerName:      m.PayerName,
		Amount:         m.Amount,
		Currency:       m.Currency,
		Status:         entity.TransactionStatus(m.Status),
		PaymentMethod: entity.PaymentMethod{
			Brand: entity.CardBrand(m.CardBrand),
			Last4: m.CardLast4,
		},
		GatewayResponseCode:    m.GatewayResponseCode,
		GatewayResponseMessage: m.GatewayResponseMessage,
		FailureReason:          entity.FailureReason(m.FailureReason),
		ProcessedAt:            m.ProcessedAt,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

// Create appends a new ledger entry
func (r *TransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	r.logger.Debug("Creating transaction", map[string]any{
		"transaction_id": transaction.ID,
		"link_id":        transaction.LinkID,
	})

	transactionModel := transactionToModel(transaction)
	result := r.db.WithContext(ctx).Omit(clause.Associations).Create(&transactionModel)
	if result.Error != nil {
		mapped := r.errorClassifier.ToDomain(result.Error)
		if errors.Is(mapped, errs.ErrDuplicateIdempotencyKey) {
			r.logger.Warn("Duplicate idempotency key detected", map[string]any{
				"transaction_id":  transaction.ID,
				"link_id":         transaction.LinkID,
				"idempotency_key": transaction.IdempotencyKey,
			})
			return mapped
		}

		r.logger.Error("Failed to create transaction", map[string]any{
			"transaction_id": transaction.ID,
			"link_id":        transaction.LinkID,
			"error":          result.Error.Error(),
		})
		return mapped
	}
	return nil
}

// Finalize writes the terminal outcome with a guard on the stored status, so a row that is
// already terminal is never overwritten.
func (r *TransactionRepository) Finalize(ctx context.Context, transaction *entity.Transaction) error {
	if !transaction.IsTerminal() {
		return fmt.Errorf("%w: finalize requires a terminal status, got %s", errs.ErrInvalidStatusTransition, transaction.Status)
	}

	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND status IN ?", transaction.ID, nonTerminalStatuses).
		Updates(map[string]any{
			"status":                   string(transaction.Status),
			"gateway_response_code":    transaction.GatewayResponseCode,
			"gateway_response_message": transaction.GatewayResponseMessage,
			"failure_reason":           string(transaction.FailureReason),
			"processed_at":             transaction.ProcessedAt,
			"updated_at":               transaction.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Error("Failed to finalize transaction", map[string]any{
			"transaction_id": transaction.ID,
			"status":         transaction.Status,
			"error":          result.Error.Error(),
		})
		return r.errorClassifier.ToDomain(result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Transaction{}).
			Where("id = ?", transaction.ID).
			Count(&count).Error; err != nil {
			return r.errorClassifier.ToDomain(err)
		}
		if count == 0 {
			return errs.ErrTransactionNotFound
		}
		r.logger.Warn("Transaction already finalized", map[string]any{
			"transaction_id": transaction.ID,
		})
		return errs.ErrTransactionFinalized
	}

	r.logger.Debug("Transaction finalized", map[string]any{
		"transaction_id": transaction.ID,
		"status":         transaction.Status,
	})
	return nil
}

// GetByID retrieves a transaction by its identifier
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	var transactionModel model.Transaction
	result := r.db.WithContext(ctx).Preload("Link").Where("id = ?", id).First(&transactionModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", map[string]any{
			"transaction_id": id,
			"error":          result.Error.Error(),
		})
		return nil, r.errorClassifier.ToDomain(result.Error)
	}
	return transactionToEntity(&transactionModel), nil
}

// GetByIdempotencyKey retrieves the attempt made against linkID with key
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, linkID uint64, key string) (*entity.Transaction, error) {
	if key == "" {
		return nil, errs.ErrTransactionNotFound
	}

	var transactionModel model.Transaction
	result := r.db.WithContext(ctx).
		Preload("Link").
		Where("link_id = ? AND idempotency_key = ?", linkID, key).
		First(&transactionModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		return nil, r.errorClassifier.ToDomain(result.Error)
	}
	return transactionToEntity(&transactionModel), nil
}

// List returns a link's ledger newest first
func (r *TransactionRepository) List(ctx context.Context, filter persistence.TransactionFilter, page persistence.Page) ([]*entity.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("link_id = ?", filter.LinkID)
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, r.errorClassifier.ToDomain(err)
	}

	var transactionModels []model.Transaction
	if err := query.Preload("Link").
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&transactionModels).Error; err != nil {
		r.logger.Error("Failed to list transactions", map[string]any{
			"link_id": filter.LinkID,
			"error":   err.Error(),
		})
		return nil, 0, r.errorClassifier.ToDomain(err)
	}

	transactions := make([]*entity.Transaction, 0, len(transactionModels))
	for i := range transactionModels {
		transactions = append(transactions, transactionToEntity(&transactionModels[i]))
	}
	return transactions, total, nil
}

// FinalizeStale moves rows in status from, not updated since cutoff, to status to
func (r *TransactionRepository) FinalizeStale(ctx context.Context, from, to entity.TransactionStatus, reason entity.FailureReason, cutoff, now time.Time) (int64, error) {
	if !from.CanTransitionTo(to) {
		return 0, errs.NewTransitionError("*", string(from), string(to))
	}

	// Every matching row gets the same terminal columns
	resolved := &entity.Transaction{ID: "*", Status: from}
	if err := resolved.ResolveStale(to, reason, now); err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("status = ? AND updated_at < ?", string(from), cutoff).
		Updates(map[string]any{
			"status":         string(resolved.Status),
			"failure_reason": string(resolved.FailureReason),
			"processed_at":   resolved.ProcessedAt,
			"updated_at":     resolved.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Error("Failed to finalize stale transactions", map[string]any{
			"from":  from,
			"to":    to,
			"error": result.Error.Error(),
		})
		return 0, r.errorClassifier.ToDomain(result.Error)
	}
	return result.RowsAffected, nil
}
