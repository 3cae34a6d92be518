package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents the database model for ledger entries
type Transaction struct {
	ID                     string          `gorm:"primaryKey;size:36"`
	LinkID                 uint64          `gorm:"not null;index:idx_transactions_link_created,priority:1"`
	IdempotencyKey         string          `gorm:"not null;size:255"`
	PayerEmail             string          `gorm:"not null;size:320"`
	PayerName              string          `gorm:"not null;size:200"`
	Amount                 decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency               string          `gorm:"not null;size:3"`
	Status                 string          `gorm:"not null;size:20;index:idx_transactions_status_updated,priority:1"`
	CardBrand              string          `gorm:"not null;size:20"`
	CardLast4              string          `gorm:"not null;size:4"`
	GatewayResponseCode    string          `gorm:"not null;size:10"`
	GatewayResponseMessage string          `gorm:"not null;size:255"`
	FailureReason          string          `gorm:"not null;size:40"`
	ProcessedAt            *time.Time
	CreatedAt              time.Time `gorm:"not null;index:idx_transactions_link_created,priority:2,sort:desc"`
	UpdatedAt              time.Time `gorm:"not null;index:idx_transactions_status_updated,priority:2"`

	// Define relationships
	Link PaymentLink `gorm:"foreignKey:LinkID;references:ID;constraint:OnDelete:RESTRICT"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}
