package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentLink represents the database model for payment links
type PaymentLink struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	Token       string          `gorm:"uniqueIndex:uq_payment_links_token;not null;size:64"`
	OwnerID     string          `gorm:"not null;size:255;index:idx_payment_links_owner_created,priority:1"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency    string          `gorm:"not null;size:3"`
	Description string          `gorm:"not null;size:500"`
	ExpiresAt   *time.Time
	MaxUses     *int
	CurrentUses int       `gorm:"not null"`
	IsActive    bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;index:idx_payment_links_owner_created,priority:2,sort:desc"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName specifies the table name for PaymentLink
func (PaymentLink) TableName() string {
	return "payment_links"
}
