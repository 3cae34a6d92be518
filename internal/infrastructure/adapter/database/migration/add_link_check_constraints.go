package migration

import (
	"context"

	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"gorm.io/gorm"
)

type checkConstraint struct {
	table      string
	name       string
	expression string
}

// The slot cap is also enforced here, so even a faulty writer cannot push current_uses past max_uses
var linkCheckConstraints = []checkConstraint{
	{table: "payment_links", name: "chk_payment_links_amount_positive", expression: "amount > 0"},
	{table: "payment_links", name: "chk_payment_links_current_uses_nonneg", expression: "current_uses >= 0"},
	{table: "payment_links", name: "chk_payment_links_max_uses_positive", expression: "max_uses IS NULL OR max_uses >= 1"},
	{table: "payment_links", name: "chk_payment_links_uses_within_cap", expression: "max_uses IS NULL OR current_uses <= max_uses"},
	{table: "transactions", name: "chk_transactions_amount_positive", expression: "amount > 0"},
	{table: "transactions", name: "chk_transactions_status", expression: "status IN ('pending', 'processing', 'completed', 'failed', 'cancelled')"},
}

// AddLinkCheckConstraints adds the CHECK constraints GORM tags cannot express
type AddLinkCheckConstraints struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewAddLinkCheckConstraints creates a new migration instance
func NewAddLinkCheckConstraints(db *gorm.DB, logger coreport.Logger) *AddLinkCheckConstraints {
	return &AddLinkCheckConstraints{
		db:     db,
		logger: logger,
	}
}

// Run executes the migration; constraints that already exist are skipped
func (m *AddLinkCheckConstraints) Run(ctx context.Context) error {
	m.logger.Info("Adding check constraints", nil)

	existing, err := m.existingConstraints(ctx)
	if err != nil {
		return err
	}

	for _, c := range linkCheckConstraints {
		if existing[c.name] {
			continue
		}
		sql := "ALTER TABLE " + c.table + " ADD CONSTRAINT " + c.name + " CHECK (" + c.expression + ")"
		if err := m.db.WithContext(ctx).Exec(sql).Error; err != nil {
			m.logger.Error("Failed to add check constraint", map[string]any{
				"constraint": c.name,
				"error":      err.Error(),
			})
			return err
		}
	}

	m.logger.Info("Check constraints in place", map[string]any{"count": len(linkCheckConstraints)})
	return nil
}

func (m *AddLinkCheckConstraints) existingConstraints(ctx context.Context) (map[string]bool, error) {
	var names []string
	err := m.db.WithContext(ctx).Raw(`
		SELECT conname
		FROM pg_constraint
		WHERE contype = 'c' AND conrelid IN ('payment_links'::regclass, 'transactions'::regclass)
	`).Scan(&names).Error
	if err != nil {
		m.logger.Error("Failed to list existing constraints", map[string]any{"error": err.Error()})
		return nil, err
	}

	existing := make(map[string]bool, len(names))
	for _, name := range names {
		existing[name] = true
	}
	return existing, nil
}
