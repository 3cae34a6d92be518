package migration

import (
	"context"

	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"gorm.io/gorm"
)

// AdvancedIndexManager manages PostgreSQL-specific indexes GORM tags cannot express
type AdvancedIndexManager struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewAdvancedIndexManager creates a new advanced index manager
func NewAdvancedIndexManager(db *gorm.DB, logger coreport.Logger) *AdvancedIndexManager {
	return &AdvancedIndexManager{
		db:     db,
		logger: logger,
	}
}

var advancedIndexes = []struct {
	name string
	sql  string
}{
	{
		// Idempotency keys are unique per link; attempts without a key are unconstrained
		name: "uq_transactions_link_idempotency",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_link_idempotency
			ON transactions (link_id, idempotency_key)
			WHERE idempotency_key <> ''`,
	},
	{
		// The stale sweeper only ever scans non-terminal rows
		name: "idx_transactions_open_updated",
		sql: `CREATE INDEX IF NOT EXISTS idx_transactions_open_updated
			ON transactions (updated_at)
			WHERE status IN ('pending', 'processing')`,
	},
	{
		name: "idx_transactions_created_at_brin",
		sql: `CREATE INDEX IF NOT EXISTS idx_transactions_created_at_brin
			ON transactions USING BRIN (created_at)
			WITH (pages_per_range = 32)`,
	},
}

// CreateAdvancedIndexes creates the partial and BRIN indexes
func (m *AdvancedIndexManager) CreateAdvancedIndexes(ctx context.Context) error {
	m.logger.Info("Creating advanced PostgreSQL indexes", nil)

	for _, idx := range advancedIndexes {
		if err := m.db.WithContext(ctx).Exec(idx.sql).Error; err != nil {
			m.logger.Error("Failed to create index", map[string]any{
				"index": idx.name,
				"error": err.Error(),
			})
			return err
		}
	}

	m.logger.Info("Advanced PostgreSQL indexes created successfully", nil)
	return nil
}

// CreatePerformanceTweaks applies PostgreSQL storage settings. Failures are logged, not returned.
func (m *AdvancedIndexManager) CreatePerformanceTweaks(ctx context.Context) error {
	m.logger.Info("Applying PostgreSQL performance tweaks", nil)

	// current_uses is rewritten on every completion; free space keeps those updates HOT
	if err := m.db.WithContext(ctx).Exec(`ALTER TABLE payment_links SET (fillfactor = 80)`).Error; err != nil {
		m.logger.Warn("Failed to set fillfactor for payment_links table", map[string]any{
			"error": err.Error(),
		})
	}

	if err := m.db.WithContext(ctx).Exec(`ALTER TABLE transactions SET (fillfactor = 90)`).Error; err != nil {
		m.logger.Warn("Failed to set fillfactor for transactions table", map[string]any{
			"error": err.Error(),
		})
	}

	if err := m.db.WithContext(ctx).Exec(`ALTER TABLE transactions ALTER COLUMN link_id SET STATISTICS 1000`).Error; err != nil {
		m.logger.Warn("Failed to set statistics target for link_id", map[string]any{
			"error": err.Error(),
		})
	}

	return nil
}
