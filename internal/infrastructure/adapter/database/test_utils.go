package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/model"
	timeprovider "github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/time"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TestDBManager provides utilities for testing against a PostgreSQL database
type TestDBManager struct {
	Manager      *Manager
	Config       *Config
	Logger       coreport.Logger
	TimeProvider coreport.TimeProvider
}

// NewTestDBManager creates a test database manager. The test is skipped when
// TEST_DB_HOST is not set.
func NewTestDBManager(t *testing.T, logger coreport.Logger) *TestDBManager {
	t.Helper()

	host, ok := os.LookupEnv("TEST_DB_HOST")
	if !ok || host == "" {
		t.Skip("TEST_DB_HOST not set; skipping database integration test")
	}

	timeProvider := timeprovider.NewRealTimeProvider()

	config := DefaultConfig()
	config.Host = host
	config.Port = getEnvIntOrDefault("TEST_DB_PORT", 5432)
	config.Username = getEnvOrDefault("TEST_DB_USERNAME", "postgres")
	config.Password = getEnvOrDefault("TEST_DB_PASSWORD", "postgres")
	config.Database = getEnvOrDefault("TEST_DB_DATABASE", "paylink_test")
	config.SSLMode = getEnvOrDefault("TEST_DB_SSL_MODE", "disable")
	config.MaxOpenConns = 20
	config.MaxIdleConns = 5
	config.LogLevel = "silent"
	config.RetryAttempts = 1
	config.MonitorInterval = time.Minute

	return &TestDBManager{
		Manager:      NewManager(config, logger, timeProvider, nil),
		Config:       config,
		Logger:       logger,
		TimeProvider: timeProvider,
	}
}

// Connect connects to the test database and registers cleanup
func (m *TestDBManager) Connect(t *testing.T) {
	t.Helper()

	if _, err := m.Manager.Connect(context.Background()); err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Manager.Close(); err != nil {
			t.Logf("Warning: Failed to close test database connection: %v", err)
		}
	})
}

// SetupTestDB drops every table and migrates the schema from scratch
func (m *TestDBManager) SetupTestDB(t *testing.T) {
	t.Helper()

	if err := dropAllTables(m.Manager.DB()); err != nil {
		t.Fatalf("Failed to drop tables: %v", err)
	}
	if err := m.Manager.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
}

func dropAllTables(db *gorm.DB) error {
	return db.Exec(`
		DO $$ DECLARE
			r RECORD;
		BEGIN
			FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = current_schema()) LOOP
				EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
			END LOOP;
		END $$;
	`).Error
}

// CreateTestLink inserts an active link owned by "merchant-1" and returns it
func (m *TestDBManager) CreateTestLink(t *testing.T, token string, maxUses *int) *entity.PaymentLink {
	t.Helper()

	now := m.TimeProvider.Now()
	linkModel := model.PaymentLink{
		Token:     token,
		OwnerID:   "merchant-1",
		Amount:    decimal.RequireFromString("42.00"),
		Currency:  "USD",
		MaxUses:   maxUses,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.Manager.DB().Create(&linkModel).Error; err != nil {
		t.Fatalf("Failed to create test link: %v", err)
	}

	return &entity.PaymentLink{
		ID:        linkModel.ID,
		Token:     token,
		OwnerID:   linkModel.OwnerID,
		Amount:    linkModel.Amount,
		Currency:  linkModel.Currency,
		MaxUses:   maxUses,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
