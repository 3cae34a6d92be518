package database

import (
	"testing"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	c := DefaultConfig()
	c.Host = "localhost"
	c.Username = "paylink"
	c.Password = "secret"
	c.Database = "paylink"
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Valid", mutate: func(c *Config) {}},
		{name: "Missing host", mutate: func(c *Config) { c.Host = "" }, wantErr: "host is required"},
		{name: "Bad port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "invalid port"},
		{name: "Bad SSL mode", mutate: func(c *Config) { c.SSLMode = "sometimes" }, wantErr: "invalid SSL mode"},
		{name: "Bad isolation", mutate: func(c *Config) { c.IsolationLevel = "READ UNCOMMITTED" }, wantErr: "unsupported isolation level"},
		{name: "Zero retries", mutate: func(c *Config) { c.RetryAttempts = 0 }, wantErr: "retry attempts"},
		{name: "Lowercase isolation accepted", mutate: func(c *Config) { c.IsolationLevel = "serializable" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewConfigFromApp(t *testing.T) {
	appConf := &config.Config{
		Database: config.DatabaseConfig{
			Host:           "db",
			Port:           "6543",
			Username:       "u",
			Password:       "p",
			Database:       "d",
			MaxOpenConns:   50,
			QueryTimeout:   3 * time.Second,
			IsolationLevel: "repeatable read",
		},
	}

	dbConf := NewConfigFromApp(appConf)

	assert.Equal(t, "db", dbConf.Host)
	assert.Equal(t, 6543, dbConf.Port)
	assert.Equal(t, 50, dbConf.MaxOpenConns)
	assert.Equal(t, 25, dbConf.MaxIdleConns)
	assert.Equal(t, 3*time.Second, dbConf.QueryTimeout)
	assert.Equal(t, IsolationRepeatableRead, dbConf.IsolationLevel)
	assert.Equal(t, "host=db port=6543 user=u password=p dbname=d sslmode=disable", dbConf.DSN())
}

func TestExtractTableName(t *testing.T) {
	assert.Equal(t, "payment_links", extractTableName(`SELECT * FROM "payment_links" WHERE token = $1`))
	assert.Equal(t, "transactions", extractTableName(`INSERT INTO "transactions" ("id") VALUES ($1)`))
	assert.Equal(t, "payment_links", extractTableName(`UPDATE "payment_links" SET "current_uses"=current_uses + 1`))
	assert.Equal(t, "", extractTableName(`BEGIN`))
	assert.Equal(t, "UPDATE", extractQueryType(" update x set y = 1"))
}
