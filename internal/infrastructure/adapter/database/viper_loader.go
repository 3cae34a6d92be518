package database

import (
	"fmt"
	"strings"

	"github.com/amirhossein-jamali/paylink/internal/infrastructure/config"
)

// NewConfigFromApp adapts the application configuration to database configuration.
// Zero values in the application configuration keep the defaults.
func NewConfigFromApp(conf *config.Config) *Config {
	dbConf := DefaultConfig()
	src := conf.Database

	dbConf.Host = src.Host
	dbConf.Username = src.Username
	dbConf.Password = src.Password
	dbConf.Database = src.Database
	if port := ParsePort(src.Port); port > 0 {
		dbConf.Port = port
	}

	if src.SSLMode != "" {
		dbConf.SSLMode = src.SSLMode
	}
	if src.MaxOpenConns > 0 {
		dbConf.MaxOpenConns = src.MaxOpenConns
	}
	if src.MaxIdleConns > 0 {
		dbConf.MaxIdleConns = src.MaxIdleConns
	}
	if src.ConnMaxLifetime > 0 {
		dbConf.ConnMaxLifetime = src.ConnMaxLifetime
	}
	if src.ConnMaxIdleTime > 0 {
		dbConf.ConnMaxIdleTime = src.ConnMaxIdleTime
	}
	if src.QueryTimeout > 0 {
		dbConf.QueryTimeout = src.QueryTimeout
	}
	if src.IsolationLevel != "" {
		dbConf.IsolationLevel = strings.ToUpper(src.IsolationLevel)
	}
	if src.SlowQueryThreshold > 0 {
		dbConf.SlowQueryThreshold = src.SlowQueryThreshold
	}
	if src.RetryAttempts > 0 {
		dbConf.RetryAttempts = src.RetryAttempts
	}
	if src.RetryDelay > 0 {
		dbConf.RetryDelay = src.RetryDelay
	}
	if src.MonitorInterval > 0 {
		dbConf.MonitorInterval = src.MonitorInterval
	}
	if src.LogLevel != "" {
		dbConf.LogLevel = src.LogLevel
	}

	return dbConf
}

// ParsePort converts a port string to an int
func ParsePort(port string) int {
	var p int
	_, err := fmt.Sscanf(port, "%d", &p)
	if err != nil || p <= 0 || p > 65535 {
		return 0 // Return 0 to signal not set instead of defaulting
	}
	return p
}
