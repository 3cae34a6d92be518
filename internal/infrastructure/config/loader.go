package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// EnvPrefix prefixes every environment variable the service reads
const EnvPrefix = "PL"

// ConfigPaths defines the paths to look for config files
var ConfigPaths = []string{
	"./configs",
	"../configs",
	"../../configs",
}

// DotEnvPaths defines the paths to look for .env files
var DotEnvPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"./configs/.env",
}

// envOverrides maps environment variables onto config keys. Sensitive values are
// expected to arrive this way rather than from the YAML files.
var envOverrides = []struct {
	env   string
	key   string
	isInt bool
}{
	{env: "PL_DB_DRIVER", key: "database.driver"},
	{env: "PL_DB_HOST", key: "database.host"},
	{env: "PL_DB_PORT", key: "database.port"},
	{env: "PL_DB_USERNAME", key: "database.username"},
	{env: "PL_DB_PASSWORD", key: "database.password"},
	{env: "PL_DB_NAME", key: "database.database"},
	{env: "PL_DB_SSL_MODE", key: "database.sslMode"},
	{env: "PL_DB_MAX_OPEN_CONNS", key: "database.maxOpenConns", isInt: true},
	{env: "PL_DB_MAX_IDLE_CONNS", key: "database.maxIdleConns", isInt: true},
	{env: "PL_DB_QUERY_TIMEOUT_SECONDS", key: "database.queryTimeout", isInt: true},
	{env: "PL_SERVER_HOST", key: "server.host"},
	{env: "PL_SERVER_PORT", key: "server.port", isInt: true},
	{env: "PL_SERVER_PUBLIC_BASE_URL", key: "server.publicBaseURL"},
	{env: "PL_LOGGER_LEVEL", key: "logger.level"},
	{env: "PL_AUTH_JWT_SECRET", key: "auth.jwtSecret"},
	{env: "PL_AUTH_ISSUER", key: "auth.issuer"},
	{env: "PL_GATEWAY_TIMEOUT_MS", key: "redemption.gatewayTimeoutMs", isInt: true},
}

// LoadConfig loads .env, then the YAML file for the environment named by PL_ENV
func LoadConfig() (*Config, error) {
	if err := loadDotEnvFile(); err != nil {
		// A missing .env is normal outside local development
		fmt.Println("Warning: Could not load .env file:", err)
	}
	return Load(getEnvironment(), ConfigPaths)
}

// Load reads <env>.yaml from the first of paths that has it and applies defaults and
// environment overrides
func Load(env string, paths []string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := processEnvOverrides(v); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.Environment = env
	processDurations(&config)

	return &config, nil
}

func loadDotEnvFile() error {
	var lastError error

	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			lastError = err
			continue
		}
		return nil
	}

	if lastError != nil {
		return fmt.Errorf("could not load any .env file: %w", lastError)
	}
	return errors.New("no .env file found in search paths")
}

// setDefaults sets default values for non-critical configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15)       // seconds
	v.SetDefault("server.writeTimeout", 30)      // seconds
	v.SetDefault("server.idleTimeout", 60)       // seconds
	v.SetDefault("server.readHeaderTimeout", 10) // seconds
	v.SetDefault("server.shutdownTimeout", 15)   // seconds
	v.SetDefault("server.publicBaseURL", "http://localhost:8080")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 50)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetime", 30) // minutes
	v.SetDefault("database.connMaxIdleTime", 15) // minutes
	v.SetDefault("database.queryTimeout", 5)     // seconds
	v.SetDefault("database.retryAttempts", 3)
	v.SetDefault("database.retryDelay", 1)           // seconds
	v.SetDefault("database.slowQueryThreshold", 200) // milliseconds
	v.SetDefault("database.monitorInterval", 30)     // seconds
	v.SetDefault("database.isolationLevel", "READ COMMITTED")
	v.SetDefault("database.logLevel", "warn")
	v.SetDefault("database.autoMigrate", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.callerInfo", true)

	v.SetDefault("redemption.gatewayTimeoutMs", 10000)
	v.SetDefault("redemption.finalizeMaxAttempts", 4)
	v.SetDefault("redemption.finalizeRetryDelayMs", 50)
	v.SetDefault("redemption.finalizeMaxRetryDelayMs", 1000)
	v.SetDefault("redemption.finalizeJitterFactor", 0.2)
	v.SetDefault("redemption.staleAfterSeconds", 300)
	v.SetDefault("redemption.sweepIntervalSeconds", 60)
	v.SetDefault("redemption.sweepTimeoutSeconds", 30)

	v.SetDefault("gateway.minLatencyMs", 50)
	v.SetDefault("gateway.maxLatencyMs", 400)
	v.SetDefault("gateway.outageRate", 0.0)
	v.SetDefault("gateway.breaker.enabled", true)
	v.SetDefault("gateway.breaker.maxRequests", 3)
	v.SetDefault("gateway.breaker.intervalSeconds", 60)
	v.SetDefault("gateway.breaker.timeoutSeconds", 30)
	v.SetDefault("gateway.breaker.consecutiveFailures", 5)
	v.SetDefault("gateway.breaker.failureRatio", 0.5)
	v.SetDefault("gateway.breaker.minRequests", 20)

	v.SetDefault("auth.issuer", "paylink")

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.burst", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// getEnvironment determines the environment to use based on PL_ENV
func getEnvironment() string {
	env := os.Getenv("PL_ENV")
	if env == "" {
		env = Development
	}
	return strings.ToLower(env)
}

// processEnvOverrides makes the environment variables win over configuration file values
func processEnvOverrides(v *viper.Viper) error {
	for _, o := range envOverrides {
		value, ok := os.LookupEnv(o.env)
		if !ok || value == "" {
			continue
		}
		if !o.isInt {
			v.Set(o.key, value)
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("environment variable %s must be an integer: %w", o.env, err)
		}
		v.Set(o.key, n)
	}
	return nil
}

// processDurations converts time.Duration fields from their raw values to actual durations
func processDurations(config *Config) {
	config.Server.ReadTimeout = config.Server.ReadTimeout * time.Second
	config.Server.WriteTimeout = config.Server.WriteTimeout * time.Second
	config.Server.IdleTimeout = config.Server.IdleTimeout * time.Second
	config.Server.ReadHeaderTimeout = config.Server.ReadHeaderTimeout * time.Second
	config.Server.ShutdownTimeout = config.Server.ShutdownTimeout * time.Second

	config.Database.ConnMaxLifetime = config.Database.ConnMaxLifetime * time.Minute
	config.Database.ConnMaxIdleTime = config.Database.ConnMaxIdleTime * time.Minute
	config.Database.QueryTimeout = config.Database.QueryTimeout * time.Second
	config.Database.RetryDelay = config.Database.RetryDelay * time.Second
	config.Database.SlowQueryThreshold = config.Database.SlowQueryThreshold * time.Millisecond
	config.Database.MonitorInterval = config.Database.MonitorInterval * time.Second
}
