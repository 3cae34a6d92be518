package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Logger      LoggerConfig     `mapstructure:"logger"`
	Redemption  RedemptionConfig `mapstructure:"redemption"`
	Gateway     GatewayConfig    `mapstructure:"gateway"`
	Auth        AuthConfig       `mapstructure:"auth"`
	RateLimit   RateLimitConfig  `mapstructure:"rateLimit"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`       // seconds
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`      // seconds
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`       // seconds
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"` // seconds
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`   // seconds
	PublicBaseURL     string        `mapstructure:"publicBaseURL"`
	AllowedOrigins    []string      `mapstructure:"allowedOrigins"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"` // postgres or memory
	Host               string        `mapstructure:"host"`
	Port               string        `mapstructure:"port"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	Database           string        `mapstructure:"database"`
	SSLMode            string        `mapstructure:"sslMode"`
	MaxOpenConns       int           `mapstructure:"maxOpenConns"`
	MaxIdleConns       int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime    time.Duration `mapstructure:"connMaxLifetime"`    // minutes
	ConnMaxIdleTime    time.Duration `mapstructure:"connMaxIdleTime"`    // minutes
	QueryTimeout       time.Duration `mapstructure:"queryTimeout"`       // seconds
	RetryAttempts      int           `mapstructure:"retryAttempts"`
	RetryDelay         time.Duration `mapstructure:"retryDelay"`         // seconds
	SlowQueryThreshold time.Duration `mapstructure:"slowQueryThreshold"` // milliseconds
	MonitorInterval    time.Duration `mapstructure:"monitorInterval"`    // seconds
	IsolationLevel     string        `mapstructure:"isolationLevel"`
	LogLevel           string        `mapstructure:"logLevel"`
	AutoMigrate        bool          `mapstructure:"autoMigrate"`
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"timeFormat"`
	CallerInfo bool   `mapstructure:"callerInfo"`
}

// RedemptionConfig contains redemption coordinator settings
type RedemptionConfig struct {
	GatewayTimeoutMs        int64   `mapstructure:"gatewayTimeoutMs"`
	FinalizeMaxAttempts     int     `mapstructure:"finalizeMaxAttempts"`
	FinalizeRetryDelayMs    int64   `mapstructure:"finalizeRetryDelayMs"`
	FinalizeMaxRetryDelayMs int64   `mapstructure:"finalizeMaxRetryDelayMs"`
	FinalizeJitterFactor    float64 `mapstructure:"finalizeJitterFactor"`
	StaleAfterSeconds       int64   `mapstructure:"staleAfterSeconds"`
	SweepIntervalSeconds    int64   `mapstructure:"sweepIntervalSeconds"`
	SweepTimeoutSeconds     int64   `mapstructure:"sweepTimeoutSeconds"`
}

// GatewayTimeout is the fixed bound on one authorization call
func (c RedemptionConfig) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutMs) * time.Millisecond
}

// StaleAfter is how long a non-terminal ledger row may sit before the sweeper finalizes it
func (c RedemptionConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterSeconds) * time.Second
}

// SweepInterval is the period of the stale sweeper
func (c RedemptionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// SweepTimeout bounds one sweep
func (c RedemptionConfig) SweepTimeout() time.Duration {
	return time.Duration(c.SweepTimeoutSeconds) * time.Second
}

// GatewayConfig contains settings of the simulated authorization gateway
type GatewayConfig struct {
	MinLatencyMs int64         `mapstructure:"minLatencyMs"`
	MaxLatencyMs int64         `mapstructure:"maxLatencyMs"`
	OutageRate   float64       `mapstructure:"outageRate"`
	Breaker      BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig contains circuit breaker settings
type BreakerConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	MaxRequests         uint32  `mapstructure:"maxRequests"`
	IntervalSeconds     int64   `mapstructure:"intervalSeconds"`
	TimeoutSeconds      int64   `mapstructure:"timeoutSeconds"`
	ConsecutiveFailures uint32  `mapstructure:"consecutiveFailures"`
	FailureRatio        float64 `mapstructure:"failureRatio"`
	MinRequests         uint32  `mapstructure:"minRequests"`
}

// AuthConfig contains owner authentication settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwtSecret"`
	Issuer    string `mapstructure:"issuer"`
}

// RateLimitConfig contains per-client rate limits of the public redemption endpoints
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requestsPerMinute"`
	Burst             int  `mapstructure:"burst"`
}

// MetricsConfig contains Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
