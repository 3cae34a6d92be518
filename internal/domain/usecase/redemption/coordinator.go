package redemption

import (
	"time"

	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/gateway"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
)

// Config tunes the redemption protocol
type Config struct {
	// GatewayTimeout bounds one authorization call; hitting it is a decline
	GatewayTimeout time.Duration
	// Retry governs finalize retries on transient storage faults
	Retry RetryConfig
	// StaleAfter is how long an attempt may stay non-terminal before the sweeper finalizes it
	StaleAfter time.Duration
}

// DefaultConfig returns the default protocol settings
func DefaultConfig() Config {
	return Config{
		GatewayTimeout: 10 * time.Second,
		Retry:          DefaultRetryConfig(),
		StaleAfter:     5 * time.Minute,
	}
}

// Coordinator runs the redemption protocol. It holds no per-link state; the only
// cross-request synchronization is the conditional slot update in storage.
type Coordinator struct {
	linkRepo     persistence.LinkRepository
	txRepo       persistence.TransactionRepository
	uow          persistence.UnitOfWork
	gateway      gateway.AuthorizationGateway
	idGenerator  coreport.IDGenerator
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	metrics      coreport.Metrics
	validator    *RedemptionValidator
	idempotency  *IdempotencyHandler
	config       Config
}

// NewCoordinator creates a new redemption Coordinator
func NewCoordinator(
	linkRepo persistence.LinkRepository,
	txRepo persistence.TransactionRepository,
	uow persistence.UnitOfWork,
	authGateway gateway.AuthorizationGateway,
	idGenerator coreport.IDGenerator,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	metrics coreport.Metrics,
	config Config,
) *Coordinator {
	if config.GatewayTimeout <= 0 {
		config.GatewayTimeout = DefaultConfig().GatewayTimeout
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultConfig().StaleAfter
	}

	return &Coordinator{
		linkRepo:     linkRepo,
		txRepo:       txRepo,
		uow:          uow,
		gateway:      authGateway,
		idGenerator:  idGenerator,
		timeProvider: timeProvider,
		logger:       logger,
		metrics:      metrics,
		validator:    NewRedemptionValidator(),
		idempotency:  NewIdempotencyHandler(txRepo),
		config:       config,
	}
}
