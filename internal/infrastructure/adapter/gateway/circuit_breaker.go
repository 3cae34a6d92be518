package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/gateway"
	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker in front of the gateway
type BreakerConfig struct {
	Enabled bool
	// MaxRequests allowed through while half-open
	MaxRequests uint32
	// Interval clears the closed-state counts; 0 never clears
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing
	Timeout             time.Duration
	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32
}

// CircuitBreakerGateway stops calling a failing gateway for a while.
// Declines are successful calls; only calls without a decision count as failures.
type CircuitBreakerGateway struct {
	next    gateway.AuthorizationGateway
	breaker *gobreaker.CircuitBreaker
	logger  coreport.Logger
}

// NewCircuitBreakerGateway wraps next. A disabled config returns next unchanged.
func NewCircuitBreakerGateway(next gateway.AuthorizationGateway, cfg BreakerConfig, logger coreport.Logger) gateway.AuthorizationGateway {
	if !cfg.Enabled {
		return next
	}

	settings := gobreaker.Settings{
		Name:        "authorization_gateway",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if cfg.FailureRatio > 0 && cfg.MinRequests > 0 && counts.Requests >= cfg.MinRequests {
				return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}

	return &CircuitBreakerGateway{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Authorize forwards to the wrapped gateway unless the breaker is open
func (g *CircuitBreakerGateway) Authorize(ctx context.Context, request gateway.AuthorizationRequest) (entity.AuthorizationDecision, error) {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Authorize(ctx, request)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return entity.AuthorizationDecision{}, fmt.Errorf("%w: circuit breaker %s", errs.ErrGatewayUnavailable, g.breaker.State())
		}
		return entity.AuthorizationDecision{}, err
	}

	decision, ok := result.(entity.AuthorizationDecision)
	if !ok {
		return entity.AuthorizationDecision{}, fmt.Errorf("%w: unexpected gateway result %T", errs.ErrGatewayUnavailable, result)
	}
	return decision, nil
}

// State reports the breaker state for health output
func (g *CircuitBreakerGateway) State() string {
	return g.breaker.State().String()
}
