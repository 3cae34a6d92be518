package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/gateway"
)

// Response codes returned by the simulator, modeled on ISO 8583 action codes
const (
	CodeApproved        = "00"
	CodeDoNotHonor      = "05"
	CodeInvalidCard     = "14"
	CodeInsufficient    = "51"
	CodeExpiredCard     = "54"
	CodeProcessingError = "96"
)

// Trigger suffixes that force a specific decline
const (
	SuffixDeclined          = "0002"
	SuffixInsufficientFunds = "9995"
	SuffixExpiredCard       = "0069"
	SuffixProcessingError   = "0119"
)

// SimulatorConfig tunes the simulated gateway
type SimulatorConfig struct {
	MinLatency time.Duration
	MaxLatency time.Duration
	// OutageRate is the probability that a call fails without a decision
	OutageRate float64
}

// SimulatedGateway decides authorizations from the card number alone:
// numbers failing the Luhn check are invalid, a few trigger suffixes decline,
// everything else is approved after a bounded random delay.
type SimulatedGateway struct {
	config       SimulatorConfig
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
	random       func() float64
}

// NewSimulatedGateway creates a new SimulatedGateway
func NewSimulatedGateway(config SimulatorConfig, timeProvider coreport.TimeProvider, logger coreport.Logger) *SimulatedGateway {
	if config.MaxLatency < config.MinLatency {
		config.MaxLatency = config.MinLatency
	}
	return &SimulatedGateway{
		config:       config,
		timeProvider: timeProvider,
		logger:       logger,
		random:       rand.Float64,
	}
}

// Authorize waits the simulated network latency, then decides
func (g *SimulatedGateway) Authorize(ctx context.Context, request gateway.AuthorizationRequest) (entity.AuthorizationDecision, error) {
	if err := g.timeProvider.Sleep(ctx, g.latency()); err != nil {
		return entity.AuthorizationDecision{}, err
	}

	if g.config.OutageRate > 0 && g.random() < g.config.OutageRate {
		g.logger.Warn("Simulated gateway outage", map[string]any{
			"transaction_id": request.TransactionID,
		})
		return entity.AuthorizationDecision{}, fmt.Errorf("%w: simulated outage", errs.ErrGatewayUnavailable)
	}

	decision := Decide(request.Card.Number)
	g.logger.Debug("Simulated authorization decided", map[string]any{
		"transaction_id": request.TransactionID,
		"approved":       decision.Approved,
		"response_code":  decision.ResponseCode,
		"card_last4":     request.Card.Last4(),
	})
	return decision, nil
}

func (g *SimulatedGateway) latency() time.Duration {
	spread := g.config.MaxLatency - g.config.MinLatency
	if spread <= 0 {
		return g.config.MinLatency
	}
	return g.config.MinLatency + time.Duration(g.random()*float64(spread))
}

// Decide maps a card number to the simulator's deterministic decision
func Decide(number string) entity.AuthorizationDecision {
	if !entity.LuhnValid(number) {
		return decline(CodeInvalidCard, "invalid card number", entity.FailureInvalidCard)
	}

	switch (entity.Card{Number: number}).Last4() {
	case SuffixDeclined:
		return decline(CodeDoNotHonor, "do not honor", entity.FailureCardDeclined)
	case SuffixInsufficientFunds:
		return decline(CodeInsufficient, "insufficient funds", entity.FailureInsufficientFunds)
	case SuffixExpiredCard:
		return decline(CodeExpiredCard, "expired card", entity.FailureExpiredCard)
	case SuffixProcessingError:
		return decline(CodeProcessingError, "system malfunction", entity.FailureProcessingError)
	default:
		return entity.AuthorizationDecision{
			Approved:        true,
			ResponseCode:    CodeApproved,
			ResponseMessage: "approved",
		}
	}
}

func decline(code, message string, reason entity.FailureReason) entity.AuthorizationDecision {
	return entity.AuthorizationDecision{
		Approved:        false,
		ResponseCode:    code,
		ResponseMessage: message,
		FailureReason:   reason,
	}
}
