package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/gateway"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/logger"
	timeadapter "github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/time"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		number   string
		approved bool
		code     string
		reason   entity.FailureReason
	}{
		{name: "Approved", number: "4242424242424242", approved: true, code: CodeApproved},
		{name: "Luhn failure", number: "4242424242424241", code: CodeInvalidCard, reason: entity.FailureInvalidCard},
		{name: "Generic decline", number: "4000000000000002", code: CodeDoNotHonor, reason: entity.FailureCardDeclined},
		{name: "Insufficient funds", number: "4000000000009995", code: CodeInsufficient, reason: entity.FailureInsufficientFunds},
		{name: "Expired card", number: "4000000000000069", code: CodeExpiredCard, reason: entity.FailureExpiredCard},
		{name: "Processing error", number: "4000000000000119", code: CodeProcessingError, reason: entity.FailureProcessingError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Decide(tt.number)

			assert.Equal(t, tt.approved, decision.Approved)
			assert.Equal(t, tt.code, decision.ResponseCode)
			assert.Equal(t, tt.reason, decision.FailureReason)
		})
	}
}

func TestSimulatedGateway(t *testing.T) {
	request := gateway.AuthorizationRequest{
		TransactionID: "tx-1",
		Card:          entity.Card{Number: "4242424242424242"},
	}

	t.Run("Approves after latency", func(t *testing.T) {
		gw := NewSimulatedGateway(SimulatorConfig{MinLatency: time.Millisecond, MaxLatency: 2 * time.Millisecond}, timeadapter.NewRealTimeProvider(), logger.NewNoopLogger())

		decision, err := gw.Authorize(context.Background(), request)

		require.NoError(t, err)
		assert.True(t, decision.Approved)
	})

	t.Run("Honors context deadline", func(t *testing.T) {
		gw := NewSimulatedGateway(SimulatorConfig{MinLatency: time.Second, MaxLatency: time.Second}, timeadapter.NewRealTimeProvider(), logger.NewNoopLogger())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		defer cancel()

		_, err := gw.Authorize(ctx, request)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Outage returns unavailable", func(t *testing.T) {
		gw := NewSimulatedGateway(SimulatorConfig{OutageRate: 1}, timeadapter.NewRealTimeProvider(), logger.NewNoopLogger())
		gw.random = func() float64 { return 0.5 }

		_, err := gw.Authorize(context.Background(), request)

		assert.ErrorIs(t, err, errs.ErrGatewayUnavailable)
	})
}
