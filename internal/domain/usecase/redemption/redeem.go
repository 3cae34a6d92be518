package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/gateway"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
)

// Metric outcome labels
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeRejected  = "rejected"
	outcomeReplayed  = "replayed"
)

// Redeem runs one redemption attempt:
//  1. resolve the link by token
//  2. replay an earlier attempt with the same idempotency key
//  3. optimistic pre-check of active, expiry and capacity
//  4. structural payer and card validation
//  5. ledger entry in processing
//  6. authorization with a fixed timeout, any failure being a decline
//  7. atomic finalize: conditional slot increment plus terminal ledger write
//
// Errors are returned only from steps 1-5, before anything is persisted.
// From step 6 on the attempt is detached from caller cancellation and always ends terminal.
func (c *Coordinator) Redeem(ctx context.Context, input usecase.RedeemInput) (*usecase.RedeemOutput, error) {
	input = c.validator.Normalize(input)

	if input.LinkToken == "" {
		return nil, errs.ErrLinkNotFound
	}
	if err := c.validator.ValidateIdempotencyKey(input.IdempotencyKey); err != nil {
		return nil, err
	}

	// Step 1: resolve
	link, err := c.linkRepo.GetByToken(ctx, input.LinkToken)
	if err != nil {
		if errs.IsNotFoundError(err) {
			c.metrics.ObserveRedemption(outcomeRejected, "not_found")
		}
		return nil, err
	}

	// Step 2: idempotent replay
	if existing, found, err := c.idempotency.CheckIdempotency(ctx, link.ID, input.IdempotencyKey); err != nil {
		return nil, err
	} else if found {
		c.metrics.ObserveRedemption(outcomeReplayed, string(existing.FailureReason))
		c.logger.Info("Replaying redemption for idempotency key", map[string]any{
			"link_token":     link.Token,
			"transaction_id": existing.ID,
			"status":         existing.Status,
		})
		return &usecase.RedeemOutput{Transaction: existing, Replayed: true}, nil
	}

	// Step 3: optimistic pre-check, advisory only
	now := c.timeProvider.Now()
	if err := link.CheckRedeemable(now); err != nil {
		var linkErr *errs.LinkError
		if errors.As(err, &linkErr) {
			c.logger.Info("Redemption rejected by link state", linkErr.LogFields())
		}
		c.metrics.ObserveRedemption(outcomeRejected, rejectionLabel(err))
		return nil, err
	}

	// Step 4: structural validation
	if err := c.validator.ValidatePayment(input.Payer, input.Card, now); err != nil {
		c.metrics.ObserveRedemption(outcomeRejected, "validation")
		return nil, err
	}

	// Step 5: ledger entry
	txn := entity.NewTransaction(c.idGenerator.NewTransactionID(), link, input.Payer, input.Card, input.IdempotencyKey, now)
	if err := txn.MarkProcessing(now); err != nil {
		return nil, err
	}

	if err := c.txRepo.Create(ctx, txn); err != nil {
		if errors.Is(err, errs.ErrDuplicateIdempotencyKey) {
			// A concurrent request with the same key won the insert
			return c.replayAfterConflict(ctx, link, input.IdempotencyKey)
		}
		c.logger.Error("Failed to record redemption attempt", map[string]any{
			"link_token": link.Token,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to record redemption attempt: %w", err)
	}

	log := c.logger.With(map[string]any{
		"link_token":     link.Token,
		"transaction_id": txn.ID,
	})
	log.Info("Redemption attempt recorded", map[string]any{
		"card_brand": txn.PaymentMethod.Brand,
		"card_last4": txn.PaymentMethod.Last4,
		"amount":     entity.FormatAmount(txn.Amount),
		"currency":   txn.Currency,
	})

	// The ledger row exists now; a disconnecting client must not strand it.
	detached := context.WithoutCancel(ctx)

	// Step 6: authorization
	decision := c.authorize(detached, txn, input.Card, log)

	// Step 7: atomic finalize
	final := c.finalize(detached, link, txn, decision, log)

	outcome := outcomeFailed
	if final.Status == entity.StatusCompleted {
		outcome = outcomeCompleted
	}
	c.metrics.ObserveRedemption(outcome, string(final.FailureReason))
	log.Info("Redemption finished", map[string]any{
		"status":         final.Status,
		"failure_reason": final.FailureReason,
	})

	return &usecase.RedeemOutput{Transaction: final}, nil
}

type gatewayResult struct {
	decision entity.AuthorizationDecision
	err      error
}

// authorize calls the gateway with the fixed timeout and maps every failure to a decline.
// The timeout holds even when the adapter ignores ctx: a late answer is dropped.
func (c *Coordinator) authorize(ctx context.Context, txn *entity.Transaction, card entity.Card, log coreport.Logger) entity.AuthorizationDecision {
	gwCtx, cancel := c.timeProvider.WithTimeout(ctx, c.config.GatewayTimeout)
	defer cancel()

	request := gateway.AuthorizationRequest{
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Card:          card,
	}

	started := c.timeProvider.Now()
	results := make(chan gatewayResult, 1)
	go func() {
		decision, err := c.gateway.Authorize(gwCtx, request)
		results <- gatewayResult{decision: decision, err: err}
	}()

	var result gatewayResult
	select {
	case result = <-results:
	case <-gwCtx.Done():
		result.err = fmt.Errorf("%w: no decision within %s", errs.ErrGatewayTimeout, c.config.GatewayTimeout)
	}
	elapsed := c.timeProvider.Since(started)

	if err := result.err; err != nil {
		reason := entity.FailureGatewayUnavailable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errs.ErrGatewayTimeout) || errors.Is(gwCtx.Err(), context.DeadlineExceeded) {
			reason = entity.FailureGatewayTimeout
		}
		c.metrics.ObserveGatewayCall(string(reason), elapsed)
		log.Warn("Authorization gateway did not decide", map[string]any{
			"error":   err.Error(),
			"reason":  reason,
			"elapsed": elapsed.String(),
		})
		return entity.AuthorizationDecision{
			Approved:        false,
			ResponseMessage: err.Error(),
			FailureReason:   reason,
		}
	}

	decision := result.decision
	if decision.Approved {
		decision.FailureReason = entity.FailureNone
		c.metrics.ObserveGatewayCall("approved", elapsed)
		return decision
	}

	// Timeout, concurrency and internal reasons belong to the coordinator
	if !decision.FailureReason.IsGatewayReason() {
		if decision.FailureReason != entity.FailureNone {
			log.Warn("Gateway returned a non-gateway decline reason", map[string]any{
				"failure_reason": decision.FailureReason,
				"response_code":  decision.ResponseCode,
			})
		}
		decision.FailureReason = entity.FailureCardDeclined
	}
	c.metrics.ObserveGatewayCall(string(decision.FailureReason), elapsed)
	return decision
}

// replayAfterConflict returns the attempt that won a same-key insert race
func (c *Coordinator) replayAfterConflict(ctx context.Context, link *entity.PaymentLink, key string) (*usecase.RedeemOutput, error) {
	existing, found, err := c.idempotency.CheckIdempotency(ctx, link.ID, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: idempotency key conflict without a stored attempt", errs.ErrDuplicateIdempotencyKey)
	}
	c.metrics.ObserveRedemption(outcomeReplayed, string(existing.FailureReason))
	return &usecase.RedeemOutput{Transaction: existing, Replayed: true}, nil
}

func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, errs.ErrLinkInactive):
		return "inactive"
	case errors.Is(err, errs.ErrLinkExpired):
		return "expired"
	case errors.Is(err, errs.ErrLinkExhausted):
		return "exhausted"
	default:
		return "other"
	}
}
