package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
)

// finalize writes the terminal outcome of txn. For an approval it takes a slot with the
// conditional update and completes the ledger row in one storage transaction; losing the
// slot race fails the row with LinkExhaustedConcurrently. Transient storage faults are
// retried; when retries run out the row is forced to failed with InternalError.
// The returned transaction is always terminal.
func (c *Coordinator) finalize(
	ctx context.Context,
	link *entity.PaymentLink,
	txn *entity.Transaction,
	decision entity.AuthorizationDecision,
	log coreport.Logger,
) *entity.Transaction {
	var final *entity.Transaction

	err := retryOnTransientError(ctx, c.config.Retry, c.timeProvider, log, c.metrics, func() error {
		var attemptErr error
		if decision.Approved {
			final, attemptErr = c.finalizeApproved(ctx, link, txn, decision, log)
		} else {
			final, attemptErr = c.finalizeDeclined(ctx, txn, decision)
		}
		return attemptErr
	})
	if err == nil {
		return final
	}

	if errors.Is(err, errs.ErrTransactionFinalized) {
		// Someone else (the stale sweeper) finalized the row first; report what is stored.
		return c.storedOutcome(ctx, txn, log)
	}

	log.Error("Finalize failed, forcing attempt to failed", map[string]any{
		"error": err.Error(),
	})
	return c.forceFail(ctx, txn, log)
}

// finalizeApproved consumes a slot and completes the row, or fails it when no slot is left
func (c *Coordinator) finalizeApproved(
	ctx context.Context,
	link *entity.PaymentLink,
	txn *entity.Transaction,
	decision entity.AuthorizationDecision,
	log coreport.Logger,
) (*entity.Transaction, error) {
	txCtx, err := c.uow.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin finalize: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := c.uow.Rollback(txCtx); rbErr != nil {
			log.Warn("Failed to roll back finalize", map[string]any{
				"error": rbErr.Error(),
			})
		}
	}()

	now := c.timeProvider.Now()
	consumed, err := c.uow.GetLinkRepository(txCtx).ConsumeSlot(txCtx, link.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to consume link slot: %w", err)
	}

	candidate := txn.Clone()
	if consumed {
		if err := candidate.Complete(decision, now); err != nil {
			return nil, err
		}
	} else {
		c.metrics.IncSlotRaceLost()
		log.Warn("Approved attempt lost the last slot to a concurrent redemption", map[string]any{
			"max_uses": link.MaxUses,
		})
		if err := candidate.Fail(entity.FailureLinkExhaustedConcurrently, decision.ResponseCode, errs.ErrLinkExhaustedConcurrently.Error(), now); err != nil {
			return nil, err
		}
	}

	if err := c.uow.GetTransactionRepository(txCtx).Finalize(txCtx, candidate); err != nil {
		return nil, err
	}

	if err := c.uow.Commit(txCtx); err != nil {
		return nil, fmt.Errorf("failed to commit finalize: %w", err)
	}
	committed = true

	return candidate, nil
}

// finalizeDeclined fails the row. Declines never touch the slot counter.
func (c *Coordinator) finalizeDeclined(ctx context.Context, txn *entity.Transaction, decision entity.AuthorizationDecision) (*entity.Transaction, error) {
	candidate := txn.Clone()
	if err := candidate.Fail(decision.FailureReason, decision.ResponseCode, decision.ResponseMessage, c.timeProvider.Now()); err != nil {
		return nil, err
	}

	if err := c.txRepo.Finalize(ctx, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

// forceFail records InternalError after finalize gave up. If even that write fails the
// row stays processing in storage and the stale sweeper finalizes it the same way.
func (c *Coordinator) forceFail(ctx context.Context, txn *entity.Transaction, log coreport.Logger) *entity.Transaction {
	candidate := txn.Clone()
	if err := candidate.Fail(entity.FailureInternalError, "", errs.ErrInternalServer.Error(), c.timeProvider.Now()); err != nil {
		log.Error("Cannot mark attempt failed", map[string]any{"error": err.Error()})
		return candidate
	}

	err := retryOnTransientError(ctx, c.config.Retry, c.timeProvider, log, c.metrics, func() error {
		return c.txRepo.Finalize(ctx, candidate)
	})
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrTransactionFinalized):
		return c.storedOutcome(ctx, txn, log)
	default:
		log.Error("Failed to persist forced failure, leaving it to the stale sweeper", map[string]any{
			"error": err.Error(),
		})
	}
	return candidate
}

// storedOutcome reloads the row after another writer finalized it
func (c *Coordinator) storedOutcome(ctx context.Context, txn *entity.Transaction, log coreport.Logger) *entity.Transaction {
	stored, err := c.txRepo.GetByID(ctx, txn.ID)
	if err == nil && stored.IsTerminal() {
		return stored
	}

	fields := map[string]any{}
	if err != nil {
		fields["error"] = err.Error()
	}
	log.Error("Attempt was finalized elsewhere but could not be reloaded", fields)

	candidate := txn.Clone()
	_ = candidate.Fail(entity.FailureInternalError, "", errs.ErrInternalServer.Error(), c.timeProvider.Now())
	return candidate
}
