package redemption

import (
	"context"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
)

// RecoverStale finalizes attempts abandoned by a crash or a lost write: rows in processing
// older than StaleAfter become failed with InternalError, stale pending rows are cancelled.
// Slots are never consumed here.
func (c *Coordinator) RecoverStale(ctx context.Context) (*usecase.RecoveryReport, error) {
	now := c.timeProvider.Now()
	cutoff := now.Add(-c.config.StaleAfter)

	failed, err := c.txRepo.FinalizeStale(ctx, entity.StatusProcessing, entity.StatusFailed, entity.FailureInternalError, cutoff, now)
	if err != nil {
		c.logger.Error("Failed to recover stale processing attempts", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}
	c.metrics.AddStaleRecovered(string(entity.StatusFailed), failed)

	cancelled, err := c.txRepo.FinalizeStale(ctx, entity.StatusPending, entity.StatusCancelled, entity.FailureAbandoned, cutoff, now)
	if err != nil {
		c.logger.Error("Failed to recover stale pending attempts", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}
	c.metrics.AddStaleRecovered(string(entity.StatusCancelled), cancelled)

	if failed > 0 || cancelled > 0 {
		c.logger.Warn("Recovered stale redemption attempts", map[string]any{
			"failed_processing": failed,
			"cancelled_pending": cancelled,
			"cutoff":            cutoff,
		})
	}

	return &usecase.RecoveryReport{
		FailedProcessing: failed,
		CancelledPending: cancelled,
	}, nil
}
