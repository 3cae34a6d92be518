package redemption

import (
	"context"
	"math/rand"
	"time"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
)

// RetryConfig holds configuration for finalize retries
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	JitterFactor    float64 // Fraction of the backoff added as random jitter (0.0-1.0)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     4,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		JitterFactor:    0.2,
	}
}

// retryOnTransientError runs operation until it succeeds, fails with a non-retryable
// error, or MaxAttempts is reached. Only errs.IsRetryable errors are retried.
func retryOnTransientError(
	ctx context.Context,
	config RetryConfig,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	metrics coreport.Metrics,
	operation func() error,
) error {
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = operation()
		if err == nil {
			metrics.ObserveFinalizeAttempt("ok")
			return nil
		}

		if !errs.IsRetryable(err) {
			metrics.ObserveFinalizeAttempt("error")
			return err
		}

		if attempt == maxAttempts-1 {
			break
		}

		metrics.ObserveFinalizeAttempt("retry")
		backoff := backoffWithJitter(attempt, config)
		logger.Warn("Transient storage error, retrying", map[string]any{
			"attempt":      attempt + 1,
			"max_attempts": maxAttempts,
			"error":        err.Error(),
			"retry_after":  backoff.String(),
		})

		if sleepErr := timeProvider.Sleep(ctx, backoff); sleepErr != nil {
			return sleepErr
		}
	}

	metrics.ObserveFinalizeAttempt("exhausted")
	logger.Error("All retry attempts failed", map[string]any{
		"max_attempts": maxAttempts,
		"error":        err.Error(),
	})
	return err
}

// backoffWithJitter computes InitialInterval * 2^attempt capped at MaxInterval, plus jitter
func backoffWithJitter(attempt int, config RetryConfig) time.Duration {
	backoff := config.InitialInterval * (1 << uint(attempt))
	if config.MaxInterval > 0 && (backoff > config.MaxInterval || backoff <= 0) {
		backoff = config.MaxInterval
	}

	if config.JitterFactor > 0 {
		backoff += time.Duration(float64(backoff) * config.JitterFactor * rand.Float64())
	}
	return backoff
}
