package redemption

import (
	"context"
	"sync"
	"time"

	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/usecase"
)

// StaleSweeper periodically runs stale-attempt recovery in the background
type StaleSweeper struct {
	useCase  usecase.RedemptionUseCase
	interval time.Duration
	timeout  time.Duration
	logger   coreport.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStaleSweeper creates a sweeper; each run is bounded by timeout
func NewStaleSweeper(useCase usecase.RedemptionUseCase, interval, timeout time.Duration, logger coreport.Logger) *StaleSweeper {
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &StaleSweeper{
		useCase:  useCase,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop. The first sweep runs immediately.
func (s *StaleSweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.logger.Info("Stale attempt sweeper started", map[string]any{
			"interval": s.interval.String(),
		})

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweep()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				s.logger.Info("Stale attempt sweeper stopped", nil)
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight sweep to finish
func (s *StaleSweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *StaleSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.useCase.RecoverStale(ctx); err != nil {
		s.logger.Error("Stale attempt sweep failed", map[string]any{
			"error": err.Error(),
		})
	}
}
