package metrics

import "time"

// NoopMetrics discards every measurement
type NoopMetrics struct{}

// NewNoopMetrics creates a recorder used when metrics are disabled and in tests
func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (NoopMetrics) ObserveRedemption(string, string)                      {}
func (NoopMetrics) ObserveGatewayCall(string, time.Duration)              {}
func (NoopMetrics) ObserveFinalizeAttempt(string)                         {}
func (NoopMetrics) IncSlotRaceLost()                                      {}
func (NoopMetrics) AddStaleRecovered(string, int64)                       {}
func (NoopMetrics) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (NoopMetrics) ObserveRateLimit(string)                               {}
func (NoopMetrics) SetDBPoolStats(int, int, int, int64)                   {}
