package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus collectors of the service
type PrometheusMetrics struct {
	// Redemption metrics
	RedemptionsTotal      *prometheus.CounterVec
	GatewayDuration       *prometheus.HistogramVec
	FinalizeAttemptsTotal *prometheus.CounterVec
	SlotRacesLostTotal    prometheus.Counter
	StaleRecoveredTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitHitsTotal  *prometheus.CounterVec

	// Database pool metrics
	DBOpenConnections  prometheus.Gauge
	DBInUseConnections prometheus.Gauge
	DBIdleConnections  prometheus.Gauge
	DBWaitCount        prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all collectors.
// A nil registry falls back to the default registerer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &PrometheusMetrics{
		RedemptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paylink_redemptions_total",
				Help: "Redemption attempts by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),
		GatewayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paylink_gateway_duration_seconds",
				Help:    "Latency of authorization gateway calls",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"decision"},
		),
		FinalizeAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paylink_finalize_attempts_total",
				Help: "Finalize storage attempts by result",
			},
			[]string{"result"},
		),
		SlotRacesLostTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "paylink_slot_races_lost_total",
				Help: "Approved authorizations that found no free slot at finalize time",
			},
		),
		StaleRecoveredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paylink_stale_transactions_recovered_total",
				Help: "Stale ledger rows forced to a terminal status",
			},
			[]string{"status"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paylink_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paylink_http_request_duration_seconds",
				Help:    "HTTP request latency by route and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paylink_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
		DBOpenConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "paylink_db_open_connections",
			Help: "Open database connections",
		}),
		DBInUseConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "paylink_db_in_use_connections",
			Help: "Database connections currently in use",
		}),
		DBIdleConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "paylink_db_idle_connections",
			Help: "Idle database connections",
		}),
		DBWaitCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "paylink_db_wait_count",
			Help: "Total connections waited for since start",
		}),
	}
}

// ObserveRedemption counts a redemption by outcome and reason
func (m *PrometheusMetrics) ObserveRedemption(outcome, reason string) {
	if reason == "" {
		reason = "none"
	}
	m.RedemptionsTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveGatewayCall records one authorization call
func (m *PrometheusMetrics) ObserveGatewayCall(decision string, duration time.Duration) {
	m.GatewayDuration.WithLabelValues(decision).Observe(duration.Seconds())
}

// ObserveFinalizeAttempt counts a finalize attempt
func (m *PrometheusMetrics) ObserveFinalizeAttempt(result string) {
	m.FinalizeAttemptsTotal.WithLabelValues(result).Inc()
}

// IncSlotRaceLost counts an approval that lost the last slot
func (m *PrometheusMetrics) IncSlotRaceLost() {
	m.SlotRacesLostTotal.Inc()
}

// AddStaleRecovered counts rows recovered by the sweeper
func (m *PrometheusMetrics) AddStaleRecovered(status string, count int64) {
	if count <= 0 {
		return
	}
	m.StaleRecoveredTotal.WithLabelValues(status).Add(float64(count))
}

// ObserveHTTPRequest records one served request
func (m *PrometheusMetrics) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// ObserveRateLimit counts a rate-limited request
func (m *PrometheusMetrics) ObserveRateLimit(route string) {
	m.RateLimitHitsTotal.WithLabelValues(route).Inc()
}

// SetDBPoolStats publishes a connection pool snapshot
func (m *PrometheusMetrics) SetDBPoolStats(open, inUse, idle int, waitCount int64) {
	m.DBOpenConnections.Set(float64(open))
	m.DBInUseConnections.Set(float64(inUse))
	m.DBIdleConnections.Set(float64(idle))
	m.DBWaitCount.Set(float64(waitCount))
}
