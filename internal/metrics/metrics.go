// Package metrics provides the centralized Prometheus metrics registry for
// the Crosscheck engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crosscheck",
		Name:      "evaluations_total",
		Help:      "Total number of ticker evaluations by status",
	}, []string{"status"})
	VerdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crosscheck",
		Name:      "verdicts_total",
		Help:      "Total number of verdicts issued by kind",
	}, []string{"verdict"})
	EventsDetectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "crosscheck",
		Name:      "events_detected_total",
		Help:      "Total number of raw crossover events detected",
	})
	ValidEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "crosscheck",
		Name:      "valid_events_total",
		Help:      "Total number of events surviving persistence, cooldown, and conflict gates",
	})
	ModelFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "crosscheck",
		Name:      "model_fallbacks_total",
		Help:      "Total number of market model fits that fell back to passthrough coefficients",
	})
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crosscheck",
		Name:      "provider_requests_total",
		Help:      "Total number of provider requests by provider and status",
	}, []string{"provider", "status"})
	ProviderCircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "crosscheck",
		Name:      "provider_circuit_breaker_trips_total",
		Help:      "Total number of provider circuit breaker trips",
	})
)

// Gauge metrics
var (
	BarCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "crosscheck",
		Name:      "bar_cache_hit_ratio",
		Help:      "Hit ratio of the daily bar cache",
	})
	LastScanTickers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "crosscheck",
		Name:      "last_scan_tickers",
		Help:      "Number of tickers evaluated in the most recent scan",
	})
	QuoteFeedConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "crosscheck",
		Name:      "quote_feed_connected",
		Help:      "Whether the live quote feed is connected (1) or not (0)",
	})
)

// Histogram metrics
var (
	EvaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crosscheck",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of single-ticker evaluations in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crosscheck",
		Name:      "scan_duration_seconds",
		Help:      "Duration of full multi-ticker scans in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
	ProviderRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crosscheck",
		Name:      "provider_request_duration_seconds",
		Help:      "Latency of provider requests in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(EvaluationsTotal)
		registry.MustRegister(VerdictsTotal)
		registry.MustRegister(EventsDetectedTotal)
		registry.MustRegister(ValidEventsTotal)
		registry.MustRegister(ModelFallbacksTotal)
		registry.MustRegister(ProviderRequestsTotal)
		registry.MustRegister(ProviderCircuitBreakerTripsTotal)

		// Register gauge metrics
		registry.MustRegister(BarCacheHitRatio)
		registry.MustRegister(LastScanTickers)
		registry.MustRegister(QuoteFeedConnected)

		// Register histogram metrics
		registry.MustRegister(EvaluationDuration)
		registry.MustRegister(ScanDuration)
		registry.MustRegister(ProviderRequestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordEvaluation records a ticker evaluation event.
// status should be one of: "success", "skip", "error"
func RecordEvaluation(status string) {
	EvaluationsTotal.WithLabelValues(status).Inc()
}

// RecordVerdict records an issued verdict by kind.
func RecordVerdict(verdict string) {
	VerdictsTotal.WithLabelValues(verdict).Inc()
}

// RecordEventsDetected records raw and valid event counts for a run.
func RecordEventsDetected(raw, valid int) {
	EventsDetectedTotal.Add(float64(raw))
	ValidEventsTotal.Add(float64(valid))
}

// RecordModelFallback records a passthrough market model fallback.
func RecordModelFallback() {
	ModelFallbacksTotal.Inc()
}

// RecordProviderRequest records a provider request outcome.
func RecordProviderRequest(provider, status string, durationSeconds float64) {
	ProviderRequestsTotal.WithLabelValues(provider, status).Inc()
	ProviderRequestDuration.Observe(durationSeconds)
}

// RecordProviderCircuitBreakerTrip records a provider circuit breaker trip.
func RecordProviderCircuitBreakerTrip() {
	ProviderCircuitBreakerTripsTotal.Inc()
}

// UpdateBarCacheHitRatio updates the bar cache hit ratio gauge.
func UpdateBarCacheHitRatio(ratio float64) {
	BarCacheHitRatio.Set(ratio)
}

// UpdateQuoteFeedConnected updates the quote feed connection gauge.
func UpdateQuoteFeedConnected(connected bool) {
	if connected {
		QuoteFeedConnected.Set(1)
	} else {
		QuoteFeedConnected.Set(0)
	}
}

// RecordEvaluationDuration records a single-ticker evaluation duration.
func RecordEvaluationDuration(durationSeconds float64) {
	EvaluationDuration.Observe(durationSeconds)
}

// RecordScanDuration records a full scan duration and its ticker count.
func RecordScanDuration(durationSeconds float64, tickers int) {
	ScanDuration.Observe(durationSeconds)
	LastScanTickers.Set(float64(tickers))
}
