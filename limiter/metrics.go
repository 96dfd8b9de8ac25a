/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import "github.com/prometheus/client_golang/prometheus"

const metricsLabelLimiter = "limiter"

// MetricsCollector counts overlimit events per limiter.
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// IncOverlimit increments the overlimit counter of the named limiter.
	IncOverlimit(limiterName string)
}

type disabledMetrics struct{}

func (disabledMetrics) IncOverlimit(string) {}

// DisabledMetrics is a no-op MetricsCollector.
// It is the default when no collector is configured.
var DisabledMetrics MetricsCollector = disabledMetrics{}

// PrometheusMetrics is a MetricsCollector backed by a Prometheus counter vec.
type PrometheusMetrics struct {
	Overlimits *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	overlimits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_limiter_overlimits_total",
		Help:      "Number of operations that exceeded the rate budget of the limiter.",
	}, []string{metricsLabelLimiter})
	return &PrometheusMetrics{Overlimits: overlimits}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{Overlimits: pm.Overlimits.MustCurryWith(labels)}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Overlimits)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Overlimits)
}

// IncOverlimit increments the overlimit counter of the named limiter.
// Implements MetricsCollector interface.
func (pm *PrometheusMetrics) IncOverlimit(limiterName string) {
	pm.Overlimits.With(prometheus.Labels{metricsLabelLimiter: limiterName}).Inc()
}
