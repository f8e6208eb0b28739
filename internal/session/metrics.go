package session

import (
	"fmt"
	"maps"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricLoginSuccess     = "session.login.success"
	metricLoginFailure     = "session.login.failure"
	metricLoginRejected    = "session.login.rejected_in_flight"
	metricLogout           = "session.logout"
	metricRevokeSuccess    = "session.revoke.success"
	metricRevokeFailure    = "session.revoke.failure"
	metricLocalClear       = "session.local_clear"
	metricHydrated         = "session.hydrate.restored"
	metricGuardDenied      = "session.guard.denied"
	metricTokenSourceEmpty = "session.token_source.unavailable"
)

// MetricsRecorder increments counters for session events.
type MetricsRecorder interface {
	Increment(event string)
}

// CounterMetrics keeps session event counts in memory. It is the default
// recorder when none is configured.
type CounterMetrics struct {
	mutex  sync.Mutex
	counts map[string]int64
}

// NewCounterMetrics returns an empty recorder.
func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{counts: make(map[string]int64)}
}

// Increment increases the counter for the given event.
func (recorder *CounterMetrics) Increment(event string) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.counts[event]++
}

// Count reports how many times event was recorded.
func (recorder *CounterMetrics) Count(event string) int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return recorder.counts[event]
}

// Snapshot copies every count.
func (recorder *CounterMetrics) Snapshot() map[string]int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return maps.Clone(recorder.counts)
}

// PrometheusMetrics implements MetricsRecorder with a labelled Prometheus counter.
type PrometheusMetrics struct {
	events *prometheus.CounterVec
}

// NewPrometheusMetrics registers the session event counter on the given registerer.
func NewPrometheusMetrics(registerer prometheus.Registerer) (*PrometheusMetrics, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petjo_admin",
		Name:      "session_events_total",
		Help:      "Session lifecycle events by name.",
	}, []string{"event"})
	if err := registerer.Register(events); err != nil {
		return nil, fmt.Errorf("session.metrics.register: %w", err)
	}
	return &PrometheusMetrics{events: events}, nil
}

// Increment increases the counter for the given event.
func (recorder *PrometheusMetrics) Increment(event string) {
	recorder.events.WithLabelValues(event).Inc()
}
