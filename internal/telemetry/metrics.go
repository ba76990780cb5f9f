// Package telemetry exposes Prometheus metrics for the starboard and the
// speedrun poller.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "starboard"

// Metrics holds every collector the bot records to. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	observations   *prometheus.CounterVec
	mirrorFailures prometheus.Counter
	trackedRecords prometheus.Gauge
	runsAnnounced  *prometheus.CounterVec
	pollFailures   *prometheus.CounterVec
	breakerOpens   *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		observations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_total",
			Help:      "Reaction observations processed, by resulting action.",
		}, []string{"action"}),
		mirrorFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_failures_total",
			Help:      "Failed attempts to post starboard content.",
		}),
		trackedRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_records",
			Help:      "Messages known to be mirrored on the starboard.",
		}),
		runsAnnounced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speedrun_runs_announced_total",
			Help:      "Verified runs announced, by game.",
		}, []string{"game"}),
		pollFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speedrun_poll_failures_total",
			Help:      "Leaderboard polls that failed, by game.",
		}, []string{"game"}),
		breakerOpens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_opens_total",
			Help:      "Circuit breaker transitions to open, by breaker.",
		}, []string{"breaker"}),
	}
}

// ObserveAction counts one engine observation.
func (m *Metrics) ObserveAction(action string) {
	if m == nil {
		return
	}
	m.observations.WithLabelValues(action).Inc()
}

// MirrorFailed counts a failed content post.
func (m *Metrics) MirrorFailed() {
	if m == nil {
		return
	}
	m.mirrorFailures.Inc()
}

// SetTracked sets the size of the mirrored set.
func (m *Metrics) SetTracked(n int) {
	if m == nil {
		return
	}
	m.trackedRecords.Set(float64(n))
}

// RunAnnounced counts an announced run.
func (m *Metrics) RunAnnounced(gameID string) {
	if m == nil {
		return
	}
	m.runsAnnounced.WithLabelValues(gameID).Inc()
}

// PollFailed counts a failed poll.
func (m *Metrics) PollFailed(gameID string) {
	if m == nil {
		return
	}
	m.pollFailures.WithLabelValues(gameID).Inc()
}

// BreakerOpened counts a breaker opening.
func (m *Metrics) BreakerOpened(name string) {
	if m == nil {
		return
	}
	m.breakerOpens.WithLabelValues(name).Inc()
}
