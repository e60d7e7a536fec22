// Package metrics exports the prometheus counters and gauges the backend
// maintains while accepting offers and tracking executor lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsPrefix = "mesos_scheduler_backend_"

// Metrics bundles the backend's prometheus instrumentation. A nil
// *Metrics is valid everywhere it's consumed — callers that don't wire a
// registry simply skip instrumentation.
type Metrics struct {
	OffersAccepted   prometheus.Counter
	OffersDeclined   prometheus.Counter
	CoresAcquired    prometheus.Counter
	Launches         prometheus.Counter
	Terminations     *prometheus.CounterVec
	BlacklistedNodes prometheus.Gauge
}

// New registers and returns the backend's metrics against the default
// prometheus registry.
func New() *Metrics {
	return &Metrics{
		OffersAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: metricsPrefix + "offers_accepted_total",
			Help: "Total number of resource offers accepted.",
		}),
		OffersDeclined: promauto.NewCounter(prometheus.CounterOpts{
			Name: metricsPrefix + "offers_declined_total",
			Help: "Total number of resource offers declined.",
		}),
		CoresAcquired: promauto.NewCounter(prometheus.CounterOpts{
			Name: metricsPrefix + "cores_acquired_total",
			Help: "Total cpu cores acquired across all accepted offers.",
		}),
		Launches: promauto.NewCounter(prometheus.CounterOpts{
			Name: metricsPrefix + "launches_total",
			Help: "Total number of executor launches issued.",
		}),
		Terminations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "terminations_total",
			Help: "Total number of executor terminations by terminal state.",
		}, []string{"state"}),
		BlacklistedNodes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: metricsPrefix + "blacklisted_nodes",
			Help: "Current number of nodes excluded from future launches.",
		}),
	}
}
