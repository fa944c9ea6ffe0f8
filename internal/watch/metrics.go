package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline counters, exposed on the gateway's /metrics
// endpoint via the default Prometheus registry.
type Metrics struct {
	eventsReceived   prometheus.Counter
	eventsFiltered   *prometheus.CounterVec
	dispatches       prometheus.Counter
	dispatchFailures prometheus.Counter
	scanDuration     prometheus.Histogram
}

// NewMetrics registers and returns the pipeline metrics on reg.
// Pass nil to use the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		eventsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "promowatch_events_received_total",
			Help: "Chat events received from the source.",
		}),
		eventsFiltered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promowatch_events_filtered_total",
			Help: "Chat events rejected before scanning, by reason.",
		}, []string{"reason"}),
		dispatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "promowatch_notifications_dispatched_total",
			Help: "Match notifications successfully dispatched.",
		}),
		dispatchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "promowatch_dispatch_failures_total",
			Help: "Match notifications that failed to dispatch.",
		}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "promowatch_scan_duration_seconds",
			Help:    "Time spent scanning one event against the keyword set.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
