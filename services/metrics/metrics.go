// Package metricsvc exports workflow counters to prometheus.
package metricsvc

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/masomo-absences/core/notification"
	"github.com/trezcool/masomo-absences/core/substitute"
)

const namespace = "masomo"

type Collector struct {
	deliveries  *prometheus.CounterVec
	pushes      *prometheus.CounterVec
	resolutions *prometheus.CounterVec
}

var (
	_ notification.DeliveryObserver = (*Collector)(nil)
	_ substitute.Observer           = (*Collector)(nil)
)

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "deliveries_total",
			Help:      "Notification deliveries by event and persistence result.",
		}, []string{"event", "persisted"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "pushes_total",
			Help:      "Push attempts by event and status.",
		}, []string{"event", "status"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "substitutes",
			Name:      "resolutions_total",
			Help:      "Substitute resolutions by outcome.",
		}, []string{"outcome", "replayed"}),
	}
	reg.MustRegister(c.deliveries, c.pushes, c.resolutions)
	return c
}

func (c *Collector) ObserveDelivery(event notification.EventType, out notification.Outcome) {
	c.deliveries.WithLabelValues(string(event), boolLabel(out.Persisted)).Inc()
	c.pushes.WithLabelValues(string(event), out.Push).Inc()
}

func (c *Collector) ObserveResolution(outcome string, replayed bool) {
	c.resolutions.WithLabelValues(outcome, boolLabel(replayed)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
