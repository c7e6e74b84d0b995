package scheduler

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments the scheduler.
type Metrics struct {
	Steps     *prometheus.CounterVec
	Batches   *prometheus.CounterVec
	Rollbacks prometheus.Counter
	Unwired   prometheus.Counter
	Pending   prometheus.Gauge
}

// NewMetrics creates the scheduler collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "morelight",
			Subsystem: "scheduler",
			Name:      "steps_total",
			Help:      "Remap steps run, by step kind and result.",
		}, []string{"kind", "result"}),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "morelight",
			Subsystem: "scheduler",
			Name:      "batches_total",
			Help:      "Remap batches finished, by outcome.",
		}, []string{"outcome"}),
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "morelight",
			Subsystem: "scheduler",
			Name:      "rollbacks_total",
			Help:      "Detached channels restored to their direct binding.",
		}),
		Unwired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "morelight",
			Subsystem: "scheduler",
			Name:      "unwired_total",
			Help:      "Operators removed from requests that never completed.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "morelight",
			Subsystem: "scheduler",
			Name:      "pending_steps",
			Help:      "Steps waiting in the remap queue.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Steps, m.Batches, m.Rollbacks, m.Unwired, m.Pending)
	}
	return m
}
