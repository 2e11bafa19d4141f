package observability

import (
	"context"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for produce calls and dispatches.
type Metrics struct {
	Produces         *prometheus.CounterVec
	ProduceDuration  prometheus.Histogram
	DraftsPerProduce prometheus.Histogram
	Dispatches       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Produces: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sculpt_produce_total",
				Help: "Total number of produce calls by outcome",
			},
			[]string{"outcome"},
		),
		ProduceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sculpt_produce_duration_seconds",
				Help:    "Duration of produce calls",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
		DraftsPerProduce: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sculpt_produce_drafts",
				Help:    "Number of drafts materialized per produce call",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sculpt_dispatch_total",
				Help: "Total number of dispatched actions",
			},
			[]string{"action", "result"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Produces, m.ProduceDuration, m.DraftsPerProduce, m.Dispatches)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnProduce: func(_ context.Context, e *domain.ProduceEvent) {
			m.Produces.WithLabelValues(produceOutcome(e)).Inc()
			m.ProduceDuration.Observe(e.Duration.Seconds())
			if e.Err == nil {
				m.DraftsPerProduce.Observe(float64(e.Drafts))
			}
		},
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			result := "unchanged"
			switch {
			case e.Err != nil:
				result = "error"
			case e.Changed:
				result = "changed"
			}
			m.Dispatches.WithLabelValues(e.Action, result).Inc()
		},
	}
}

func produceOutcome(e *domain.ProduceEvent) string {
	switch {
	case e.Err != nil:
		return "error"
	case e.Replaced:
		return "replaced"
	case e.Changed:
		return "changed"
	}
	return "unchanged"
}

// Combine chains hooks in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out = out.Merge(h)
	}
	return out
}
