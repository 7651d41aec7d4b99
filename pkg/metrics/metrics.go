package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cctt"

// Metrics counts what a solve does. A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	cuts         *prometheus.CounterVec
	dives        *prometheus.CounterVec
	diveDuration *prometheus.HistogramVec
	incumbents   *prometheus.CounterVec
	bestCost     *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		cuts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cuts_added_total",
			Help:      "Local cuts added during search, by family",
		}, []string{"family"}),
		dives: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dives_total",
			Help:      "Dives into neighbourhoods, by phase and outcome",
		}, []string{"phase", "outcome"}),
		diveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dive_duration_seconds",
			Help:      "Wall time of a dive",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~45min
		}, []string{"phase"}),
		incumbents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incumbents_total",
			Help:      "Incumbent solutions found, by phase",
		}, []string{"phase"}),
		bestCost: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_cost",
			Help:      "Lowest timetable cost recorded, by phase",
		}, []string{"phase"}),
	}
}

func (metrics *Metrics) Registry() *prometheus.Registry {
	if metrics == nil {
		return nil
	}
	return metrics.registry
}

func (metrics *Metrics) CutsAdded(family string, count int) {
	if metrics == nil {
		return
	}
	metrics.cuts.WithLabelValues(family).Add(float64(count))
}

func (metrics *Metrics) DiveFinished(phase, outcome string, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.dives.WithLabelValues(phase, outcome).Inc()
	metrics.diveDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

func (metrics *Metrics) Incumbent(phase string) {
	if metrics == nil {
		return
	}
	metrics.incumbents.WithLabelValues(phase).Inc()
}

func (metrics *Metrics) SolutionCost(phase string, cost int) {
	if metrics == nil {
		return
	}
	metrics.bestCost.WithLabelValues(phase).Set(float64(cost))
}

// WriteTextfile dumps every metric in the text exposition format, as read by the node exporter textfile collector.
func (metrics *Metrics) WriteTextfile(path string) error {
	if metrics == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, metrics.registry)
}
