// Package metrics exposes engine lifecycle events as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the collectors and the registry they are registered on.
type Recorder struct {
	registry *prometheus.Registry

	NodeResolutions    *prometheus.CounterVec
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	Recoveries         *prometheus.CounterVec
	PersistenceErrors  prometheus.Counter
}

// New creates a Recorder on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		NodeResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plotforge_node_resolutions_total",
				Help: "Total number of resolved nodes",
			},
			[]string{"node_id", "generated"},
		),
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plotforge_generations_total",
				Help: "Generator calls by outcome",
			},
			[]string{"outcome"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plotforge_generation_duration_seconds",
				Help:    "Duration of generator calls",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
			},
			[]string{"outcome"},
		),
		Recoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plotforge_recoveries_total",
				Help: "Dead-end recoveries by tier",
			},
			[]string{"tier"},
		),
		PersistenceErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plotforge_persistence_errors_total",
				Help: "Failed content store operations",
			},
		),
	}

	r.registry.MustRegister(
		r.NodeResolutions,
		r.Generations,
		r.GenerationDuration,
		r.Recoveries,
		r.PersistenceErrors,
		collectors.NewGoCollector(),
	)
	return r
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that feed the collectors.
func (r *Recorder) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeResolved: func(ctx context.Context, e *domain.NodeEvent) {
			generated := "false"
			if e.Generated {
				generated = "true"
			}
			r.NodeResolutions.WithLabelValues(e.NodeID, generated).Inc()
		},
		OnGeneration: func(ctx context.Context, e *domain.GenerationEvent) {
			outcome := string(e.Outcome)
			r.Generations.WithLabelValues(outcome).Inc()
			r.GenerationDuration.WithLabelValues(outcome).Observe(e.Duration.Seconds())
		},
		OnRecovery: func(ctx context.Context, e *domain.RecoveryEvent) {
			r.Recoveries.WithLabelValues(string(e.Tier)).Inc()
		},
		OnPersistenceError: func(ctx context.Context, e *domain.PersistenceEvent) {
			r.PersistenceErrors.Inc()
		},
	}
}
