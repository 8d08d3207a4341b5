package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/paneltree/pkg/domain"
)

// Metrics collects resolution and transition metrics on a private registry.
type Metrics struct {
	stacksResolved      *prometheus.CounterVec
	unrenderable        prometheus.Counter
	stackDepth          prometheus.Histogram
	transitions         *prometheus.CounterVec
	transitionDuration  *prometheus.HistogramVec
	initializerFailures *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		stacksResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stacks_resolved_total",
				Help:      "Total number of stack resolutions, by chosen handler",
			},
			[]string{"handler"},
		),
		unrenderable: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unrenderable_total",
				Help:      "Resolutions where no handler could render the type",
			},
		),
		stackDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stack_depth",
				Help:      "Number of applicable handlers per resolution",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of node transitions",
			},
			[]string{"kind", "rule"},
		),
		transitionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transition_duration_seconds",
				Help:      "Duration of node transitions in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"kind"},
		),
		initializerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "initializer_failures_total",
				Help:      "Handler config initializers that failed and were recovered",
			},
			[]string{"handler"},
		),
	}

	m.registry.MustRegister(
		m.stacksResolved,
		m.unrenderable,
		m.stackDepth,
		m.transitions,
		m.transitionDuration,
		m.initializerFailures,
	)
	return m
}

// Registry returns the Prometheus registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStackResolved: func(_ context.Context, e *domain.ResolveEvent) {
			m.stackDepth.Observe(float64(len(e.Stack)))
			if e.ChosenID == "" {
				m.unrenderable.Inc()
				return
			}
			m.stacksResolved.WithLabelValues(e.ChosenID).Inc()
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(e.Kind), string(e.Rule)).Inc()
			m.transitionDuration.WithLabelValues(string(e.Kind)).Observe(e.Duration.Seconds())
		},
		OnInitializerFailure: func(_ context.Context, e *domain.InitializerEvent) {
			m.initializerFailures.WithLabelValues(e.HandlerID).Inc()
		},
	}
}
