package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drblury/mediator/internal/runtime/handlers"
)

// MetricsMiddleware records Prometheus metrics for every dispatch when
// Config.MetricsEnabled is set.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(m *Mediator) (HandlerMiddleware, error) {
			if !m.conf.MetricsEnabled {
				return nil, nil
			}
			collectors, err := newDispatchMetrics(m)
			if err != nil {
				return nil, err
			}
			return collectors.middleware(m.errorClassifier), nil
		},
	}
}

type dispatchMetrics struct {
	dispatches *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newDispatchMetrics(m *Mediator) (*dispatchMetrics, error) {
	ns := m.conf.MetricsNamespace
	constLabels := prometheus.Labels{"mediator": m.conf.Name}

	dm := &dispatchMetrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "dispatches_total",
			Help:        "Number of dispatched requests.",
			ConstLabels: constLabels,
		}, []string{"kind", "request"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "dispatch_failures_total",
			Help:        "Number of failed dispatches by error category.",
			ConstLabels: constLabels,
		}, []string{"kind", "request", "category"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Name:        "dispatch_duration_seconds",
			Help:        "Time spent resolving and handling a request.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"kind", "request"}),
	}

	collectors := []prometheus.Collector{dm.dispatches, dm.failures, dm.duration}
	for _, kind := range []handlers.Kind{handlers.KindCommand, handlers.KindQuery, handlers.KindEvent} {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   ns,
			Name:        "resolution_cache_entries",
			Help:        "Number of request types with a cached resolution.",
			ConstLabels: prometheus.Labels{"mediator": m.conf.Name, "kind": kind.String()},
		}, func() float64 {
			return float64(m.cacheStats(kind).Entries)
		}))
	}

	for _, c := range collectors {
		if err := m.metricsRegistry.Register(c); err != nil {
			return nil, fmt.Errorf("register dispatch metrics: %w", err)
		}
	}
	return dm, nil
}

func (dm *dispatchMetrics) middleware(classifier ErrorClassifier) HandlerMiddleware {
	if classifier == nil {
		classifier = defaultErrorClassifier
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, d *Dispatch) (any, error) {
			start := time.Now()
			result, err := next(ctx, d)

			kind := d.Kind.String()
			dm.dispatches.WithLabelValues(kind, d.Name).Inc()
			dm.duration.WithLabelValues(kind, d.Name).Observe(time.Since(start).Seconds())
			if err != nil {
				dm.failures.WithLabelValues(kind, d.Name, string(classifier(err))).Inc()
			}
			return result, err
		}
	}
}

// MetricsHandler serves the mediator's metrics registry in the Prometheus
// exposition format.
func (m *Mediator) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.metricsRegistry, promhttp.HandlerOpts{Registry: m.metricsRegistry})
}

// MetricsRegistry exposes the registry the mediator registers its collectors in.
func (m *Mediator) MetricsRegistry() *prometheus.Registry {
	return m.metricsRegistry
}
