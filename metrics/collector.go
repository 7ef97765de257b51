// FILE: lixenwraith/props/metrics/collector.go

// Package metrics exports property resolution events as Prometheus metrics.
// A Collector is passed to the builder as the resolver's Observer.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lixenwraith/props"
)

// Config represents metrics configuration
type Config struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
	// Registry to register into; nil creates a private registry
	Registry *prometheus.Registry
}

// Collector implements props.Observer. Property names are never used as
// label values to keep cardinality bounded by the number of sources.
type Collector struct {
	registry *prometheus.Registry

	cacheRequests  *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	resolutions    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

var _ props.Observer = (*Collector)(nil)

// NewCollector creates and registers the resolution metrics
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{Namespace: "props"}
	}
	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "cache_requests_total",
				Help:        "Property cache lookups by result",
				ConstLabels: config.ConstLabels,
			},
			[]string{"result"},
		),
		sourceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "source_failures_total",
				Help:        "Source lookups that failed and were skipped",
				ConstLabels: config.ConstLabels,
			},
			[]string{"source"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "resolutions_total",
				Help:        "Property resolutions by answering source and outcome",
				ConstLabels: config.ConstLabels,
			},
			[]string{"source", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "resolution_duration_seconds",
				Help:        "Duration of property resolutions in seconds",
				ConstLabels: config.ConstLabels,
				Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
			},
			[]string{"status"},
		),
	}

	for _, metric := range []prometheus.Collector{c.cacheRequests, c.sourceFailures, c.resolutions, c.duration} {
		if err := registry.Register(metric); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return c, nil
}

// Registry returns the registry the metrics live in
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *Collector) CacheHit(string) {
	c.cacheRequests.WithLabelValues("hit").Inc()
}

func (c *Collector) CacheMiss(string) {
	c.cacheRequests.WithLabelValues("miss").Inc()
}

func (c *Collector) SourceFailure(source, _ string, _ error) {
	c.sourceFailures.WithLabelValues(source).Inc()
}

func (c *Collector) Resolved(_ string, source string, elapsed time.Duration, err error) {
	status := classify(err)
	if source == "" {
		source = "none"
	}
	c.resolutions.WithLabelValues(source, status).Inc()
	c.duration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, props.ErrNotFound):
		return "not_found"
	case errors.Is(err, props.ErrCircularReference),
		errors.Is(err, props.ErrMissingPlaceholder),
		errors.Is(err, props.ErrExpansionDepth):
		return "expansion"
	case errors.Is(err, props.ErrProcessing):
		return "processing"
	case errors.Is(err, props.ErrConversion):
		return "conversion"
	default:
		return "other"
	}
}
