// Package metrics exposes Prometheus collectors for documentation builds, the
// documentation cache and the HTTP surface. Every Recorder owns its registry so
// tests can build isolated instances; a nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Build results used as label values.
const (
	ResultSuccess       = "success"
	ResultRegistryError = "registry_error"
	ResultDownloadError = "download_error"
	ResultGeneratorErr  = "generator_error"
	ResultInternalError = "internal_error"
)

// Recorder groups the collectors registered on one registry.
type Recorder struct {
	registry *prometheus.Registry

	buildsTotal    *prometheus.CounterVec
	buildDuration  *prometheus.HistogramVec
	buildsInFlight prometheus.Gauge
	cacheLookups   *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	cacheEntries   prometheus.Gauge
	httpRequests   *prometheus.CounterVec
}

// New creates a Recorder backed by a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		buildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grimoire_builds_total",
				Help: "Total number of documentation builds, labeled by result.",
			},
			[]string{"result"},
		),
		buildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grimoire_build_duration_seconds",
				Help:    "Histogram of documentation build durations, labeled by result.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"result"},
		),
		buildsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "grimoire_builds_in_flight",
				Help: "Number of documentation builds currently running.",
			},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grimoire_cache_lookups_total",
				Help: "Total number of documentation cache lookups, labeled by hit or miss.",
			},
			[]string{"result"},
		),
		cacheEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "grimoire_cache_evictions_total",
				Help: "Total number of packages evicted from the documentation cache.",
			},
		),
		cacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "grimoire_cache_entries",
				Help: "Number of packages currently held by the documentation cache.",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grimoire_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and status code.",
			},
			[]string{"method", "code"},
		),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// BuildStarted marks a build as running.
func (r *Recorder) BuildStarted() {
	if r == nil {
		return
	}
	r.buildsInFlight.Inc()
}

// BuildFinished records the outcome of a build started with BuildStarted.
func (r *Recorder) BuildFinished(result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.buildsInFlight.Dec()
	r.buildsTotal.WithLabelValues(result).Inc()
	r.buildDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

// CacheLookup records a cache hit or miss.
func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// CacheEvicted records one eviction.
func (r *Recorder) CacheEvicted() {
	if r == nil {
		return
	}
	r.cacheEvictions.Inc()
}

// SetCacheEntries publishes the current number of cached packages.
func (r *Recorder) SetCacheEntries(n int) {
	if r == nil {
		return
	}
	r.cacheEntries.Set(float64(n))
}

// ObserveRequest counts one served HTTP request.
func (r *Recorder) ObserveRequest(method string, status int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
