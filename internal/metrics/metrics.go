// Package metrics holds the Prometheus collectors for the rules engine on a
// private registry.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cooprules"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	configReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "cache_reloads_total",
			Help:      "Full config cache reloads by result.",
		},
		[]string{"result"},
	)

	configFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "read_fallbacks_total",
			Help:      "Config reads that returned the caller's default.",
		},
		[]string{"reason"},
	)

	configWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "writes_total",
			Help:      "Config writes by result.",
		},
		[]string{"result"},
	)

	configInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "invalidations_total",
			Help:      "Config cache invalidations by source.",
		},
		[]string{"source"},
	)

	eligibilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "eligibility_checks_total",
			Help:      "Eligibility evaluations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	eligibilityViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "violations_total",
			Help:      "Violations reported by eligibility evaluations.",
		},
		[]string{"kind"},
	)

	snapshotExports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "snapshot_exports_total",
			Help:      "Config snapshot uploads by destination and result.",
		},
		[]string{"destination", "result"},
	)

	snapshotDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "snapshot_duration_seconds",
			Help:      "Duration of config snapshot uploads.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"destination"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		configReloads,
		configFallbacks,
		configWrites,
		configInvalidations,
		eligibilityChecks,
		eligibilityViolations,
		snapshotExports,
		snapshotDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Routes are labelled by the ServeMux pattern that matched, so path
// parameters do not blow up label cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeLabel(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordConfigReload records a full cache reload.
func RecordConfigReload(err error) {
	configReloads.WithLabelValues(result(err)).Inc()
}

// RecordConfigFallback records a read that fell back to the caller default.
func RecordConfigFallback(reason string) {
	configFallbacks.WithLabelValues(reason).Inc()
}

// RecordConfigWrite records the outcome of a config write.
func RecordConfigWrite(err error) {
	configWrites.WithLabelValues(result(err)).Inc()
}

// RecordConfigInvalidation records a cache invalidation ("local" or "remote").
func RecordConfigInvalidation(source string) {
	configInvalidations.WithLabelValues(source).Inc()
}

// RecordEligibility records one eligibility evaluation. A nil err with no
// violations counts as eligible.
func RecordEligibility(kind string, violations int, err error) {
	outcome := "eligible"
	switch {
	case err != nil:
		outcome = "error"
	case violations > 0:
		outcome = "ineligible"
		eligibilityViolations.WithLabelValues(kind).Add(float64(violations))
	}
	eligibilityChecks.WithLabelValues(kind, outcome).Inc()
}

// RecordSnapshotExport records a snapshot upload to one destination.
func RecordSnapshotExport(destination string, duration time.Duration, err error) {
	if destination == "" {
		destination = "unknown"
	}
	snapshotExports.WithLabelValues(destination, result(err)).Inc()
	snapshotDuration.WithLabelValues(destination).Observe(duration.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	// Patterns look like "GET /v1/configs/{key}"; the method is its own label.
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
