package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "timesheet"

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	geofenceChecks  *prometheus.CounterVec
	violations      *prometheus.CounterVec
	zoneCache       *prometheus.CounterVec
	alertsEnqueued  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Approval workflow actions by outcome.",
		}, []string{"action", "outcome"}),
		geofenceChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geofence_checks_total",
			Help:      "Location evaluations by result.",
		}, []string{"result"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geofence_violations_total",
			Help:      "Recorded geofence violations.",
		}, []string{"strict"}),
		zoneCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zone_cache_lookups_total",
			Help:      "Zone cache lookups by result.",
		}, []string{"result"}),
		alertsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violation_alerts_total",
			Help:      "Violation alert tasks by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.transitions,
		m.geofenceChecks,
		m.violations,
		m.zoneCache,
		m.alertsEnqueued,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) ObserveTransition(action string, ok bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if !ok {
		outcome = "refused"
	}
	m.transitions.WithLabelValues(action, outcome).Inc()
}

// ObserveGeofenceCheck counts an evaluation; result is within, outside or unevaluated.
func (m *Metrics) ObserveGeofenceCheck(result string) {
	if m == nil {
		return
	}
	m.geofenceChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveViolation(strict bool) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(strconv.FormatBool(strict)).Inc()
}

func (m *Metrics) ObserveZoneCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.zoneCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAlert(err error) {
	if m == nil {
		return
	}
	outcome := "enqueued"
	if err != nil {
		outcome = "failed"
	}
	m.alertsEnqueued.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
