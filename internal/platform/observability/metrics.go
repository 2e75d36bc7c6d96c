package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "kickshop"

// Metrics owns the Prometheus registry and the storefront collectors.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	cartMutations *prometheus.CounterVec
	navigations   *prometheus.CounterVec
	notFound      *prometheus.CounterVec
	checkouts     prometheus.Counter
	sessions      prometheus.GaugeFunc
}

// NewMetrics registers every collector on a fresh registry. liveSessions may be nil.
func NewMetrics(liveSessions func() int) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "route"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart additions and removals.",
		}, []string{"op"}),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "nav",
			Name:      "navigations_total",
			Help:      "Router transitions by destination kind.",
		}, []string{"kind"}),
		notFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "nav",
			Name:      "not_found_total",
			Help:      "Fallback pages rendered for unknown destinations.",
		}, []string{"kind"}),
		checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cart",
			Name:      "checkouts_total",
			Help:      "Completed checkouts.",
		}),
	}
	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.cartMutations,
		m.navigations,
		m.notFound,
		m.checkouts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if liveSessions != nil {
		m.sessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "live",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(liveSessions()) })
		m.Registry.MustRegister(m.sessions)
	}
	return m
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request counts and latency by chi route pattern.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		rec := newResponseRecorder(w)
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := SanitizeRoute(routePattern(r))
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.Status())).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// CartMutation counts a cart operation such as "add", "remove" or "remove_line".
func (m *Metrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
}

// Navigation counts a successful router transition.
func (m *Metrics) Navigation(kind string) {
	if m == nil {
		return
	}
	m.navigations.WithLabelValues(kind).Inc()
}

// NotFound counts a rendered fallback.
func (m *Metrics) NotFound(kind string) {
	if m == nil {
		return
	}
	m.notFound.WithLabelValues(kind).Inc()
}

// Checkout counts a completed order.
func (m *Metrics) Checkout() {
	if m == nil {
		return
	}
	m.checkouts.Inc()
}
