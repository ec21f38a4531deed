package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/blog-service/internal/domain"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	postsAccepted prometheus.Counter
	postsRejected prometheus.Counter
	subscriptions *prometheus.CounterVec
}

// NewMetrics registers collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Error responses by machine-readable code.",
		}, []string{"route", "method", "code"}),
		postsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_accepted_total",
			Help:      "Posts accepted by the entitlement check.",
		}),
		postsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_rejected_total",
			Help:      "Posts rejected by the free-tier daily limit.",
		}),
		subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_activated_total",
			Help:      "Subscriptions activated by payment source.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.errors, m.postsAccepted, m.postsRejected, m.subscriptions,
	)
	return m
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// PostAccepted counts a post that passed the entitlement check.
func (m *Metrics) PostAccepted() {
	if m == nil {
		return
	}
	m.postsAccepted.Inc()
}

// PostRejected counts a daily-limit rejection.
func (m *Metrics) PostRejected() {
	if m == nil {
		return
	}
	m.postsRejected.Inc()
}

// SubscriptionActivated counts an activation.
func (m *Metrics) SubscriptionActivated(source domain.PaymentSource) {
	if m == nil {
		return
	}
	m.subscriptions.WithLabelValues(string(source)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
