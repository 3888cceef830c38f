package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors of the proxy and the poller.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	UpstreamRequests    *prometheus.CounterVec
	PollAttempts        prometheus.Counter
	PollSessions        *prometheus.CounterVec
	RateLimited         prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		UpstreamRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_requests_total",
				Help: "Requests sent to the scrape job API.",
			},
			[]string{"endpoint", "outcome"}, // endpoint: scrape, results
		),
		PollAttempts: f.NewCounter(
			prometheus.CounterOpts{
				Name: "poll_attempts_total",
				Help: "Status queries issued by poll sessions.",
			},
		),
		PollSessions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poll_sessions_total",
				Help: "Finished poll sessions by final state.",
			},
			[]string{"outcome"},
		),
		RateLimited: f.NewCounter(
			prometheus.CounterOpts{
				Name: "submissions_rate_limited_total",
				Help: "Scrape submissions rejected by the rate limiter.",
			},
		),
	}
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

func (m *Metrics) IncUpstream(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) IncPollAttempt() {
	if m == nil {
		return
	}
	m.PollAttempts.Inc()
}

func (m *Metrics) IncPollSession(outcome string) {
	if m == nil {
		return
	}
	m.PollSessions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
