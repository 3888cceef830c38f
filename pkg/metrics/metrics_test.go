package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/healthz", "200", 0.1)
		m.IncUpstream("scrape", "ok")
		m.IncPollAttempt()
		m.IncPollSession("success")
		m.IncRateLimited()
	})
}

func TestCollectorsRegisterOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncUpstream("results", "ok")
	m.IncUpstream("results", "ok")
	m.IncPollSession("timed_out")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("results", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollSessions.WithLabelValues("timed_out")))

	// A second set on the same registry is a duplicate registration.
	assert.Panics(t, func() { New(reg) })
}
