package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notttired/aire-frontend/internal/adapter/redis"
	"github.com/notttired/aire-frontend/internal/delivery/http/handler"
	"github.com/notttired/aire-frontend/pkg/metrics"
)

type seen struct {
	mu     sync.Mutex
	method string
	uri    string
	body   string
	ctype  string
	hits   int
}

func (s *seen) snapshot() seen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seen{method: s.method, uri: s.uri, body: s.body, ctype: s.ctype, hits: s.hits}
}

func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *seen) {
	t.Helper()
	s := &seen{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.method, s.uri, s.body, s.ctype = r.Method, r.URL.RequestURI(), string(b), r.Header.Get("Content-Type")
		s.hits++
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, s
}

func newProxy(t *testing.T, upstream string, opts Options) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if opts.Prefix == "" {
		opts.Prefix = "/api"
	}
	opts.Gatherer = reg
	opts.Metrics = m
	opts.Logger = zap.NewNop()
	h := handler.NewHandler(upstream, 5*time.Second, nil, m, zap.NewNop())
	return New(h, opts), reg
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPreflightOnAnyPath(t *testing.T) {
	up, calls := newUpstream(t, http.StatusOK, `{}`)
	proxy, _ := newProxy(t, up.URL, Options{})

	for _, path := range []string{"/api/scrape", "/api/results/abc", "/nowhere"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(proxy, http.MethodOptions, path, "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Body.String())
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
			assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
		})
	}
	assert.Zero(t, calls.snapshot().hits)
}

func TestSubmitIsForwardedVerbatim(t *testing.T) {
	up, calls := newUpstream(t, http.StatusAccepted, `{"task_id":"t-1"}`)
	proxy, reg := newProxy(t, up.URL, Options{})

	payload := `{"route":{"origin":"YYZ","destination":"LAX"},"retries":1,"proxy":null}`
	rec := serve(proxy, http.MethodPost, "/api/scrape?debug=1", payload)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"task_id":"t-1"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	got := calls.snapshot()
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/scrape?debug=1", got.uri)
	assert.Equal(t, payload, got.body)
	assert.Equal(t, "application/json", got.ctype)

	assert.Equal(t, 1.0, counterTotal(t, reg, "upstream_requests_total"))
}

func TestResultsStatusIsPassedThrough(t *testing.T) {
	up, calls := newUpstream(t, http.StatusNotFound, `{"detail":"Task not found"}`)
	proxy, _ := newProxy(t, up.URL, Options{})

	rec := serve(proxy, http.MethodGet, "/api/results/t-42", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Task not found"}`, rec.Body.String())
	assert.Equal(t, "/results/t-42", calls.snapshot().uri)
}

func TestResultsTaskIDKeepsItsEncoding(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"plain", "/api/results/abc-123", "/results/abc-123"},
		{"escaped slash", "/api/results/a%2Fb", "/results/a%2Fb"},
		{"leading escaped slash", "/api/results/%2Fab", "/results/%2Fab"},
		{"escaped space", "/api/results/a%20b", "/results/a%20b"},
		{"escaped percent", "/api/results/a%2541", "/results/a%2541"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, calls := newUpstream(t, http.StatusOK, `{"status":"pending"}`)
			proxy, _ := newProxy(t, up.URL, Options{})

			rec := serve(proxy, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, calls.snapshot().uri)
		})
	}
}

func TestUpstreamDownIs500(t *testing.T) {
	up := httptest.NewServer(http.NotFoundHandler())
	addr := up.URL
	up.Close()
	proxy, _ := newProxy(t, addr, Options{})

	rec := serve(proxy, http.MethodGet, "/api/results/t-1", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), `"error":`)
}

func TestCustomPrefix(t *testing.T) {
	up, calls := newUpstream(t, http.StatusOK, `{"status":"pending"}`)
	proxy, _ := newProxy(t, up.URL, Options{Prefix: "/proxy"})

	assert.Equal(t, http.StatusNotFound, serve(proxy, http.MethodGet, "/api/results/x", "").Code)
	assert.Equal(t, http.StatusOK, serve(proxy, http.MethodGet, "/proxy/results/x", "").Code)
	assert.Equal(t, 1, calls.snapshot().hits)
}

func TestHealthAndMetrics(t *testing.T) {
	up, _ := newUpstream(t, http.StatusOK, `{}`)
	proxy, _ := newProxy(t, up.URL, Options{})

	rec := serve(proxy, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = serve(proxy, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestSubmissionRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	up, calls := newUpstream(t, http.StatusOK, `{"task_id":"t"}`)
	proxy, reg := newProxy(t, up.URL, Options{
		Limiter:    redis.NewRateLimitRepo(client),
		RateLimit:  2,
		RateWindow: time.Minute,
	})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serve(proxy, http.MethodPost, "/api/scrape", `{}`).Code)
	}
	rec := serve(proxy, http.MethodPost, "/api/scrape", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), `"error":`)
	assert.Equal(t, 2, calls.snapshot().hits)
	assert.Equal(t, 1.0, counterTotal(t, reg, "submissions_rate_limited_total"))

	// Results polling is never limited.
	assert.Equal(t, http.StatusOK, serve(proxy, http.MethodGet, "/api/results/t", "").Code)

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusOK, serve(proxy, http.MethodPost, "/api/scrape", `{}`).Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	up, calls := newUpstream(t, http.StatusOK, `{"task_id":"t"}`)
	proxy, _ := newProxy(t, up.URL, Options{
		Limiter:    redis.NewRateLimitRepo(client),
		RateLimit:  1,
		RateWindow: time.Minute,
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(proxy, http.MethodPost, "/api/scrape", `{}`).Code)
	}
	assert.Equal(t, 3, calls.snapshot().hits)
}

// counterTotal sums every series of the named counter family.
func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
