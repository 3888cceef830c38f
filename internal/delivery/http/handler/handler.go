package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/notttired/aire-frontend/internal/delivery/http/response"
	"github.com/notttired/aire-frontend/pkg/metrics"
	"github.com/notttired/aire-frontend/pkg/utils"
)

const (
	endpointScrape  = "scrape"
	endpointResults = "results"
)

// Pinger is a dependency the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler forwards the job API to a fixed upstream server. Payloads are
// never interpreted: method, query and body go out as received, and the
// upstream status and body come back as sent.
type Handler struct {
	upstream string
	client   *http.Client
	redis    Pinger
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewHandler creates a proxy for upstream. redis may be nil.
func NewHandler(upstream string, timeout time.Duration, redis Pinger, m *metrics.Metrics, l *zap.Logger) *Handler {
	return &Handler{
		upstream: upstream,
		client:   &http.Client{Timeout: timeout},
		redis:    redis,
		metrics:  m,
		logger:   l,
	}
}

// HandleSubmitScrape proxies POST /scrape.
func (h *Handler) HandleSubmitScrape(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, endpointScrape, endpointScrape)
}

// HandleGetResults proxies GET /results/{taskId}.
func (h *Handler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, endpointResults, endpointResults, taskID(r))
}

// taskID returns the decoded {taskId} segment. chi matches on RawPath when
// the request has one, so the param is still escaped in that case.
func taskID(r *http.Request) string {
	id := chi.URLParam(r, "taskId")
	if r.URL.RawPath == "" {
		return id
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request, endpoint string, segments ...string) {
	target := utils.JoinURL(h.upstream, segments...)
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		h.logger.Error("failed to build upstream request", zap.String("target", target), zap.Error(err))
		h.writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	req.ContentLength = r.ContentLength
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.metrics.IncUpstream(endpoint, "transport_error")
		h.logger.Error("upstream request failed", zap.String("target", target), zap.Error(err))
		h.writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	outcome := "ok"
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "remote_error"
	}
	h.metrics.IncUpstream(endpoint, outcome)

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("failed to copy upstream body", zap.String("target", target), zap.Error(err))
	}
}

// HandleHealthCheck reports "degraded" when Redis is configured but
// unreachable. The limiter fails open, so the status code stays 200.
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := response.HealthResponse{Status: "ok", Upstream: h.upstream}
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx); err != nil {
			h.logger.Error("health check failed for redis", zap.Error(err))
			resp.Redis = "unhealthy"
			resp.Status = "degraded"
		} else {
			resp.Redis = "healthy"
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, data, h.logger)
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}

// WriteJSON encodes data as the response body.
func WriteJSON(w http.ResponseWriter, status int, data any, l *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		l.Error("failed to write JSON response", zap.Error(err))
	}
}
