package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notttired/aire-frontend/internal/delivery/http/handler"
	"github.com/notttired/aire-frontend/internal/delivery/http/middleware"
	"github.com/notttired/aire-frontend/internal/repository"
	"github.com/notttired/aire-frontend/pkg/metrics"
)

// Options configures the proxy routes.
type Options struct {
	Prefix string // e.g. "/api"

	// Limiter enables submission rate limiting when non-nil.
	Limiter    repository.RateLimitRepository
	RateLimit  int
	RateWindow time.Duration
	Gatherer   prometheus.Gatherer
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// New builds the proxy router. CORS runs before routing so OPTIONS is
// answered on any path.
func New(h *handler.Handler, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(opts.Logger))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route(opts.Prefix, func(r chi.Router) {
		submit := http.Handler(http.HandlerFunc(h.HandleSubmitScrape))
		if opts.Limiter != nil {
			submit = middleware.RateLimit(opts.Limiter, opts.RateLimit, opts.RateWindow, opts.Metrics, opts.Logger)(submit)
		}
		r.Method(http.MethodPost, "/scrape", submit)
		r.Get("/results/{taskId}", h.HandleGetResults)
	})

	return r
}
