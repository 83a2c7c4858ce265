package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/aisearch/pkg/health"
	"github.com/utafrali/aisearch/pkg/middleware"
)

// RouterConfig collects the handlers and settings the router mounts.
type RouterConfig struct {
	Search      *SearchHandler
	Admin       *AdminHandler
	Health      *health.Handler
	AdminToken  string
	ServiceName string
}

// NewRouter creates a chi router with all search routes registered.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/search", func(r chi.Router) {
		r.Get("/", cfg.Search.Search)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminToken(cfg.AdminToken))
			r.Use(ContentTypeJSON)
			r.Post("/reload-synonyms", cfg.Admin.ReloadSynonyms)
			r.Post("/category-boost/reload", cfg.Admin.ReloadCategoryBoost)
			r.Get("/category-boost/beta", cfg.Admin.GetBeta)
			r.Put("/category-boost/beta", cfg.Admin.SetBeta)
		})
	})

	return r
}
