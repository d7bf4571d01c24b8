package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/scorecard-api/internal/auth"
	"github.com/straye-as/scorecard-api/internal/config"
	"github.com/straye-as/scorecard-api/internal/http/handler"
	"github.com/straye-as/scorecard-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/straye-as/scorecard-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg              *config.Config
	logger           *zap.Logger
	authMiddleware   *auth.Middleware
	rateLimiter      *middleware.RateLimiter
	metricsHandler   http.Handler
	healthHandler    *handler.HealthHandler
	scorecardHandler *handler.ScorecardHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	metricsHandler http.Handler,
	healthHandler *handler.HealthHandler,
	scorecardHandler *handler.ScorecardHandler,
) *Router {
	return &Router{
		cfg:              cfg,
		logger:           logger,
		authMiddleware:   authMiddleware,
		rateLimiter:      rateLimiter,
		metricsHandler:   metricsHandler,
		healthHandler:    healthHandler,
		scorecardHandler: scorecardHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	r.Get("/health", rt.healthHandler.Live)
	r.Get("/health/ready", rt.healthHandler.Ready)

	if rt.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", rt.metricsHandler)
	}

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.Limit)

		r.Get("/scorecard", rt.scorecardHandler.GetMine)
		r.Get("/scorecard/ranges", rt.scorecardHandler.Ranges)

		r.Route("/scorecards", func(r chi.Router) {
			r.Get("/{identity}", rt.scorecardHandler.GetFor)
			r.Get("/snapshots/{identity}", rt.scorecardHandler.Snapshots)
			r.Get("/snapshots/{identity}/latest", rt.scorecardHandler.LatestSnapshot)
			r.With(rt.authMiddleware.RequireSystem).Post("/export", rt.scorecardHandler.Export)
		})
	})

	return r
}
