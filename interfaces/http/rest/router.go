package rest

import (
	"context"
	"net/http"
	"time"

	"chatter/application/commands/bus"
	querybus "chatter/application/queries/bus"
	"chatter/interfaces/http/rest/handlers"
	"chatter/interfaces/http/rest/middleware"
	"chatter/pkg/auth"
	"chatter/pkg/common"
	"chatter/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a backing dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Options carries the optional pieces of the HTTP surface.
type Options struct {
	EnableCORS bool
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Ready   ReadinessCheck
	// Tracer records a segment per request when enabled.
	Tracer *observability.Tracer
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	validator  *auth.JWTValidator
	limiter    *auth.RateLimiter
	opts       Options
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	validator *auth.JWTValidator,
	limiter *auth.RateLimiter,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		validator:  validator,
		limiter:    limiter,
		opts:       opts,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Tracing(rt.opts.Tracer))

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.chatter.app"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.Metrics != nil {
		router.Handle("/metrics", rt.opts.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))
		if rt.limiter != nil {
			r.Use(middleware.RateLimit(rt.limiter))
		}

		h := handlers.NewPreferenceHandler(rt.commandBus, rt.queryBus, rt.logger)
		r.Post("/session", h.Login)
		r.Get("/profile", h.GetProfile)
		r.Post("/preferences", h.AddPreference)
		r.Delete("/preferences/{category}/{id}", h.RemovePreference)
		r.Get("/recommendations/{category}", h.GetRecommendation)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	if rt.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.opts.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			common.RespondError(w, http.StatusServiceUnavailable, common.StandardErrorCodes.ServiceUnavailable, "not ready")
			return
		}
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
