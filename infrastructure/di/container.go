// Package di assembles the application from configuration. Backends are
// chosen per config: memory or DynamoDB storage, memory or Redis score
// board cache, CloudWatch, Prometheus or no metrics.
package di

import (
	"net/http"

	"chatter/application/commands/bus"
	cmdhandlers "chatter/application/commands/handlers"
	"chatter/application/ports"
	querybus "chatter/application/queries/bus"
	"chatter/application/services"
	"chatter/infrastructure/config"
	"chatter/pkg/auth"
	"chatter/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	Graph           ports.PreferenceGraph
	Profiles        ports.UserProfileStore
	Boards          ports.ScoreBoardStore
	Metrics         ports.Metrics
	MetricsHandler  http.Handler
	Tracer          *observability.Tracer
	Recommendations *services.RecommendationService
	Tracker         *services.ScoreTracker
	Preferences     *cmdhandlers.PreferenceHandlers
	CommandBus      *bus.CommandBus
	QueryBus        *querybus.QueryBus
	JWTValidator    *auth.JWTValidator
	RateLimiter     *auth.RateLimiter
	Ready           ReadinessFunc
}
