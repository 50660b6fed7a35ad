//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"chatter/application/ports"
	"chatter/infrastructure/config"
	"chatter/pkg/observability"

	"github.com/google/wire"
)

// AWSSet builds the SDK clients from one shared aws.Config
var AWSSet = wire.NewSet(
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
)

// StorageSet selects the graph, profile, lock and score board backends
var StorageSet = wire.NewSet(
	ProvidePreferenceGraph,
	ProvideUserProfileStore,
	ProvideLockManager,
	ProvideScoreBoardStore,
	ProvideEventPublisher,
	ProvideReadiness,
)

// ObservabilitySet provides metrics and tracing
var ObservabilitySet = wire.NewSet(
	ProvidePrometheusMetrics,
	ProvideMetrics,
	ProvideMetricsHandler,
	ProvideTracer,
	wire.Bind(new(ports.Tracer), new(*observability.Tracer)),
)

// ApplicationSet wires the services, handlers and buses
var ApplicationSet = wire.NewSet(
	ProvideRecommendationService,
	ProvidePropagationService,
	ProvideScoreTracker,
	ProvidePreferenceHandlers,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTValidator,
	ProvideRateLimiter,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	AWSSet,
	StorageSet,
	ObservabilitySet,
	ApplicationSet,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The cleanup function
// releases the score board cache.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
