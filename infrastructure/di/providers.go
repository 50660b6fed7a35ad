package di

import (
	"context"
	"net/http"
	"time"

	"chatter/application/commands/bus"
	cmdhandlers "chatter/application/commands/handlers"
	"chatter/application/ports"
	querybus "chatter/application/queries/bus"
	queryhandlers "chatter/application/queries/handlers"
	"chatter/application/services"
	"chatter/infrastructure/cache"
	"chatter/infrastructure/config"
	"chatter/infrastructure/messaging/eventbridge"
	"chatter/infrastructure/persistence/decorators"
	"chatter/infrastructure/persistence/dynamodb"
	"chatter/infrastructure/persistence/memory"
	"chatter/pkg/auth"
	pkgerrors "chatter/pkg/errors"
	"chatter/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// developmentJWTSecret signs tokens outside production when JWT_SECRET is unset
const developmentJWTSecret = "development-secret-change-in-production"

// ReadinessFunc reports whether the storage backend answers
type ReadinessFunc func(ctx context.Context) error

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	return zapCfg.Build(zap.Fields(zap.String("service", "chatter")))
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvidePreferenceGraph selects the graph store. DynamoDB access goes
// through a circuit breaker.
func ProvidePreferenceGraph(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.PreferenceGraph {
	if cfg.StorageBackend == config.StorageMemory {
		return memory.NewPreferenceGraph()
	}
	return decorators.NewCircuitBreakerGraph(
		dynamodb.NewPreferenceGraph(client, cfg.DynamoDBTable, logger),
		decorators.DefaultCircuitBreakerConfig("preference-graph"),
		logger,
	)
}

// ProvideUserProfileStore selects the profile store
func ProvideUserProfileStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.UserProfileStore {
	if cfg.StorageBackend == config.StorageMemory {
		return memory.NewUserProfileStore()
	}
	return dynamodb.NewUserProfileStore(client, cfg.DynamoDBTable, logger)
}

// ProvideLockManager selects the lock manager. Locks live next to the data
// they guard.
func ProvideLockManager(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.LockManager {
	if cfg.StorageBackend == config.StorageMemory {
		return memory.NewLockManager()
	}
	return dynamodb.NewLockManager(client, cfg.DynamoDBTable, logger)
}

// ProvideScoreBoardStore selects the score board cache. The cleanup
// function closes it.
func ProvideScoreBoardStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.ScoreBoardStore, func(), error) {
	if cfg.ScoreBoardCache == config.CacheRedis {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}
		return cache.NewRedisScoreBoardStore(client, cfg.ScoreBoardTTL, logger), cleanup, nil
	}

	store := cache.NewMemoryScoreBoardStore(cfg.ScoreBoardTTL)
	return store, store.Close, nil
}

// ProvideEventPublisher publishes domain events to EventBridge when the
// graph is in DynamoDB. The in-memory setup has nobody listening.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.StorageBackend == config.StorageMemory || cfg.EventBusName == "" {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvidePrometheusMetrics creates the Prometheus registry when that
// backend is selected, nil otherwise
func ProvidePrometheusMetrics(cfg *config.Config) *observability.PrometheusMetrics {
	if cfg.MetricsBackend != config.MetricsPrometheus {
		return nil
	}
	return observability.NewPrometheusMetrics(observability.DefaultNamespace)
}

// ProvideMetrics selects the metrics backend
func ProvideMetrics(
	cfg *config.Config,
	prom *observability.PrometheusMetrics,
	client *awscloudwatch.Client,
	logger *zap.Logger,
) ports.Metrics {
	switch cfg.MetricsBackend {
	case config.MetricsPrometheus:
		return prom
	case config.MetricsCloudWatch:
		return observability.NewCloudWatchMetrics(observability.DefaultNamespace, client, logger)
	}
	return observability.NopMetrics{}
}

// ProvideMetricsHandler exposes the Prometheus registry, nil for other backends
func ProvideMetricsHandler(prom *observability.PrometheusMetrics) http.Handler {
	if prom == nil {
		return nil
	}
	return prom.Handler()
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("chatter", cfg.EnableTracing)
}

// ProvideRecommendationService creates the recommendation service
func ProvideRecommendationService(
	cfg *config.Config,
	graph ports.PreferenceGraph,
	profiles ports.UserProfileStore,
	boards ports.ScoreBoardStore,
	locks ports.LockManager,
	metrics ports.Metrics,
	tracer ports.Tracer,
	logger *zap.Logger,
) *services.RecommendationService {
	return services.NewRecommendationService(graph, profiles, boards, locks, metrics, tracer, logger,
		services.RecommendationConfig{BatchSize: cfg.BatchSize, Workers: cfg.ScoringWorkers, LockTTL: cfg.LockTTL})
}

// ProvidePropagationService creates the propagation service
func ProvidePropagationService(
	graph ports.PreferenceGraph,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	tracer ports.Tracer,
	logger *zap.Logger,
) *services.PropagationService {
	return services.NewPropagationService(graph, publisher, metrics, tracer, logger)
}

// ProvideScoreTracker creates the score board tracker
func ProvideScoreTracker(
	cfg *config.Config,
	boards ports.ScoreBoardStore,
	locks ports.LockManager,
	logger *zap.Logger,
) *services.ScoreTracker {
	return services.NewScoreTracker(boards, locks, logger, cfg.LockTTL)
}

// ProvidePreferenceHandlers creates the command handlers
func ProvidePreferenceHandlers(
	graph ports.PreferenceGraph,
	profiles ports.UserProfileStore,
	propagation *services.PropagationService,
	tracker *services.ScoreTracker,
	logger *zap.Logger,
) *cmdhandlers.PreferenceHandlers {
	return cmdhandlers.NewPreferenceHandlers(graph, profiles, propagation, tracker, logger)
}

// ProvideCommandBus creates and configures the command bus
func ProvideCommandBus(handlers *cmdhandlers.PreferenceHandlers, logger *zap.Logger) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(bus.NewZapLogger(logger)))
	if err := handlers.Register(commandBus); err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates and configures the query bus
func ProvideQueryBus(
	recommendations *services.RecommendationService,
	profiles ports.UserProfileStore,
	metrics ports.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.NewMetricsMiddleware(metrics))
	err := queryhandlers.Register(queryBus,
		queryhandlers.NewGetRecommendationHandler(recommendations, logger),
		queryhandlers.NewGetProfileHandler(profiles),
	)
	if err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideJWTValidator creates the bearer token validator
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	return auth.NewJWTValidator(jwtConfig(cfg, logger))
}

// ProvideJWTGenerator creates a token generator sharing the validator's
// settings. Tokens it signs pass ProvideJWTValidator.
func ProvideJWTGenerator(cfg *config.Config, ttl time.Duration, logger *zap.Logger) (*auth.JWTGenerator, error) {
	return auth.NewJWTGenerator(jwtConfig(cfg, logger), ttl)
}

func jwtConfig(cfg *config.Config, logger *zap.Logger) auth.JWTConfig {
	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using the development secret")
		secret = developmentJWTSecret
	}
	return auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
		Audience:  []string{auth.DefaultAudience},
	}
}

// ProvideRateLimiter creates the per-user limiter, nil when disabled
func ProvideRateLimiter(cfg *config.Config) *auth.RateLimiter {
	if cfg.RateLimitPerMinute == 0 {
		return nil
	}
	return auth.NewRateLimiter(cfg.RateLimitPerMinute)
}

// ProvideReadiness checks the profile store with a lookup that is expected
// to miss
func ProvideReadiness(profiles ports.UserProfileStore) ReadinessFunc {
	return func(ctx context.Context) error {
		_, err := profiles.GetProfile(ctx, "readiness-check")
		if err == nil || pkgerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
}
