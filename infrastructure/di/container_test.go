package di

import (
	"context"
	"testing"
	"time"

	"chatter/application/commands"
	"chatter/application/queries"
	"chatter/infrastructure/cache"
	"chatter/infrastructure/config"
	"chatter/infrastructure/persistence/memory"
	"chatter/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitializeContainer_MemoryBackends(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cfg := config.Default()
	cfg.MetricsBackend = config.MetricsPrometheus

	// Act
	container, cleanup, err := InitializeContainer(ctx, cfg)

	// Assert
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &memory.PreferenceGraph{}, container.Graph)
	assert.IsType(t, &memory.UserProfileStore{}, container.Profiles)
	assert.IsType(t, &cache.MemoryScoreBoardStore{}, container.Boards)
	assert.IsType(t, &observability.PrometheusMetrics{}, container.Metrics)
	assert.NotNil(t, container.MetricsHandler)
	assert.NotNil(t, container.RateLimiter)
	assert.NoError(t, container.Ready(ctx))
}

func TestInitializeContainer_CommandsReachQueries(t *testing.T) {
	ctx := context.Background()
	container, cleanup, err := InitializeContainer(ctx, config.Default())
	require.NoError(t, err)
	defer cleanup()

	for _, user := range []string{"alice", "bob"} {
		require.NoError(t, container.CommandBus.Send(ctx, commands.AddPreferenceCommand{UserID: user, Category: "books", PreferenceID: "HarryPotter"}))
	}
	require.NoError(t, container.CommandBus.Send(ctx, commands.AddPreferenceCommand{UserID: "alice", Category: "books", PreferenceID: "Xenocide"}))

	result, err := container.QueryBus.Ask(ctx, queries.GetRecommendationQuery{UserID: "bob", Category: "books"})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Xenocide", result.(*queries.GetRecommendationResult).PreferenceID)
}

func TestProvideMetrics_SelectsBackend(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, observability.NopMetrics{}, ProvideMetrics(cfg, nil, nil, nil))
	assert.Nil(t, ProvideMetricsHandler(nil))

	cfg.MetricsBackend = config.MetricsCloudWatch
	assert.IsType(t, &observability.CloudWatchMetrics{}, ProvideMetrics(cfg, nil, nil, nil))
}

func TestProvideRateLimiter_ZeroDisables(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimitPerMinute = 0

	assert.Nil(t, ProvideRateLimiter(cfg))
}

func TestProvideEventPublisher_NoneForMemoryStorage(t *testing.T) {
	assert.Nil(t, ProvideEventPublisher(config.Default(), nil, nil))
}

func TestProvideJWTGenerator_TokensPassTheValidator(t *testing.T) {
	cfg := config.Default()
	logger := zap.NewNop()

	generator, err := ProvideJWTGenerator(cfg, time.Minute, logger)
	require.NoError(t, err)
	validator, err := ProvideJWTValidator(cfg, logger)
	require.NoError(t, err)

	token, err := generator.GenerateToken("alice")
	require.NoError(t, err)
	claims, err := validator.ValidateToken("Bearer " + token)

	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
}
