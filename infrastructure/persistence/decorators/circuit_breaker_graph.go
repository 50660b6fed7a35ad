// Package decorators wraps storage ports with cross-cutting behavior.
package decorators

import (
	"context"
	"errors"
	"time"

	"chatter/application/ports"
	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	pkgerrors "chatter/pkg/errors"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// CircuitBreakerConfig holds circuit breaker settings
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// CircuitBreakerGraph fails fast while the wrapped graph keeps erroring.
// Domain outcomes (not found, validation, duplicate update) count as
// successes so only storage failures trip the breaker.
type CircuitBreakerGraph struct {
	inner   ports.PreferenceGraph
	breaker *gobreaker.CircuitBreaker[any]
	logger  *zap.Logger
}

// NewCircuitBreakerGraph wraps inner
func NewCircuitBreakerGraph(inner ports.PreferenceGraph, cfg CircuitBreakerConfig, logger *zap.Logger) *CircuitBreakerGraph {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &CircuitBreakerGraph{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		logger:  logger,
	}
}

var _ ports.PreferenceGraph = (*CircuitBreakerGraph)(nil)

func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return pkgerrors.IsAlreadyApplied(err) ||
		pkgerrors.IsNotFound(err) ||
		pkgerrors.IsValidation(err)
}

// State reports the breaker state for health checks
func (g *CircuitBreakerGraph) State() string {
	return g.breaker.State().String()
}

func (g *CircuitBreakerGraph) execute(fn func() (any, error)) (any, error) {
	result, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, pkgerrors.NewUnavailableError("preference graph").WithCause(err)
	}
	return result, err
}

func (g *CircuitBreakerGraph) GetPreference(ctx context.Context, key valueobjects.PreferenceKey) (*entities.Preference, error) {
	result, err := g.execute(func() (any, error) {
		return g.inner.GetPreference(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return result.(*entities.Preference), nil
}

func (g *CircuitBreakerGraph) GetPreferences(ctx context.Context, keys []valueobjects.PreferenceKey) ([]*entities.Preference, error) {
	result, err := g.execute(func() (any, error) {
		return g.inner.GetPreferences(ctx, keys)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*entities.Preference), nil
}

func (g *CircuitBreakerGraph) PutPreference(ctx context.Context, pref *entities.Preference) error {
	_, err := g.execute(func() (any, error) {
		return nil, g.inner.PutPreference(ctx, pref)
	})
	return err
}

func (g *CircuitBreakerGraph) DeletePreference(ctx context.Context, key valueobjects.PreferenceKey) error {
	_, err := g.execute(func() (any, error) {
		return nil, g.inner.DeletePreference(ctx, key)
	})
	return err
}

func (g *CircuitBreakerGraph) UpdatePreference(ctx context.Context, req *entities.UpdateRequest, actingUserID string, action valueobjects.UpdateAction) (*entities.Preference, error) {
	result, err := g.execute(func() (any, error) {
		return g.inner.UpdatePreference(ctx, req, actingUserID, action)
	})
	if err != nil {
		return nil, err
	}
	return result.(*entities.Preference), nil
}

// BatchGetPreferences guards every page fetch
func (g *CircuitBreakerGraph) BatchGetPreferences(category valueobjects.Category, batchSize int) ports.PreferenceBatchIterator {
	return &breakerIterator{graph: g, inner: g.inner.BatchGetPreferences(category, batchSize)}
}

type breakerIterator struct {
	graph *CircuitBreakerGraph
	inner ports.PreferenceBatchIterator
}

type page struct {
	batch []*entities.Preference
	ok    bool
}

func (it *breakerIterator) Next(ctx context.Context) ([]*entities.Preference, bool, error) {
	result, err := it.graph.execute(func() (any, error) {
		batch, ok, err := it.inner.Next(ctx)
		return page{batch: batch, ok: ok}, err
	})
	if err != nil {
		return nil, false, err
	}
	p := result.(page)
	return p.batch, p.ok, nil
}
