package handlers

import (
	"context"

	"chatter/application/ports"
	"chatter/application/queries"
	"chatter/application/queries/bus"
	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	pkgerrors "chatter/pkg/errors"

	"go.uber.org/zap"
)

// Recommender answers recommendation requests
type Recommender interface {
	Recommend(ctx context.Context, category valueobjects.Category, userID string) (*entities.Recommendation, error)
}

// GetRecommendationHandler handles GetRecommendationQuery
type GetRecommendationHandler struct {
	recommender Recommender
	logger      *zap.Logger
}

// NewGetRecommendationHandler creates a new handler
func NewGetRecommendationHandler(recommender Recommender, logger *zap.Logger) *GetRecommendationHandler {
	return &GetRecommendationHandler{recommender: recommender, logger: logger}
}

// Handle executes the query. It returns nil, nil when there is nothing to recommend.
func (h *GetRecommendationHandler) Handle(ctx context.Context, query queries.GetRecommendationQuery) (*queries.GetRecommendationResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	category, err := query.ParsedCategory()
	if err != nil {
		return nil, err
	}

	rec, err := h.recommender.Recommend(ctx, category, query.UserID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		h.logger.Debug("No recommendation",
			zap.String("userID", query.UserID),
			zap.String("category", category.String()),
		)
		return nil, nil
	}

	return &queries.GetRecommendationResult{
		PreferenceID: rec.Preference.ID(),
		Category:     rec.Preference.Category().String(),
		Popularity:   rec.Preference.Popularity(),
		Score:        rec.Score,
	}, nil
}

// GetProfileHandler handles GetProfileQuery
type GetProfileHandler struct {
	profiles ports.UserProfileStore
}

// NewGetProfileHandler creates a new handler
func NewGetProfileHandler(profiles ports.UserProfileStore) *GetProfileHandler {
	return &GetProfileHandler{profiles: profiles}
}

// Handle executes the query. A user without a profile gets an empty one.
func (h *GetProfileHandler) Handle(ctx context.Context, query queries.GetProfileQuery) (*queries.GetProfileResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	result := &queries.GetProfileResult{
		UserID:      query.UserID,
		Preferences: make(map[string][]string),
	}

	profile, err := h.profiles.GetProfile(ctx, query.UserID)
	if pkgerrors.IsNotFound(err) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	for _, category := range profile.Categories() {
		for _, key := range profile.KeysIn(category) {
			result.Preferences[category.String()] = append(result.Preferences[category.String()], key.ID())
		}
	}
	return result, nil
}

// Register wires both handlers into the bus
func Register(b *bus.QueryBus, recommendations *GetRecommendationHandler, profiles *GetProfileHandler) error {
	if err := b.Register(queries.GetRecommendationQuery{}, bus.QueryHandlerFunc(func(ctx context.Context, q bus.Query) (interface{}, error) {
		result, err := recommendations.Handle(ctx, q.(queries.GetRecommendationQuery))
		if result == nil {
			// keep the interface nil so callers can test for "no result"
			return nil, err
		}
		return result, err
	})); err != nil {
		return err
	}

	return b.Register(queries.GetProfileQuery{}, bus.QueryHandlerFunc(func(ctx context.Context, q bus.Query) (interface{}, error) {
		result, err := profiles.Handle(ctx, q.(queries.GetProfileQuery))
		if result == nil {
			return nil, err
		}
		return result, err
	}))
}
