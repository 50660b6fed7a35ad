package queries

import (
	"chatter/domain/core/valueobjects"
	"chatter/pkg/utils"
)

// GetRecommendationQuery asks for the best unheld preference in a category
type GetRecommendationQuery struct {
	UserID   string `json:"user_id" validate:"required"`
	Category string `json:"category" validate:"required,category"`
}

// Validate validates the query
func (q GetRecommendationQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ParsedCategory returns the query's category
func (q GetRecommendationQuery) ParsedCategory() (valueobjects.Category, error) {
	return valueobjects.ParseCategory(q.Category)
}

// GetRecommendationResult is the recommended preference. A nil result
// means nothing scored above zero.
type GetRecommendationResult struct {
	PreferenceID string  `json:"id"`
	Category     string  `json:"category"`
	Popularity   int64   `json:"popularity"`
	Score        float64 `json:"score"`
}
