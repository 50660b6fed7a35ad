package queries

import (
	"chatter/pkg/utils"
)

// GetProfileQuery asks for a user's preferences
type GetProfileQuery struct {
	UserID string `json:"user_id" validate:"required"`
}

// Validate validates the query
func (q GetProfileQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetProfileResult lists preference IDs per category
type GetProfileResult struct {
	UserID      string              `json:"user_id"`
	Preferences map[string][]string `json:"preferences"`
}
