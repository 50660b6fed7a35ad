package commands

import (
	"chatter/domain/core/valueobjects"
	"chatter/pkg/utils"
)

// LoginCommand opens a session for a user, creating their profile if needed
type LoginCommand struct {
	UserID string `json:"userId" validate:"required,max=128"`
}

// Validate validates the LoginCommand
func (c LoginCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// AddPreferenceCommand adds a preference to a user's profile
type AddPreferenceCommand struct {
	UserID       string `json:"userId" validate:"required,max=128"`
	Category     string `json:"category" validate:"required,category"`
	PreferenceID string `json:"id" validate:"required,max=256,excludes=~~"`
}

// Validate validates the AddPreferenceCommand
func (c AddPreferenceCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// Key returns the preference key named by the command
func (c AddPreferenceCommand) Key() (valueobjects.PreferenceKey, error) {
	return preferenceKey(c.PreferenceID, c.Category)
}

// RemovePreferenceCommand removes a preference from a user's profile
type RemovePreferenceCommand struct {
	UserID       string `json:"userId" validate:"required,max=128"`
	Category     string `json:"category" validate:"required,category"`
	PreferenceID string `json:"id" validate:"required,max=256,excludes=~~"`
}

// Validate validates the RemovePreferenceCommand
func (c RemovePreferenceCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// Key returns the preference key named by the command
func (c RemovePreferenceCommand) Key() (valueobjects.PreferenceKey, error) {
	return preferenceKey(c.PreferenceID, c.Category)
}

func preferenceKey(id, category string) (valueobjects.PreferenceKey, error) {
	c, err := valueobjects.ParseCategory(category)
	if err != nil {
		return valueobjects.PreferenceKey{}, err
	}
	return valueobjects.NewPreferenceKey(id, c)
}
