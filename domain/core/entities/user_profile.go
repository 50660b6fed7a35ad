package entities

import (
	"sort"

	"chatter/domain/core/valueobjects"
	pkgerrors "chatter/pkg/errors"
)

// UserProfile holds the preferences a user has chosen, grouped by category.
// The profile keeps point-in-time copies; it never aliases graph records,
// so current popularity and correlations must be re-read from the graph.
type UserProfile struct {
	userID      string
	preferences map[valueobjects.Category]map[valueobjects.PreferenceKey]*Preference
}

// NewUserProfile creates an empty profile
func NewUserProfile(userID string) (*UserProfile, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	return &UserProfile{
		userID:      userID,
		preferences: make(map[valueobjects.Category]map[valueobjects.PreferenceKey]*Preference),
	}, nil
}

// UserID returns the owner of the profile
func (u *UserProfile) UserID() string {
	return u.userID
}

// AddPreference stores a copy of pref and returns that copy
func (u *UserProfile) AddPreference(pref *Preference) *Preference {
	category := pref.Category()
	if u.preferences[category] == nil {
		u.preferences[category] = make(map[valueobjects.PreferenceKey]*Preference)
	}
	snapshot := pref.Snapshot()
	u.preferences[category][pref.Key()] = snapshot
	return snapshot
}

// AddPreferenceKey adds a fresh preference for key
func (u *UserProfile) AddPreferenceKey(key valueobjects.PreferenceKey) *Preference {
	return u.AddPreference(NewPreference(key))
}

// RemovePreference drops key from the profile. The returned preference is
// the removed copy, or a fresh one when the profile did not hold key.
func (u *UserProfile) RemovePreference(key valueobjects.PreferenceKey) (*Preference, bool) {
	held, ok := u.preferences[key.Category()][key]
	if !ok {
		return NewPreference(key), false
	}
	delete(u.preferences[key.Category()], key)
	if len(u.preferences[key.Category()]) == 0 {
		delete(u.preferences, key.Category())
	}
	return held, true
}

// Holds reports whether the profile contains key
func (u *UserProfile) Holds(key valueobjects.PreferenceKey) bool {
	_, ok := u.preferences[key.Category()][key]
	return ok
}

// PreferencesIn returns copies of the held preferences in category,
// ordered by key
func (u *UserProfile) PreferencesIn(category valueobjects.Category) []*Preference {
	held := u.preferences[category]
	out := make([]*Preference, 0, len(held))
	for _, p := range held {
		out = append(out, p.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

// KeysIn returns the held keys in category, ordered by id
func (u *UserProfile) KeysIn(category valueobjects.Category) []valueobjects.PreferenceKey {
	prefs := u.PreferencesIn(category)
	keys := make([]valueobjects.PreferenceKey, len(prefs))
	for i, p := range prefs {
		keys[i] = p.Key()
	}
	return keys
}

// Categories returns the categories with at least one held preference
func (u *UserProfile) Categories() []valueobjects.Category {
	out := make([]valueobjects.Category, 0, len(u.preferences))
	for _, c := range valueobjects.AllCategories() {
		if len(u.preferences[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy of the profile
func (u *UserProfile) Clone() *UserProfile {
	clone := &UserProfile{
		userID:      u.userID,
		preferences: make(map[valueobjects.Category]map[valueobjects.PreferenceKey]*Preference, len(u.preferences)),
	}
	for _, c := range u.Categories() {
		for _, p := range u.preferences[c] {
			clone.AddPreference(p)
		}
	}
	return clone
}
