package services

import (
	"context"
	"fmt"

	"chatter/application/ports"
	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
)

// loadHeld returns the current graph records of the preferences profile
// holds in category, in profile order. Preferences the graph has never
// stored fall back to the profile's own snapshot.
func loadHeld(ctx context.Context, graph ports.PreferenceGraph, profile *entities.UserProfile, category valueobjects.Category) ([]*entities.Preference, error) {
	snapshots := profile.PreferencesIn(category)
	if len(snapshots) == 0 {
		return nil, nil
	}

	keys := make([]valueobjects.PreferenceKey, len(snapshots))
	for i, p := range snapshots {
		keys[i] = p.Key()
	}

	stored, err := graph.GetPreferences(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load held preferences: %w", err)
	}

	byKey := make(map[valueobjects.PreferenceKey]*entities.Preference, len(stored))
	for _, p := range stored {
		byKey[p.Key()] = p
	}

	held := make([]*entities.Preference, len(snapshots))
	for i, snap := range snapshots {
		if current, ok := byKey[snap.Key()]; ok {
			held[i] = current
		} else {
			held[i] = snap
		}
	}
	return held, nil
}
