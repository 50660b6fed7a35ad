package entities

import (
	"testing"

	"chatter/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserProfile_RequiresID(t *testing.T) {
	_, err := NewUserProfile("")
	assert.Error(t, err)
}

func TestUserProfile_AddPreferenceStoresCopy(t *testing.T) {
	// Arrange
	profile, err := NewUserProfile("user123")
	require.NoError(t, err)
	live := NewPreferenceWithPopularity(harryPotter, 100)
	live.SetCorrelation(xenocide, 2)

	// Act
	profile.AddPreference(live)
	live.AdjustPopularity(5)
	live.SetCorrelation(endersGame, 9)

	// Assert
	held := profile.PreferencesIn(valueobjects.CategoryBooks)
	require.Len(t, held, 1)
	assert.Equal(t, int64(100), held[0].Popularity())
	_, ok := held[0].Correlation(endersGame)
	assert.False(t, ok)
}

func TestUserProfile_PreferencesInReturnsCopies(t *testing.T) {
	profile, _ := NewUserProfile("user123")
	profile.AddPreferenceKey(harryPotter)

	held := profile.PreferencesIn(valueobjects.CategoryBooks)
	held[0].AdjustPopularity(10)

	again := profile.PreferencesIn(valueobjects.CategoryBooks)
	assert.Equal(t, DefaultPopularity, again[0].Popularity())
}

func TestUserProfile_RemovePreference(t *testing.T) {
	profile, _ := NewUserProfile("user123")
	profile.AddPreferenceKey(harryPotter)
	profile.AddPreferenceKey(endersGame)

	removed, ok := profile.RemovePreference(harryPotter)

	assert.True(t, ok)
	assert.Equal(t, harryPotter, removed.Key())
	assert.False(t, profile.Holds(harryPotter))
	assert.True(t, profile.Holds(endersGame))

	_, ok = profile.RemovePreference(xenocide)
	assert.False(t, ok)
}

func TestUserProfile_CategoriesAndKeys(t *testing.T) {
	profile, _ := NewUserProfile("user123")
	profile.AddPreferenceKey(xenocide)
	profile.AddPreferenceKey(harryPotter)
	profile.AddPreferenceKey(valueobjects.MustPreferenceKey("Up", valueobjects.CategoryMovies))

	assert.Equal(t, []valueobjects.Category{valueobjects.CategoryBooks, valueobjects.CategoryMovies}, profile.Categories())
	assert.Equal(t, []valueobjects.PreferenceKey{harryPotter, xenocide}, profile.KeysIn(valueobjects.CategoryBooks))
	assert.Empty(t, profile.KeysIn(valueobjects.CategoryTelevision))
}
