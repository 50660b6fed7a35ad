package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPreferenceKey(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		category Category
		wantErr  bool
		errMsg   string
	}{
		{
			name:     "valid key",
			id:       "Xenocide",
			category: CategoryBooks,
		},
		{
			name:     "empty id",
			id:       "",
			category: CategoryBooks,
			wantErr:  true,
			errMsg:   "preference ID cannot be empty",
		},
		{
			name:     "whitespace id",
			id:       "   ",
			category: CategoryMovies,
			wantErr:  true,
			errMsg:   "preference ID cannot be empty",
		},
		{
			name:     "unknown category",
			id:       "Dune",
			category: Category("PODCASTS"),
			wantErr:  true,
			errMsg:   "preference category is invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewPreferenceKey(tt.id, tt.category)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.errMsg, err.Error())
				assert.True(t, key.IsZero())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.id, key.ID())
			assert.Equal(t, tt.category, key.Category())
		})
	}
}

func TestPreferenceKey_StringRoundTrip(t *testing.T) {
	key := MustPreferenceKey("Enders Game", CategoryBooks)

	assert.Equal(t, "BOOKS~~Enders Game", key.String())

	parsed, err := ParsePreferenceKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}

func TestParsePreferenceKey_IDContainingSeparator(t *testing.T) {
	parsed, err := ParsePreferenceKey("MOVIES~~a~~b")

	require.NoError(t, err)
	assert.Equal(t, CategoryMovies, parsed.Category())
	assert.Equal(t, "a~~b", parsed.ID())
}

func TestParsePreferenceKey_Invalid(t *testing.T) {
	for _, input := range []string{"", "BOOKS", "BOOKS~~", "PODCASTS~~x"} {
		_, err := ParsePreferenceKey(input)
		assert.Error(t, err, input)
	}
}

func TestPreferenceKey_AsJSONMapKey(t *testing.T) {
	in := map[PreferenceKey]int64{
		MustPreferenceKey("Xenocide", CategoryBooks): 15,
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"BOOKS~~Xenocide": 15}`, string(data))

	var out map[PreferenceKey]int64
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" books ")
	require.NoError(t, err)
	assert.Equal(t, CategoryBooks, c)

	_, err = ParseCategory("podcasts")
	assert.Error(t, err)
}

func TestUpdateAction_Delta(t *testing.T) {
	assert.Equal(t, int64(1), ActionIncrement.Delta())
	assert.Equal(t, int64(-1), ActionDecrement.Delta())
	assert.Equal(t, "DECREMENT", ActionDecrement.String())
}
