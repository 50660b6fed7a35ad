package entities

import (
	"testing"

	pkgerrors "chatter/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestUpdateRequest_Validate(t *testing.T) {
	var nilRequest *UpdateRequest
	assert.True(t, pkgerrors.IsValidation(nilRequest.Validate()))
	assert.True(t, pkgerrors.IsValidation(NewUpdateRequest(nil).Validate()))
	assert.True(t, pkgerrors.IsValidation(NewUpdateRequest(&Preference{}).Validate()))
	assert.NoError(t, NewUpdateRequest(NewPreference(harryPotter)).Validate())
}

func TestUpdateRequest_ApplyTo(t *testing.T) {
	// Arrange
	pref := NewPreferenceWithPopularity(harryPotter, 100)
	pref.SetCorrelation(xenocide, 2)
	req := NewUpdateRequest(pref).
		WithPopularityDelta(1).
		WithCorrelationDelta(xenocide, 1).
		WithCorrelationDelta(endersGame, 1)

	// Act
	req.ApplyTo(pref)

	// Assert
	assert.Equal(t, int64(101), pref.Popularity())
	w, _ := pref.Correlation(xenocide)
	assert.Equal(t, int64(3), w)
	w, _ = pref.Correlation(endersGame)
	assert.Equal(t, int64(1), w)
	assert.Equal(t, int64(1), pref.Version())
}

func TestUpdateRequest_MarkStored(t *testing.T) {
	req := NewUpdateRequest(NewPreference(harryPotter)).WithPopularityDelta(1)
	assert.False(t, req.Stored())

	record := NewPreferenceWithPopularity(harryPotter, 101).WithVersion(7)
	req.MarkStored(record)

	assert.True(t, req.Stored())
	assert.Same(t, record, req.Target())
}

func TestUpdateRequest_Accessors(t *testing.T) {
	req := NewUpdateRequest(NewPreference(harryPotter))
	assert.True(t, req.IsEmpty())

	_, ok := req.PopularityDelta()
	assert.False(t, ok)

	req.WithCorrelationDelta(xenocide, -1).WithCorrelationDelta(endersGame, -1)
	d, ok := req.CorrelationDelta(xenocide)
	assert.True(t, ok)
	assert.Equal(t, int64(-1), d)
	assert.Equal(t, endersGame, req.CorrelatedKeys()[0])
	assert.False(t, req.IsEmpty())
}
