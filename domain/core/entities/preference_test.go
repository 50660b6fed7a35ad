package entities

import (
	"testing"

	"chatter/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
)

var (
	harryPotter = valueobjects.MustPreferenceKey("HarryPotter", valueobjects.CategoryBooks)
	endersGame  = valueobjects.MustPreferenceKey("EndersGame", valueobjects.CategoryBooks)
	xenocide    = valueobjects.MustPreferenceKey("Xenocide", valueobjects.CategoryBooks)
)

func TestNewPreference_Defaults(t *testing.T) {
	p := NewPreference(harryPotter)

	assert.Equal(t, DefaultPopularity, p.Popularity())
	assert.Empty(t, p.Correlations())
	assert.Equal(t, "HarryPotter", p.ID())
	assert.Equal(t, valueobjects.CategoryBooks, p.Category())
}

func TestPreference_SetCorrelationOverwrites(t *testing.T) {
	p := NewPreference(harryPotter)

	p.SetCorrelation(xenocide, 2)
	p.SetCorrelation(xenocide, 7)

	w, ok := p.Correlation(xenocide)
	assert.True(t, ok)
	assert.Equal(t, int64(7), w)
	assert.Len(t, p.Correlations(), 1)
}

func TestPreference_CorrelationRatio(t *testing.T) {
	tests := []struct {
		name       string
		popularity int64
		weight     int64
		hasEdge    bool
		want       float64
	}{
		{name: "weight over popularity", popularity: 100, weight: 2, hasEdge: true, want: 0.02},
		{name: "zero popularity", popularity: 0, weight: 5, hasEdge: true, want: 0},
		{name: "missing edge", popularity: 50, hasEdge: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPreferenceWithPopularity(harryPotter, tt.popularity)
			if tt.hasEdge {
				p.SetCorrelation(xenocide, tt.weight)
			}

			assert.InDelta(t, tt.want, p.CorrelationRatio(xenocide), 1e-9)
		})
	}
}

func TestPreference_EqualsUsesIdentityOnly(t *testing.T) {
	a := NewPreferenceWithPopularity(harryPotter, 10)
	b := NewPreferenceWithPopularity(harryPotter, 99)
	b.SetCorrelation(xenocide, 3)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(NewPreference(endersGame)))
}

func TestPreference_SnapshotIsIndependent(t *testing.T) {
	p := NewPreferenceWithPopularity(harryPotter, 100).WithVersion(3)
	p.SetCorrelation(xenocide, 2)

	snap := p.Snapshot()
	p.AdjustPopularity(1)
	p.AdjustCorrelation(xenocide, 1)
	p.WithVersion(4)

	assert.Equal(t, int64(100), snap.Popularity())
	w, _ := snap.Correlation(xenocide)
	assert.Equal(t, int64(2), w)
	assert.Equal(t, int64(3), snap.Version())
}

func TestPreference_CorrelationsReturnsCopy(t *testing.T) {
	p := NewPreference(harryPotter)
	p.SetCorrelation(xenocide, 2)

	edges := p.Correlations()
	edges[endersGame] = 10

	_, ok := p.Correlation(endersGame)
	assert.False(t, ok)
}
