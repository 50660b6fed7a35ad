package entities

import (
	"sort"

	"chatter/domain/core/valueobjects"
)

// DefaultPopularity is the popularity of a preference created on first reference
const DefaultPopularity int64 = 1

// Preference is a recommendable item together with its outgoing weighted
// correlations. Correlations are keyed by destination, so writing an edge
// to an existing destination replaces the previous weight.
//
// Version counts the updates a store has applied to the record. It is 0 for
// a record no update has touched.
type Preference struct {
	key          valueobjects.PreferenceKey
	popularity   int64
	correlations map[valueobjects.PreferenceKey]int64
	version      int64
}

// NewPreference creates a preference with the default popularity and no correlations
func NewPreference(key valueobjects.PreferenceKey) *Preference {
	return NewPreferenceWithPopularity(key, DefaultPopularity)
}

// NewPreferenceWithPopularity creates a preference with an explicit popularity.
// Stores use 0 when an update is the first write to a preference.
func NewPreferenceWithPopularity(key valueobjects.PreferenceKey, popularity int64) *Preference {
	return &Preference{
		key:          key,
		popularity:   popularity,
		correlations: make(map[valueobjects.PreferenceKey]int64),
	}
}

// ReconstructPreference rebuilds a preference from stored data
func ReconstructPreference(key valueobjects.PreferenceKey, popularity int64, correlations map[valueobjects.PreferenceKey]int64) *Preference {
	p := NewPreferenceWithPopularity(key, popularity)
	for dest, weight := range correlations {
		p.correlations[dest] = weight
	}
	return p
}

// Key returns the preference identity
func (p *Preference) Key() valueobjects.PreferenceKey {
	return p.key
}

// ID returns the preference id within its category
func (p *Preference) ID() string {
	return p.key.ID()
}

// Category returns the preference category
func (p *Preference) Category() valueobjects.Category {
	return p.key.Category()
}

// Popularity returns the current popularity
func (p *Preference) Popularity() int64 {
	return p.popularity
}

// Version returns the number of updates applied to the stored record
func (p *Preference) Version() int64 {
	return p.version
}

// WithVersion sets the stored version and returns p
func (p *Preference) WithVersion(version int64) *Preference {
	p.version = version
	return p
}

// Equals compares identity only
func (p *Preference) Equals(other *Preference) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.key == other.key
}

// AdjustPopularity applies a signed delta to the popularity
func (p *Preference) AdjustPopularity(delta int64) {
	p.popularity += delta
}

// Correlation returns the weight of the edge to dest and whether it exists
func (p *Preference) Correlation(dest valueobjects.PreferenceKey) (int64, bool) {
	w, ok := p.correlations[dest]
	return w, ok
}

// SetCorrelation writes the edge to dest, replacing any previous weight
func (p *Preference) SetCorrelation(dest valueobjects.PreferenceKey, weight int64) {
	p.correlations[dest] = weight
}

// AdjustCorrelation applies a signed delta to the edge to dest, creating it at 0 first if absent
func (p *Preference) AdjustCorrelation(dest valueobjects.PreferenceKey, delta int64) {
	p.correlations[dest] += delta
}

// Correlations returns a copy of the outgoing edges
func (p *Preference) Correlations() map[valueobjects.PreferenceKey]int64 {
	out := make(map[valueobjects.PreferenceKey]int64, len(p.correlations))
	for dest, weight := range p.correlations {
		out[dest] = weight
	}
	return out
}

// CorrelatedKeys returns the edge destinations in canonical key order
func (p *Preference) CorrelatedKeys() []valueobjects.PreferenceKey {
	keys := make([]valueobjects.PreferenceKey, 0, len(p.correlations))
	for dest := range p.correlations {
		keys = append(keys, dest)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// CorrelationRatio is the weight of the edge to dest divided by this
// preference's popularity. It is 0 when there is no edge or the popularity is 0.
func (p *Preference) CorrelationRatio(dest valueobjects.PreferenceKey) float64 {
	if p.popularity == 0 {
		return 0
	}
	weight, ok := p.correlations[dest]
	if !ok {
		return 0
	}
	return float64(weight) / float64(p.popularity)
}

// Snapshot returns a deep copy that shares no state with p
func (p *Preference) Snapshot() *Preference {
	return ReconstructPreference(p.key, p.popularity, p.correlations).WithVersion(p.version)
}
