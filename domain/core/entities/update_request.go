package entities

import (
	"sort"

	"chatter/domain/core/valueobjects"
	pkgerrors "chatter/pkg/errors"
)

// UpdateRequest describes one atomic mutation of a single preference record:
// an optional popularity delta plus signed deltas for some of its outgoing
// edges. It is built by the propagator, applied once by the graph store
// and then folded into cached score boards.
type UpdateRequest struct {
	target            *Preference
	popularityDelta   *int64
	correlationDeltas map[valueobjects.PreferenceKey]int64
	stored            bool
}

// NewUpdateRequest starts a request targeting target
func NewUpdateRequest(target *Preference) *UpdateRequest {
	return &UpdateRequest{
		target:            target,
		correlationDeltas: make(map[valueobjects.PreferenceKey]int64),
	}
}

// WithPopularityDelta sets the popularity delta
func (r *UpdateRequest) WithPopularityDelta(delta int64) *UpdateRequest {
	r.popularityDelta = &delta
	return r
}

// WithCorrelationDelta sets the delta for the edge to dest
func (r *UpdateRequest) WithCorrelationDelta(dest valueobjects.PreferenceKey, delta int64) *UpdateRequest {
	r.correlationDeltas[dest] = delta
	return r
}

// Target returns the preference being mutated
func (r *UpdateRequest) Target() *Preference {
	return r.target
}

// MarkStored replaces the target with the record as the store left it
// right after applying this request
func (r *UpdateRequest) MarkStored(record *Preference) {
	r.target = record
	r.stored = true
}

// Stored reports whether the target is the post-update record of this
// request. It stays false when the store skipped the request as a duplicate.
func (r *UpdateRequest) Stored() bool {
	return r.stored
}

// PopularityDelta returns the popularity delta and whether one is set
func (r *UpdateRequest) PopularityDelta() (int64, bool) {
	if r.popularityDelta == nil {
		return 0, false
	}
	return *r.popularityDelta, true
}

// CorrelationDelta returns the delta for the edge to dest and whether one is set
func (r *UpdateRequest) CorrelationDelta(dest valueobjects.PreferenceKey) (int64, bool) {
	d, ok := r.correlationDeltas[dest]
	return d, ok
}

// CorrelationDeltas returns a copy of the edge deltas
func (r *UpdateRequest) CorrelationDeltas() map[valueobjects.PreferenceKey]int64 {
	out := make(map[valueobjects.PreferenceKey]int64, len(r.correlationDeltas))
	for k, v := range r.correlationDeltas {
		out[k] = v
	}
	return out
}

// CorrelatedKeys returns the destinations carrying a delta, in key order
func (r *UpdateRequest) CorrelatedKeys() []valueobjects.PreferenceKey {
	keys := make([]valueobjects.PreferenceKey, 0, len(r.correlationDeltas))
	for k := range r.correlationDeltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// IsEmpty reports whether applying the request would change nothing
func (r *UpdateRequest) IsEmpty() bool {
	return r.popularityDelta == nil && len(r.correlationDeltas) == 0
}

// Validate checks the request has a target with a known category
func (r *UpdateRequest) Validate() error {
	if r == nil || r.target == nil {
		return pkgerrors.NewValidationError("update request has no target preference")
	}
	if !r.target.Category().IsValid() {
		return pkgerrors.NewValidationError("update request target has no category")
	}
	return nil
}

// ApplyTo mutates pref the way a store applies the request, advancing its version
func (r *UpdateRequest) ApplyTo(pref *Preference) {
	if d, ok := r.PopularityDelta(); ok {
		pref.AdjustPopularity(d)
	}
	for dest, d := range r.correlationDeltas {
		pref.AdjustCorrelation(dest, d)
	}
	pref.version++
}
