package services

import (
	"encoding/json"

	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	pkgerrors "chatter/pkg/errors"
)

// scoreEpsilon absorbs float drift left behind when increments and
// decrements of the same edge cancel out.
const scoreEpsilon = 1e-12

// ScoreEntry is one candidate and its aggregate score
type ScoreEntry struct {
	Key   valueobjects.PreferenceKey `json:"key"`
	Score float64                    `json:"score"`
}

// ScoreBoard maps candidate preferences to their total correlation score
// with one user's held preferences in one category.
//
// Entries keep the order in which candidates were first scored. Best walks
// that order and only replaces the current leader on a strictly greater
// score, so among equal scores the earliest candidate wins.
//
// A board built from a scan is stamped with the version of every held
// record it was scored against. Scores depend on held records only, so the
// stamps say exactly which graph updates the board already reflects.
//
// A ScoreBoard is not safe for concurrent mutation.
type ScoreBoard struct {
	scores map[valueobjects.PreferenceKey]float64
	order  []valueobjects.PreferenceKey
	held   map[valueobjects.PreferenceKey]int64
}

// NewScoreBoard creates an empty board
func NewScoreBoard() *ScoreBoard {
	return &ScoreBoard{
		scores: make(map[valueobjects.PreferenceKey]float64),
		held:   make(map[valueobjects.PreferenceKey]int64),
	}
}

// Len returns the number of scored candidates
func (b *ScoreBoard) Len() int {
	return len(b.order)
}

// IsEmpty reports whether the board has no candidates
func (b *ScoreBoard) IsEmpty() bool {
	return len(b.order) == 0
}

// Score returns the score of key and whether it is on the board
func (b *ScoreBoard) Score(key valueobjects.PreferenceKey) (float64, bool) {
	s, ok := b.scores[key]
	return s, ok
}

// Set writes the score of key, appending it to the order when new
func (b *ScoreBoard) Set(key valueobjects.PreferenceKey, score float64) {
	if _, ok := b.scores[key]; !ok {
		b.order = append(b.order, key)
	}
	b.scores[key] = score
}

// Entries returns the scored candidates in insertion order
func (b *ScoreBoard) Entries() []ScoreEntry {
	out := make([]ScoreEntry, len(b.order))
	for i, key := range b.order {
		out[i] = ScoreEntry{Key: key, Score: b.scores[key]}
	}
	return out
}

// Best returns the highest positive entry. Ties keep the earliest entry.
func (b *ScoreBoard) Best() (ScoreEntry, bool) {
	var best ScoreEntry
	found := false
	for _, key := range b.order {
		score := b.scores[key]
		if score <= scoreEpsilon {
			continue
		}
		if !found || score > best.Score {
			best = ScoreEntry{Key: key, Score: score}
			found = true
		}
	}
	return best, found
}

// Merge copies entries of other that are not yet on b, in other's order
func (b *ScoreBoard) Merge(other *ScoreBoard) {
	for _, key := range other.order {
		if _, ok := b.scores[key]; ok {
			continue
		}
		b.Set(key, other.scores[key])
	}
}

// Stamp records the held records the board was scored against, replacing
// any earlier stamps
func (b *ScoreBoard) Stamp(held []*entities.Preference) {
	b.held = make(map[valueobjects.PreferenceKey]int64, len(held))
	for _, p := range held {
		b.held[p.Key()] = p.Version()
	}
}

// HeldVersions returns a copy of the stamps: held key to the last record
// version the board reflects
func (b *ScoreBoard) HeldVersions() map[valueobjects.PreferenceKey]int64 {
	out := make(map[valueobjects.PreferenceKey]int64, len(b.held))
	for k, v := range b.held {
		out[k] = v
	}
	return out
}

// Absorb folds a stored update into the board when it is the next update
// of one of the board's held records, and reports whether it did.
//
// Requests on records the board does not hold are skipped: the graph
// mirrors every edge onto the held side, and that mirror request carries
// the change. Requests the board already reflects, and requests the store
// skipped as duplicates, are skipped too. A request that is more than one
// version ahead of the stamp returns ErrScoreBoardBehind, after which the
// board must be rebuilt.
func (b *ScoreBoard) Absorb(req *entities.UpdateRequest) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, err
	}
	if !req.Stored() {
		return false, nil
	}

	target := req.Target()
	seen, ok := b.held[target.Key()]
	if !ok || target.Version() <= seen {
		return false, nil
	}
	if target.Version() > seen+1 {
		return false, pkgerrors.ErrScoreBoardBehind
	}

	// With a held target only membership of the other keys is consulted
	held := make(HeldSet, len(b.held))
	for key := range b.held {
		held[key] = nil
	}
	held[target.Key()] = target

	if _, err := b.ApplyUpdate(held, req); err != nil {
		return false, err
	}
	b.held[target.Key()] = target.Version()
	return true, nil
}

// HeldSet is a user's held preferences in one category, keyed by identity.
// Values must carry current popularity and correlations.
type HeldSet map[valueobjects.PreferenceKey]*entities.Preference

// NewHeldSet indexes prefs by key
func NewHeldSet(prefs []*entities.Preference) HeldSet {
	held := make(HeldSet, len(prefs))
	for _, p := range prefs {
		held[p.Key()] = p
	}
	return held
}

// Contains reports whether key is held
func (h HeldSet) Contains(key valueobjects.PreferenceKey) bool {
	_, ok := h[key]
	return ok
}

// ApplyUpdate folds one graph mutation into the board in place and returns
// the same board.
//
// req must describe a mutation that has already been applied to the graph,
// and req.Target() must be the post-mutation record: original weights and
// popularity are recovered by subtracting the request's deltas from the
// current values. held must hold the current records of the user's
// preferences in the target's category.
//
// There is no replay protection. Applying the same request twice, or a
// request the graph never stored, silently corrupts the board.
func (b *ScoreBoard) ApplyUpdate(held HeldSet, req *entities.UpdateRequest) (*ScoreBoard, error) {
	if err := req.Validate(); err != nil {
		return b, err
	}

	target := req.Target()
	targetHeld := held.Contains(target.Key())
	popularityDelta, _ := req.PopularityDelta()

	for _, correlated := range target.CorrelatedKeys() {
		weight, _ := target.Correlation(correlated)
		newWeight := float64(weight)
		originalWeight := newWeight
		delta, hasDelta := req.CorrelationDelta(correlated)
		if hasDelta {
			originalWeight -= float64(delta)
		}

		switch {
		case targetHeld:
			// The user's own popularity denominator moved, every non-held
			// neighbour of the target shifts.
			if held.Contains(correlated) {
				continue
			}
			newPopularity := float64(target.Popularity())
			originalPopularity := newPopularity - float64(popularityDelta)
			b.adjust(correlated, originalWeight, newWeight, originalPopularity, newPopularity)

		case held.Contains(correlated) && hasDelta:
			// Only the incoming weight of a non-held candidate from one held
			// preference moved.
			popularity := float64(held[correlated].Popularity())
			b.adjust(target.Key(), originalWeight, newWeight, popularity, popularity)
		}
	}

	return b, nil
}

func (b *ScoreBoard) adjust(key valueobjects.PreferenceKey, originalWeight, newWeight, originalPopularity, newPopularity float64) {
	current, ok := b.scores[key]
	if !ok {
		b.Set(key, ratio(newWeight, newPopularity))
		return
	}
	b.scores[key] = current + ratio(newWeight, newPopularity) - ratio(originalWeight, originalPopularity)
}

func ratio(weight, popularity float64) float64 {
	if popularity == 0 {
		return 0
	}
	return weight / popularity
}

type scoreBoardJSON struct {
	Entries []ScoreEntry                         `json:"entries"`
	Held    map[valueobjects.PreferenceKey]int64 `json:"held,omitempty"`
}

// MarshalJSON encodes the board as an ordered entry list plus its stamps
func (b *ScoreBoard) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoreBoardJSON{Entries: b.Entries(), Held: b.held})
}

// UnmarshalJSON restores a board encoded by MarshalJSON
func (b *ScoreBoard) UnmarshalJSON(data []byte) error {
	var decoded scoreBoardJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*b = *NewScoreBoard()
	for _, e := range decoded.Entries {
		b.Set(e.Key, e.Score)
	}
	for k, v := range decoded.Held {
		b.held[k] = v
	}
	return nil
}
