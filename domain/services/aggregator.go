package services

import (
	"chatter/domain/core/entities"
)

// ScoreAggregator computes association scores between candidate
// preferences and the preferences a user already holds.
type ScoreAggregator struct{}

// NewScoreAggregator creates a ScoreAggregator
func NewScoreAggregator() *ScoreAggregator {
	return &ScoreAggregator{}
}

// Score returns a fresh board for one batch of candidates. A candidate's
// score is the sum over held preferences h of h's correlation ratio
// towards it. Held candidates and candidates without a positive score are
// left off the board. Board order follows batch order.
//
// Score has no side effects and may run concurrently on separate batches.
func (a *ScoreAggregator) Score(held []*entities.Preference, batch []*entities.Preference) *ScoreBoard {
	board := NewScoreBoard()
	heldSet := NewHeldSet(held)

	for _, candidate := range batch {
		if candidate == nil || heldSet.Contains(candidate.Key()) {
			continue
		}

		var score float64
		for _, h := range held {
			score += h.CorrelationRatio(candidate.Key())
		}

		if score > 0 {
			board.Set(candidate.Key(), score)
		}
	}

	return board
}
