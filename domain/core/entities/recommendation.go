package entities

// Recommendation is the preference suggested to a user and its total
// association score with the user's held preferences.
type Recommendation struct {
	Preference *Preference
	UserID     string
	Score      float64
}

// NewRecommendation creates a recommendation
func NewRecommendation(pref *Preference, userID string, score float64) *Recommendation {
	return &Recommendation{Preference: pref, UserID: userID, Score: score}
}
