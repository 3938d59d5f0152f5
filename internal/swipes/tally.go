package swipes

import "github.com/commonplate/backend/internal/models"

// Reduce folds a swipe stream into like counts per candidate. Swipes are
// applied in order and the last decision per (candidate, participant) wins,
// so a replayed like never counts twice and a like followed by a pass counts
// zero. Candidates with no likes are absent from the map.
func Reduce(stream []models.Swipe) map[string]int {
	type key struct{ candidate, participant string }
	last := make(map[key]models.Decision, len(stream))
	for _, s := range stream {
		last[key{s.CandidateID, s.ParticipantID}] = s.Decision
	}
	tally := make(map[string]int)
	for k, d := range last {
		if d == models.DecisionLike {
			tally[k.candidate]++
		}
	}
	return tally
}
