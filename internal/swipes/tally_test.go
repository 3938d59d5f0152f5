package swipes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/commonplate/backend/internal/models"
)

func swipe(candidate, participant string, d models.Decision) models.Swipe {
	return models.Swipe{
		SessionCode:   "TACO42",
		CandidateID:   candidate,
		ParticipantID: participant,
		Decision:      d,
	}
}

func TestReduceReplayDoesNotDoubleCount(t *testing.T) {
	// A reconnecting client replays the same like; the tally must not move.
	tally := Reduce([]models.Swipe{
		swipe("r1", "ann", models.DecisionLike),
		swipe("r1", "ann", models.DecisionLike),
		swipe("r1", "ann", models.DecisionLike),
	})
	assert.Equal(t, map[string]int{"r1": 1}, tally)
}

func TestReduceLastDecisionWins(t *testing.T) {
	tests := []struct {
		name   string
		stream []models.Swipe
		want   map[string]int
	}{
		{
			"like then pass retracts the like",
			[]models.Swipe{
				swipe("r1", "ann", models.DecisionLike),
				swipe("r1", "ann", models.DecisionPass),
			},
			map[string]int{},
		},
		{
			"pass then like counts once",
			[]models.Swipe{
				swipe("r1", "ann", models.DecisionPass),
				swipe("r1", "ann", models.DecisionLike),
			},
			map[string]int{"r1": 1},
		},
		{
			"flip-flop settles on the final decision",
			[]models.Swipe{
				swipe("r1", "ann", models.DecisionLike),
				swipe("r1", "ann", models.DecisionPass),
				swipe("r1", "ann", models.DecisionLike),
			},
			map[string]int{"r1": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reduce(tt.stream))
		})
	}
}

func TestReduceCountsPerParticipantAcrossCandidates(t *testing.T) {
	tally := Reduce([]models.Swipe{
		swipe("r1", "ann", models.DecisionLike),
		swipe("r1", "bob", models.DecisionLike),
		swipe("r2", "ann", models.DecisionLike),
		swipe("r2", "bob", models.DecisionPass),
		swipe("r3", "ann", models.DecisionPass),
		swipe("r1", "ann", models.DecisionLike), // replay
	})
	assert.Equal(t, map[string]int{"r1": 2, "r2": 1}, tally)
}

func TestReduceEmptyStream(t *testing.T) {
	assert.Empty(t, Reduce(nil))
}
