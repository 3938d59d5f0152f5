package preferences

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonplate/backend/internal/models"
)

func vote(option, voterID, voterName string, at time.Time) models.PreferenceVote {
	return models.PreferenceVote{
		SessionCode: "ABCDE",
		Category:    models.CategoryBudget,
		Option:      option,
		VoterID:     voterID,
		VoterName:   voterName,
		UpdatedAt:   at,
	}
}

func TestLeadingEmpty(t *testing.T) {
	assert.Nil(t, Leading(nil))
}

func TestLeadingMajority(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	lead := Leading([]models.PreferenceVote{
		vote("$$", "p1", "Priya", base),
		vote("$$$", "p2", "Marco", base.Add(time.Minute)),
		vote("$$", "p3", "Dana", base.Add(2*time.Minute)),
	})
	require.NotNil(t, lead)
	assert.Equal(t, "$$", lead.Option)
	assert.Equal(t, 2, lead.Count)
	assert.ElementsMatch(t, []string{"Priya", "Dana"}, lead.VoterNames)
}

func TestLeadingTieFirstCommittedWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	// Italian reaches count 2 at +2m, Japanese at +3m: Italian stays on top.
	lead := Leading([]models.PreferenceVote{
		vote("Italian", "p1", "Priya", base),
		vote("Japanese", "p2", "Marco", base.Add(time.Minute)),
		vote("Italian", "p3", "Dana", base.Add(2*time.Minute)),
		vote("Japanese", "p4", "Omar", base.Add(3*time.Minute)),
	})
	require.NotNil(t, lead)
	assert.Equal(t, "Italian", lead.Option)
	assert.Equal(t, 2, lead.Count)
}

func TestLeadingTieIsStableUnderInputOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	votes := []models.PreferenceVote{
		vote("Cozy", "p1", "Priya", base),
		vote("Lively", "p2", "Marco", base.Add(time.Minute)),
	}
	forward := Leading(votes)
	reversed := Leading([]models.PreferenceVote{votes[1], votes[0]})
	require.NotNil(t, forward)
	require.NotNil(t, reversed)
	assert.Equal(t, forward.Option, reversed.Option)
	assert.Equal(t, "Cozy", forward.Option)
}
