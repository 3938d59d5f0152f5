package models

import "time"

// Decision is a participant's verdict on one candidate.
type Decision string

const (
	DecisionLike Decision = "like"
	DecisionPass Decision = "pass"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool { return d == DecisionLike || d == DecisionPass }

// Swipe is one participant's decision on one candidate. Exactly one row
// exists per (session, candidate, participant); a later swipe for the same
// triple overwrites the earlier one, so replays never double-count.
type Swipe struct {
	SessionCode   string    `json:"session_code"`
	CandidateID   string    `json:"candidate_id"`
	ParticipantID string    `json:"participant_id"`
	Decision      Decision  `json:"decision"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CompletionMark records that a participant exhausted the deck. The set of
// marks is monotonic: once present a participant never un-marks.
type CompletionMark struct {
	SessionCode   string    `json:"session_code"`
	ParticipantID string    `json:"participant_id"`
	CompletedAt   time.Time `json:"completed_at"`
}
