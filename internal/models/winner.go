package models

import "time"

// ResolutionMethod says how the winner was selected.
type ResolutionMethod string

const (
	// MethodDirectMajority: a single candidate had the most likes.
	MethodDirectMajority ResolutionMethod = "direct-majority"
	// MethodAITiebreak: the external judge picked among tied candidates.
	MethodAITiebreak ResolutionMethod = "ai-tiebreak"
	// MethodFallbackEmpty: no likes at all, or the judge was unavailable.
	// Clients treat this as "no consensus".
	MethodFallbackEmpty ResolutionMethod = "fallback-empty"
)

// WinnerRecord is the committed outcome of a session. At most one record may
// ever be committed per session; the commit is write-once and a second
// attempt is rejected, not merged.
type WinnerRecord struct {
	SessionCode   string           `json:"session_code"`
	CandidateID   *string          `json:"candidate_id"` // nil for fallback-empty
	Method        ResolutionMethod `json:"method"`
	Justification string           `json:"justification,omitempty"`
	CommittedAt   time.Time        `json:"committed_at"`
}
