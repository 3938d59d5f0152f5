package models

import (
	"encoding/json"
	"time"
)

// ActivityEntry is one append-only audit row for the session activity feed.
// Votes keep their full timestamp history here even though only the latest
// vote per (voter, category) is active.
type ActivityEntry struct {
	ID              int64           `json:"id"`
	SessionCode     string          `json:"session_code"`
	Kind            string          `json:"kind"` // vote | swipe | complete | join | deck | winner
	ParticipantID   string          `json:"participant_id"`
	ParticipantName string          `json:"participant_name"`
	Detail          json.RawMessage `json:"detail,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
