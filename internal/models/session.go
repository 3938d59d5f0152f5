package models

import "time"

// Session is one shared decision-making instance, identified by a short code.
type Session struct {
	Code         string    `json:"code"`
	OwnerID      string    `json:"owner_id"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Member is one participant's membership entry in a session.
type Member struct {
	SessionCode   string    `json:"session_code"`
	ParticipantID string    `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	ColorTag      string    `json:"color_tag"`
	IsOwner       bool      `json:"is_owner"`
	JoinedAt      time.Time `json:"joined_at"`
}

// SessionView is the full document snapshot delivered to clients on join,
// on explicit GET, and as the initial WebSocket frame.
type SessionView struct {
	Session     Session           `json:"session"`
	Members     []Member          `json:"members"`
	Deck        []Candidate       `json:"deck"`
	Preferences []PreferenceVote  `json:"preferences"`
	Swipes      []Swipe           `json:"swipes"`
	Completed   []CompletionMark  `json:"completed"`
	Winner      *WinnerRecord     `json:"winner,omitempty"`
	MenuStates  map[string]string `json:"menu_states,omitempty"` // candidate id -> pending|ready|failed
}
