package models

import (
	"encoding/json"
	"time"
)

// MenuState is the fetch state of a cached menu entry.
type MenuState string

const (
	MenuPending MenuState = "pending"
	MenuReady   MenuState = "ready"
	MenuFailed  MenuState = "failed"
)

// MenuEntry is the shared cache entry for one candidate's menu/detail lookup.
// For a given candidate only one fetch may be in flight across all clients;
// once ready the entry is immutable and shared read-only.
type MenuEntry struct {
	SessionCode string          `json:"session_code"`
	CandidateID string          `json:"candidate_id"`
	State       MenuState       `json:"state"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Error       string          `json:"error,omitempty"`
	FetchedAt   time.Time       `json:"fetched_at"`
}
