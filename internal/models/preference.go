package models

import "time"

// PreferenceCategory is one of the fixed voting categories.
type PreferenceCategory string

const (
	CategoryBudget   PreferenceCategory = "budget"
	CategoryCuisine  PreferenceCategory = "cuisine"
	CategoryVibe     PreferenceCategory = "vibe"
	CategoryDietary  PreferenceCategory = "dietary"
	CategoryDistance PreferenceCategory = "distance"
)

// Categories lists all preference categories in display order.
var Categories = []PreferenceCategory{
	CategoryBudget, CategoryCuisine, CategoryVibe, CategoryDietary, CategoryDistance,
}

// Valid reports whether c is a known category.
func (c PreferenceCategory) Valid() bool {
	switch c {
	case CategoryBudget, CategoryCuisine, CategoryVibe, CategoryDietary, CategoryDistance:
		return true
	}
	return false
}

// PreferenceVote is a participant's active choice for one category. A new
// vote from the same participant in the same category replaces the prior one;
// history is retained separately in the activity feed.
type PreferenceVote struct {
	SessionCode string             `json:"session_code"`
	Category    PreferenceCategory `json:"category"`
	Option      string             `json:"option"`
	VoterID     string             `json:"voter_id"`
	VoterName   string             `json:"voter_name"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// LeadingOption is the current front-runner for one category.
type LeadingOption struct {
	Option     string   `json:"option"`
	Count      int      `json:"count"`
	VoterNames []string `json:"voter_names"`
}
