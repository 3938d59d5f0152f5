package models

// Candidate is one restaurant in the shared deck. The deck is published once
// by the session owner and immutable thereafter; the candidate ID is the join
// key for swipes, the winner record and menu cache entries.
type Candidate struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Rating   float64 `json:"rating"`
	Price    string  `json:"price"` // "$".."$$$$"
	Category string  `json:"category"`
	Location string  `json:"location"`
	ImageURL string  `json:"image_url,omitempty"`
}
