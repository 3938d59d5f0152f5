package preferences

import (
	"sort"
	"time"

	"github.com/commonplate/backend/internal/models"
)

// Leading computes the front-runner among the active votes of one category.
// Highest vote count wins. Equal counts tie-break to the option whose most
// recent vote is oldest, so the first option to reach the top count stays on
// top regardless of arrival order of later, equally-counted rivals.
func Leading(votes []models.PreferenceVote) *models.LeadingOption {
	if len(votes) == 0 {
		return nil
	}

	type bucket struct {
		option string
		count  int
		latest time.Time
		voters []string
	}
	byOption := make(map[string]*bucket)
	for _, v := range votes {
		b := byOption[v.Option]
		if b == nil {
			b = &bucket{option: v.Option}
			byOption[v.Option] = b
		}
		b.count++
		b.voters = append(b.voters, v.VoterName)
		if v.UpdatedAt.After(b.latest) {
			b.latest = v.UpdatedAt
		}
	}

	buckets := make([]*bucket, 0, len(byOption))
	for _, b := range byOption {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].count != buckets[j].count {
			return buckets[i].count > buckets[j].count
		}
		if !buckets[i].latest.Equal(buckets[j].latest) {
			return buckets[i].latest.Before(buckets[j].latest)
		}
		return buckets[i].option < buckets[j].option
	})

	top := buckets[0]
	return &models.LeadingOption{Option: top.option, Count: top.count, VoterNames: top.voters}
}
