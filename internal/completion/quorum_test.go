package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuorum(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		members   int
		want      bool
	}{
		{"empty session never reaches quorum", 0, 0, false},
		{"nobody done", 0, 3, false},
		{"partially done", 2, 3, false},
		{"all done", 3, 3, true},
		{"single member done", 1, 1, true},
		{"stale mark outlives a purged member", 4, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Quorum(tt.completed, tt.members))
		})
	}
}
