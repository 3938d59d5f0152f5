package preferences

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commonplate/backend/internal/models"
)

// Repository handles preference vote persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a preferences repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordVote upserts the voter's active choice for a category and appends an
// immutable audit entry for the activity feed. Re-submitting the same vote is
// a normal occurrence, not an error.
func (r *Repository) RecordVote(ctx context.Context, v *models.PreferenceVote) error {
	const q = `INSERT INTO preference_votes (session_code, category, voter_id, voter_name, option)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_code, category, voter_id)
		DO UPDATE SET option = EXCLUDED.option, voter_name = EXCLUDED.voter_name, updated_at = NOW()`
	if _, err := r.pool.Exec(ctx, q, v.SessionCode, v.Category, v.VoterID, v.VoterName, v.Option); err != nil {
		return err
	}

	detail, _ := json.Marshal(map[string]string{"category": string(v.Category), "option": v.Option})
	const audit = `INSERT INTO activity_entries (session_code, kind, participant_id, participant_name, detail)
		VALUES ($1, 'vote', $2, $3, $4)`
	_, err := r.pool.Exec(ctx, audit, v.SessionCode, v.VoterID, v.VoterName, detail)
	return err
}

// Votes returns the active votes for one category.
func (r *Repository) Votes(ctx context.Context, code string, category models.PreferenceCategory) ([]models.PreferenceVote, error) {
	const q = `SELECT session_code, category, option, voter_id, voter_name, updated_at
		FROM preference_votes WHERE session_code = $1 AND category = $2 ORDER BY updated_at`
	rows, err := r.pool.Query(ctx, q, code, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.PreferenceVote
	for rows.Next() {
		var v models.PreferenceVote
		if err := rows.Scan(&v.SessionCode, &v.Category, &v.Option, &v.VoterID, &v.VoterName, &v.UpdatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// LeadingOption returns the current front-runner for a category, or nil when
// no votes exist yet.
func (r *Repository) LeadingOption(ctx context.Context, code string, category models.PreferenceCategory) (*models.LeadingOption, error) {
	votes, err := r.Votes(ctx, code, category)
	if err != nil {
		return nil, err
	}
	return Leading(votes), nil
}

// Summary returns the leading option per category, for the tie-break judge.
// Categories without votes are omitted.
func (r *Repository) Summary(ctx context.Context, code string) (map[string]string, error) {
	summary := make(map[string]string)
	for _, cat := range models.Categories {
		lead, err := r.LeadingOption(ctx, code, cat)
		if err != nil {
			return nil, err
		}
		if lead != nil {
			summary[string(cat)] = lead.Option
		}
	}
	return summary, nil
}
