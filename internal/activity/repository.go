package activity

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commonplate/backend/internal/models"
)

// DefaultLimit caps the feed page size.
const DefaultLimit = 50

// Repository reads the per-session activity feed. Entries are written by the
// mutation repositories alongside their main writes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an activity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns the most recent entries for a session, newest first.
func (r *Repository) List(ctx context.Context, code string, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	const q = `SELECT id, session_code, kind, participant_id, participant_name, detail, created_at
		FROM activity_entries
		WHERE session_code = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, code, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		if err := rows.Scan(&e.ID, &e.SessionCode, &e.Kind, &e.ParticipantID, &e.ParticipantName, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
