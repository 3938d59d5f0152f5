package swipes

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commonplate/backend/internal/models"
)

// Repository handles swipe persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a swipes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record upserts a participant's decision on a candidate. The primary key on
// (session, candidate, participant) makes replays after a reconnect
// idempotent: the last decision wins and tallies never double-count.
func (r *Repository) Record(ctx context.Context, s *models.Swipe) error {
	const q = `INSERT INTO swipes (session_code, candidate_id, participant_id, decision)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_code, candidate_id, participant_id)
		DO UPDATE SET decision = EXCLUDED.decision, updated_at = NOW()`
	if _, err := r.pool.Exec(ctx, q, s.SessionCode, s.CandidateID, s.ParticipantID, s.Decision); err != nil {
		return err
	}

	detail, _ := json.Marshal(map[string]string{"candidate_id": s.CandidateID, "decision": string(s.Decision)})
	const audit = `INSERT INTO activity_entries (session_code, kind, participant_id, detail)
		VALUES ($1, 'swipe', $2, $3)`
	_, err := r.pool.Exec(ctx, audit, s.SessionCode, s.ParticipantID, detail)
	return err
}

// Tally returns the like count per candidate. Rows are folded through Reduce
// in update order, so even if the upsert invariant were ever violated the
// count stays one vote per participant with the latest decision winning.
// Candidates with zero likes are absent from the map.
func (r *Repository) Tally(ctx context.Context, code string) (map[string]int, error) {
	const q = `SELECT candidate_id, participant_id, decision FROM swipes
		WHERE session_code = $1 ORDER BY updated_at`
	rows, err := r.pool.Query(ctx, q, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stream []models.Swipe
	for rows.Next() {
		var s models.Swipe
		if err := rows.Scan(&s.CandidateID, &s.ParticipantID, &s.Decision); err != nil {
			return nil, err
		}
		stream = append(stream, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return Reduce(stream), nil
}

// TallyFor returns the like count for one candidate.
func (r *Repository) TallyFor(ctx context.Context, code, candidateID string) (int, error) {
	const q = `SELECT COUNT(*) FROM swipes
		WHERE session_code = $1 AND candidate_id = $2 AND decision = 'like'`
	var n int
	err := r.pool.QueryRow(ctx, q, code, candidateID).Scan(&n)
	return n, err
}
