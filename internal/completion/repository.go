package completion

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commonplate/backend/internal/models"
)

// ErrNotMember is returned when a participant who never joined the session
// tries to mark complete. The completion set must stay a subset of the
// membership or quorum detection would count strangers.
var ErrNotMember = errors.New("participant is not a session member")

// Repository handles the monotonic completion set.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a completion repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Mark adds a participant to the completion set. Duplicate marks from a
// reconnecting client are no-ops, which keeps the set safe under
// at-least-once delivery. Marks from ids outside the membership are rejected
// with ErrNotMember; the schema backs this with a composite foreign key.
func (r *Repository) Mark(ctx context.Context, code, participantID string) error {
	const member = `SELECT EXISTS (
		SELECT 1 FROM session_members WHERE session_code = $1 AND participant_id = $2)`
	var ok bool
	if err := r.pool.QueryRow(ctx, member, code, participantID).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}

	const q = `INSERT INTO completion_marks (session_code, participant_id)
		VALUES ($1, $2)
		ON CONFLICT (session_code, participant_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, q, code, participantID); err != nil {
		return err
	}
	const audit = `INSERT INTO activity_entries (session_code, kind, participant_id)
		VALUES ($1, 'complete', $2)`
	_, err := r.pool.Exec(ctx, audit, code, participantID)
	return err
}

// Marks returns the completion set in completion order.
func (r *Repository) Marks(ctx context.Context, code string) ([]models.CompletionMark, error) {
	const q = `SELECT session_code, participant_id, completed_at
		FROM completion_marks WHERE session_code = $1 ORDER BY completed_at`
	rows, err := r.pool.Query(ctx, q, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []models.CompletionMark
	for rows.Next() {
		var m models.CompletionMark
		if err := rows.Scan(&m.SessionCode, &m.ParticipantID, &m.CompletedAt); err != nil {
			return nil, err
		}
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

// QuorumReached reports whether the completion set covers current membership.
func (r *Repository) QuorumReached(ctx context.Context, code string) (bool, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM completion_marks WHERE session_code = $1),
		(SELECT COUNT(*) FROM session_members  WHERE session_code = $1)`
	var completed, members int
	if err := r.pool.QueryRow(ctx, q, code).Scan(&completed, &members); err != nil {
		return false, err
	}
	return Quorum(completed, members), nil
}
