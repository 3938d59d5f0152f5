package winner

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commonplate/backend/internal/models"
)

// ErrAlreadySet is returned when a second winner commit is attempted on a
// session. The record is write-once: the second attempt is rejected, never
// merged, so the winner cannot change after clients begin navigating away.
var ErrAlreadySet = errors.New("winner already committed")

// Repository handles winner record persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a winner repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Commit stores the winner record with compare-and-set semantics: the primary
// key on session_code plus DO NOTHING means a concurrent commit wins or loses
// atomically, and the loser sees ErrAlreadySet.
func (r *Repository) Commit(ctx context.Context, w *models.WinnerRecord) error {
	const q = `INSERT INTO winner_records (session_code, candidate_id, method, justification)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_code) DO NOTHING
		RETURNING committed_at`
	err := r.pool.QueryRow(ctx, q, w.SessionCode, w.CandidateID, w.Method, w.Justification).
		Scan(&w.CommittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadySet
	}
	if err != nil {
		return err
	}

	detail, _ := json.Marshal(map[string]interface{}{"candidate_id": w.CandidateID, "method": w.Method})
	const audit = `INSERT INTO activity_entries (session_code, kind, detail) VALUES ($1, 'winner', $2)`
	_, err = r.pool.Exec(ctx, audit, w.SessionCode, detail)
	return err
}

// Get returns the committed winner record, or nil when none exists yet.
func (r *Repository) Get(ctx context.Context, code string) (*models.WinnerRecord, error) {
	const q = `SELECT session_code, candidate_id, method, justification, committed_at
		FROM winner_records WHERE session_code = $1`
	var w models.WinnerRecord
	err := r.pool.QueryRow(ctx, q, code).
		Scan(&w.SessionCode, &w.CandidateID, &w.Method, &w.Justification, &w.CommittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
