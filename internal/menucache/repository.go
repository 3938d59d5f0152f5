package menucache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commonplate/backend/internal/models"
)

// Repository persists shared menu cache entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a menu cache repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the cache entry for a candidate, or nil when absent.
func (r *Repository) Get(ctx context.Context, code, candidateID string) (*models.MenuEntry, error) {
	const q = `SELECT session_code, candidate_id, state, payload, error, fetched_at
		FROM menu_entries WHERE session_code = $1 AND candidate_id = $2`
	var e models.MenuEntry
	err := r.pool.QueryRow(ctx, q, code, candidateID).
		Scan(&e.SessionCode, &e.CandidateID, &e.State, &e.Payload, &e.Error, &e.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MarkPending records that a fetch is in flight for the candidate.
func (r *Repository) MarkPending(ctx context.Context, code, candidateID string) error {
	const q = `INSERT INTO menu_entries (session_code, candidate_id, state)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (session_code, candidate_id)
		DO UPDATE SET state = 'pending', error = '', fetched_at = NOW()
		WHERE menu_entries.state <> 'ready'`
	_, err := r.pool.Exec(ctx, q, code, candidateID)
	return err
}

// MarkReady commits the fetched payload. Once ready the entry is immutable:
// the guard keeps a stale pending writer from clobbering it.
func (r *Repository) MarkReady(ctx context.Context, code, candidateID string, payload json.RawMessage) error {
	const q = `INSERT INTO menu_entries (session_code, candidate_id, state, payload)
		VALUES ($1, $2, 'ready', $3)
		ON CONFLICT (session_code, candidate_id)
		DO UPDATE SET state = 'ready', payload = EXCLUDED.payload, error = '', fetched_at = NOW()
		WHERE menu_entries.state <> 'ready'`
	_, err := r.pool.Exec(ctx, q, code, candidateID, payload)
	return err
}

// MarkFailed records a fetch failure. Failed entries are shown as
// "unavailable" and only retried by an explicit later request.
func (r *Repository) MarkFailed(ctx context.Context, code, candidateID, msg string) error {
	const q = `INSERT INTO menu_entries (session_code, candidate_id, state, error)
		VALUES ($1, $2, 'failed', $3)
		ON CONFLICT (session_code, candidate_id)
		DO UPDATE SET state = 'failed', error = EXCLUDED.error, fetched_at = NOW()
		WHERE menu_entries.state <> 'ready'`
	_, err := r.pool.Exec(ctx, q, code, candidateID, msg)
	return err
}
