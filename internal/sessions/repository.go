package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commonplate/backend/internal/models"
)

// ErrNotFound is returned when a code does not resolve to a live session.
var ErrNotFound = errors.New("session not found")

// ErrDeckAlreadyPublished is returned on a second deck publication attempt.
// The deck is written once by the owner and immutable for the session's life.
var ErrDeckAlreadyPublished = errors.New("deck already published")

// ErrNotOwner is returned when a non-owner attempts an owner-only operation.
var ErrNotOwner = errors.New("participant is not the session owner")

// Repository handles session document persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new session with the given owner, generating a fresh code.
// Retries on the (unlikely) code collision.
func (r *Repository) Create(ctx context.Context, ownerID, ownerName, colorTag string) (*models.Session, error) {
	const q = `INSERT INTO sessions (code, owner_id) VALUES ($1, $2)
		ON CONFLICT (code) DO NOTHING
		RETURNING code, owner_id, version, created_at, last_active_at`
	for attempt := 0; attempt < 5; attempt++ {
		code := GenerateCode()
		var s models.Session
		err := r.pool.QueryRow(ctx, q, code, ownerID).
			Scan(&s.Code, &s.OwnerID, &s.Version, &s.CreatedAt, &s.LastActiveAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // collision, try another code
		}
		if err != nil {
			return nil, err
		}
		if err := r.upsertMember(ctx, code, ownerID, ownerName, colorTag, true); err != nil {
			return nil, err
		}
		return &s, nil
	}
	return nil, fmt.Errorf("could not allocate a unique session code")
}

// Get returns a session by code.
func (r *Repository) Get(ctx context.Context, code string) (*models.Session, error) {
	const q = `SELECT code, owner_id, version, created_at, last_active_at FROM sessions WHERE code = $1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, code).
		Scan(&s.Code, &s.OwnerID, &s.Version, &s.CreatedAt, &s.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Join upserts a membership entry. Re-joining after a reconnect refreshes the
// display name but keeps the original joined_at; it never creates a duplicate.
func (r *Repository) Join(ctx context.Context, code, participantID, name, colorTag string) (*models.Member, error) {
	if _, err := r.Get(ctx, code); err != nil {
		return nil, err
	}
	if err := r.upsertMember(ctx, code, participantID, name, colorTag, false); err != nil {
		return nil, err
	}
	const audit = `INSERT INTO activity_entries (session_code, kind, participant_id, participant_name)
		VALUES ($1, 'join', $2, $3)`
	if _, err := r.pool.Exec(ctx, audit, code, participantID, name); err != nil {
		return nil, err
	}
	const q = `SELECT session_code, participant_id, display_name, color_tag, is_owner, joined_at
		FROM session_members WHERE session_code = $1 AND participant_id = $2`
	var m models.Member
	err := r.pool.QueryRow(ctx, q, code, participantID).
		Scan(&m.SessionCode, &m.ParticipantID, &m.DisplayName, &m.ColorTag, &m.IsOwner, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) upsertMember(ctx context.Context, code, participantID, name, colorTag string, isOwner bool) error {
	const q = `INSERT INTO session_members (session_code, participant_id, display_name, color_tag, is_owner)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_code, participant_id)
		DO UPDATE SET display_name = EXCLUDED.display_name, color_tag = EXCLUDED.color_tag`
	_, err := r.pool.Exec(ctx, q, code, participantID, name, colorTag, isOwner)
	return err
}

// Members returns all membership entries in join order.
func (r *Repository) Members(ctx context.Context, code string) ([]models.Member, error) {
	const q = `SELECT session_code, participant_id, display_name, color_tag, is_owner, joined_at
		FROM session_members WHERE session_code = $1 ORDER BY joined_at`
	rows, err := r.pool.Query(ctx, q, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.SessionCode, &m.ParticipantID, &m.DisplayName, &m.ColorTag, &m.IsOwner, &m.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// IsOwner reports whether the participant owns the session.
func (r *Repository) IsOwner(ctx context.Context, code, participantID string) (bool, error) {
	s, err := r.Get(ctx, code)
	if err != nil {
		return false, err
	}
	return s.OwnerID == participantID, nil
}

// PublishDeck stores the candidate deck. Write-once: a second publication is
// rejected with ErrDeckAlreadyPublished so non-owner clients can rely on the
// deck never changing under them.
func (r *Repository) PublishDeck(ctx context.Context, code string, candidates []models.Candidate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var existing int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM deck_candidates WHERE session_code = $1`, code).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return ErrDeckAlreadyPublished
	}
	const q = `INSERT INTO deck_candidates (session_code, position, candidate_id, name, rating, price, category, location, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i, c := range candidates {
		if _, err := tx.Exec(ctx, q, code, i, c.ID, c.Name, c.Rating, c.Price, c.Category, c.Location, c.ImageURL); err != nil {
			return err
		}
	}
	detail, _ := json.Marshal(map[string]int{"count": len(candidates)})
	const audit = `INSERT INTO activity_entries (session_code, kind, detail) VALUES ($1, 'deck', $2)`
	if _, err := tx.Exec(ctx, audit, code, detail); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Deck returns the published candidate deck in owner order, or an empty slice
// if the deck has not been published yet.
func (r *Repository) Deck(ctx context.Context, code string) ([]models.Candidate, error) {
	const q = `SELECT candidate_id, name, rating, price, category, location, image_url
		FROM deck_candidates WHERE session_code = $1 ORDER BY position`
	rows, err := r.pool.Query(ctx, q, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deck []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Rating, &c.Price, &c.Category, &c.Location, &c.ImageURL); err != nil {
			return nil, err
		}
		deck = append(deck, c)
	}
	return deck, rows.Err()
}

// Touch bumps the document version and last-active timestamp, returning the
// new version. Every successful mutation goes through Touch so subscribers
// observe monotonically increasing versions.
func (r *Repository) Touch(ctx context.Context, code string) (int64, error) {
	const q = `UPDATE sessions SET version = version + 1, last_active_at = NOW() WHERE code = $1 RETURNING version`
	var v int64
	err := r.pool.QueryRow(ctx, q, code).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return v, err
}

// DeleteIdle removes sessions whose last activity is older than the cutoff.
// Returns the number of purged sessions.
func (r *Repository) DeleteIdle(ctx context.Context, olderThan time.Duration) (int64, error) {
	const q = `DELETE FROM sessions WHERE last_active_at < $1`
	tag, err := r.pool.Exec(ctx, q, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
