package sessions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/commonplate/backend/internal/models"
)

// Snapshot assembles the full session document: membership, deck, active
// preference votes, swipes, completion set, winner and menu cache states.
// This is what a subscriber receives as its initial frame.
func (r *Repository) Snapshot(ctx context.Context, code string) (*models.SessionView, error) {
	s, err := r.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	view := &models.SessionView{Session: *s}

	if view.Members, err = r.Members(ctx, code); err != nil {
		return nil, err
	}
	if view.Deck, err = r.Deck(ctx, code); err != nil {
		return nil, err
	}

	prefRows, err := r.pool.Query(ctx, `SELECT session_code, category, option, voter_id, voter_name, updated_at
		FROM preference_votes WHERE session_code = $1 ORDER BY category, updated_at`, code)
	if err != nil {
		return nil, err
	}
	defer prefRows.Close()
	for prefRows.Next() {
		var v models.PreferenceVote
		if err := prefRows.Scan(&v.SessionCode, &v.Category, &v.Option, &v.VoterID, &v.VoterName, &v.UpdatedAt); err != nil {
			return nil, err
		}
		view.Preferences = append(view.Preferences, v)
	}
	if err := prefRows.Err(); err != nil {
		return nil, err
	}

	swipeRows, err := r.pool.Query(ctx, `SELECT session_code, candidate_id, participant_id, decision, updated_at
		FROM swipes WHERE session_code = $1`, code)
	if err != nil {
		return nil, err
	}
	defer swipeRows.Close()
	for swipeRows.Next() {
		var sw models.Swipe
		if err := swipeRows.Scan(&sw.SessionCode, &sw.CandidateID, &sw.ParticipantID, &sw.Decision, &sw.UpdatedAt); err != nil {
			return nil, err
		}
		view.Swipes = append(view.Swipes, sw)
	}
	if err := swipeRows.Err(); err != nil {
		return nil, err
	}

	doneRows, err := r.pool.Query(ctx, `SELECT session_code, participant_id, completed_at
		FROM completion_marks WHERE session_code = $1 ORDER BY completed_at`, code)
	if err != nil {
		return nil, err
	}
	defer doneRows.Close()
	for doneRows.Next() {
		var m models.CompletionMark
		if err := doneRows.Scan(&m.SessionCode, &m.ParticipantID, &m.CompletedAt); err != nil {
			return nil, err
		}
		view.Completed = append(view.Completed, m)
	}
	if err := doneRows.Err(); err != nil {
		return nil, err
	}

	var w models.WinnerRecord
	err = r.pool.QueryRow(ctx, `SELECT session_code, candidate_id, method, justification, committed_at
		FROM winner_records WHERE session_code = $1`, code).
		Scan(&w.SessionCode, &w.CandidateID, &w.Method, &w.Justification, &w.CommittedAt)
	switch {
	case err == nil:
		view.Winner = &w
	case errors.Is(err, pgx.ErrNoRows):
		// not resolved yet
	default:
		return nil, err
	}

	menuRows, err := r.pool.Query(ctx, `SELECT candidate_id, state FROM menu_entries WHERE session_code = $1`, code)
	if err != nil {
		return nil, err
	}
	defer menuRows.Close()
	view.MenuStates = make(map[string]string)
	for menuRows.Next() {
		var id, state string
		if err := menuRows.Scan(&id, &state); err != nil {
			return nil, err
		}
		view.MenuStates[id] = state
	}
	return view, menuRows.Err()
}
