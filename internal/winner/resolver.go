package winner

import (
	"context"

	"go.uber.org/zap"

	"github.com/commonplate/backend/internal/judge"
	"github.com/commonplate/backend/internal/models"
)

// DeckSource provides the published candidate deck.
type DeckSource interface {
	Deck(ctx context.Context, code string) ([]models.Candidate, error)
}

// TallySource provides deduplicated like counts per candidate.
type TallySource interface {
	Tally(ctx context.Context, code string) (map[string]int, error)
}

// PrefSource provides the leading option per preference category.
type PrefSource interface {
	Summary(ctx context.Context, code string) (map[string]string, error)
}

// CommitStore persists the write-once winner record.
type CommitStore interface {
	Commit(ctx context.Context, w *models.WinnerRecord) error
	Get(ctx context.Context, code string) (*models.WinnerRecord, error)
}

// Tiebreaker picks one winner among tied candidates.
type Tiebreaker interface {
	ResolveTie(ctx context.Context, tied []models.Candidate, prefs map[string]string) (*judge.Verdict, error)
}

// Resolver runs the winner selection algorithm and commits the result exactly
// once. Clients, including the owner, converge by reading the committed
// record rather than computing a winner locally.
type Resolver struct {
	deck   DeckSource
	tally  TallySource
	prefs  PrefSource
	store  CommitStore
	judge  Tiebreaker
	logger *zap.Logger
}

// NewResolver creates a winner resolver.
func NewResolver(deck DeckSource, tally TallySource, prefs PrefSource, store CommitStore, tiebreaker Tiebreaker, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{deck: deck, tally: tally, prefs: prefs, store: store, judge: tiebreaker, logger: logger}
}

// topSet returns the candidates holding the highest tally, in deck order, and
// that tally value. Deck order makes the result deterministic for a fixed
// tally snapshot.
func topSet(deck []models.Candidate, tally map[string]int) ([]models.Candidate, int) {
	maxCount := 0
	for _, c := range deck {
		if n := tally[c.ID]; n > maxCount {
			maxCount = n
		}
	}
	if maxCount == 0 {
		return nil, 0
	}
	var top []models.Candidate
	for _, c := range deck {
		if tally[c.ID] == maxCount {
			top = append(top, c)
		}
	}
	return top, maxCount
}

// Resolve tallies the deck, selects a winner and commits it. A unique top
// candidate commits as direct-majority; ties go to the judge (whose answer
// must be a member of the tied set); zero likes or judge failure commit as
// fallback-empty with a nil candidate. Returns ErrAlreadySet when a record
// was already committed.
func (r *Resolver) Resolve(ctx context.Context, code string) (*models.WinnerRecord, error) {
	deck, err := r.deck.Deck(ctx, code)
	if err != nil {
		return nil, err
	}
	tally, err := r.tally.Tally(ctx, code)
	if err != nil {
		return nil, err
	}

	record := &models.WinnerRecord{SessionCode: code, Method: models.MethodFallbackEmpty}

	top, maxCount := topSet(deck, tally)
	switch {
	case maxCount == 0:
		// Nobody liked anything: no consensus, owner picks manually or restarts.
	case len(top) == 1:
		id := top[0].ID
		record.CandidateID = &id
		record.Method = models.MethodDirectMajority
	default:
		prefs, err := r.prefs.Summary(ctx, code)
		if err != nil {
			return nil, err
		}
		verdict, err := r.judge.ResolveTie(ctx, top, prefs)
		if err != nil {
			r.logger.Warn("judge unavailable, falling back", zap.String("code", code), zap.Error(err))
		} else if !inSet(top, verdict.CandidateID) {
			// An answer outside the tied set is a judge failure, not a winner.
			r.logger.Warn("judge verdict outside tied set",
				zap.String("code", code), zap.String("verdict", verdict.CandidateID))
		} else {
			id := verdict.CandidateID
			record.CandidateID = &id
			record.Method = models.MethodAITiebreak
			record.Justification = verdict.Justification
		}
	}

	if err := r.store.Commit(ctx, record); err != nil {
		return nil, err
	}
	r.logger.Info("winner committed",
		zap.String("code", code),
		zap.String("method", string(record.Method)),
	)
	return record, nil
}

func inSet(set []models.Candidate, id string) bool {
	for _, c := range set {
		if c.ID == id {
			return true
		}
	}
	return false
}
