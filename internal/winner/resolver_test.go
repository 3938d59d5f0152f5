package winner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonplate/backend/internal/judge"
	"github.com/commonplate/backend/internal/models"
)

type fakeSources struct {
	deck  []models.Candidate
	tally map[string]int
	prefs map[string]string
}

func (f *fakeSources) Deck(ctx context.Context, code string) ([]models.Candidate, error) {
	return f.deck, nil
}

func (f *fakeSources) Tally(ctx context.Context, code string) (map[string]int, error) {
	return f.tally, nil
}

func (f *fakeSources) Summary(ctx context.Context, code string) (map[string]string, error) {
	return f.prefs, nil
}

type fakeCommitStore struct {
	mu        sync.Mutex
	committed *models.WinnerRecord
}

func (f *fakeCommitStore) Commit(ctx context.Context, w *models.WinnerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.committed != nil {
		return ErrAlreadySet
	}
	cp := *w
	f.committed = &cp
	return nil
}

func (f *fakeCommitStore) Get(ctx context.Context, code string) (*models.WinnerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.committed, nil
}

type fakeJudge struct {
	verdict *judge.Verdict
	err     error
	calls   int32
}

func (f *fakeJudge) ResolveTie(ctx context.Context, tied []models.Candidate, prefs map[string]string) (*judge.Verdict, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.verdict, nil
}

func threeDeck() []models.Candidate {
	return []models.Candidate{
		{ID: "A", Name: "Trattoria Nonna"},
		{ID: "B", Name: "Izakaya Tomo"},
		{ID: "C", Name: "Taqueria Sol"},
	}
}

func newTestResolver(src *fakeSources, store *fakeCommitStore, j *fakeJudge) *Resolver {
	return NewResolver(src, src, src, store, j, nil)
}

func TestResolveDirectMajority(t *testing.T) {
	src := &fakeSources{deck: threeDeck(), tally: map[string]int{"A": 3}}
	store := &fakeCommitStore{}
	j := &fakeJudge{}

	record, err := newTestResolver(src, store, j).Resolve(context.Background(), "ABCDE")
	require.NoError(t, err)
	require.NotNil(t, record.CandidateID)
	assert.Equal(t, "A", *record.CandidateID)
	assert.Equal(t, models.MethodDirectMajority, record.Method)
	assert.EqualValues(t, 0, j.calls, "judge must not be called for a unique max")
}

func TestResolveTieGoesToJudge(t *testing.T) {
	// P1 likes A,B; P2 likes A; P3 likes B -> A=2, B=2, C=0.
	src := &fakeSources{
		deck:  threeDeck(),
		tally: map[string]int{"A": 2, "B": 2},
		prefs: map[string]string{"vibe": "Cozy"},
	}
	store := &fakeCommitStore{}
	j := &fakeJudge{verdict: &judge.Verdict{CandidateID: "B", Justification: "matches the group's stated cozy vibe"}}

	record, err := newTestResolver(src, store, j).Resolve(context.Background(), "ABCDE")
	require.NoError(t, err)
	require.NotNil(t, record.CandidateID)
	assert.Equal(t, "B", *record.CandidateID)
	assert.Equal(t, models.MethodAITiebreak, record.Method)
	assert.Equal(t, "matches the group's stated cozy vibe", record.Justification)
	assert.EqualValues(t, 1, j.calls)
}

func TestResolveNoLikesFallsBackEmpty(t *testing.T) {
	src := &fakeSources{deck: threeDeck(), tally: map[string]int{}}
	store := &fakeCommitStore{}
	j := &fakeJudge{}

	record, err := newTestResolver(src, store, j).Resolve(context.Background(), "ABCDE")
	require.NoError(t, err)
	assert.Nil(t, record.CandidateID)
	assert.Equal(t, models.MethodFallbackEmpty, record.Method)
	assert.EqualValues(t, 0, j.calls)
}

func TestResolveJudgeUnavailableFallsBackEmpty(t *testing.T) {
	src := &fakeSources{deck: threeDeck(), tally: map[string]int{"A": 1, "B": 1}}
	store := &fakeCommitStore{}
	j := &fakeJudge{err: judge.ErrUnavailable}

	record, err := newTestResolver(src, store, j).Resolve(context.Background(), "ABCDE")
	require.NoError(t, err)
	assert.Nil(t, record.CandidateID)
	assert.Equal(t, models.MethodFallbackEmpty, record.Method)
}

func TestResolveJudgeVerdictOutsideTiedSetIsRejected(t *testing.T) {
	src := &fakeSources{deck: threeDeck(), tally: map[string]int{"A": 1, "B": 1}}
	store := &fakeCommitStore{}
	j := &fakeJudge{verdict: &judge.Verdict{CandidateID: "C", Justification: "sounds fun"}}

	record, err := newTestResolver(src, store, j).Resolve(context.Background(), "ABCDE")
	require.NoError(t, err)
	assert.Nil(t, record.CandidateID)
	assert.Equal(t, models.MethodFallbackEmpty, record.Method)
}

func TestResolveIsDeterministicForFixedTally(t *testing.T) {
	deck := threeDeck()
	tally := map[string]int{"A": 2, "B": 1}

	firstTop, firstMax := topSet(deck, tally)
	secondTop, secondMax := topSet(deck, tally)
	assert.Equal(t, firstTop, secondTop)
	assert.Equal(t, firstMax, secondMax)
	require.Len(t, firstTop, 1)
	assert.Equal(t, "A", firstTop[0].ID)
	assert.Equal(t, 2, firstMax)
}

func TestResolveCommitIsExactlyOnce(t *testing.T) {
	src := &fakeSources{deck: threeDeck(), tally: map[string]int{"A": 3}}
	store := &fakeCommitStore{}
	j := &fakeJudge{}
	r := newTestResolver(src, store, j)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Resolve(context.Background(), "ABCDE")
		}(i)
	}
	wg.Wait()

	var committed, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			committed++
		case assert.ErrorIs(t, err, ErrAlreadySet):
			rejected++
		}
	}
	assert.Equal(t, 1, committed, "exactly one resolution must commit")
	assert.Equal(t, n-1, rejected)

	record, err := store.Get(context.Background(), "ABCDE")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "A", *record.CandidateID)
}

func TestTopSetKeepsDeckOrder(t *testing.T) {
	deck := threeDeck()
	top, max := topSet(deck, map[string]int{"A": 2, "B": 2, "C": 1})
	require.Len(t, top, 2)
	assert.Equal(t, 2, max)
	assert.Equal(t, "A", top[0].ID)
	assert.Equal(t, "B", top[1].ID)
}
