package menucache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonplate/backend/internal/models"
)

type memStore struct {
	mu      sync.Mutex
	entries map[string]*models.MenuEntry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*models.MenuEntry)}
}

func (s *memStore) Get(ctx context.Context, code, candidateID string) (*models.MenuEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[code+":"+candidateID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *memStore) set(code, candidateID string, state models.MenuState, payload json.RawMessage, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := code + ":" + candidateID
	if e, ok := s.entries[key]; ok && e.State == models.MenuReady {
		return
	}
	s.entries[key] = &models.MenuEntry{
		SessionCode: code,
		CandidateID: candidateID,
		State:       state,
		Payload:     payload,
		Error:       msg,
		FetchedAt:   time.Now(),
	}
}

func (s *memStore) MarkPending(ctx context.Context, code, candidateID string) error {
	s.set(code, candidateID, models.MenuPending, nil, "")
	return nil
}

func (s *memStore) MarkReady(ctx context.Context, code, candidateID string, payload json.RawMessage) error {
	s.set(code, candidateID, models.MenuReady, payload, "")
	return nil
}

func (s *memStore) MarkFailed(ctx context.Context, code, candidateID, msg string) error {
	s.set(code, candidateID, models.MenuFailed, nil, msg)
	return nil
}

type memClaimer struct {
	mu    sync.Mutex
	held  map[string]bool
	deny  bool
	frees int
}

func newMemClaimer() *memClaimer {
	return &memClaimer{held: make(map[string]bool)}
}

func (c *memClaimer) TryClaim(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deny || c.held[key] {
		return false, nil
	}
	c.held[key] = true
	return true, nil
}

func (c *memClaimer) Release(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
	c.frees++
	return nil
}

type countingFetcher struct {
	calls    int32
	failures int32
	delay    time.Duration
}

func (f *countingFetcher) FetchDetail(ctx context.Context, candidateID string) (json.RawMessage, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if n <= atomic.LoadInt32(&f.failures) {
		return nil, errors.New("upstream timeout")
	}
	return json.RawMessage(`{"menu":["carbonara","cacio e pepe"]}`), nil
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) notify(code, event string, payload interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func TestGetOrFetchFetchesOnceUnderConcurrency(t *testing.T) {
	store := newMemStore()
	fetcher := &countingFetcher{delay: 20 * time.Millisecond}
	log := &eventLog{}
	cache := NewCache(store, newMemClaimer(), fetcher, log.notify, nil)

	const n = 16
	var wg sync.WaitGroup
	states := make([]models.MenuState, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := cache.GetOrFetch(context.Background(), "ABCDE", "cand-1")
			require.NoError(t, err)
			states[i] = entry.State
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&fetcher.calls), "provider must be hit once")
	for _, s := range states {
		assert.Equal(t, models.MenuReady, s)
	}
	assert.Equal(t, []string{"menu_ready"}, log.all())
}

func TestGetOrFetchReturnsCachedReady(t *testing.T) {
	store := newMemStore()
	fetcher := &countingFetcher{}
	cache := NewCache(store, newMemClaimer(), fetcher, nil, nil)

	first, err := cache.GetOrFetch(context.Background(), "ABCDE", "cand-1")
	require.NoError(t, err)
	require.Equal(t, models.MenuReady, first.State)

	second, err := cache.GetOrFetch(context.Background(), "ABCDE", "cand-1")
	require.NoError(t, err)
	assert.Equal(t, models.MenuReady, second.State)
	assert.JSONEq(t, string(first.Payload), string(second.Payload))
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetcher.calls))
}

func TestClaimLoserDoesNotFetch(t *testing.T) {
	store := newMemStore()
	fetcher := &countingFetcher{}
	claims := newMemClaimer()
	claims.deny = true
	cache := NewCache(store, claims, fetcher, nil, nil)

	entry, err := cache.GetOrFetch(context.Background(), "ABCDE", "cand-1")
	require.NoError(t, err)
	assert.Equal(t, models.MenuPending, entry.State)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fetcher.calls))
}

func TestFailedFetchIsCachedAndRetriableExplicitly(t *testing.T) {
	store := newMemStore()
	fetcher := &countingFetcher{failures: 1}
	claims := newMemClaimer()
	log := &eventLog{}
	cache := NewCache(store, claims, fetcher, log.notify, nil)

	entry, err := cache.GetOrFetch(context.Background(), "ABCDE", "cand-1")
	require.NoError(t, err)
	assert.Equal(t, models.MenuFailed, entry.State)
	assert.Equal(t, "upstream timeout", entry.Error)
	assert.Equal(t, 1, claims.frees, "failure must release the claim")

	// The failure stays cached until someone asks again; that explicit
	// request may retry.
	retry, err := cache.GetOrFetch(context.Background(), "ABCDE", "cand-1")
	require.NoError(t, err)
	assert.Equal(t, models.MenuReady, retry.State)
	assert.EqualValues(t, 2, atomic.LoadInt32(&fetcher.calls))
	assert.Equal(t, []string{"menu_failed", "menu_ready"}, log.all())
}
