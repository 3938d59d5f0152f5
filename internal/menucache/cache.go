package menucache

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/commonplate/backend/internal/models"
)

// Store persists cache entries shared by all server instances.
type Store interface {
	Get(ctx context.Context, code, candidateID string) (*models.MenuEntry, error)
	MarkPending(ctx context.Context, code, candidateID string) error
	MarkReady(ctx context.Context, code, candidateID string, payload json.RawMessage) error
	MarkFailed(ctx context.Context, code, candidateID, msg string) error
}

// Fetcher retrieves the full detail payload for one candidate from the
// upstream provider.
type Fetcher interface {
	FetchDetail(ctx context.Context, candidateID string) (json.RawMessage, error)
}

// Notifier announces cache transitions to session members.
type Notifier func(code, event string, payload interface{})

// Cache coordinates detail fetches so each candidate is fetched at most once
// no matter how many participants request it at the same time. In-process
// duplicates collapse through singleflight; duplicates across instances lose
// the Redis claim and observe the pending entry instead.
type Cache struct {
	store   Store
	claims  Claimer
	fetcher Fetcher
	notify  Notifier
	group   singleflight.Group
	logger  *zap.Logger
}

// NewCache creates a menu cache.
func NewCache(store Store, claims Claimer, fetcher Fetcher, notify Notifier, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = func(string, string, interface{}) {}
	}
	return &Cache{store: store, claims: claims, fetcher: fetcher, notify: notify, logger: logger}
}

// GetOrFetch returns the cache entry for a candidate, fetching it from the
// provider when absent. Ready entries are immutable and returned as-is. A
// failed entry may be retried by this explicit request, since the failure
// path released the claim. Callers that lose the claim get a pending entry
// and learn the outcome from the menu_ready / menu_failed broadcast.
func (c *Cache) GetOrFetch(ctx context.Context, code, candidateID string) (*models.MenuEntry, error) {
	entry, err := c.store.Get(ctx, code, candidateID)
	if err != nil {
		return nil, err
	}
	if entry != nil && entry.State == models.MenuReady {
		return entry, nil
	}
	// Pending and failed entries go back through the claim: a live fetch
	// still holds the claim (we report pending), a crashed one has let the
	// TTL lapse, and a failure released it explicitly.

	key := code + ":" + candidateID
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.fetchOnce(ctx, code, candidateID, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.MenuEntry), nil
}

func (c *Cache) fetchOnce(ctx context.Context, code, candidateID, key string) (*models.MenuEntry, error) {
	won, err := c.claims.TryClaim(ctx, key)
	if err != nil {
		return nil, err
	}
	if !won {
		// Another instance holds the claim. Report whatever state it has
		// committed so far; before its first write that is pending.
		entry, err := c.store.Get(ctx, code, candidateID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			entry = &models.MenuEntry{SessionCode: code, CandidateID: candidateID, State: models.MenuPending}
		}
		return entry, nil
	}

	if err := c.store.MarkPending(ctx, code, candidateID); err != nil {
		c.claims.Release(ctx, key)
		return nil, err
	}

	payload, ferr := c.fetcher.FetchDetail(ctx, candidateID)
	if ferr != nil {
		c.logger.Warn("menu fetch failed",
			zap.String("code", code),
			zap.String("candidate_id", candidateID),
			zap.Error(ferr),
		)
		if err := c.store.MarkFailed(ctx, code, candidateID, ferr.Error()); err != nil {
			return nil, err
		}
		c.claims.Release(ctx, key)
		c.notify(code, "menu_failed", map[string]string{"candidate_id": candidateID})
		return c.store.Get(ctx, code, candidateID)
	}

	if err := c.store.MarkReady(ctx, code, candidateID, payload); err != nil {
		return nil, err
	}
	c.notify(code, "menu_ready", map[string]string{"candidate_id": candidateID})
	return c.store.Get(ctx, code, candidateID)
}
