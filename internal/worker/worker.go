package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/commonplate/backend/internal/menucache"
	"github.com/commonplate/backend/internal/sessions"
	"github.com/commonplate/backend/pkg/queue"
)

// MenuPrefetchProcessor warms the menu cache in the background: when the
// owner publishes a deck, one job per candidate is enqueued so details are
// usually ready before anyone opens a card.
type MenuPrefetchProcessor struct {
	cache  *menucache.Cache
	queue  *queue.Queue
	logger *zap.Logger
}

// NewMenuPrefetchProcessor creates a menu prefetch processor.
func NewMenuPrefetchProcessor(cache *menucache.Cache, q *queue.Queue, logger *zap.Logger) *MenuPrefetchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MenuPrefetchProcessor{cache: cache, queue: q, logger: logger}
}

// Process executes one prefetch job. The cache's claim makes this safe to run
// concurrently with a participant requesting the same candidate.
func (p *MenuPrefetchProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeMenuPrefetch {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.MenuPrefetchPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	entry, err := p.cache.GetOrFetch(ctx, payload.SessionCode, payload.CandidateID)
	if err != nil {
		return fmt.Errorf("prefetch: %w", err)
	}

	p.logger.Info("menu prefetched",
		zap.String("session_code", payload.SessionCode),
		zap.String("candidate_id", payload.CandidateID),
		zap.String("state", string(entry.State)),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *MenuPrefetchProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("menu prefetch worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}

// ExpirySweeper deletes sessions idle past the configured horizon.
type ExpirySweeper struct {
	repo     *sessions.Repository
	idleFor  time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewExpirySweeper creates an expiry sweeper.
func NewExpirySweeper(repo *sessions.Repository, idleFor, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{repo: repo, idleFor: idleFor, interval: interval, logger: logger}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopping")
			return
		case <-ticker.C:
			n, err := s.repo.DeleteIdle(ctx, s.idleFor)
			if err != nil {
				s.logger.Error("expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired idle sessions", zap.Int64("count", n))
			}
		}
	}
}
