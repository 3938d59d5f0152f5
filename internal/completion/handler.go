package completion

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/commonplate/backend/internal/middleware"
	"github.com/commonplate/backend/internal/models"
	"github.com/commonplate/backend/internal/realtime"
	"github.com/commonplate/backend/internal/sessions"
	"github.com/commonplate/backend/pkg/response"
)

// Store persists the completion set.
type Store interface {
	Mark(ctx context.Context, code, participantID string) error
	QuorumReached(ctx context.Context, code string) (bool, error)
}

// SessionSource resolves and version-bumps sessions.
type SessionSource interface {
	Get(ctx context.Context, code string) (*models.Session, error)
	Touch(ctx context.Context, code string) (int64, error)
}

// Handler handles completion tracking HTTP endpoints.
type Handler struct {
	repo        Store
	sessionRepo SessionSource
	hub         *realtime.Hub
}

// NewHandler creates a completion handler.
func NewHandler(repo Store, sessionRepo SessionSource, hub *realtime.Hub) *Handler {
	return &Handler{repo: repo, sessionRepo: sessionRepo, hub: hub}
}

// Complete handles POST /sessions/:code/complete. Idempotent: a duplicate
// mark succeeds without changing the set. Only joined members may mark;
// anyone else gets a 403 and the quorum count is untouched.
func (h *Handler) Complete(c *gin.Context) {
	code := c.Param("code")
	participantID := c.MustGet(middleware.ContextParticipantID).(string)

	if _, err := h.sessionRepo.Get(c.Request.Context(), code); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		response.Internal(c, "failed to load session")
		return
	}

	if err := h.repo.Mark(c.Request.Context(), code, participantID); err != nil {
		if errors.Is(err, ErrNotMember) {
			response.Forbidden(c, "join the session before marking complete")
			return
		}
		response.Internal(c, "failed to mark complete")
		return
	}

	version, _ := h.sessionRepo.Touch(c.Request.Context(), code)
	h.hub.BroadcastToSessionAndPublish(code, "participant_completed", gin.H{
		"participant_id": participantID,
		"version":        version,
	})

	reached, err := h.repo.QuorumReached(c.Request.Context(), code)
	if err == nil && reached {
		h.hub.BroadcastToSessionAndPublish(code, "quorum_reached", gin.H{"version": version})
	}
	response.OK(c, gin.H{"participant_id": participantID, "quorum_reached": reached})
}

// Quorum handles GET /sessions/:code/quorum.
func (h *Handler) Quorum(c *gin.Context) {
	code := c.Param("code")
	if _, err := h.sessionRepo.Get(c.Request.Context(), code); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		response.Internal(c, "failed to load session")
		return
	}
	reached, err := h.repo.QuorumReached(c.Request.Context(), code)
	if err != nil {
		response.Internal(c, "failed to evaluate quorum")
		return
	}
	response.OK(c, gin.H{"quorum_reached": reached})
}
