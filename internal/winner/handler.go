package winner

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commonplate/backend/internal/completion"
	"github.com/commonplate/backend/internal/middleware"
	"github.com/commonplate/backend/internal/realtime"
	"github.com/commonplate/backend/internal/sessions"
	"github.com/commonplate/backend/pkg/response"
)

// Handler handles winner resolution HTTP endpoints.
type Handler struct {
	resolver       *Resolver
	repo           *Repository
	sessionRepo    *sessions.Repository
	completionRepo *completion.Repository
	hub            *realtime.Hub
	logger         *zap.Logger
}

// NewHandler creates a winner handler.
func NewHandler(resolver *Resolver, repo *Repository, sessionRepo *sessions.Repository, completionRepo *completion.Repository, hub *realtime.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		resolver:       resolver,
		repo:           repo,
		sessionRepo:    sessionRepo,
		completionRepo: completionRepo,
		hub:            hub,
		logger:         logger,
	}
}

// Resolve handles POST /sessions/:code/resolve. Owner-only and gated on
// quorum; runs the selection algorithm and commits the winner exactly once.
func (h *Handler) Resolve(c *gin.Context) {
	code := c.Param("code")
	participantID := c.MustGet(middleware.ContextParticipantID).(string)

	ok, err := h.sessionRepo.IsOwner(c.Request.Context(), code, participantID)
	if errors.Is(err, sessions.ErrNotFound) {
		response.NotFound(c, "session not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if !ok {
		response.Forbidden(c, "only the session owner can resolve the winner")
		return
	}

	reached, err := h.completionRepo.QuorumReached(c.Request.Context(), code)
	if err != nil {
		response.Internal(c, "failed to evaluate quorum")
		return
	}
	if !reached {
		response.Conflict(c, "quorum not reached")
		return
	}

	record, err := h.resolver.Resolve(c.Request.Context(), code)
	if errors.Is(err, ErrAlreadySet) {
		// Second resolution attempt indicates a race or a bug; surface it
		// rather than retrying.
		h.logger.Error("duplicate winner resolution attempt", zap.String("code", code))
		response.Conflict(c, "winner already committed")
		return
	}
	if err != nil {
		h.logger.Error("winner resolution failed", zap.String("code", code), zap.Error(err))
		response.Internal(c, "failed to resolve winner")
		return
	}

	version, _ := h.sessionRepo.Touch(c.Request.Context(), code)
	h.hub.BroadcastToSessionAndPublish(code, "winner_committed", gin.H{
		"winner":  record,
		"version": version,
	})
	response.OK(c, record)
}

// Get handles GET /sessions/:code/winner.
func (h *Handler) Get(c *gin.Context) {
	code := c.Param("code")
	if _, err := h.sessionRepo.Get(c.Request.Context(), code); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		response.Internal(c, "failed to load session")
		return
	}
	record, err := h.repo.Get(c.Request.Context(), code)
	if err != nil {
		response.Internal(c, "failed to load winner")
		return
	}
	if record == nil {
		response.NotFound(c, "winner not resolved yet")
		return
	}
	response.OK(c, record)
}
