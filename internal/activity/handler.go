package activity

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commonplate/backend/internal/sessions"
	"github.com/commonplate/backend/pkg/response"
)

// Handler handles activity feed HTTP endpoints.
type Handler struct {
	repo        *Repository
	sessionRepo *sessions.Repository
	logger      *zap.Logger
}

// NewHandler creates an activity handler.
func NewHandler(repo *Repository, sessionRepo *sessions.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, sessionRepo: sessionRepo, logger: logger}
}

// List handles GET /sessions/:code/activity.
func (h *Handler) List(c *gin.Context) {
	code := c.Param("code")
	if _, err := h.sessionRepo.Get(c.Request.Context(), code); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		response.Internal(c, "failed to load session")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	entries, err := h.repo.List(c.Request.Context(), code, limit)
	if err != nil {
		h.logger.Error("failed to list activity", zap.String("code", code), zap.Error(err))
		response.Internal(c, "failed to load activity")
		return
	}
	response.OK(c, gin.H{"entries": entries})
}
