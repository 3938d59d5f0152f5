package menucache

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commonplate/backend/internal/sessions"
	"github.com/commonplate/backend/pkg/response"
)

// Handler handles menu cache HTTP endpoints.
type Handler struct {
	cache       *Cache
	sessionRepo *sessions.Repository
	logger      *zap.Logger
}

// NewHandler creates a menu cache handler.
func NewHandler(cache *Cache, sessionRepo *sessions.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cache: cache, sessionRepo: sessionRepo, logger: logger}
}

// Get handles GET /sessions/:code/menu/:candidateId. The first requester
// triggers the provider fetch; everyone else shares the cached result.
func (h *Handler) Get(c *gin.Context) {
	code := c.Param("code")
	candidateID := c.Param("candidateId")

	if _, err := h.sessionRepo.Get(c.Request.Context(), code); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		response.Internal(c, "failed to load session")
		return
	}

	entry, err := h.cache.GetOrFetch(c.Request.Context(), code, candidateID)
	if err != nil {
		h.logger.Error("menu lookup failed",
			zap.String("code", code),
			zap.String("candidate_id", candidateID),
			zap.Error(err),
		)
		response.Internal(c, "failed to load menu")
		return
	}
	response.OK(c, entry)
}
