package swipes

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/commonplate/backend/internal/middleware"
	"github.com/commonplate/backend/internal/models"
	"github.com/commonplate/backend/internal/realtime"
	"github.com/commonplate/backend/internal/sessions"
	"github.com/commonplate/backend/pkg/response"
)

// SwipeRequest is the body for POST /sessions/:code/swipes.
type SwipeRequest struct {
	CandidateID string          `json:"candidate_id" binding:"required"`
	Decision    models.Decision `json:"decision" binding:"required"`
}

// Handler handles swipe HTTP endpoints.
type Handler struct {
	repo        *Repository
	sessionRepo *sessions.Repository
	hub         *realtime.Hub
}

// NewHandler creates a swipes handler.
func NewHandler(repo *Repository, sessionRepo *sessions.Repository, hub *realtime.Hub) *Handler {
	return &Handler{repo: repo, sessionRepo: sessionRepo, hub: hub}
}

// Swipe handles POST /sessions/:code/swipes. Fire-and-forget from the
// client's point of view: success carries no payload beyond the echo.
func (h *Handler) Swipe(c *gin.Context) {
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

	var req SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !req.Decision.Valid() {
		response.BadRequest(c, "decision must be like or pass")
		return
	}

	swipe := &models.Swipe{
		SessionCode:   code,
		CandidateID:   req.CandidateID,
		ParticipantID: participantID,
		Decision:      req.Decision,
	}
	if err := h.repo.Record(c.Request.Context(), swipe); err != nil {
		response.Internal(c, "failed to record swipe")
		return
	}

	version, _ := h.sessionRepo.Touch(c.Request.Context(), code)
	h.hub.BroadcastToSessionAndPublish(code, "swipe_recorded", gin.H{
		"candidate_id":   req.CandidateID,
		"participant_id": participantID,
		"decision":       req.Decision,
		"version":        version,
	})
	response.OK(c, gin.H{"candidate_id": req.CandidateID, "decision": req.Decision})
}
