package preferences

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/commonplate/backend/internal/middleware"
	"github.com/commonplate/backend/internal/models"
	"github.com/commonplate/backend/internal/realtime"
	"github.com/commonplate/backend/internal/sessions"
	"github.com/commonplate/backend/pkg/response"
)

// VoteRequest is the body for POST /sessions/:code/votes.
type VoteRequest struct {
	Category models.PreferenceCategory `json:"category" binding:"required"`
	Option   string                    `json:"option" binding:"required"`
}

// Handler handles preference voting HTTP endpoints.
type Handler struct {
	repo        *Repository
	sessionRepo *sessions.Repository
	hub         *realtime.Hub
}

// NewHandler creates a preferences handler.
func NewHandler(repo *Repository, sessionRepo *sessions.Repository, hub *realtime.Hub) *Handler {
	return &Handler{repo: repo, sessionRepo: sessionRepo, hub: hub}
}

// Vote handles POST /sessions/:code/votes.
func (h *Handler) Vote(c *gin.Context) {
	code := c.Param("code")
	participantID := c.MustGet(middleware.ContextParticipantID).(string)
	participantName := c.GetString(middleware.ContextParticipantName)

	if _, err := h.sessionRepo.Get(c.Request.Context(), code); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		response.Internal(c, "failed to load session")
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !req.Category.Valid() {
		response.BadRequest(c, "unknown category")
		return
	}

	vote := &models.PreferenceVote{
		SessionCode: code,
		Category:    req.Category,
		Option:      req.Option,
		VoterID:     participantID,
		VoterName:   participantName,
	}
	if err := h.repo.RecordVote(c.Request.Context(), vote); err != nil {
		response.Internal(c, "failed to record vote")
		return
	}

	version, _ := h.sessionRepo.Touch(c.Request.Context(), code)
	lead, _ := h.repo.LeadingOption(c.Request.Context(), code, req.Category)
	h.hub.BroadcastToSessionAndPublish(code, "vote_recorded", gin.H{
		"category": req.Category,
		"option":   req.Option,
		"voter_id": participantID,
		"leading":  lead,
		"version":  version,
	})
	response.OK(c, gin.H{"category": req.Category, "option": req.Option})
}

// Leading handles GET /sessions/:code/preferences and returns the leading
// option per category.
func (h *Handler) Leading(c *gin.Context) {
	code := c.Param("code")
	if _, err := h.sessionRepo.Get(c.Request.Context(), code); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		response.Internal(c, "failed to load session")
		return
	}

	out := make(map[string]*models.LeadingOption, len(models.Categories))
	for _, cat := range models.Categories {
		lead, err := h.repo.LeadingOption(c.Request.Context(), code, cat)
		if err != nil {
			response.Internal(c, "failed to compute leading options")
			return
		}
		out[string(cat)] = lead
	}
	response.OK(c, out)
}
