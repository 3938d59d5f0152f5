package sessions

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commonplate/backend/internal/middleware"
	"github.com/commonplate/backend/internal/models"
	"github.com/commonplate/backend/internal/realtime"
	"github.com/commonplate/backend/internal/search"
	"github.com/commonplate/backend/pkg/queue"
	"github.com/commonplate/backend/pkg/response"
)

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	ColorTag    string `json:"color_tag"`
}

// JoinRequest is the body for POST /sessions/:code/join.
type JoinRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	ColorTag    string `json:"color_tag"`
}

// PublishDeckRequest is the body for POST /sessions/:code/deck. Either a
// search query (resolved through the candidate provider) or an explicit
// candidate list must be given.
type PublishDeckRequest struct {
	Query      string             `json:"query"`
	Location   string             `json:"location"`
	Filters    search.Filters     `json:"filters"`
	Candidates []models.Candidate `json:"candidates"`
}

// Handler handles session lifecycle HTTP endpoints.
type Handler struct {
	repo   *Repository
	search *search.Client
	hub    *realtime.Hub
	jobs   *queue.Queue
	logger *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(repo *Repository, searchClient *search.Client, hub *realtime.Hub, jobs *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, search: searchClient, hub: hub, jobs: jobs, logger: logger}
}

// Create handles POST /sessions.
func (h *Handler) Create(c *gin.Context) {
	participantID := c.MustGet(middleware.ContextParticipantID).(string)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	s, err := h.repo.Create(c.Request.Context(), participantID, req.DisplayName, req.ColorTag)
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}
	response.Created(c, s)
}

// Join handles POST /sessions/:code/join. Re-joining is idempotent.
func (h *Handler) Join(c *gin.Context) {
	code := c.Param("code")
	participantID := c.MustGet(middleware.ContextParticipantID).(string)

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	m, err := h.repo.Join(c.Request.Context(), code, participantID, req.DisplayName, req.ColorTag)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "session not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to join session")
		return
	}

	version, _ := h.repo.Touch(c.Request.Context(), code)
	h.hub.BroadcastToSessionAndPublish(code, "member_joined", gin.H{
		"participant_id": m.ParticipantID,
		"display_name":   m.DisplayName,
		"color_tag":      m.ColorTag,
		"version":        version,
	})

	view, err := h.repo.Snapshot(c.Request.Context(), code)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	response.OK(c, view)
}

// Get handles GET /sessions/:code and returns the full document snapshot.
func (h *Handler) Get(c *gin.Context) {
	view, err := h.repo.Snapshot(c.Request.Context(), c.Param("code"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "session not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	response.OK(c, view)
}

// PublishDeck handles POST /sessions/:code/deck (owner only, write-once).
// Candidates come from the request body or, when a query is given, from the
// search provider. Publication enqueues one menu prefetch job per candidate.
func (h *Handler) PublishDeck(c *gin.Context) {
	code := c.Param("code")
	participantID := c.MustGet(middleware.ContextParticipantID).(string)

	ok, err := h.repo.IsOwner(c.Request.Context(), code, participantID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "session not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if !ok {
		response.Forbidden(c, "only the session owner can publish the deck")
		return
	}

	var req PublishDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	candidates := req.Candidates
	if len(candidates) == 0 {
		if req.Query == "" && req.Location == "" {
			response.BadRequest(c, "either candidates or a search query is required")
			return
		}
		candidates, err = h.search.FetchCandidates(c.Request.Context(), req.Query, req.Location, req.Filters)
		if err != nil {
			h.logger.Warn("candidate search failed", zap.Error(err), zap.String("code", code))
			response.ServiceUnavailable(c, "no candidates available")
			return
		}
	}
	if len(candidates) == 0 {
		response.ServiceUnavailable(c, "no candidates available")
		return
	}

	if err := h.repo.PublishDeck(c.Request.Context(), code, candidates); err != nil {
		if errors.Is(err, ErrDeckAlreadyPublished) {
			response.Conflict(c, "deck already published")
			return
		}
		response.Internal(c, "failed to publish deck")
		return
	}

	version, _ := h.repo.Touch(c.Request.Context(), code)
	h.hub.BroadcastToSessionAndPublish(code, "deck_published", gin.H{
		"count":   len(candidates),
		"version": version,
	})

	if h.jobs != nil {
		for _, cand := range candidates {
			if err := h.jobs.EnqueueMenuPrefetch(c.Request.Context(), queue.MenuPrefetchPayload{
				SessionCode: code,
				CandidateID: cand.ID,
			}); err != nil {
				h.logger.Warn("menu prefetch enqueue failed", zap.Error(err), zap.String("candidate_id", cand.ID))
			}
		}
	}

	response.Created(c, gin.H{"code": code, "deck_size": len(candidates)})
}
