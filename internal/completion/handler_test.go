package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/commonplate/backend/internal/middleware"
	"github.com/commonplate/backend/internal/models"
	"github.com/commonplate/backend/internal/realtime"
)

type memStore struct {
	members map[string]bool
	marks   map[string]bool
}

func newMemStore(members ...string) *memStore {
	s := &memStore{members: make(map[string]bool), marks: make(map[string]bool)}
	for _, m := range members {
		s.members[m] = true
	}
	return s
}

func (s *memStore) Mark(_ context.Context, _, participantID string) error {
	if !s.members[participantID] {
		return ErrNotMember
	}
	s.marks[participantID] = true
	return nil
}

func (s *memStore) QuorumReached(_ context.Context, _ string) (bool, error) {
	return Quorum(len(s.marks), len(s.members)), nil
}

type memSessions struct {
	version int64
}

func (s *memSessions) Get(_ context.Context, code string) (*models.Session, error) {
	return &models.Session{Code: code, Version: s.version, CreatedAt: time.Now()}, nil
}

func (s *memSessions) Touch(_ context.Context, _ string) (int64, error) {
	s.version++
	return s.version, nil
}

func newCompleteRouter(store *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, &memSessions{version: 1}, realtime.NewHub(zap.NewNop(), nil, nil))
	r := gin.New()
	grp := r.Group("/sessions", middleware.Participant())
	grp.POST("/:code/complete", h.Complete)
	grp.GET("/:code/quorum", h.Quorum)
	return r
}

func postComplete(r *gin.Engine, participantID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/sessions/TACO42/complete", nil)
	req.Header.Set("X-Participant-ID", participantID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func completeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func TestCompleteRejectsNonMember(t *testing.T) {
	store := newMemStore("ann", "bob", "cid")
	r := newCompleteRouter(store)

	// Two of three members are done; one stray mark would flip quorum.
	require.Equal(t, http.StatusOK, postComplete(r, "ann").Code)
	require.Equal(t, http.StatusOK, postComplete(r, "bob").Code)

	w := postComplete(r, "stranger")
	assert.Equal(t, http.StatusForbidden, w.Code)

	reached, err := store.QuorumReached(context.Background(), "TACO42")
	require.NoError(t, err)
	assert.False(t, reached, "a non-member mark must not count toward quorum")
	assert.False(t, store.marks["stranger"])
}

func TestCompleteLastMemberReachesQuorum(t *testing.T) {
	store := newMemStore("ann", "bob")
	r := newCompleteRouter(store)

	data := completeBody(t, postComplete(r, "ann"))
	assert.Equal(t, false, data["quorum_reached"])

	data = completeBody(t, postComplete(r, "bob"))
	assert.Equal(t, true, data["quorum_reached"])
}

func TestCompleteDuplicateMarkIsIdempotent(t *testing.T) {
	store := newMemStore("ann", "bob")
	r := newCompleteRouter(store)

	require.Equal(t, http.StatusOK, postComplete(r, "ann").Code)
	data := completeBody(t, postComplete(r, "ann"))
	assert.Equal(t, false, data["quorum_reached"], "replaying a mark must not add to the set")
	assert.Len(t, store.marks, 1)
}

func TestCompleteMissingIdentityHeader(t *testing.T) {
	r := newCompleteRouter(newMemStore("ann"))
	req := httptest.NewRequest(http.MethodPost, "/sessions/TACO42/complete", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
