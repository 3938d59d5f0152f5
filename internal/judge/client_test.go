package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonplate/backend/config"
	"github.com/commonplate/backend/internal/models"
)

func tiedPair() []models.Candidate {
	return []models.Candidate{
		{ID: "A", Name: "Trattoria Nonna"},
		{ID: "B", Name: "Izakaya Tomo"},
	}
}

func TestResolveTieReturnsVerdict(t *testing.T) {
	var got resolveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/resolve-tie", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{
			"winner_id": "B",
			"reason":    "closer match for the group's cozy vibe preference",
		})
	}))
	defer srv.Close()

	client := NewClient(config.JudgeConfig{BaseURL: srv.URL, TimeoutSec: 2}, nil)
	verdict, err := client.ResolveTie(context.Background(), tiedPair(), map[string]string{"vibe": "Cozy"})
	require.NoError(t, err)
	assert.Equal(t, "B", verdict.CandidateID)
	assert.Equal(t, "closer match for the group's cozy vibe preference", verdict.Justification)

	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "Cozy", got.Preferences["vibe"])
}

func TestResolveTieUnavailableWithoutBaseURL(t *testing.T) {
	client := NewClient(config.JudgeConfig{}, nil)
	_, err := client.ResolveTie(context.Background(), tiedPair(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestResolveTieNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(config.JudgeConfig{BaseURL: srv.URL, TimeoutSec: 2}, nil)
	_, err := client.ResolveTie(context.Background(), tiedPair(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestResolveTieEmptyVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"winner_id":"","reason":""}`))
	}))
	defer srv.Close()

	client := NewClient(config.JudgeConfig{BaseURL: srv.URL, TimeoutSec: 2}, nil)
	_, err := client.ResolveTie(context.Background(), tiedPair(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
