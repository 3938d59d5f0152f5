package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/commonplate/backend/config"
	"github.com/commonplate/backend/internal/models"
)

// ErrUnavailable is returned when the judge service cannot produce a verdict.
// Callers route this to the fallback-empty resolution path.
var ErrUnavailable = errors.New("tie-break judge unavailable")

// Verdict is the judge's pick among tied candidates plus a short
// natural-language justification.
type Verdict struct {
	CandidateID   string `json:"winner_id"`
	Justification string `json:"reason"`
}

// Client talks to the AI tie-break judge service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a judge client. An empty base URL yields a client that
// always reports ErrUnavailable, which degrades resolution to fallback-empty.
func NewClient(cfg config.JudgeConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		logger:  logger,
	}
}

type resolveRequest struct {
	Candidates  []models.Candidate `json:"candidates"`
	Preferences map[string]string  `json:"preferences"`
}

// ResolveTie asks the judge to pick one winner among the tied candidates,
// given the group's leading preference per category.
func (c *Client) ResolveTie(ctx context.Context, tied []models.Candidate, prefs map[string]string) (*Verdict, error) {
	if c.baseURL == "" {
		return nil, ErrUnavailable
	}

	body, err := json.Marshal(resolveRequest{Candidates: tied, Preferences: prefs})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/resolve-tie", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("judge request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("judge returned non-OK status", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var v Verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: decode verdict: %v", ErrUnavailable, err)
	}
	if v.CandidateID == "" {
		return nil, fmt.Errorf("%w: empty verdict", ErrUnavailable)
	}
	return &v, nil
}
