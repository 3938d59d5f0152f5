package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/commonplate/backend/config"
	"github.com/commonplate/backend/internal/models"
)

// ErrNotFound is returned when the provider has no record for a candidate id.
var ErrNotFound = errors.New("candidate not found")

// DefaultLimit caps the deck size when the owner does not ask for one.
const DefaultLimit = 10

// Filters narrows a candidate search.
type Filters struct {
	Price      string `json:"price"`      // "1,2" style price tiers
	Categories string `json:"categories"` // comma-separated category aliases
	Radius     int    `json:"radius"`     // meters
	Limit      int    `json:"limit"`
}

// Client talks to the restaurant search provider (Yelp Fusion shaped API).
// Only the session owner ever calls FetchCandidates; FetchDetail backs the
// shared menu cache.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a search provider client.
func NewClient(cfg config.SearchConfig, logger *zap.Logger) *Client {
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

type businessPayload struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	Price      string  `json:"price"`
	ImageURL   string  `json:"image_url"`
	Categories []struct {
		Title string `json:"title"`
	} `json:"categories"`
	Location struct {
		Address1 string `json:"address1"`
		City     string `json:"city"`
	} `json:"location"`
}

func (b businessPayload) toCandidate() models.Candidate {
	c := models.Candidate{
		ID:       b.ID,
		Name:     b.Name,
		Rating:   b.Rating,
		Price:    b.Price,
		ImageURL: b.ImageURL,
	}
	if len(b.Categories) > 0 {
		c.Category = b.Categories[0].Title
	}
	loc := b.Location.Address1
	if b.Location.City != "" {
		if loc != "" {
			loc += ", "
		}
		loc += b.Location.City
	}
	c.Location = loc
	return c
}

// FetchCandidates returns a ranked candidate list for a query/location/filter
// set.
func (c *Client) FetchCandidates(ctx context.Context, term, location string, f Filters) ([]models.Candidate, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := url.Values{}
	params.Set("term", term)
	params.Set("location", location)
	params.Set("limit", strconv.Itoa(limit))
	if f.Price != "" {
		params.Set("price", f.Price)
	}
	if f.Categories != "" {
		params.Set("categories", f.Categories)
	}
	if f.Radius > 0 {
		params.Set("radius", strconv.Itoa(f.Radius))
	}

	body, err := c.get(ctx, c.baseURL+"/businesses/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Businesses []businessPayload `json:"businesses"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	candidates := make([]models.Candidate, 0, len(parsed.Businesses))
	for _, b := range parsed.Businesses {
		candidates = append(candidates, b.toCandidate())
	}
	return candidates, nil
}

// FetchDetail returns the provider's detail payload for one candidate
// (popular items, hours, photos). The payload is opaque to the cache.
func (c *Client) FetchDetail(ctx context.Context, candidateID string) (json.RawMessage, error) {
	return c.get(ctx, c.baseURL+"/businesses/"+url.PathEscape(candidateID))
}

func (c *Client) get(ctx context.Context, rawURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search provider status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
