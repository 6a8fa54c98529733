package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/teamtrack/volley-live-backend/internal/engine"
)

// MatchFetcher is the non-real-time read API: the source of truth after any
// gap in the event channel.
type MatchFetcher interface {
	FetchMatch(ctx context.Context, matchID string) (engine.Match, error)
}

// APIClient reads match state over the REST surface. The payload shapes are
// identical to the event channel's, so a REST read and an event-confirmed
// push are interchangeable inputs to the projection.
type APIClient struct {
	base string
	http *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		base: baseURL,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) FetchMatch(ctx context.Context, matchID string) (engine.Match, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/matches/"+matchID, nil)
	if err != nil {
		return engine.Match{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return engine.Match{}, fmt.Errorf("fetch match %s: %w", matchID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return engine.Match{}, fmt.Errorf("fetch match %s: status %d", matchID, resp.StatusCode)
	}
	var m engine.Match
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return engine.Match{}, fmt.Errorf("decode match %s: %w", matchID, err)
	}
	return m, nil
}
