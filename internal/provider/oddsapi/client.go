// Package oddsapi implements provider.Client against The Odds API v4.
//
// The API is key-authenticated via query parameter. Fixture discovery
// (/events) does not count against the request quota; odds endpoints do.
// A token bucket limiter keeps us under the subscription's request ceiling.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/albapepper/prekick-data/internal/odds"
	"github.com/albapepper/prekick-data/internal/provider"
)

// Client is the HTTP provider client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a rate-limited Odds API client.
func New(baseURL, apiKey string, requestsPerMinute int, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// get performs a rate-limited GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &provider.Error{Op: op, Message: fmt.Sprintf("rate limit wait: %v", err)}
	}

	params.Set("apiKey", c.apiKey)
	u := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &provider.Error{Op: op, Message: fmt.Sprintf("create request: %v", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &provider.Error{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.Error{Op: op, Message: fmt.Sprintf("read body: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return &provider.Error{Op: op, StatusCode: resp.StatusCode, Message: truncate(body, 200)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &provider.Error{Op: op, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// event is the /events item shape.
type event struct {
	ID           string `json:"id"`
	SportKey     string `json:"sport_key"`
	CommenceTime string `json:"commence_time"`
	HomeTeam     string `json:"home_team"`
	AwayTeam     string `json:"away_team"`
}

func (e event) toFixture() (provider.Fixture, error) {
	kickoff, err := time.Parse(time.RFC3339, e.CommenceTime)
	if err != nil {
		return provider.Fixture{}, fmt.Errorf("parse commence_time %q: %w", e.CommenceTime, err)
	}
	return provider.Fixture{
		ID:       e.ID,
		League:   e.SportKey,
		HomeTeam: e.HomeTeam,
		AwayTeam: e.AwayTeam,
		Kickoff:  kickoff.UTC(),
	}, nil
}

// ListFixtures returns the league's upcoming events. Free on the quota.
func (c *Client) ListFixtures(ctx context.Context, league string) ([]provider.Fixture, error) {
	var events []event
	path := fmt.Sprintf("/sports/%s/events", league)
	if err := c.get(ctx, "list_fixtures", path, url.Values{}, &events); err != nil {
		return nil, err
	}
	return fixturesOf(events)
}

// FetchLiveOdds returns current odds for one fixture.
func (c *Client) FetchLiveOdds(ctx context.Context, league, fixtureID string, markets []string, region string) (*odds.Payload, error) {
	params := url.Values{}
	params.Set("regions", region)
	params.Set("markets", strings.Join(markets, ","))
	params.Set("oddsFormat", "decimal")

	var resp eventOdds
	path := fmt.Sprintf("/sports/%s/events/%s/odds", league, fixtureID)
	if err := c.get(ctx, "live_odds", path, params, &resp); err != nil {
		return nil, err
	}
	return resp.toPayload(league), nil
}

// FetchHistoricalFixtures returns events as they were known at asOf.
// Costs 10x a live call — backfill and repair only.
func (c *Client) FetchHistoricalFixtures(ctx context.Context, league string, asOf, from, to time.Time) ([]provider.Fixture, error) {
	params := url.Values{}
	params.Set("date", asOf.UTC().Format(time.RFC3339))
	params.Set("commenceTimeFrom", from.UTC().Format(time.RFC3339))
	params.Set("commenceTimeTo", to.UTC().Format(time.RFC3339))

	var resp struct {
		Data []event `json:"data"`
	}
	path := fmt.Sprintf("/historical/sports/%s/events", league)
	if err := c.get(ctx, "historical_fixtures", path, params, &resp); err != nil {
		return nil, err
	}
	return fixturesOf(resp.Data)
}

// FetchHistoricalOdds returns odds for one fixture as of a past instant.
func (c *Client) FetchHistoricalOdds(ctx context.Context, league, fixtureID string, asOf time.Time, markets []string, region string) (*odds.Payload, error) {
	params := url.Values{}
	params.Set("date", asOf.UTC().Format(time.RFC3339))
	params.Set("regions", region)
	params.Set("markets", strings.Join(markets, ","))
	params.Set("oddsFormat", "decimal")

	var resp struct {
		Data eventOdds `json:"data"`
	}
	path := fmt.Sprintf("/historical/sports/%s/events/%s/odds", league, fixtureID)
	if err := c.get(ctx, "historical_odds", path, params, &resp); err != nil {
		return nil, err
	}
	return resp.Data.toPayload(league), nil
}

// EstimateCost delegates to the shared cost model.
func (c *Client) EstimateCost(kind provider.CostKind, marketCount, regionCount int) int {
	return provider.EstimateCost(kind, marketCount, regionCount)
}

func fixturesOf(events []event) ([]provider.Fixture, error) {
	fixtures := make([]provider.Fixture, 0, len(events))
	for _, e := range events {
		fx, err := e.toFixture()
		if err != nil {
			return nil, &provider.Error{Op: "list_fixtures", Message: err.Error()}
		}
		fixtures = append(fixtures, fx)
	}
	return fixtures, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
