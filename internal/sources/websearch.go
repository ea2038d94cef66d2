// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/phia-francis/nesta-signal-scout-sub000/internal/normalize"
	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// braveSearchBase is the Brave web search endpoint. Declared as a var so
// tests can substitute an httptest server.
var braveSearchBase = "https://api.search.brave.com/res/v1/web/search"

// braveMaxCount is the upstream per-request result cap.
const braveMaxCount = 20

// WebSearchAdapter queries the Brave search API, once per requested
// freshness window. It is the strict adapter: a missing key fails at
// construction, and any non-2xx response raises a ServiceError; it never
// silently returns partial data.
type WebSearchAdapter struct {
	client  *http.Client
	cfg     types.SourcesConfig
	limiter *rate.Limiter
}

// NewWebSearchAdapter builds the adapter. Returns ErrMissingCredentials
// when no API key is configured, so a misconfigured deployment fails
// loudly before the first scan.
func NewWebSearchAdapter(client *http.Client, cfg types.SourcesConfig) (*WebSearchAdapter, error) {
	if cfg.BraveAPIKey == "" {
		return nil, fmt.Errorf("web search: %w", ErrMissingCredentials)
	}
	return &WebSearchAdapter{
		client:  client,
		cfg:     cfg,
		limiter: newLimiter(cfg.RequestsPerSecond),
	}, nil
}

// Name returns the adapter identifier.
func (a *WebSearchAdapter) Name() string { return types.SourceWebSearch }

// Fetch runs one search per freshness window in q.Freshness and merges
// the window results in request order. Defaults to the past-month window
// when none is given.
func (a *WebSearchAdapter) Fetch(ctx context.Context, q Query) ([]types.RawSignal, error) {
	windows := q.Freshness
	if len(windows) == 0 {
		windows = []string{"pm"}
	}

	var signals []types.RawSignal
	for _, window := range windows {
		results, err := a.fetchWindow(ctx, q, window)
		if err != nil {
			return nil, err
		}
		signals = append(signals, normalize.WebResults(results, q.Mission, window, q.FetchedAt)...)
	}
	return signals, nil
}

func (a *WebSearchAdapter) fetchWindow(ctx context.Context, q Query, window string) ([]normalize.WebResult, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, &ServiceError{Provider: a.Name(), Msg: err.Error()}
	}

	count := a.cfg.MaxResults
	if count <= 0 || count > braveMaxCount {
		count = braveMaxCount
	}

	params := url.Values{
		"q":         {q.Topic},
		"count":     {fmt.Sprintf("%d", count)},
		"freshness": {window},
	}

	reqURL := braveSearchBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &ServiceError{Provider: a.Name(), Msg: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.cfg.UserAgent)
	req.Header.Set("X-Subscription-Token", a.cfg.BraveAPIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &ServiceError{Provider: a.Name(), Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ServiceError{Provider: a.Name(), StatusCode: resp.StatusCode, Msg: "search request rejected"}
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, &ServiceError{Provider: a.Name(), Msg: fmt.Sprintf("parsing response: %v", err)}
	}

	results := make([]normalize.WebResult, 0, len(br.Web.Results))
	for _, r := range br.Web.Results {
		results = append(results, normalize.WebResult{
			Title:       r.Title,
			Description: r.Description,
			URL:         r.URL,
		})
	}
	return results, nil
}

// Brave API JSON structures.
type braveResponse struct {
	Web braveWeb `json:"web"`
}

type braveWeb struct {
	Results []braveResult `json:"results"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}
