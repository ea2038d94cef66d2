// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/phia-francis/nesta-signal-scout-sub000/internal/normalize"
	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// grantNavSearchBase is the 360Giving GrantNav search endpoint. Declared
// as a var so tests can substitute an httptest server.
var grantNavSearchBase = "https://grantnav.threesixtygiving.org/search.json"

// GrantsAdapter queries the grants registry. Every failure (non-2xx,
// transport error, malformed body) is soft: the adapter logs a line and
// returns an empty list. Grant activity is routine and sparse, so a dry
// round is not worth a warning at the scan level.
type GrantsAdapter struct {
	client  *http.Client
	cfg     types.SourcesConfig
	limiter *rate.Limiter
	log     io.Writer
}

// NewGrantsAdapter builds the adapter. log receives soft-failure lines.
func NewGrantsAdapter(client *http.Client, cfg types.SourcesConfig, log io.Writer) *GrantsAdapter {
	return &GrantsAdapter{
		client:  client,
		cfg:     cfg,
		limiter: newLimiter(cfg.RequestsPerSecond),
		log:     log,
	}
}

// Name returns the adapter identifier.
func (a *GrantsAdapter) Name() string { return types.SourceGrants }

// Fetch queries the registry for grants matching the topic with a minimum
// start date. The returned error is always nil; all failure is signaled
// via an empty result plus a log entry.
func (a *GrantsAdapter) Fetch(ctx context.Context, q Query) ([]types.RawSignal, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, nil
	}

	maxResults := a.cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	params := url.Values{
		"text_query": {q.Topic},
		"limit":      {fmt.Sprintf("%d", maxResults)},
	}
	if !q.From.IsZero() {
		params.Set("min_date", q.From.Format("2006-01-02"))
	}

	reqURL := grantNavSearchBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		fmt.Fprintf(a.log, "grants: creating request: %v\n", err)
		return nil, nil
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		fmt.Fprintf(a.log, "grants: request failed: %v\n", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(a.log, "grants: registry returned HTTP %d\n", resp.StatusCode)
		return nil, nil
	}

	var gr grantNavResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		fmt.Fprintf(a.log, "grants: parsing response: %v\n", err)
		return nil, nil
	}

	records := make([]normalize.GrantRecord, 0, len(gr.Grants))
	for _, g := range gr.Grants {
		records = append(records, normalize.GrantRecord{
			Title:       g.Title,
			Description: g.Description,
			URL:         g.URL,
			StartDate:   g.AwardDate,
			FundValue:   g.AmountAwarded,
		})
	}
	return normalize.Grants(records, q.Mission, q.FetchedAt), nil
}

// GrantNav API JSON structures.
type grantNavResponse struct {
	Grants []grantNavGrant `json:"grants"`
	Count  int             `json:"count"`
}

type grantNavGrant struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	URL           string  `json:"url"`
	AwardDate     string  `json:"awardDate"`
	AmountAwarded float64 `json:"amountAwarded"`
	Currency      string  `json:"currency"`
}
