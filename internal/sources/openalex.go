// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"

	"golang.org/x/time/rate"

	"github.com/phia-francis/nesta-signal-scout-sub000/internal/httputil"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/normalize"
	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// PublicationsAdapter queries the OpenAlex publication index. Transient
// transport conditions (429, 5xx, connection errors) are retried with
// exponential backoff and then degrade to an empty list; a 400 means the
// query itself was rejected and surfaces as a ServiceError.
type PublicationsAdapter struct {
	client  *http.Client
	cfg     types.SourcesConfig
	retry   httputil.Policy
	limiter *rate.Limiter
	log     io.Writer
}

// NewPublicationsAdapter builds the adapter with the default retry policy.
func NewPublicationsAdapter(client *http.Client, cfg types.SourcesConfig, log io.Writer) *PublicationsAdapter {
	return &PublicationsAdapter{
		client:  client,
		cfg:     cfg,
		retry:   httputil.DefaultPolicy(),
		limiter: newLimiter(cfg.RequestsPerSecond),
		log:     log,
	}
}

// Name returns the adapter identifier.
func (a *PublicationsAdapter) Name() string { return types.SourcePublications }

// Fetch queries the index for works matching the topic published on or
// after the From date.
func (a *PublicationsAdapter) Fetch(ctx context.Context, q Query) ([]types.RawSignal, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, nil
	}

	maxResults := a.cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	if maxResults > 200 {
		maxResults = 200
	}

	params := url.Values{
		"search":   {q.Topic},
		"per_page": {fmt.Sprintf("%d", maxResults)},
		"page":     {"1"},
		"sort":     {"relevance_score:desc"},
	}
	if !q.From.IsZero() {
		params.Set("filter", "from_publication_date:"+q.From.Format("2006-01-02"))
	}
	if a.cfg.OpenAlexEmail != "" {
		params.Set("mailto", a.cfg.OpenAlexEmail)
	}

	reqURL := openAlexSearchBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.retry.Do(ctx, a.client, req)
	if err != nil {
		// Transport failure after retries: degrade to empty.
		fmt.Fprintf(a.log, "openalex: request failed after retries: %v\n", err)
		return nil, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest:
		return nil, &ServiceError{Provider: a.Name(), StatusCode: resp.StatusCode, Msg: "query rejected"}
	default:
		// Retries exhausted on a retryable status, or an unexpected one.
		fmt.Fprintf(a.log, "openalex: returned HTTP %d\n", resp.StatusCode)
		return nil, nil
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		fmt.Fprintf(a.log, "openalex: parsing response: %v\n", err)
		return nil, nil
	}

	records := make([]normalize.WorkRecord, 0, len(oar.Results))
	for _, work := range oar.Results {
		workURL := work.DOI
		if workURL == "" {
			workURL = work.ID
		}
		records = append(records, normalize.WorkRecord{
			Title:           work.Title,
			Abstract:        reconstructAbstract(work.AbstractInvertedIndex),
			URL:             workURL,
			PublicationDate: work.PublicationDate,
			CitedByCount:    work.CitedByCount,
		})
	}
	return normalize.Works(records, q.Mission), nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	out := make([]byte, 0, len(pairs)*8)
	for i, p := range pairs {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, p.word...)
	}
	return string(out)
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	DOI                   string           `json:"doi"`
	PublicationDate       string           `json:"publication_date"`
	CitedByCount          int              `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}
