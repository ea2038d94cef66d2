// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

func testCfg() types.SourcesConfig {
	return types.SourcesConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		MaxResults:  20,
		BraveAPIKey: "test-key",
	}
}

func testQuery() Query {
	return Query{
		Topic:     "heat pumps",
		Mission:   "sustainability",
		From:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		FetchedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

// --- mock adapter ---

type mockAdapter struct {
	name    string
	signals []types.RawSignal
	err     error
	delay   time.Duration
	calls   int32
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Fetch(ctx context.Context, _ Query) ([]types.RawSignal, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.signals, m.err
}

// --- FetchAll ---

func TestFetchAllPartialFailure(t *testing.T) {
	failing := &mockAdapter{name: "failing", err: fmt.Errorf("connection refused")}
	working := &mockAdapter{
		name:    "working",
		signals: []types.RawSignal{{Source: "working", Title: "Signal A"}},
	}
	empty := &mockAdapter{name: "empty"}

	var buf bytes.Buffer
	signals, warnings := FetchAll(context.Background(), []Adapter{failing, working, empty}, testQuery(), 0, &buf)

	if len(warnings) != 1 {
		t.Fatalf("len(warnings) = %d, want 1", len(warnings))
	}
	if !strings.Contains(warnings[0], "failing") {
		t.Errorf("warning should name the failed provider: %q", warnings[0])
	}
	if len(signals) != 1 {
		t.Errorf("len(signals) = %d, want 1", len(signals))
	}
	if !strings.Contains(buf.String(), "warning:") {
		t.Error("log should contain a warning line")
	}
}

func TestFetchAllPreservesInvocationOrder(t *testing.T) {
	first := &mockAdapter{
		name:    "first",
		delay:   50 * time.Millisecond, // finishes last
		signals: []types.RawSignal{{Title: "A1"}, {Title: "A2"}},
	}
	second := &mockAdapter{
		name:    "second",
		signals: []types.RawSignal{{Title: "B1"}},
	}

	var buf bytes.Buffer
	signals, warnings := FetchAll(context.Background(), []Adapter{first, second}, testQuery(), 0, &buf)

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	want := []string{"A1", "A2", "B1"}
	if len(signals) != len(want) {
		t.Fatalf("len(signals) = %d, want %d", len(signals), len(want))
	}
	for i, title := range want {
		if signals[i].Title != title {
			t.Errorf("signals[%d].Title = %q, want %q (merge must follow invocation order)", i, signals[i].Title, title)
		}
	}
}

func TestFetchAllTimeoutEqualsFailure(t *testing.T) {
	slow := &mockAdapter{
		name:    "slow",
		delay:   200 * time.Millisecond,
		signals: []types.RawSignal{{Title: "never seen"}},
	}
	fast := &mockAdapter{
		name:    "fast",
		signals: []types.RawSignal{{Title: "kept"}},
	}

	var buf bytes.Buffer
	signals, warnings := FetchAll(context.Background(), []Adapter{slow, fast}, testQuery(), 20*time.Millisecond, &buf)

	if len(warnings) != 1 {
		t.Fatalf("len(warnings) = %d, want 1", len(warnings))
	}
	if !strings.Contains(warnings[0], "slow") {
		t.Errorf("warning should name the timed-out provider: %q", warnings[0])
	}
	if len(signals) != 1 || signals[0].Title != "kept" {
		t.Errorf("signals = %v, want only the fast adapter's result", signals)
	}
}

func TestFetchAllAllFailed(t *testing.T) {
	a := &mockAdapter{name: "a", err: errors.New("down")}
	b := &mockAdapter{name: "b", err: errors.New("down")}

	var buf bytes.Buffer
	signals, warnings := FetchAll(context.Background(), []Adapter{a, b}, testQuery(), 0, &buf)

	if len(signals) != 0 {
		t.Errorf("len(signals) = %d, want 0", len(signals))
	}
	if len(warnings) != 2 {
		t.Errorf("len(warnings) = %d, want 2", len(warnings))
	}
}

// --- grants adapter ---

const sampleGrantNavJSON = `{
  "count": 2,
  "grants": [
    {
      "id": "360G-example-001",
      "title": "Heat Pump Pilot Scheme",
      "description": "A retrofit pilot for social housing.",
      "url": "https://grantnav.threesixtygiving.org/grant/360G-example-001",
      "awardDate": "2025-09-15",
      "amountAwarded": 250000,
      "currency": "GBP"
    },
    {
      "id": "360G-example-002",
      "title": "Community Energy Fund",
      "awardDate": "2025-11-01",
      "amountAwarded": 50000,
      "currency": "GBP"
    }
  ]
}`

func TestGrantsAdapterFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("text_query"); got != "heat pumps" {
			t.Errorf("text_query = %q", got)
		}
		if got := r.URL.Query().Get("min_date"); got != "2025-03-14" {
			t.Errorf("min_date = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleGrantNavJSON)
	}))
	defer ts.Close()

	old := grantNavSearchBase
	grantNavSearchBase = ts.URL
	defer func() { grantNavSearchBase = old }()

	var buf bytes.Buffer
	a := NewGrantsAdapter(ts.Client(), testCfg(), &buf)
	signals, err := a.Fetch(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("len(signals) = %d, want 2", len(signals))
	}

	s := signals[0]
	if s.Source != types.SourceGrants {
		t.Errorf("Source = %q", s.Source)
	}
	if s.Title != "Heat Pump Pilot Scheme" {
		t.Errorf("Title = %q", s.Title)
	}
	meta, ok := s.Meta.(types.GrantsMeta)
	if !ok {
		t.Fatalf("Meta = %T", s.Meta)
	}
	if meta.FundVal != 250000 {
		t.Errorf("FundVal = %f", meta.FundVal)
	}
}

func TestGrantsAdapterSoftFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 500", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"http 403", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "{not json")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			old := grantNavSearchBase
			grantNavSearchBase = ts.URL
			defer func() { grantNavSearchBase = old }()

			var buf bytes.Buffer
			a := NewGrantsAdapter(ts.Client(), testCfg(), &buf)
			signals, err := a.Fetch(context.Background(), testQuery())
			if err != nil {
				t.Errorf("grants adapter must never surface a hard error, got: %v", err)
			}
			if len(signals) != 0 {
				t.Errorf("len(signals) = %d, want 0", len(signals))
			}
			if buf.Len() == 0 {
				t.Error("soft failure should be logged")
			}
		})
	}
}

func TestGrantsAdapterConnectionFailure(t *testing.T) {
	old := grantNavSearchBase
	grantNavSearchBase = "http://127.0.0.1:1" // nothing listens here
	defer func() { grantNavSearchBase = old }()

	var buf bytes.Buffer
	a := NewGrantsAdapter(&http.Client{Timeout: time.Second}, testCfg(), &buf)
	signals, err := a.Fetch(context.Background(), testQuery())
	if err != nil {
		t.Errorf("connection failure must be soft, got: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("len(signals) = %d, want 0", len(signals))
	}
}

// --- publications adapter ---

const sampleOpenAlexJSON = `{
  "meta": {"count": 2, "per_page": 20, "page": 1},
  "results": [
    {
      "id": "https://openalex.org/W1",
      "title": "Residential Heat Pump Adoption",
      "doi": "https://doi.org/10.1000/hp1",
      "publication_date": "2025-10-02",
      "cited_by_count": 500,
      "abstract_inverted_index": {"Heat": [0], "pumps": [1], "work.": [2]}
    },
    {
      "id": "https://openalex.org/W2",
      "title": "Undated Work",
      "cited_by_count": 12
    }
  ]
}`

func TestPublicationsAdapterFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filter"); got != "from_publication_date:2025-03-14" {
			t.Errorf("filter = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleOpenAlexJSON)
	}))
	defer ts.Close()

	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	defer func() { openAlexSearchBase = old }()

	var buf bytes.Buffer
	a := NewPublicationsAdapter(ts.Client(), testCfg(), &buf)
	signals, err := a.Fetch(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// The undated work is dropped in normalization.
	if len(signals) != 1 {
		t.Fatalf("len(signals) = %d, want 1", len(signals))
	}
	s := signals[0]
	if s.Abstract != "Heat pumps work." {
		t.Errorf("Abstract = %q (inverted index not reconstructed)", s.Abstract)
	}
	meta, ok := s.Meta.(types.PublicationMeta)
	if !ok {
		t.Fatalf("Meta = %T", s.Meta)
	}
	if meta.CitedByCount != 500 {
		t.Errorf("CitedByCount = %d", meta.CitedByCount)
	}
}

func TestPublicationsAdapterRetriesTransient(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleOpenAlexJSON)
	}))
	defer ts.Close()

	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	defer func() { openAlexSearchBase = old }()

	var buf bytes.Buffer
	a := NewPublicationsAdapter(ts.Client(), testCfg(), &buf)
	a.retry.BaseDelay = time.Millisecond

	signals, err := a.Fetch(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls)
	}
	if len(signals) != 1 {
		t.Errorf("len(signals) = %d, want 1", len(signals))
	}
}

func TestPublicationsAdapterBadQueryIsHardError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	defer func() { openAlexSearchBase = old }()

	var buf bytes.Buffer
	a := NewPublicationsAdapter(ts.Client(), testCfg(), &buf)
	_, err := a.Fetch(context.Background(), testQuery())

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("want ServiceError, got: %v", err)
	}
	if svcErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", svcErr.StatusCode)
	}
}

func TestPublicationsAdapterExhaustedRetriesDegrade(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	defer func() { openAlexSearchBase = old }()

	var buf bytes.Buffer
	a := NewPublicationsAdapter(ts.Client(), testCfg(), &buf)
	a.retry.BaseDelay = time.Millisecond

	signals, err := a.Fetch(context.Background(), testQuery())
	if err != nil {
		t.Errorf("exhausted retries should degrade to empty, got: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("len(signals) = %d, want 0", len(signals))
	}
}

// --- web search adapter ---

const sampleBraveJSON = `{
  "web": {
    "results": [
      {"title": "Heat Pump Pilot Scheme", "url": "https://gov.uk/a", "description": "Government pilot."},
      {"title": "Heat pump grants explained", "url": "https://example.org/grants", "description": "Guide."}
    ]
  }
}`

func TestWebSearchAdapterFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "test-key" {
			t.Errorf("X-Subscription-Token = %q", got)
		}
		if got := r.URL.Query().Get("freshness"); got != "pw" {
			t.Errorf("freshness = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleBraveJSON)
	}))
	defer ts.Close()

	old := braveSearchBase
	braveSearchBase = ts.URL
	defer func() { braveSearchBase = old }()

	a, err := NewWebSearchAdapter(ts.Client(), testCfg())
	if err != nil {
		t.Fatalf("NewWebSearchAdapter: %v", err)
	}

	q := testQuery()
	q.Freshness = []string{"pw"}
	signals, err := a.Fetch(context.Background(), q)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("len(signals) = %d, want 2", len(signals))
	}
	if !signals[0].IsNovel {
		t.Error("past-week results should be tagged novel")
	}
	if !signals[0].Date.Equal(q.FetchedAt) {
		t.Errorf("Date = %v, want fetch time", signals[0].Date)
	}
}

func TestWebSearchAdapterMissingKey(t *testing.T) {
	cfg := testCfg()
	cfg.BraveAPIKey = ""
	_, err := NewWebSearchAdapter(http.DefaultClient, cfg)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("want ErrMissingCredentials, got: %v", err)
	}
}

func TestWebSearchAdapterNon2xxIsHardError(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusInternalServerError} {
		t.Run(fmt.Sprintf("%d", status), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			defer ts.Close()

			old := braveSearchBase
			braveSearchBase = ts.URL
			defer func() { braveSearchBase = old }()

			a, err := NewWebSearchAdapter(ts.Client(), testCfg())
			if err != nil {
				t.Fatalf("NewWebSearchAdapter: %v", err)
			}

			_, err = a.Fetch(context.Background(), testQuery())
			var svcErr *ServiceError
			if !errors.As(err, &svcErr) {
				t.Fatalf("want ServiceError, got: %v", err)
			}
			if svcErr.StatusCode != status {
				t.Errorf("StatusCode = %d, want %d", svcErr.StatusCode, status)
			}
		})
	}
}

func TestWebSearchAdapterCountCapped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("count"); got != "20" {
			t.Errorf("count = %q, want capped at 20", got)
		}
		fmt.Fprint(w, `{"web":{"results":[]}}`)
	}))
	defer ts.Close()

	old := braveSearchBase
	braveSearchBase = ts.URL
	defer func() { braveSearchBase = old }()

	cfg := testCfg()
	cfg.MaxResults = 100
	a, err := NewWebSearchAdapter(ts.Client(), cfg)
	if err != nil {
		t.Fatalf("NewWebSearchAdapter: %v", err)
	}
	if _, err := a.Fetch(context.Background(), testQuery()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}
