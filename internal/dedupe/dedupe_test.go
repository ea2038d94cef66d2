// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedupe

import (
	"reflect"
	"testing"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

func sig(title, url string) types.ScoredSignal {
	return types.ScoredSignal{RawSignal: types.RawSignal{Title: title, URL: url}}
}

func titles(signals []types.ScoredSignal) []string {
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = s.Title
	}
	return out
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"HTTP://WWW.Example.com/path/", "example.com/path"},
		{"https://example.com/path", "example.com/path"},
		{"https://gov.uk/a/", "gov.uk/a"},
		{"https://gov.uk/a", "gov.uk/a"},
		{"www.example.com", "example.com"},
		{"example.com/", "example.com"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CanonicalURL(tt.input); got != tt.want {
				t.Errorf("CanonicalURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalURLSchemeCaseAndSlashEquivalence(t *testing.T) {
	a := CanonicalURL("HTTP://WWW.Example.com/path/")
	b := CanonicalURL("https://example.com/path")
	if a != b {
		t.Errorf("%q != %q", a, b)
	}
}

func TestSignalsURLStageBeatsTitleStage(t *testing.T) {
	// Same URL with differing casing and trailing slash: collapsed by URL
	// normalization regardless of how the titles compare.
	signals := []types.ScoredSignal{
		sig("Heat Pump Pilot Scheme", "https://gov.uk/a"),
		sig("Heat pump pilot scheme", "https://gov.uk/a/"),
	}

	kept := Signals(signals)
	if len(kept) != 1 {
		t.Fatalf("len(kept) = %d, want 1", len(kept))
	}
	if kept[0].Title != "Heat Pump Pilot Scheme" {
		t.Errorf("kept %q, want first occurrence", kept[0].Title)
	}
}

func TestSignalsFuzzyTitle(t *testing.T) {
	signals := []types.ScoredSignal{
		sig("Residential heat pump adoption in the UK", "https://a.example.com"),
		sig("Residential heat pump adoption in the UK!", "https://b.example.com"),
		sig("Offshore wind turbine maintenance", "https://c.example.com"),
	}

	kept := Signals(signals)
	got := titles(kept)
	want := []string{"Residential heat pump adoption in the UK", "Offshore wind turbine maintenance"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("titles = %v, want %v", got, want)
	}
}

func TestSignalsDissimilarTitlesKept(t *testing.T) {
	signals := []types.ScoredSignal{
		sig("Heat pumps in social housing", "https://a.example.com"),
		sig("Grid-scale battery storage economics", "https://b.example.com"),
	}
	if kept := Signals(signals); len(kept) != 2 {
		t.Errorf("len(kept) = %d, want 2", len(kept))
	}
}

func TestSignalsEmptyURLNeverDedupes(t *testing.T) {
	signals := []types.ScoredSignal{
		sig("First synthesized signal", ""),
		sig("Completely different synthesized item", ""),
	}
	if kept := Signals(signals); len(kept) != 2 {
		t.Errorf("len(kept) = %d, want 2 (cannot dedupe on absent key)", len(kept))
	}
}

func TestSignalsPreservesOrder(t *testing.T) {
	signals := []types.ScoredSignal{
		sig("Charlie", "https://c.example.com"),
		sig("Alpha", "https://a.example.com"),
		sig("Bravo", "https://b.example.com"),
	}
	got := titles(Signals(signals))
	want := []string{"Charlie", "Alpha", "Bravo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSignalsIdempotent(t *testing.T) {
	signals := []types.ScoredSignal{
		sig("Heat Pump Pilot Scheme", "https://gov.uk/a"),
		sig("Heat pump pilot scheme", "https://gov.uk/a/"),
		sig("Residential heat pump adoption", "https://a.example.com"),
		sig("Residential heat pump adoption!", "https://b.example.com"),
		sig("Offshore wind maintenance", "https://c.example.com"),
	}

	once := Signals(signals)
	twice := Signals(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("not idempotent: %v then %v", titles(once), titles(twice))
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "identical", 1.0, 1.0},
		{"", "", 1.0, 1.0},
		{"abcd", "abce", 0.7, 0.8},
		{"heat pumps", "wind farms", 0.0, 0.4},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("Similarity(%q, %q) = %f, want in [%f, %f]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}
