// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the signal-scout pipeline:
// raw and scored signals, presentation cards, narrative clusters, and the
// configuration structs consumed by the CLI.
package types

import "time"

// Source identifiers for the configured providers.
const (
	SourceGrants       = "grants"
	SourcePublications = "openalex"
	SourceWebSearch    = "websearch"
)

// Typology labels assigned by the activity/attention quadrant.
const (
	TypologyHiddenGem   = "Hidden Gem"
	TypologyEstablished = "Established"
	TypologyHype        = "Hype"
	TypologyNascent     = "Nascent"
)

// SourceMeta carries provider-specific numeric fields as a closed union.
// Exactly one concrete type exists per source, so scoring branches can
// type-switch exhaustively instead of probing an open key-value bag.
type SourceMeta interface {
	sourceMeta()
}

// GrantsMeta holds grants-registry fields.
type GrantsMeta struct {
	// FundVal is the awarded amount in the registry's currency units.
	FundVal float64 `json:"fund_val" yaml:"fund_val"`
}

// PublicationMeta holds publication-index fields.
type PublicationMeta struct {
	// CitedByCount is the citation count reported by the index.
	CitedByCount int `json:"cited_by_count" yaml:"cited_by_count"`
}

// SearchMeta holds web-search fields.
type SearchMeta struct {
	// Trust is a 0-10 placement-derived confidence value.
	Trust float64 `json:"trust" yaml:"trust"`

	// Rank is the zero-based position in the result page.
	Rank int `json:"rank" yaml:"rank"`

	// Freshness is the window token that produced the result (pd/pw/pm/py).
	Freshness string `json:"freshness" yaml:"freshness"`
}

func (GrantsMeta) sourceMeta()      {}
func (PublicationMeta) sourceMeta() {}
func (SearchMeta) sourceMeta()      {}

// RawSignal is one discovered item of interest, normalized from a provider
// record but not yet scored. Date is always timezone-aware and normalized
// to UTC; downstream comparisons assume it.
type RawSignal struct {
	// Source names the origin provider (grants, openalex, websearch).
	Source string `json:"source" yaml:"source"`

	// Title is the item title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// URL is the absolute item URL. May be empty for synthesized sources.
	URL string `json:"url" yaml:"url"`

	// Abstract is free descriptive text. May be empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Date is the publication or award date in UTC.
	Date time.Time `json:"date" yaml:"date"`

	// RawScore is the provider-native numeric signal; its meaning varies
	// by source (funding value, citation count, placement trust).
	RawScore float64 `json:"raw_score" yaml:"raw_score"`

	// Mission is the caller-supplied topical category.
	Mission string `json:"mission,omitempty" yaml:"mission,omitempty"`

	// Meta holds provider-specific fields (see SourceMeta).
	Meta SourceMeta `json:"meta,omitempty" yaml:"meta,omitempty"`

	// IsNovel is true when the signal came from a short-freshness-window query.
	IsNovel bool `json:"is_novel" yaml:"is_novel"`
}

// Clone returns an independent copy of the signal. Meta variants are value
// structs, so the interface copy is already deep.
func (s RawSignal) Clone() RawSignal {
	return s
}

// CloneSignals returns an independently-owned copy of a signal list.
func CloneSignals(signals []RawSignal) []RawSignal {
	if signals == nil {
		return nil
	}
	out := make([]RawSignal, len(signals))
	for i, s := range signals {
		out[i] = s.Clone()
	}
	return out
}

// ScoredSignal is a RawSignal that passed the recency cutoff, with derived
// sub-scores. Each sub-score is in [0, 10]; FinalScore is the fixed
// 0.3/0.3/0.4 weighted composite. Never mutated after creation.
type ScoredSignal struct {
	RawSignal `yaml:",inline"`

	Activity   float64 `json:"score_activity" yaml:"score_activity"`
	Attention  float64 `json:"score_attention" yaml:"score_attention"`
	Recency    float64 `json:"score_recency" yaml:"score_recency"`
	FinalScore float64 `json:"final_score" yaml:"final_score"`

	// Typology is the qualitative quadrant label (Hidden Gem, Established,
	// Hype, Nascent).
	Typology string `json:"typology" yaml:"typology"`
}

// SignalCard is the presentation-ready projection of a ScoredSignal,
// produced at pipeline exit and consumed by output formatting and
// persistence.
type SignalCard struct {
	Source     string  `json:"source" yaml:"source"`
	Title      string  `json:"title" yaml:"title"`
	URL        string  `json:"url" yaml:"url"`
	Summary    string  `json:"summary" yaml:"summary"`
	Date       string  `json:"date" yaml:"date"`
	FinalScore float64 `json:"final_score" yaml:"final_score"`
	Typology   string  `json:"typology" yaml:"typology"`
	Mission    string  `json:"mission,omitempty" yaml:"mission,omitempty"`
	IsNovel    bool    `json:"is_novel" yaml:"is_novel"`

	// RelatedKeywords are topic-expansion terms attached at the
	// orchestrator level.
	RelatedKeywords []string `json:"related_keywords,omitempty" yaml:"related_keywords,omitempty"`

	// Status tracks the card's review state in persistence ("new" on save).
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// Cluster is a machine-derived grouping of topically similar signals with
// a generated label. Ephemeral: clusters are returned to the caller, not
// persisted.
type Cluster struct {
	ID       int          `json:"id" yaml:"id"`
	Title    string       `json:"title" yaml:"title"`
	Signals  []SignalCard `json:"signals" yaml:"signals"`
	Keywords []string     `json:"keywords" yaml:"keywords"`
	Count    int          `json:"count" yaml:"count"`
}
