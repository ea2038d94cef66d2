// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize maps provider-specific records into the canonical
// RawSignal shape. Each mapping is a pure function over decoded records,
// so adapters stay thin HTTP shells and the mapping rules are testable
// without a network.
package normalize

import (
	"strings"
	"time"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// GrantRecord is a decoded grants-registry entry.
type GrantRecord struct {
	Title       string
	Description string
	URL         string
	StartDate   string // YYYY-MM-DD, may be empty
	FundValue   float64
}

// WorkRecord is a decoded publication-index entry. Abstract is already
// reconstructed from the index's inverted form.
type WorkRecord struct {
	Title           string
	Abstract        string
	URL             string
	PublicationDate string // YYYY-MM-DD, may be empty
	CitedByCount    int
}

// WebResult is a decoded web-search entry.
type WebResult struct {
	Title       string
	Description string
	URL         string
}

// Grants maps grants-registry records to signals. Records without a title
// are dropped. A missing start date defaults to now; an undated grant is
// treated as still active rather than discarded.
func Grants(records []GrantRecord, mission string, now time.Time) []types.RawSignal {
	var signals []types.RawSignal
	for _, rec := range records {
		title := strings.TrimSpace(rec.Title)
		if title == "" {
			continue
		}

		date := now.UTC()
		if rec.StartDate != "" {
			if t, err := time.Parse("2006-01-02", rec.StartDate); err == nil {
				date = t.UTC()
			}
		}

		signals = append(signals, types.RawSignal{
			Source:   types.SourceGrants,
			Title:    title,
			URL:      rec.URL,
			Abstract: strings.TrimSpace(rec.Description),
			Date:     date,
			RawScore: rec.FundValue,
			Mission:  mission,
			Meta:     types.GrantsMeta{FundVal: rec.FundValue},
		})
	}
	return signals
}

// Works maps publication-index records to signals. Records without a title
// or without a parseable publication date are dropped entirely: an undated
// paper cannot be scored for recency and is treated as noise.
func Works(records []WorkRecord, mission string) []types.RawSignal {
	var signals []types.RawSignal
	for _, rec := range records {
		title := strings.TrimSpace(rec.Title)
		if title == "" {
			continue
		}

		t, err := time.Parse("2006-01-02", rec.PublicationDate)
		if err != nil {
			continue
		}

		signals = append(signals, types.RawSignal{
			Source:   types.SourcePublications,
			Title:    title,
			URL:      rec.URL,
			Abstract: strings.TrimSpace(rec.Abstract),
			Date:     t.UTC(),
			RawScore: float64(rec.CitedByCount),
			Mission:  mission,
			Meta:     types.PublicationMeta{CitedByCount: rec.CitedByCount},
		})
	}
	return signals
}

// shortWindows are the freshness tokens that mark a result as novel.
var shortWindows = map[string]bool{"pd": true, "pw": true}

// WebResults maps web-search records to signals. Search results carry no
// independent publish date, so every signal is stamped with the
// orchestrator's fetch time. Trust is placement-derived: rank 0 maps to
// 10.0, the last rank to 1.0.
func WebResults(records []WebResult, mission, freshness string, fetchedAt time.Time) []types.RawSignal {
	var kept []WebResult
	for _, rec := range records {
		if strings.TrimSpace(rec.Title) == "" {
			continue
		}
		kept = append(kept, rec)
	}

	total := len(kept)
	var signals []types.RawSignal
	for i, rec := range kept {
		trust := 10.0
		if total > 1 {
			trust = 10.0 - 9.0*float64(i)/float64(total-1)
		}

		signals = append(signals, types.RawSignal{
			Source:   types.SourceWebSearch,
			Title:    strings.TrimSpace(rec.Title),
			URL:      rec.URL,
			Abstract: strings.TrimSpace(rec.Description),
			Date:     fetchedAt.UTC(),
			RawScore: trust,
			Mission:  mission,
			Meta: types.SearchMeta{
				Trust:     trust,
				Rank:      i,
				Freshness: freshness,
			},
			IsNovel: shortWindows[freshness],
		})
	}
	return signals
}
