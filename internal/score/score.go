// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score derives activity, attention, and recency sub-scores for
// raw signals and classifies each into a qualitative typology. Scoring is
// a pure function per signal; signals older than the lookback cutoff are
// filtered out before scoring.
package score

import (
	"math"
	"time"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// Composite weights. Fixed constants, reproduced exactly; they sum to 1.0.
const (
	weightActivity  = 0.3
	weightAttention = 0.3
	weightRecency   = 0.4
)

// Sub-score inputs and caps.
const (
	// subScoreCeiling caps every sub-score.
	subScoreCeiling = 10.0

	// grantDivisor converts a funding value into an activity sub-score.
	grantDivisor = 100000.0

	// citationDivisor converts a citation count into an attention sub-score.
	citationDivisor = 100.0

	// searchAttentionBaseline is the constant attention for web-search
	// signals. Search-engine placement is modeled as roughly uniform
	// attention rather than rank-scaled.
	searchAttentionBaseline = 5.0
)

// Typology thresholds. Fixed constants, not configurable per call.
const (
	activityThreshold = 6.0
	attentionFloor    = 5.0
	hypeAttention     = 6.0
)

// All filters signals by the recency cutoff and scores the survivors in
// order. The cutoff is now minus lookback, inclusive at the boundary
// instant: a signal dated exactly at the cutoff is retained. A signal
// newer than now (clock skew) flows through normally.
func All(signals []types.RawSignal, now time.Time, lookback time.Duration) []types.ScoredSignal {
	cutoff := now.Add(-lookback)
	var scored []types.ScoredSignal
	for _, s := range signals {
		if s.Date.Before(cutoff) {
			continue
		}
		scored = append(scored, One(s, now, lookback))
	}
	return scored
}

// One scores a single signal that has already passed the cutoff filter.
func One(s types.RawSignal, now time.Time, lookback time.Duration) types.ScoredSignal {
	activity := activityScore(s.Meta)
	attention := attentionScore(s.Meta)
	recency := recencyScore(s.Date, now, lookback)

	return types.ScoredSignal{
		RawSignal:  s,
		Activity:   activity,
		Attention:  attention,
		Recency:    recency,
		FinalScore: weightActivity*activity + weightAttention*attention + weightRecency*recency,
		Typology:   Classify(activity, attention),
	}
}

// activityScore is source-dependent: grants convert funding value,
// publications contribute nothing (citations are attention, not activity),
// web search contributes its placement-derived trust.
func activityScore(meta types.SourceMeta) float64 {
	switch m := meta.(type) {
	case types.GrantsMeta:
		return cap10(m.FundVal / grantDivisor)
	case types.PublicationMeta:
		return 0
	case types.SearchMeta:
		return cap10(m.Trust)
	default:
		return 0
	}
}

// attentionScore is source-dependent: publications convert citation
// count, web search gets the fixed baseline, grants contribute nothing.
func attentionScore(meta types.SourceMeta) float64 {
	switch m := meta.(type) {
	case types.GrantsMeta:
		return 0
	case types.PublicationMeta:
		return cap10(float64(m.CitedByCount) / citationDivisor)
	case types.SearchMeta:
		return searchAttentionBaseline
	default:
		return 0
	}
}

// recencyScore decays linearly from the ceiling at age zero to zero at
// the cutoff boundary. Continuous and deterministic; negative age (a
// future-dated signal) clamps to the ceiling.
func recencyScore(date, now time.Time, lookback time.Duration) float64 {
	if lookback <= 0 {
		return subScoreCeiling
	}
	age := now.Sub(date)
	raw := subScoreCeiling * (1 - float64(age)/float64(lookback))
	return cap10(raw)
}

// Classify assigns the typology quadrant from the activity/attention pair.
func Classify(activity, attention float64) string {
	switch {
	case activity > activityThreshold && attention < attentionFloor:
		return types.TypologyHiddenGem
	case activity > activityThreshold:
		return types.TypologyEstablished
	case attention > hypeAttention:
		return types.TypologyHype
	default:
		return types.TypologyNascent
	}
}

func cap10(v float64) float64 {
	return math.Min(math.Max(v, 0), subScoreCeiling)
}
