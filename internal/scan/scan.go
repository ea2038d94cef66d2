// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan sequences the signal pipeline: cached multi-provider
// fetch, scoring, deduplication, optional clustering and synthesis.
// Named scan modes are compositions of the same primitives, differing
// only in which adapters run, the freshness windows requested, the
// lookback horizon, and which optional stages engage.
package scan

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phia-francis/nesta-signal-scout-sub000/internal/cluster"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/dedupe"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/expand"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/scancache"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/score"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/sources"
	"github.com/phia-francis/nesta-signal-scout-sub000/internal/synthesis"
	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// Lookback horizons. Deep dives reach five years back; everything else
// uses one year.
const (
	defaultLookback = 365 * 24 * time.Hour
	deepLookback    = 5 * 365 * 24 * time.Hour
)

// cardDateFormat renders signal dates for presentation.
const cardDateFormat = "2 Jan 2006"

// Mode describes one named scan variant.
type Mode struct {
	Name        string
	Description string

	// Sources lists the adapter names this mode invokes.
	Sources []string

	// Freshness lists the web-search window tokens to request.
	Freshness []string

	// Lookback is the recency horizon for the cutoff filter.
	Lookback time.Duration

	// Cluster enables narrative-theme grouping of the output cards.
	Cluster bool

	// Synthesize enables the generative narrative stage.
	Synthesize bool
}

// Modes is the registry of named scan variants.
var Modes = map[string]Mode{
	"radar": {
		Name:        "radar",
		Description: "broad sweep across all providers over the past year",
		Sources:     []string{types.SourceGrants, types.SourcePublications, types.SourceWebSearch},
		Freshness:   []string{"pw", "pm"},
		Lookback:    defaultLookback,
		Cluster:     true,
	},
	"deep": {
		Name:        "deep",
		Description: "five-year dive with clustering and narrative synthesis",
		Sources:     []string{types.SourceGrants, types.SourcePublications, types.SourceWebSearch},
		Freshness:   []string{"pm", "py"},
		Lookback:    deepLookback,
		Cluster:     true,
		Synthesize:  true,
	},
	"quick": {
		Name:        "quick",
		Description: "web search only, freshest windows, no grouping",
		Sources:     []string{types.SourceWebSearch},
		Freshness:   []string{"pd", "pw"},
		Lookback:    defaultLookback,
	},
	"monitor": {
		Name:        "monitor",
		Description: "short-window watch on grants and web search",
		Sources:     []string{types.SourceGrants, types.SourceWebSearch},
		Freshness:   []string{"pd", "pw"},
		Lookback:    defaultLookback,
	},
	"research": {
		Name:        "research",
		Description: "five-year grants and publications landscape",
		Sources:     []string{types.SourceGrants, types.SourcePublications},
		Lookback:    deepLookback,
		Cluster:     true,
		Synthesize:  true,
	},
	"intelligence": {
		Name:        "intelligence",
		Description: "all providers over the past year with a decision brief",
		Sources:     []string{types.SourceGrants, types.SourcePublications, types.SourceWebSearch},
		Freshness:   []string{"pw", "pm"},
		Lookback:    defaultLookback,
		Cluster:     true,
		Synthesize:  true,
	},
}

// ModeNames returns the registered mode names, sorted.
func ModeNames() []string {
	names := make([]string, 0, len(Modes))
	for name := range Modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CardStore is the persistence collaborator. Saving is fire-and-forget
// from the pipeline's perspective.
type CardStore interface {
	SaveCards(ctx context.Context, topic, mode string, cards []types.SignalCard) error
}

// Result is the outcome of one scan.
type Result struct {
	Topic     string               `json:"topic" yaml:"topic"`
	Mode      string               `json:"mode" yaml:"mode"`
	Cards     []types.SignalCard   `json:"cards" yaml:"cards"`
	Clusters  []types.Cluster      `json:"clusters,omitempty" yaml:"clusters,omitempty"`
	Narrative *synthesis.Synthesis `json:"narrative,omitempty" yaml:"narrative,omitempty"`
	Warnings  []string             `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Deps holds the orchestrator's collaborators. Adapters and Cache are
// required; the rest are optional and their stages degrade gracefully
// when absent.
type Deps struct {
	Adapters    []sources.Adapter
	Cache       *scancache.Cache
	Expander    expand.Expander
	Synthesizer synthesis.Synthesizer
	Store       CardStore

	// Warn receives progress and warning lines. Defaults to io.Discard.
	Warn io.Writer
}

// Scanner runs scans. Construct once per process and reuse; the cache
// lives as long as the scanner.
type Scanner struct {
	adapters []sources.Adapter
	cache    *scancache.Cache
	expander expand.Expander
	synth    synthesis.Synthesizer
	store    CardStore
	cfg      types.ScoutConfig
	warn     io.Writer

	// saves tracks in-flight persistence goroutines for Drain.
	saves sync.WaitGroup

	// now is the clock; tests override it to pin the cutoff.
	now func() time.Time
}

// New builds a scanner from its collaborators.
func New(cfg types.ScoutConfig, deps Deps) *Scanner {
	warn := deps.Warn
	if warn == nil {
		warn = io.Discard
	}
	cache := deps.Cache
	if cache == nil {
		cache = scancache.New(cfg.Scan.CacheTTL)
	}
	return &Scanner{
		adapters: deps.Adapters,
		cache:    cache,
		expander: deps.Expander,
		synth:    deps.Synthesizer,
		store:    deps.Store,
		cfg:      cfg,
		warn:     warn,
		now:      time.Now,
	}
}

// Scan runs the pipeline for a topic under the named mode. A single
// failing provider degrades to a warning; only invalid input or an
// unknown mode returns an error. An all-providers-failed scan returns an
// empty card list plus the warnings explaining why.
func (s *Scanner) Scan(ctx context.Context, topic, mission, modeName string) (*Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}
	mode, ok := Modes[modeName]
	if !ok {
		return nil, fmt.Errorf("unknown mode %q (have: %s)", modeName, strings.Join(ModeNames(), ", "))
	}

	now := s.now().UTC()
	cutoff := now.Add(-mode.Lookback)

	signals, terms, warnings := s.fetch(ctx, topic, mission, mode, cutoff)

	// Cached snapshots predate this call's mission; stamp it everywhere.
	for i := range signals {
		signals[i].Mission = mission
	}

	scored := score.All(signals, now, mode.Lookback)
	deduped := dedupe.Signals(scored)

	// Merge order is adapter invocation order; presentation order is an
	// explicit sort by composite score.
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].FinalScore > deduped[j].FinalScore
	})

	cards := make([]types.SignalCard, len(deduped))
	for i, sig := range deduped {
		cards[i] = types.SignalCard{
			Source:          sig.Source,
			Title:           sig.Title,
			URL:             sig.URL,
			Summary:         sig.Abstract,
			Date:            sig.Date.Format(cardDateFormat),
			FinalScore:      sig.FinalScore,
			Typology:        sig.Typology,
			Mission:         sig.Mission,
			IsNovel:         sig.IsNovel,
			RelatedKeywords: terms,
			Status:          "new",
		}
	}

	result := &Result{
		Topic:    topic,
		Mode:     mode.Name,
		Cards:    cards,
		Warnings: warnings,
	}

	if mode.Cluster {
		result.Clusters = cluster.Group(cards, s.cfg.Scan.ClusterSeed)
	}

	if mode.Synthesize {
		result.Narrative = s.synthesize(ctx, topic, mode.Name, cards)
	}

	s.persist(topic, mode.Name, cards)

	return result, nil
}

// fetch returns the raw signals and related terms for a scan, from the
// cache when a fresh entry exists, otherwise from the providers.
func (s *Scanner) fetch(ctx context.Context, topic, mission string, mode Mode, cutoff time.Time) ([]types.RawSignal, []string, []string) {
	key := scancache.Key(topic, mode.Name, cutoff)
	if entry, ok := s.cache.Get(key); ok {
		fmt.Fprintf(s.warn, "cache hit for %q (%s)\n", topic, mode.Name)
		return entry.Signals, entry.Terms, entry.Warnings
	}

	adapters := s.selectAdapters(mode)
	q := sources.Query{
		Topic:     topic,
		Mission:   mission,
		From:      cutoff,
		Freshness: mode.Freshness,
		FetchedAt: s.now().UTC(),
	}
	signals, warnings := sources.FetchAll(ctx, adapters, q, s.cfg.Sources.Timeout, s.warn)

	terms := expand.Terms(ctx, s.expander, []string{topic}, s.cfg.Scan.RelatedTerms)

	// A fetch where every provider failed is never cached: the next scan
	// retries the providers instead of replaying an empty snapshot for
	// the rest of the TTL.
	if len(signals) > 0 || len(warnings) == 0 {
		s.cache.Put(key, signals, terms, warnings)
	}
	return signals, terms, warnings
}

func (s *Scanner) selectAdapters(mode Mode) []sources.Adapter {
	wanted := make(map[string]bool, len(mode.Sources))
	for _, name := range mode.Sources {
		wanted[name] = true
	}
	var selected []sources.Adapter
	for _, a := range s.adapters {
		if wanted[a.Name()] {
			selected = append(selected, a)
		}
	}
	return selected
}

// synthesize runs the narrative stage. An unconfigured or failing
// collaborator yields the well-known unavailable sentinel, never an
// error.
func (s *Scanner) synthesize(ctx context.Context, topic, mode string, cards []types.SignalCard) *synthesis.Synthesis {
	if s.synth == nil || len(cards) == 0 {
		unavailable := synthesis.Unavailable
		return &unavailable
	}

	out, err := s.synth.Synthesize(ctx, synthesis.Request{
		Topic:   topic,
		Mode:    mode,
		Context: FormatContext(cards),
	})
	if err != nil {
		fmt.Fprintf(s.warn, "warning: synthesis unavailable: %v\n", err)
		unavailable := synthesis.Unavailable
		return &unavailable
	}
	return &out
}

// persist hands cards to the persistence collaborator without blocking
// the pipeline. Failures are logged, never propagated.
func (s *Scanner) persist(topic, mode string, cards []types.SignalCard) {
	if s.store == nil || len(cards) == 0 {
		return
	}
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.store.SaveCards(ctx, topic, mode, cards); err != nil {
			fmt.Fprintf(s.warn, "warning: card persistence failed: %v\n", err)
		}
	}()
}

// Drain blocks until in-flight card persistence finishes. Call it before
// closing the store; without it a short-lived process can exit ahead of
// the save.
func (s *Scanner) Drain() {
	s.saves.Wait()
}

// FormatContext renders the top cards as the synthesis context text.
func FormatContext(cards []types.SignalCard) string {
	const maxContextCards = 15
	if len(cards) > maxContextCards {
		cards = cards[:maxContextCards]
	}
	var b strings.Builder
	for i, card := range cards {
		fmt.Fprintf(&b, "%d. [%s, %s, score %.1f] %s", i+1, card.Source, card.Typology, card.FinalScore, card.Title)
		if card.Summary != "" {
			fmt.Fprintf(&b, ": %s", truncate(card.Summary, 300))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
