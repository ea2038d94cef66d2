// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scancache memoizes the expensive multi-provider fetch per
// (topic, mode, cutoff-day) key. Entries expire a fixed TTL after their
// fetch time, not at day boundaries. The cache hands out deep copies in
// both directions: callers may mutate returned signals (attach missions,
// scores) without corrupting the stored snapshot.
//
// The cache is unbounded, with no LRU or sized eviction. Acceptable for the
// target traffic pattern of tens to hundreds of distinct topics per
// process lifetime; a known scaling limit beyond that.
package scancache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// Entry is one cached fetch: the raw-signal snapshot, the related-term
// snapshot, the provider warnings raised during the fetch, and the fetch
// timestamp the TTL is measured from. Warnings ride along so a hit on a
// partially failed fetch still reports which providers were missing.
type Entry struct {
	FetchedAt time.Time
	Signals   []types.RawSignal
	Terms     []string
	Warnings  []string
}

// Cache memoizes fetch results with a fixed TTL. Construct once at
// orchestrator-construction time and inject; tests substitute a fresh
// cache (and clock) per run.
type Cache struct {
	store *gocache.Cache
	ttl   time.Duration

	// now is the clock; tests override it to step time without sleeping.
	now func() time.Time
}

// New creates a cache with the given TTL (24h when zero or negative).
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{
		// Staleness is checked against the entry's own fetch time; the
		// backing store's expiry only garbage-collects long-dead entries.
		store: gocache.New(2*ttl, 10*time.Minute),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Key normalizes a (topic, mode, cutoff) triple into a cache key. The
// topic is trimmed and case-folded; the cutoff is truncated to day
// granularity so all requests within one calendar day against the same
// cutoff share an entry.
func Key(topic, mode string, cutoff time.Time) string {
	return strings.ToLower(strings.TrimSpace(topic)) + "|" + mode + "|" + cutoff.UTC().Format("2006-01-02")
}

// Get returns a deep copy of the entry for key, or ok=false on a miss or
// a stale entry.
func (c *Cache) Get(key string) (Entry, bool) {
	v, found := c.store.Get(key)
	if !found {
		return Entry{}, false
	}
	entry := v.(Entry)
	if c.now().Sub(entry.FetchedAt) > c.ttl {
		return Entry{}, false
	}
	return entry.clone(), true
}

// Put stores a deep copy of the signals, terms and warnings under key,
// stamped with the current fetch time.
func (c *Cache) Put(key string, signals []types.RawSignal, terms, warnings []string) {
	entry := Entry{
		FetchedAt: c.now(),
		Signals:   types.CloneSignals(signals),
		Terms:     append([]string(nil), terms...),
		Warnings:  append([]string(nil), warnings...),
	}
	c.store.Set(key, entry, gocache.DefaultExpiration)
}

func (e Entry) clone() Entry {
	return Entry{
		FetchedAt: e.FetchedAt,
		Signals:   types.CloneSignals(e.Signals),
		Terms:     append([]string(nil), e.Terms...),
		Warnings:  append([]string(nil), e.Warnings...),
	}
}
