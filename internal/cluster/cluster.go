// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cluster groups a signal set into labeled narrative themes. Each
// signal's title and summary text is vectorized with stop-word-filtered
// TF-IDF weights, the vectors are partitioned with k-means, and each
// group is labeled with its top-weighted distinguishing terms.
//
// The grouping is approximate and only deterministic for a fixed seed;
// tests pin the seed and assert structural properties rather than exact
// membership.
package cluster

import (
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// minSignals is the smallest set worth grouping. Below it Group returns
// an empty list.
const minSignals = 3

// maxIterations bounds the k-means refinement loop.
const maxIterations = 20

// labelTerms is how many distinguishing terms form a cluster label.
const labelTerms = 3

// tokenPattern splits text into alphanumeric runs.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// stopWords are filtered before vectorization.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "have": true,
	"in": true, "is": true, "it": true, "its": true, "new": true, "of": true,
	"on": true, "or": true, "that": true, "the": true, "this": true, "to": true,
	"was": true, "were": true, "will": true, "with": true,
}

// Group partitions signals into k = max(2, n/5) labeled themes, sorted by
// descending member count. Every input signal lands in exactly one group.
// Fewer than three signals returns an empty list.
func Group(cards []types.SignalCard, seed int64) []types.Cluster {
	n := len(cards)
	if n < minSignals {
		return nil
	}

	vocab, vectors := vectorize(cards)
	k := n / 5
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(seed))
	assignments := kmeans(vectors, k, rng)

	members := make([][]int, k)
	for i, c := range assignments {
		members[c] = append(members[c], i)
	}

	var clusters []types.Cluster
	for _, idxs := range members {
		if len(idxs) == 0 {
			continue
		}
		keywords := topTerms(vectors, idxs, vocab, labelTerms)
		cl := types.Cluster{
			Title:    labelFromTerms(keywords),
			Keywords: keywords,
			Count:    len(idxs),
		}
		for _, i := range idxs {
			cl.Signals = append(cl.Signals, cards[i])
		}
		clusters = append(clusters, cl)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})
	for i := range clusters {
		clusters[i].ID = i + 1
	}
	return clusters
}

// vectorize builds sparse TF-IDF vectors over title+summary text.
func vectorize(cards []types.SignalCard) ([]string, []map[int]float64) {
	termIndex := make(map[string]int)
	var vocab []string
	docFreq := make(map[int]int)
	termCounts := make([]map[int]int, len(cards))

	for i, card := range cards {
		counts := make(map[int]int)
		for _, tok := range tokenize(card.Title + " " + card.Summary) {
			idx, ok := termIndex[tok]
			if !ok {
				idx = len(vocab)
				termIndex[tok] = idx
				vocab = append(vocab, tok)
			}
			counts[idx]++
		}
		for idx := range counts {
			docFreq[idx]++
		}
		termCounts[i] = counts
	}

	n := float64(len(cards))
	vectors := make([]map[int]float64, len(cards))
	for i, counts := range termCounts {
		vec := make(map[int]float64, len(counts))
		var norm float64
		for idx, tf := range counts {
			idf := math.Log(n/float64(docFreq[idx])) + 1.0
			w := float64(tf) * idf
			vec[idx] = w
			norm += w * w
		}
		// Unit-normalize so k-means distance reflects direction, not length.
		if norm > 0 {
			norm = math.Sqrt(norm)
			for idx := range vec {
				vec[idx] /= norm
			}
		}
		vectors[i] = vec
	}
	return vocab, vectors
}

func tokenize(text string) []string {
	var tokens []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(tok) < 2 || stopWords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// kmeans partitions vectors into k groups and returns the assignment per
// vector. Centroids are seeded from distinct random vectors; an emptied
// cluster is reseeded with a random vector.
func kmeans(vectors []map[int]float64, k int, rng *rand.Rand) []int {
	centroids := make([]map[int]float64, k)
	for i, p := range rng.Perm(len(vectors))[:k] {
		centroids[i] = copyVec(vectors[p])
	}

	assignments := make([]int, len(vectors))
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, vec := range vectors {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := sqDist(vec, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids as member means.
		sums := make([]map[int]float64, k)
		sizes := make([]int, k)
		for i := range sums {
			sums[i] = make(map[int]float64)
		}
		for i, vec := range vectors {
			c := assignments[i]
			sizes[c]++
			for idx, w := range vec {
				sums[c][idx] += w
			}
		}
		for c := range centroids {
			if sizes[c] == 0 {
				centroids[c] = copyVec(vectors[rng.Intn(len(vectors))])
				continue
			}
			for idx := range sums[c] {
				sums[c][idx] /= float64(sizes[c])
			}
			centroids[c] = sums[c]
		}
	}
	return assignments
}

func copyVec(v map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(v))
	for k, w := range v {
		out[k] = w
	}
	return out
}

func sqDist(a, b map[int]float64) float64 {
	var d float64
	for idx, w := range a {
		diff := w - b[idx]
		d += diff * diff
	}
	for idx, w := range b {
		if _, ok := a[idx]; !ok {
			d += w * w
		}
	}
	return d
}

// topTerms returns the highest-weighted terms across a group's vectors.
func topTerms(vectors []map[int]float64, idxs []int, vocab []string, limit int) []string {
	weights := make(map[int]float64)
	for _, i := range idxs {
		for idx, w := range vectors[i] {
			weights[idx] += w
		}
	}

	type termWeight struct {
		idx int
		w   float64
	}
	ranked := make([]termWeight, 0, len(weights))
	for idx, w := range weights {
		ranked = append(ranked, termWeight{idx: idx, w: w})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].w != ranked[j].w {
			return ranked[i].w > ranked[j].w
		}
		return ranked[i].idx < ranked[j].idx
	})

	if limit > len(ranked) {
		limit = len(ranked)
	}
	terms := make([]string, limit)
	for i := 0; i < limit; i++ {
		terms[i] = vocab[ranked[i].idx]
	}
	return terms
}

// labelFromTerms builds a human-readable theme label: the terms
// title-cased and joined.
func labelFromTerms(terms []string) string {
	if len(terms) == 0 {
		return "Misc"
	}
	cased := make([]string, len(terms))
	for i, term := range terms {
		cased[i] = strings.ToUpper(term[:1]) + term[1:]
	}
	return strings.Join(cased, " / ")
}
