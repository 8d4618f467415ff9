// Package similarity implements lexical near-duplicate detection: text
// normalization, Jaccard similarity over token sets, and threshold-based
// grouping. An optional vector backend accelerates lookup over large corpora;
// without one the engine degrades to pure pairwise comparison.
package similarity

import (
	"sort"
	"strings"
	"time"
)

// Thresholds in use across the pipeline. The right value is call-site
// specific: scope checks tolerate loose overlap, redundancy scans want
// moderate overlap, ingestion rejects only near-exact matches.
const (
	// ScopeThreshold flags minimal topical overlap ("is this in scope").
	ScopeThreshold = 0.2
	// RedundancyThreshold is the general redundancy-scan cutoff.
	RedundancyThreshold = 0.6
	// ExactThreshold rejects near-exact duplicates at ingestion time.
	ExactThreshold = 0.85
)

// Item is one corpus entry under comparison. Ephemeral: similarity results
// are consumed immediately by the calling bot, never persisted.
type Item struct {
	ID          int64
	Text        string
	LastUpdated time.Time
}

// Result is one pairwise comparison outcome.
type Result struct {
	IDA         int64
	IDB         int64
	Score       float64
	IsDuplicate bool
}

// Normalize lowercases the text, strips every character outside [a-z0-9] and
// whitespace, and collapses runs of whitespace to single spaces.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			// Non-alphanumeric characters separate tokens the same way
			// whitespace does ("don't" → "don t", not "dont").
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// TokenSet returns the set of unique whitespace-delimited normalized tokens.
func TokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(Normalize(text)) {
		set[tok] = struct{}{}
	}
	return set
}

// Similarity computes the Jaccard index over the unique normalized token sets
// of a and b: |intersection| / |union|. Identical normalized text scores 1.0,
// fully disjoint vocabularies score 0.0. Two empty texts are identical.
func Similarity(a, b string) float64 {
	setA := TokenSet(a)
	setB := TokenSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// Compare runs one pairwise comparison against a threshold.
func Compare(a, b Item, threshold float64) Result {
	score := Similarity(a.Text, b.Text)
	return Result{
		IDA:         a.ID,
		IDB:         b.ID,
		Score:       score,
		IsDuplicate: score >= threshold,
	}
}

// FindDuplicateGroups runs pairwise comparison over the corpus (O(n²)) and
// groups all items whose similarity to any group member meets the threshold.
// Only groups of two or more items are returned, each sorted oldest first.
func FindDuplicateGroups(items []Item, threshold float64) [][]Item {
	n := len(items)
	if n < 2 {
		return nil
	}

	// Token sets computed once per item, not per pair
	sets := make([]map[string]struct{}, n)
	for i, item := range items {
		sets[i] = TokenSet(item.Text)
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[rj] = ri
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if jaccard(sets[i], sets[j]) >= threshold {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]Item)
	for i, item := range items {
		root := find(i)
		byRoot[root] = append(byRoot[root], item)
	}

	var groups [][]Item
	for _, group := range byRoot {
		if len(group) < 2 {
			continue
		}
		sortOldestFirst(group)
		groups = append(groups, group)
	}
	// Deterministic output order: by keeper id
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0].ID < groups[j][0].ID
	})
	return groups
}

// Keeper returns the member of a confirmed duplicate group that should be
// retained: the one with the earliest last-modified timestamp (oldest wins).
func Keeper(group []Item) Item {
	keeper := group[0]
	for _, item := range group[1:] {
		if item.LastUpdated.Before(keeper.LastUpdated) {
			keeper = item
		}
	}
	return keeper
}

// RemovalCandidates returns every group member except the keeper.
func RemovalCandidates(group []Item) []Item {
	keeper := Keeper(group)
	var candidates []Item
	for _, item := range group {
		if item.ID != keeper.ID {
			candidates = append(candidates, item)
		}
	}
	return candidates
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(a)+len(b)-intersection)
}

func sortOldestFirst(group []Item) {
	sort.Slice(group, func(i, j int) bool {
		if group[i].LastUpdated.Equal(group[j].LastUpdated) {
			return group[i].ID < group[j].ID
		}
		return group[i].LastUpdated.Before(group[j].LastUpdated)
	})
}
