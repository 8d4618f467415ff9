package similarity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"strips punctuation", "What is REST? (explain!)", "what is rest explain"},
		{"punctuation separates tokens", "don't", "don t"},
		{"collapses whitespace", "a\t\tb\n\nc   d", "a b c d"},
		{"trims", "  padded  ", "padded"},
		{"digits survive", "http 2 vs http 3", "http 2 vs http 3"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("identical text scores 1.0", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("what does defer do", "what does defer do"))
	})

	t.Run("identical after normalization scores 1.0", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("What does DEFER do?", "what does defer do"))
	})

	t.Run("disjoint vocabularies score 0.0", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("alpha beta gamma", "delta epsilon zeta"))
	})

	t.Run("both empty score 1.0", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("", ""))
		assert.Equal(t, 1.0, Similarity("?!", "..."))
	})

	t.Run("one empty scores 0.0", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("something", ""))
	})

	t.Run("partial overlap is the jaccard index", func(t *testing.T) {
		// {a,b,c} vs {b,c,d}: intersection 2, union 4
		assert.InDelta(t, 0.5, Similarity("a b c", "b c d"), 1e-9)
	})

	t.Run("repeated tokens count once", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("go go go", "go"))
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := "goroutines and channels", "channels are typed conduits"
		assert.Equal(t, Similarity(a, b), Similarity(b, a))
	})
}

func TestCompare(t *testing.T) {
	a := Item{ID: 1, Text: "what is a goroutine"}
	b := Item{ID: 2, Text: "what is a goroutine exactly"}

	r := Compare(a, b, RedundancyThreshold)
	assert.Equal(t, int64(1), r.IDA)
	assert.Equal(t, int64(2), r.IDB)
	assert.True(t, r.IsDuplicate, "score %.2f should meet threshold", r.Score)

	r = Compare(a, Item{ID: 3, Text: "explain mutex contention"}, RedundancyThreshold)
	assert.False(t, r.IsDuplicate)
}

func TestFindDuplicateGroups(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	items := []Item{
		{ID: 1, Text: "what does the defer statement do in go", LastUpdated: base},
		{ID: 2, Text: "what does the defer statement do in go exactly", LastUpdated: base.Add(time.Hour)},
		{ID: 3, Text: "explain sql injection and how to prevent it", LastUpdated: base},
		{ID: 4, Text: "completely unrelated kubernetes networking question", LastUpdated: base},
	}

	groups := FindDuplicateGroups(items, RedundancyThreshold)
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 2)

	// Oldest first within the group
	assert.Equal(t, int64(1), groups[0][0].ID)
	assert.Equal(t, int64(2), groups[0][1].ID)
}

func TestFindDuplicateGroupsTransitive(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// a~b and b~c meet the threshold; a and c join the same group through b
	// even if a~c alone would not.
	items := []Item{
		{ID: 1, Text: "a b c d e", LastUpdated: base.Add(2 * time.Hour)},
		{ID: 2, Text: "b c d e f", LastUpdated: base},
		{ID: 3, Text: "c d e f g", LastUpdated: base.Add(time.Hour)},
	}

	groups := FindDuplicateGroups(items, 0.6)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 3)
	// Oldest member leads
	assert.Equal(t, int64(2), groups[0][0].ID)
}

func TestFindDuplicateGroupsSmallInputs(t *testing.T) {
	assert.Nil(t, FindDuplicateGroups(nil, 0.6))
	assert.Nil(t, FindDuplicateGroups([]Item{{ID: 1, Text: "alone"}}, 0.6))
	assert.Nil(t, FindDuplicateGroups([]Item{
		{ID: 1, Text: "alpha beta"},
		{ID: 2, Text: "gamma delta"},
	}, 0.6))
}

func TestKeeperOldestWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	group := []Item{
		{ID: 5, Text: "x", LastUpdated: base.Add(time.Hour)},
		{ID: 9, Text: "x", LastUpdated: base},
		{ID: 2, Text: "x", LastUpdated: base.Add(2 * time.Hour)},
	}

	keeper := Keeper(group)
	assert.Equal(t, int64(9), keeper.ID)

	candidates := RemovalCandidates(group)
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.NotEqual(t, keeper.ID, c.ID)
	}
}

func TestThresholdOrdering(t *testing.T) {
	// Scope < redundancy < exact; each call site tolerates less overlap
	assert.Less(t, ScopeThreshold, RedundancyThreshold)
	assert.Less(t, RedundancyThreshold, ExactThreshold)
}
