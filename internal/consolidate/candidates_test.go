package consolidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/tagnorm"
)

func newTestFinder(t *testing.T) *Finder {
	t.Helper()
	rules := config.DefaultRules()
	return NewFinder(tagnorm.NewEngine(rules), rules)
}

func makeTag(id, name string, frequency int) *domain.Tag {
	return &domain.Tag{
		ID:          id,
		Name:        name,
		Frequency:   frequency,
		IsCanonical: true,
	}
}

func TestIdentifyMergeCandidates_GroupsSpellingVariants(t *testing.T) {
	f := newTestFinder(t)

	tags := []*domain.Tag{
		makeTag("t1", "black metal", 50),
		makeTag("t2", "blackmetal", 3),
		makeTag("t3", "atmospheric", 10),
	}

	candidates := f.IdentifyMergeCandidates(tags, 0.8)

	require.Contains(t, candidates, "t1")
	require.Contains(t, candidates, "t2")
	assert.NotContains(t, candidates, "t3")

	require.Len(t, candidates["t1"], 1)
	assert.Equal(t, "t2", candidates["t1"][0].TagB.ID)
	assert.GreaterOrEqual(t, candidates["t1"][0].Score, 0.8)

	// Symmetric entry.
	require.Len(t, candidates["t2"], 1)
	assert.Equal(t, "t1", candidates["t2"][0].TagB.ID)
	assert.Equal(t, candidates["t1"][0].Score, candidates["t2"][0].Score)
}

func TestIdentifyMergeCandidates_IdenticalNormalizationScoresOne(t *testing.T) {
	f := newTestFinder(t)

	tags := []*domain.Tag{
		makeTag("t1", "Prog Metal", 5),
		makeTag("t2", "progressive metal", 8),
	}

	candidates := f.IdentifyMergeCandidates(tags, 0.8)
	require.Contains(t, candidates, "t1")
	assert.Equal(t, 1.0, candidates["t1"][0].Score)
}

func TestIdentifyMergeCandidates_ThresholdExcludes(t *testing.T) {
	f := newTestFinder(t)

	tags := []*domain.Tag{
		makeTag("t1", "swing", 5),
		makeTag("t2", "house", 5),
	}

	candidates := f.IdentifyMergeCandidates(tags, 0.8)
	assert.Empty(t, candidates)
}

func TestIdentifyMergeCandidates_SortedByScore(t *testing.T) {
	f := newTestFinder(t)

	tags := []*domain.Tag{
		makeTag("t1", "doom metal", 20),
		makeTag("t2", "doommetal", 4),
		makeTag("t3", "doom  metal", 2),
	}

	candidates := f.IdentifyMergeCandidates(tags, 0.8)
	require.Contains(t, candidates, "t1")
	list := candidates["t1"]
	require.Len(t, list, 2)
	assert.GreaterOrEqual(t, list[0].Score, list[1].Score)
}

func TestSuggestMerges_RankedAndDeduplicated(t *testing.T) {
	f := newTestFinder(t)

	tags := []*domain.Tag{
		makeTag("t1", "black metal", 50),
		makeTag("t2", "blackmetal", 3),
		makeTag("t3", "doom metal", 7),
		makeTag("t4", "doommetal", 2),
	}

	suggestions := f.SuggestMerges(tags, 0.8, 0)
	require.Len(t, suggestions, 2)

	// Highest combined frequency first; each pair appears once.
	assert.Equal(t, 53, suggestions[0].CombinedFrequency())
	assert.Equal(t, 9, suggestions[1].CombinedFrequency())
}

func TestSuggestMerges_MinFrequencyFilters(t *testing.T) {
	f := newTestFinder(t)

	tags := []*domain.Tag{
		makeTag("t1", "black metal", 4),
		makeTag("t2", "blackmetal", 3),
	}

	assert.Len(t, f.SuggestMerges(tags, 0.8, 0), 1)
	assert.Len(t, f.SuggestMerges(tags, 0.8, 4), 1)
	assert.Empty(t, f.SuggestMerges(tags, 0.8, 5))
}

func TestSuggestMerges_Deterministic(t *testing.T) {
	f := newTestFinder(t)

	tags := []*domain.Tag{
		makeTag("t1", "black metal", 5),
		makeTag("t2", "blackmetal", 5),
		makeTag("t3", "doom metal", 5),
		makeTag("t4", "doommetal", 5),
	}

	first := f.SuggestMerges(tags, 0.8, 0)
	for i := 0; i < 5; i++ {
		again := f.SuggestMerges(tags, 0.8, 0)
		require.Equal(t, first, again)
	}
}
