package tagnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(config.DefaultRules())
}

func TestNormalize_CaseAndSynonyms(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, "prog-metal", e.Normalize("PROG METAL"))
	assert.Equal(t, "prog-metal", e.Normalize("Progressive Metal"))
	assert.Equal(t, "prog-rock", e.Normalize("prog"))
	assert.Equal(t, "hip-hop", e.Normalize("Hip Hop"))
	assert.Equal(t, "electronic", e.Normalize("Electronica"))
}

func TestNormalize_CompoundVariantsCollapse(t *testing.T) {
	e := newTestEngine(t)

	want := e.Normalize("Post-Metal")
	assert.Equal(t, "post-metal", want)
	assert.Equal(t, want, e.Normalize("postmetal"))
	assert.Equal(t, want, e.Normalize("post metal"))
	assert.Equal(t, want, e.Normalize("Post - Metal"))
	assert.Equal(t, want, e.Normalize("POST  METAL"))
}

func TestNormalize_Idempotent(t *testing.T) {
	e := newTestEngine(t)

	inputs := []string{
		"PROG METAL", "Post-Metal", "blackmetal", "Nordic Folk",
		"pyschedelic rock", "Drum n Bass", "  doom   metal  ", "shoegazing",
	}
	for _, in := range inputs {
		once := e.Normalize(in)
		assert.Equal(t, once, e.Normalize(once), "normalize(%q) not idempotent", in)
	}
}

func TestNormalize_Misspellings(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, "psychedelic", e.Normalize("pyschedelic"))
	assert.Equal(t, "shoegaze", e.Normalize("Shoegazing"))
}

func TestNormalize_Regional(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, "scandinavian folk", e.Normalize("Nordic Folk"))
	assert.Equal(t, "german thrash metal", e.Normalize("teutonic thrash metal"))
}

func TestNormalize_FuzzyFallback(t *testing.T) {
	e := newTestEngine(t)

	// One deletion away from a known tag: similarity 7/8 = 0.875 >= 0.85.
	assert.Equal(t, "shoegaze", e.Normalize("shoegaz"))
	// Far from anything known: passes through cleaned.
	assert.Equal(t, "qqqqqqqq", e.Normalize("qqqqqqqq"))
}

func TestNormalize_EmptyAndJunk(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, "", e.Normalize(""))
	assert.Equal(t, "", e.Normalize("   "))
	assert.Equal(t, "", e.Normalize("!!!"))
}

func TestNormalize_Deterministic(t *testing.T) {
	// Two independent engines over the same rules agree, cache or not.
	a := newTestEngine(t)
	b := newTestEngine(t)

	inputs := []string{"blck metal", "post rock", "Doom", "atmospheric  black  metal"}
	for _, in := range inputs {
		first := a.Normalize(in)
		assert.Equal(t, first, a.Normalize(in))
		assert.Equal(t, first, b.Normalize(in))
	}

	a.ClearCache()
	for _, in := range inputs {
		assert.Equal(t, b.Normalize(in), a.Normalize(in))
	}
}

func TestAddKnownTags_AffectsFuzzyStage(t *testing.T) {
	e := newTestEngine(t)

	// Unknown before: stays cleaned.
	assert.Equal(t, "zeuhlx", e.Normalize("Zeuhlx"))

	e.AddKnownTags("zeuhl")
	require.True(t, e.IsKnown("zeuhl"))
	assert.Equal(t, "zeuhl", e.Normalize("Zeuhl"))
}

func TestCategory(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		tag  string
		want domain.Category
	}{
		{"Atmospheric Black Metal", domain.CategoryMetal},
		{"post rock", domain.CategoryRock},
		{"Shoegaze", domain.CategoryRock},
		{"dark ambient", domain.CategoryElectronic},
		{"free jazz", domain.CategoryJazz},
		{"neo folk", domain.CategoryFolk},
		{"hardcore punk", domain.CategoryPunk},
		{"disco", domain.CategoryPop},
		{"avant garde", domain.CategoryExperimental},
		{"qqqqqqqq", domain.CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Category(tt.tag), "category of %q", tt.tag)
	}
}

func TestDecompose(t *testing.T) {
	e := newTestEngine(t)

	parts, ok := e.Decompose("Atmospheric Black Metal")
	require.True(t, ok)
	assert.Equal(t, []string{"atmospheric", "black", "metal"}, parts)

	// Hyphenated spelling of a table key decomposes too.
	parts, ok = e.Decompose("melodic-death-metal")
	require.True(t, ok)
	assert.Equal(t, []string{"melodic", "death", "metal"}, parts)

	_, ok = e.Decompose("shoegaze")
	assert.False(t, ok)
}

func TestSetRules_ClearsCache(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, "prog-metal", e.Normalize("prog metal"))

	rules := config.DefaultRules()
	rules.Normalization.Synonyms["prog metal"] = "progressive-metal"
	rules.Normalization.KnownTags = append(rules.Normalization.KnownTags, "progressive-metal")
	e.SetRules(rules)

	assert.Equal(t, "progressive-metal", e.Normalize("prog metal"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("metal", "metal"))
	assert.Equal(t, 0.0, Similarity("", "metal"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.InDelta(t, 0.875, Similarity("shoegaz", "shoegaze"), 0.001)
	// Symmetric.
	assert.Equal(t, Similarity("doom", "dooom"), Similarity("dooom", "doom"))
}
