// Package tagnorm canonicalizes free-text genre/style tags and gates what is
// allowed into the catalog. Normalization is a fixed pipeline of rule-table
// lookups with a bounded fuzzy fallback; it is pure and deterministic for a
// fixed rule configuration.
package tagnorm

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/domain"
)

var (
	// Keeps word characters, spaces, hyphens, apostrophes.
	disallowedChars = regexp.MustCompile(`[^\w\s'-]+`)
	// Collapses runs of whitespace.
	repeatedSpace = regexp.MustCompile(`\s+`)
	// Standardizes spacing around hyphens: "post - metal" -> "post-metal".
	spacedHyphen = regexp.MustCompile(`\s*-\s*`)
	// Collapses runs of hyphens.
	repeatedHyphen = regexp.MustCompile(`-{2,}`)
)

// Engine is the tag normalization engine. Safe for concurrent use.
// Results are memoized per input; clearing the cache never changes outputs.
type Engine struct {
	mu    sync.RWMutex
	rules *config.Rules
	known map[string]struct{}
	// knownSorted mirrors known in sorted order so the fuzzy fallback
	// always scans candidates deterministically.
	knownSorted []string
	cache       map[string]string
}

// NewEngine creates an engine from the given rule tables. The known-tag
// vocabulary starts from the rules' seed list; grow it with AddKnownTags as
// tags are loaded from the store.
func NewEngine(rules *config.Rules) *Engine {
	e := &Engine{
		rules: rules,
		known: make(map[string]struct{}),
		cache: make(map[string]string),
	}
	e.addKnownLocked(rules.Normalization.KnownTags)
	return e
}

// SetRules swaps in freshly loaded rule tables and clears the memo cache.
// Known tags added at runtime are kept.
func (e *Engine) SetRules(rules *config.Rules) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.cache = make(map[string]string)
	e.addKnownLocked(rules.Normalization.KnownTags)
}

// AddKnownTags extends the canonical vocabulary used by the fuzzy fallback.
// Inputs that are not already normalized are cleaned first.
func (e *Engine) AddKnownTags(names ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addKnownLocked(names)
	// The vocabulary affects the fuzzy stage, so memoized results are stale.
	e.cache = make(map[string]string)
}

func (e *Engine) addKnownLocked(names []string) {
	changed := false
	for _, name := range names {
		n := clean(name)
		if n == "" {
			continue
		}
		if _, ok := e.known[n]; !ok {
			e.known[n] = struct{}{}
			changed = true
		}
	}
	if changed || e.knownSorted == nil {
		e.knownSorted = make([]string, 0, len(e.known))
		for n := range e.known {
			e.knownSorted = append(e.knownSorted, n)
		}
		sort.Strings(e.knownSorted)
	}
}

// IsKnown reports whether the normalized form is part of the canonical
// vocabulary.
func (e *Engine) IsKnown(normalized string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.known[normalized]
	return ok
}

// ClearCache drops all memoized results. Outputs are unaffected.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]string)
}

// Normalize canonicalizes a raw tag string. It never fails: the worst case
// is the cleaned-but-unmatched string. Idempotent: Normalize(Normalize(x))
// == Normalize(x).
func (e *Engine) Normalize(raw string) string {
	e.mu.RLock()
	if cached, ok := e.cache[raw]; ok {
		e.mu.RUnlock()
		return cached
	}
	rules := e.rules
	e.mu.RUnlock()

	result := e.normalize(rules, raw)

	e.mu.Lock()
	e.cache[raw] = result
	e.mu.Unlock()
	return result
}

func (e *Engine) normalize(rules *config.Rules, raw string) string {
	nr := &rules.Normalization

	// Stage 1-2: case-fold, trim, character cleanup.
	s := clean(raw)
	if s == "" {
		return s
	}

	// Stage 3: exact compound-term lookup.
	if canonical, ok := nr.CompoundTerms[s]; ok {
		s = canonical
	}

	// Stage 4: misspelling correction.
	if corrected, ok := nr.Misspellings[s]; ok {
		s = corrected
	}

	// Stage 5: regional standardization, word by word.
	if len(nr.Regional) > 0 {
		words := strings.Fields(s)
		changed := false
		for i, w := range words {
			if repl, ok := nr.Regional[w]; ok {
				words[i] = repl
				changed = true
			}
		}
		if changed {
			s = strings.Join(words, " ")
		}
	}

	// Stage 6: semantic synonym folding.
	if canonical, ok := nr.Synonyms[s]; ok {
		s = canonical
	}

	// Stage 7: hyphenation normalization.
	s = hyphenate(s, e.isKnownUnderRead)

	// Stage 8: fuzzy fallback against the known vocabulary.
	if !e.isKnownUnderRead(s) {
		if best, score := e.closestKnown(s); score >= nr.FuzzyThreshold {
			s = best
		}
	}

	return s
}

// isKnownUnderRead takes its own read lock; callers must not hold e.mu.
func (e *Engine) isKnownUnderRead(s string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.known[s]
	return ok
}

// closestKnown returns the best fuzzy match and its score. Candidates are
// scanned in sorted order and only a strictly higher score replaces the best,
// so ties always resolve to the alphabetically first candidate.
func (e *Engine) closestKnown(s string) (string, float64) {
	e.mu.RLock()
	candidates := e.knownSorted
	e.mu.RUnlock()

	best := ""
	bestScore := 0.0
	for _, candidate := range candidates {
		if score := Similarity(s, candidate); score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore
}

// Category assigns a tag to a coarse musical bucket by keyword match against
// the configured category tables. Falls back to CategoryOther.
func (e *Engine) Category(tag string) domain.Category {
	normalized := e.Normalize(tag)
	if normalized == "" {
		return domain.CategoryOther
	}

	e.mu.RLock()
	categories := e.rules.Categories
	e.mu.RUnlock()

	tokens := splitTokens(normalized)
	for _, cat := range domain.Categories {
		for _, keyword := range categories[string(cat)] {
			if matchesKeyword(normalized, tokens, keyword) {
				return cat
			}
		}
	}
	return domain.CategoryOther
}

// Decompose expands a known compound tag into its ordered atomic base tags.
// Only tags in the configured decomposition table decompose; everything else
// returns (nil, false).
func (e *Engine) Decompose(tag string) ([]string, bool) {
	s := clean(tag)

	e.mu.RLock()
	table := e.rules.Normalization.Decompositions
	e.mu.RUnlock()

	if parts, ok := table[s]; ok {
		return append([]string(nil), parts...), true
	}
	// Accept hyphenated spellings of table keys.
	if parts, ok := table[strings.ReplaceAll(s, "-", " ")]; ok {
		return append([]string(nil), parts...), true
	}
	return nil, false
}

// clean applies the first two pipeline stages: unicode decomposition,
// case-folding, character cleanup, and whitespace collapsing.
func clean(raw string) string {
	s := norm.NFKD.String(raw)
	s = strings.Map(func(r rune) rune {
		if r == 0 || unicode.IsControl(r) || unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)
	s = strings.ToLower(s)
	s = disallowedChars.ReplaceAllString(s, " ")
	s = repeatedSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// hyphenate standardizes hyphen spacing and rejoins multi-word phrases with
// hyphens when the hyphenated form is already canonical vocabulary.
func hyphenate(s string, isKnown func(string) bool) string {
	s = spacedHyphen.ReplaceAllString(s, "-")
	s = repeatedHyphen.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if strings.Contains(s, " ") {
		joined := strings.ReplaceAll(s, " ", "-")
		if isKnown(joined) {
			return joined
		}
	}
	return s
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-'
	})
}

// matchesKeyword reports whether a normalized tag matches one category
// keyword: exact, token-level, or, for compound keywords, substring.
func matchesKeyword(normalized string, tokens []string, keyword string) bool {
	if normalized == keyword {
		return true
	}
	for _, t := range tokens {
		if t == keyword {
			return true
		}
	}
	if strings.Contains(keyword, "-") && strings.Contains(normalized, keyword) {
		return true
	}
	return false
}
