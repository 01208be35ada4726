// Package consolidate finds duplicate tags, judges proposed merges, and
// applies them through a preview → queue → apply workflow.
package consolidate

import (
	"regexp"
	"sort"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/tagnorm"
)

// Finder groups and ranks tags that are likely duplicates of each other.
type Finder struct {
	engine   *tagnorm.Engine
	compiled []compiledRule
}

type compiledRule struct {
	pattern       *regexp.Regexp
	replacement   string
	minSimilarity float64
}

// NewFinder creates a finder. Consolidation rules with invalid patterns are
// skipped; a bad rule must not disable duplicate detection.
func NewFinder(engine *tagnorm.Engine, rules *config.Rules) *Finder {
	f := &Finder{engine: engine}
	for _, rule := range rules.SortedConsolidationRules() {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			continue
		}
		f.compiled = append(f.compiled, compiledRule{
			pattern:       re,
			replacement:   rule.Replacement,
			minSimilarity: rule.MinSimilarity,
		})
	}
	return f
}

// IdentifyMergeCandidates scores every pair of tags and returns, per tag id,
// the tags that look like duplicates of it with their scores. A pair scores
// 1.0 when both normalize identically, otherwise by the first matching
// consolidation rule, otherwise by fuzzy similarity at or above threshold.
func (f *Finder) IdentifyMergeCandidates(tags []*domain.Tag, threshold float64) map[string][]domain.SimilarityCandidate {
	candidates := make(map[string][]domain.SimilarityCandidate)

	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			a, b := tags[i], tags[j]
			score, ok := f.scorePair(a, b, threshold)
			if !ok {
				continue
			}
			candidates[a.ID] = append(candidates[a.ID], domain.SimilarityCandidate{TagA: a, TagB: b, Score: score})
			candidates[b.ID] = append(candidates[b.ID], domain.SimilarityCandidate{TagA: b, TagB: a, Score: score})
		}
	}

	// Best matches first, name as tiebreak for reproducible output.
	for _, list := range candidates {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Score != list[j].Score {
				return list[i].Score > list[j].Score
			}
			return list[i].TagB.Name < list[j].TagB.Name
		})
	}
	return candidates
}

// scorePair scores one unordered pair. Rules are tried in descending
// priority; the first rule that maps both names to the same string and whose
// similarity floor is met wins.
func (f *Finder) scorePair(a, b *domain.Tag, threshold float64) (float64, bool) {
	normA := f.engine.Normalize(a.Name)
	normB := f.engine.Normalize(b.Name)

	if normA != "" && normA == normB {
		return 1.0, true
	}

	similarity := tagnorm.Similarity(normA, normB)

	for _, rule := range f.compiled {
		reducedA := rule.pattern.ReplaceAllString(normA, rule.replacement)
		reducedB := rule.pattern.ReplaceAllString(normB, rule.replacement)
		if reducedA == "" || reducedA != reducedB {
			continue
		}
		if similarity >= rule.minSimilarity {
			return similarity, true
		}
		// First matching rule decides, even when its floor rejects.
		return 0, false
	}

	if similarity >= threshold {
		return similarity, true
	}
	return 0, false
}

// SuggestMerges filters candidate pairs down to the ones worth a human
// look: at least one side has frequency ≥ minFrequency. Pairs are unique
// and sorted by combined frequency descending.
func (f *Finder) SuggestMerges(tags []*domain.Tag, threshold float64, minFrequency int) []domain.SimilarityCandidate {
	candidates := f.IdentifyMergeCandidates(tags, threshold)

	seen := make(map[string]struct{})
	var suggestions []domain.SimilarityCandidate
	for _, list := range candidates {
		for _, c := range list {
			if c.TagA.Frequency < minFrequency && c.TagB.Frequency < minFrequency {
				continue
			}
			key := pairKey(c.TagA.ID, c.TagB.ID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			suggestions = append(suggestions, c)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		ci, cj := suggestions[i].CombinedFrequency(), suggestions[j].CombinedFrequency()
		if ci != cj {
			return ci > cj
		}
		return pairKey(suggestions[i].TagA.ID, suggestions[i].TagB.ID) <
			pairKey(suggestions[j].TagA.ID, suggestions[j].TagB.ID)
	})
	return suggestions
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}
