package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Rules is the immutable rule configuration driving normalization,
// hierarchy suggestions, categorization, consolidation, and validation.
// Load it once and inject it; to pick up edits, load a fresh value and swap
// it in (see Watcher).
type Rules struct {
	Normalization NormalizationRules  `yaml:"normalization" validate:"required"`
	Hierarchy     HierarchyRules      `yaml:"hierarchy"`
	Categories    map[string][]string `yaml:"categories" validate:"dive,required"`
	Consolidation ConsolidationRules  `yaml:"consolidation"`
	Validation    ValidationRules     `yaml:"validation"`
}

// NormalizationRules are the lookup tables for the normalization pipeline,
// applied in pipeline order.
type NormalizationRules struct {
	// FuzzyThreshold is the minimum similarity for the fallback fuzzy match
	// against the known-tag set.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" validate:"gte=0,lte=1"`
	// CompoundTerms maps spelling variants of compound genres to one
	// hyphenated form: "post metal" / "postmetal" -> "post-metal".
	CompoundTerms map[string]string `yaml:"compound_terms"`
	// Misspellings maps exact misspelled strings to their correction.
	Misspellings map[string]string `yaml:"misspellings"`
	// Regional maps single words to their standardized cultural/regional
	// form: "nordic" -> "scandinavian". Applied word by word.
	Regional map[string]string `yaml:"regional"`
	// Synonyms maps exact phrases to one canonical form:
	// "prog rock" and "progressive rock" -> "prog-rock".
	Synonyms map[string]string `yaml:"synonyms"`
	// Decompositions maps known compound tags to their ordered atomic base
	// tags: "melodic death metal" -> [melodic, death, metal].
	Decompositions map[string][]string `yaml:"decompositions"`
	// KnownTags seeds the canonical vocabulary used by the fuzzy fallback.
	KnownTags []string `yaml:"known_tags"`
}

// HierarchyRules drive parent suggestions for new tags.
type HierarchyRules struct {
	// Modifiers are style prefixes that imply a parent:
	// "atmospheric black metal" suggests "black metal".
	Modifiers []string `yaml:"modifiers"`
	// BaseGenres are genre roots recognized as suffix or infix:
	// "viking metal" suggests "metal".
	BaseGenres []string `yaml:"base_genres"`
}

// ConsolidationRule is one pattern-based duplicate-detection rule.
// Rules are evaluated in descending Priority order; the first match wins.
type ConsolidationRule struct {
	Pattern       string  `yaml:"pattern" validate:"required"`
	Replacement   string  `yaml:"replacement"`
	MinSimilarity float64 `yaml:"min_similarity" validate:"gte=0,lte=1"`
	Priority      int     `yaml:"priority"`
}

// ConsolidationRules configure duplicate detection and merge conflict policy.
type ConsolidationRules struct {
	// FrequencyRatio is the multiplier over the primary's frequency above
	// which a merge-set member triggers a FREQUENCY_MISMATCH conflict.
	FrequencyRatio float64             `yaml:"frequency_ratio" validate:"gte=1"`
	Rules          []ConsolidationRule `yaml:"rules" validate:"dive"`
}

// ValidationRules configure the ingestion-time quality gate.
type ValidationRules struct {
	MinLength int `yaml:"min_length" validate:"gte=1"`
	MaxLength int `yaml:"max_length" validate:"gtefield=MinLength"`
	// FormatWords are release-format vocabulary that is never a genre:
	// "lp", "ep", "remaster".
	FormatWords []string `yaml:"format_words"`
	// GenericWords are subjective/generic vocabulary that is probably not a
	// genre: "good", "favorite".
	GenericWords []string `yaml:"generic_words"`
}

// SortedConsolidationRules returns the consolidation rules in evaluation
// order (descending priority, then pattern for a stable ordering).
func (r *Rules) SortedConsolidationRules() []ConsolidationRule {
	rules := make([]ConsolidationRule, len(r.Consolidation.Rules))
	copy(rules, r.Consolidation.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Pattern < rules[j].Pattern
	})
	return rules
}

// LoadRules reads a YAML rules file, layers it over the built-in defaults,
// and validates the result. An empty path returns the defaults.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, validateRules(rules)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var overlay Rules
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	mergeRules(rules, &overlay)

	if err := validateRules(rules); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return rules, nil
}

func validateRules(r *Rules) error {
	v := validator.New()
	if err := v.Struct(r); err != nil {
		return err
	}
	return nil
}

// mergeRules overlays non-empty fields of src onto dst. Maps are merged
// key-by-key so a rules file can extend the built-in tables without
// restating them; slices and scalars replace wholesale when set.
func mergeRules(dst, src *Rules) {
	if src.Normalization.FuzzyThreshold > 0 {
		dst.Normalization.FuzzyThreshold = src.Normalization.FuzzyThreshold
	}
	mergeStringMap(dst.Normalization.CompoundTerms, src.Normalization.CompoundTerms)
	mergeStringMap(dst.Normalization.Misspellings, src.Normalization.Misspellings)
	mergeStringMap(dst.Normalization.Regional, src.Normalization.Regional)
	mergeStringMap(dst.Normalization.Synonyms, src.Normalization.Synonyms)
	for k, v := range src.Normalization.Decompositions {
		dst.Normalization.Decompositions[k] = v
	}
	if len(src.Normalization.KnownTags) > 0 {
		dst.Normalization.KnownTags = append(dst.Normalization.KnownTags, src.Normalization.KnownTags...)
	}

	if len(src.Hierarchy.Modifiers) > 0 {
		dst.Hierarchy.Modifiers = src.Hierarchy.Modifiers
	}
	if len(src.Hierarchy.BaseGenres) > 0 {
		dst.Hierarchy.BaseGenres = src.Hierarchy.BaseGenres
	}

	for k, v := range src.Categories {
		dst.Categories[k] = v
	}

	if src.Consolidation.FrequencyRatio > 0 {
		dst.Consolidation.FrequencyRatio = src.Consolidation.FrequencyRatio
	}
	if len(src.Consolidation.Rules) > 0 {
		dst.Consolidation.Rules = append(dst.Consolidation.Rules, src.Consolidation.Rules...)
	}

	if src.Validation.MinLength > 0 {
		dst.Validation.MinLength = src.Validation.MinLength
	}
	if src.Validation.MaxLength > 0 {
		dst.Validation.MaxLength = src.Validation.MaxLength
	}
	if len(src.Validation.FormatWords) > 0 {
		dst.Validation.FormatWords = append(dst.Validation.FormatWords, src.Validation.FormatWords...)
	}
	if len(src.Validation.GenericWords) > 0 {
		dst.Validation.GenericWords = append(dst.Validation.GenericWords, src.Validation.GenericWords...)
	}
}

func mergeStringMap(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}
