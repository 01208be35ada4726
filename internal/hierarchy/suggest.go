package hierarchy

import (
	"sort"
	"strings"

	"github.com/cratekeeper/cratekeeper/internal/config"
)

// Confidence levels for parent suggestions. Suffix matches outrank prefix
// matches, which outrank infix matches.
const (
	confidenceSuffix   = 0.9
	confidenceModifier = 0.75
	confidenceInfix    = 0.5
)

// ParentSuggestion is one ranked candidate parent for a tag.
type ParentSuggestion struct {
	Parent     string  `json:"parent"`
	Confidence float64 `json:"confidence"`
}

// SuggestParents proposes likely parents for a tag name using the configured
// style-modifier and base-genre patterns. Results are ranked by confidence
// descending, then alphabetically for a stable order. Purely heuristic: the
// caller decides whether to add the relationships.
func SuggestParents(tagName string, rules *config.HierarchyRules) []ParentSuggestion {
	name := strings.ToLower(strings.TrimSpace(tagName))
	if name == "" {
		return nil
	}

	seen := make(map[string]float64)

	// A leading style modifier implies the remainder is the parent:
	// "atmospheric black-metal" -> "black-metal".
	for _, mod := range rules.Modifiers {
		for _, sep := range []string{" ", "-"} {
			prefix := mod + sep
			if strings.HasPrefix(name, prefix) {
				rest := strings.TrimPrefix(name, prefix)
				if rest != "" {
					record(seen, rest, confidenceModifier)
				}
			}
		}
	}

	// A base-genre suffix is a strong parent signal ("viking metal" ->
	// "metal"); the same genre appearing mid-string is weaker.
	for _, base := range rules.BaseGenres {
		if name == base {
			continue
		}
		switch {
		case strings.HasSuffix(name, " "+base) || strings.HasSuffix(name, "-"+base):
			record(seen, base, confidenceSuffix)
		case strings.Contains(name, " "+base+" ") || strings.Contains(name, "-"+base+"-"):
			record(seen, base, confidenceInfix)
		}
	}

	suggestions := make([]ParentSuggestion, 0, len(seen))
	for parent, confidence := range seen {
		suggestions = append(suggestions, ParentSuggestion{Parent: parent, Confidence: confidence})
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		return suggestions[i].Parent < suggestions[j].Parent
	})
	return suggestions
}

func record(seen map[string]float64, parent string, confidence float64) {
	if existing, ok := seen[parent]; !ok || confidence > existing {
		seen[parent] = confidence
	}
}
