package tagnorm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/domain"
)

var (
	noLetters      = regexp.MustCompile(`^[\d\W_]+$`)
	bareYear       = regexp.MustCompile(`^(1[89]|20)\d{2}$`)
	doubleSpace    = regexp.MustCompile(`\s{2,}`)
	edgePunct      = regexp.MustCompile(`^[^\w]+|[^\w]+$`)
	controlOrEmbed = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
)

// Filter is the ingestion-time quality gate. Independent of normalization:
// it judges raw strings before they enter the pipeline.
type Filter struct {
	rules        *config.ValidationRules
	formatWords  map[string]struct{}
	genericWords map[string]struct{}
}

// NewFilter creates a filter from the configured validation rules.
func NewFilter(rules *config.Rules) *Filter {
	f := &Filter{
		rules:        &rules.Validation,
		formatWords:  make(map[string]struct{}, len(rules.Validation.FormatWords)),
		genericWords: make(map[string]struct{}, len(rules.Validation.GenericWords)),
	}
	for _, w := range rules.Validation.FormatWords {
		f.formatWords[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range rules.Validation.GenericWords {
		f.genericWords[strings.ToLower(w)] = struct{}{}
	}
	return f
}

// ValidateTag evaluates every check against a raw tag string and returns all
// findings. Checks are independent and never short-circuit; an empty result
// means the tag is clean.
func (f *Filter) ValidateTag(raw string) []domain.Finding {
	var findings []domain.Finding

	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	runes := utf8.RuneCountInString(trimmed)

	// Length bounds.
	if runes < f.rules.MinLength {
		findings = append(findings, domain.Finding{
			Severity: domain.SeverityError,
			Category: "length",
			Message:  fmt.Sprintf("tag is too short (%d characters, minimum %d)", runes, f.rules.MinLength),
		})
	}
	if runes > f.rules.MaxLength {
		findings = append(findings, domain.Finding{
			Severity:     domain.SeverityError,
			Category:     "length",
			Message:      fmt.Sprintf("tag is too long (%d characters, maximum %d)", runes, f.rules.MaxLength),
			SuggestedFix: string([]rune(trimmed)[:f.rules.MaxLength]),
		})
	}

	// Content patterns.
	if trimmed != "" && noLetters.MatchString(trimmed) {
		findings = append(findings, domain.Finding{
			Severity: domain.SeverityError,
			Category: "format",
			Message:  "tag contains no letters",
		})
	}
	if bareYear.MatchString(trimmed) {
		findings = append(findings, domain.Finding{
			Severity: domain.SeverityError,
			Category: "vocabulary",
			Message:  fmt.Sprintf("%q looks like a release year, not a genre", trimmed),
		})
	}

	// Known non-genre vocabulary.
	if _, ok := f.formatWords[lower]; ok {
		findings = append(findings, domain.Finding{
			Severity: domain.SeverityError,
			Category: "vocabulary",
			Message:  fmt.Sprintf("%q is a release format, not a genre", trimmed),
		})
	}
	if _, ok := f.genericWords[lower]; ok {
		findings = append(findings, domain.Finding{
			Severity: domain.SeverityWarning,
			Category: "vocabulary",
			Message:  fmt.Sprintf("%q is a generic word, probably not a genre", trimmed),
		})
	}

	// Encoding anomalies.
	if controlOrEmbed.MatchString(raw) {
		findings = append(findings, domain.Finding{
			Severity:     domain.SeverityWarning,
			Category:     "encoding",
			Message:      "tag contains control characters",
			SuggestedFix: controlOrEmbed.ReplaceAllString(trimmed, ""),
		})
	}
	if doubleSpace.MatchString(trimmed) {
		findings = append(findings, domain.Finding{
			Severity:     domain.SeverityWarning,
			Category:     "encoding",
			Message:      "tag contains repeated whitespace",
			SuggestedFix: doubleSpace.ReplaceAllString(trimmed, " "),
		})
	}
	if trimmed != "" && edgePunct.MatchString(trimmed) && !noLetters.MatchString(trimmed) {
		fixed := edgePunct.ReplaceAllString(trimmed, "")
		if fixed != trimmed {
			findings = append(findings, domain.Finding{
				Severity:     domain.SeverityWarning,
				Category:     "encoding",
				Message:      "tag has leading or trailing punctuation",
				SuggestedFix: fixed,
			})
		}
	}
	if raw != trimmed && trimmed != "" {
		findings = append(findings, domain.Finding{
			Severity:     domain.SeverityInfo,
			Category:     "encoding",
			Message:      "tag has surrounding whitespace",
			SuggestedFix: trimmed,
		})
	}

	return findings
}

// FilterReport summarizes one FilterTags run.
type FilterReport struct {
	Findings map[string][]domain.Finding `json:"findings"`
	Fixed    map[string]string           `json:"fixed"` // raw -> applied fix
}

// FilterTags partitions raw tags into accepted and rejected. Any ERROR
// finding rejects; WARNING rejects only in strict mode. Kept tags get the
// first available suggested fix applied.
func (f *Filter) FilterTags(tags []string, strict bool) (accepted, rejected []string, report *FilterReport) {
	report = &FilterReport{
		Findings: make(map[string][]domain.Finding),
		Fixed:    make(map[string]string),
	}

	for _, raw := range tags {
		findings := f.ValidateTag(raw)
		if len(findings) > 0 {
			report.Findings[raw] = findings
		}

		reject := false
		for _, finding := range findings {
			switch finding.Severity {
			case domain.SeverityError:
				reject = true
			case domain.SeverityWarning:
				if strict {
					reject = true
				}
			case domain.SeverityInfo:
				// Never rejects.
			}
		}
		if reject {
			rejected = append(rejected, raw)
			continue
		}

		kept := raw
		for _, finding := range findings {
			if finding.SuggestedFix != "" {
				kept = finding.SuggestedFix
				report.Fixed[raw] = kept
				break
			}
		}
		accepted = append(accepted, kept)
	}

	return accepted, rejected, report
}
