package domain

// Severity grades a validation finding.
type Severity string

// Finding severities. An error always rejects a tag at ingestion; a warning
// rejects only in strict mode.
const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Finding is one independent validation result for a raw tag string.
type Finding struct {
	Severity     Severity `json:"severity"`
	Category     string   `json:"category"` // e.g. "length", "format", "vocabulary", "encoding"
	Message      string   `json:"message"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
}

// MigrationStats are the counters accumulated by a full migration pass.
type MigrationStats struct {
	TagsProcessed   int `json:"tags_processed"`
	TagsMerged      int `json:"tags_merged"`
	TagsUpdated     int `json:"tags_updated"`
	VariantsCreated int `json:"variants_created"`
	Errors          int `json:"errors"`
}
