package domain

import "time"

// ConflictType classifies an issue detected with a proposed tag merge.
type ConflictType string

// Conflict types. HierarchyCycle and VariantCollision block a merge;
// FrequencyMismatch and CategoryMismatch are advisory.
const (
	ConflictFrequencyMismatch ConflictType = "FREQUENCY_MISMATCH"
	ConflictCategoryMismatch  ConflictType = "CATEGORY_MISMATCH"
	ConflictHierarchyCycle    ConflictType = "HIERARCHY_CYCLE"
	ConflictVariantCollision  ConflictType = "VARIANT_COLLISION"
)

// MergeConflict describes a single detected issue with a proposed merge.
type MergeConflict struct {
	Type    ConflictType `json:"type"`
	Message string       `json:"message"`
}

// Blocking reports whether this conflict must stop the merge.
func (c MergeConflict) Blocking() bool {
	return c.Type == ConflictHierarchyCycle || c.Type == ConflictVariantCollision
}

// MergePreview is a pure computation of what a merge would do.
// It never reflects applied state.
type MergePreview struct {
	Primary         *Tag            `json:"primary"`
	TagsToMerge     []*Tag          `json:"tags_to_merge"`
	AffectedAlbums  int             `json:"affected_albums"`
	FrequencyChange int             `json:"frequency_change"`
	Conflicts       []MergeConflict `json:"conflicts"`
}

// HasBlockingConflict reports whether any conflict in the preview blocks.
func (p *MergePreview) HasBlockingConflict() bool {
	for _, c := range p.Conflicts {
		if c.Blocking() {
			return true
		}
	}
	return false
}

// MergeStatus is the lifecycle state of a merge request.
// Applied, rejected and failed are terminal.
type MergeStatus string

// Merge lifecycle states.
const (
	MergeProposed MergeStatus = "proposed"
	MergeQueued   MergeStatus = "queued"
	MergeApplied  MergeStatus = "applied"
	MergeRejected MergeStatus = "rejected"
	MergeFailed   MergeStatus = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s MergeStatus) Terminal() bool {
	return s == MergeApplied || s == MergeRejected || s == MergeFailed
}

// MergeRecord is one entry in the merge history log: a merge that was
// applied, rejected, or failed, with the conflicts seen at decision time.
type MergeRecord struct {
	ID          string          `json:"id"`
	PrimaryID   string          `json:"primary_id"`
	PrimaryName string          `json:"primary_name"`
	MergedNames []string        `json:"merged_names"`
	Status      MergeStatus     `json:"status"`
	Conflicts   []MergeConflict `json:"conflicts,omitempty"`
	Forced      bool            `json:"forced"`
	Error       string          `json:"error,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
