package consolidate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/errors"
	"github.com/cratekeeper/cratekeeper/internal/hierarchy"
)

// Detector reports issues with proposed merges. It never fails: conflicts
// are data for the caller to act on. The variant index must be kept in step
// with applied merges and migrations via AddVariant/ReplaceVariants, or
// collisions against freshly created aliases go undetected.
type Detector struct {
	graph *hierarchy.Graph

	mu             sync.RWMutex
	variantOwner   map[string]string // lowercased variant name -> canonical tag id
	frequencyRatio float64
}

// NewDetector creates a detector over the current hierarchy and variant set.
func NewDetector(graph *hierarchy.Graph, variants []*domain.TagVariant, rules *config.Rules) *Detector {
	owner := make(map[string]string, len(variants))
	for _, v := range variants {
		owner[strings.ToLower(v.Name)] = v.TagID
	}
	ratio := rules.Consolidation.FrequencyRatio
	if ratio <= 0 {
		ratio = 2.0
	}
	return &Detector{
		graph:          graph,
		variantOwner:   owner,
		frequencyRatio: ratio,
	}
}

// AddVariant records one freshly created alias so later merge requests see
// the collision. Called after a merge deletes a tag and turns its display
// name into a variant.
func (d *Detector) AddVariant(name, tagID string) {
	d.mu.Lock()
	d.variantOwner[strings.ToLower(name)] = tagID
	d.mu.Unlock()
}

// ReplaceVariants swaps in the full variant set, typically re-read from the
// store after a migration pass created aliases in bulk.
func (d *Detector) ReplaceVariants(variants []*domain.TagVariant) {
	owner := make(map[string]string, len(variants))
	for _, v := range variants {
		owner[strings.ToLower(v.Name)] = v.TagID
	}
	d.mu.Lock()
	d.variantOwner = owner
	d.mu.Unlock()
}

// SetRules picks up a new frequency-ratio threshold, typically from a rules
// hot reload.
func (d *Detector) SetRules(rules *config.Rules) {
	ratio := rules.Consolidation.FrequencyRatio
	if ratio <= 0 {
		ratio = 2.0
	}
	d.mu.Lock()
	d.frequencyRatio = ratio
	d.mu.Unlock()
}

// DetectConflicts checks a proposed merge of mergeSet into primary and
// returns every issue found, blocking and advisory. An empty result means
// the merge is clean.
func (d *Detector) DetectConflicts(primary *domain.Tag, mergeSet []*domain.Tag) []domain.MergeConflict {
	var conflicts []domain.MergeConflict

	d.mu.RLock()
	frequencyRatio := d.frequencyRatio
	d.mu.RUnlock()

	for _, t := range mergeSet {
		if t.ID == primary.ID {
			continue
		}

		// A much more frequent merge-set member suggests the primary
		// choice is backwards. Advisory.
		if float64(t.Frequency) > frequencyRatio*float64(primary.Frequency) {
			conflicts = append(conflicts, domain.MergeConflict{
				Type: domain.ConflictFrequencyMismatch,
				Message: fmt.Sprintf("%q has frequency %d, more than %.0fx the primary %q (%d); consider swapping",
					t.Name, t.Frequency, frequencyRatio, primary.Name, primary.Frequency),
			})
		}

		if t.Category != primary.Category {
			conflicts = append(conflicts, domain.MergeConflict{
				Type: domain.ConflictCategoryMismatch,
				Message: fmt.Sprintf("%q is %s but primary %q is %s",
					t.Name, t.Category, primary.Name, primary.Category),
			})
		}

		// Collapsing t into primary must not close a loop in the DAG.
		// Blocking.
		if d.graph.WouldCycle(primary.ID, t.ID) {
			conflicts = append(conflicts, domain.MergeConflict{
				Type: domain.ConflictHierarchyCycle,
				Message: fmt.Sprintf("merging %q into %q would make the primary its own ancestor",
					t.Name, primary.Name),
			})
		}

		// The merged name would become a variant of primary, but it already
		// aliases a different canonical tag. Blocking.
		d.mu.RLock()
		ownerID, aliased := d.variantOwner[strings.ToLower(t.Name)]
		d.mu.RUnlock()
		if aliased && ownerID != primary.ID {
			conflicts = append(conflicts, domain.MergeConflict{
				Type: domain.ConflictVariantCollision,
				Message: fmt.Sprintf("%q already exists as a variant of another tag (%s)",
					t.Name, ownerID),
			})
		}
	}

	return conflicts
}

// ValidateMerge checks an explicit source→target merge request. It returns
// the advisory warnings, or an error when the target is not canonical or a
// blocking conflict exists.
func (d *Detector) ValidateMerge(source, target *domain.Tag) ([]domain.MergeConflict, error) {
	if !target.IsCanonical {
		return nil, errors.MergeConflictf("merge target %q is not a canonical tag", target.Name)
	}

	conflicts := d.DetectConflicts(target, []*domain.Tag{source})

	var warnings []domain.MergeConflict
	for _, c := range conflicts {
		if c.Blocking() {
			return nil, errors.MergeConflictWithDetails(c.Message, conflicts)
		}
		warnings = append(warnings, c)
	}
	return warnings, nil
}
