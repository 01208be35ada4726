package consolidate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/errors"
	"github.com/cratekeeper/cratekeeper/internal/hierarchy"
	"github.com/cratekeeper/cratekeeper/internal/id"
	"github.com/cratekeeper/cratekeeper/internal/logger"
	"github.com/cratekeeper/cratekeeper/internal/store"
)

// Consolidator runs the stateful preview → queue → apply merge workflow.
// Each queued merge group is applied as one all-or-nothing transaction; a
// failed group rolls back without touching the others.
type Consolidator struct {
	store    store.Store
	detector *Detector
	graph    *hierarchy.Graph
	logger   *logger.Logger

	mu      sync.Mutex
	pending []*pendingMerge
	history []domain.MergeRecord
}

type pendingMerge struct {
	primary   *domain.Tag
	mergeSet  []*domain.Tag
	conflicts []domain.MergeConflict
	forced    bool
}

// NewConsolidator creates a consolidator. The graph must be the same one the
// detector judges against so applied merges keep it consistent.
func NewConsolidator(st store.Store, detector *Detector, graph *hierarchy.Graph, log *logger.Logger) *Consolidator {
	if log == nil {
		log = logger.Discard()
	}
	return &Consolidator{
		store:    st,
		detector: detector,
		graph:    graph,
		logger:   log,
	}
}

// PreviewMerge computes what merging mergeSet into primary would do.
// Pure: no state, in memory or persisted, changes.
func (c *Consolidator) PreviewMerge(ctx context.Context, primary *domain.Tag, mergeSet []*domain.Tag) (*domain.MergePreview, error) {
	affected := make(map[string]struct{})
	for _, t := range mergeSet {
		if t.ID == primary.ID {
			continue
		}
		albums, err := c.store.LoadAlbumsForTag(ctx, t.ID)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodePersistence, "load albums for %q", t.Name)
		}
		for _, a := range albums {
			affected[a] = struct{}{}
		}
	}

	primaryAlbums, err := c.store.LoadAlbumsForTag(ctx, primary.ID)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodePersistence, "load albums for %q", primary.Name)
	}

	// The frequency delta is only the albums the primary does not already
	// have: relinking deduplicates.
	newAlbums := len(affected)
	for _, a := range primaryAlbums {
		if _, ok := affected[a]; ok {
			newAlbums--
		}
	}

	return &domain.MergePreview{
		Primary:         primary,
		TagsToMerge:     mergeSet,
		AffectedAlbums:  len(affected),
		FrequencyChange: newAlbums,
		Conflicts:       c.detector.DetectConflicts(primary, mergeSet),
	}, nil
}

// QueueMerge runs conflict detection and, if the merge is acceptable,
// queues it for the next ApplyPendingMerges. Returns false — recording a
// rejected entry in history — when a blocking conflict (or, by queue
// policy, a frequency mismatch) exists and force is not set. With force the
// merge queues anyway and the bypassed conflicts stay in history for audit.
func (c *Consolidator) QueueMerge(ctx context.Context, primary *domain.Tag, mergeSet []*domain.Tag, force bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	conflicts := c.detector.DetectConflicts(primary, mergeSet)

	blocked := false
	for _, conflict := range conflicts {
		// Queue policy: a frequency mismatch blocks an automatic queue
		// because the primary choice is probably backwards; force
		// overrides, as it does for inherently blocking conflicts.
		if conflict.Blocking() || conflict.Type == domain.ConflictFrequencyMismatch {
			blocked = true
			break
		}
	}

	if blocked && !force {
		c.record(domain.MergeRecord{
			ID:          id.MustGenerate("merge"),
			PrimaryID:   primary.ID,
			PrimaryName: primary.Name,
			MergedNames: tagNames(mergeSet),
			Status:      domain.MergeRejected,
			Conflicts:   conflicts,
			CreatedAt:   time.Now().UTC(),
		})
		c.logger.Info("merge rejected", "primary", primary.Name, "conflicts", len(conflicts))
		return false, nil
	}

	c.mu.Lock()
	c.pending = append(c.pending, &pendingMerge{
		primary:   primary,
		mergeSet:  mergeSet,
		conflicts: conflicts,
		forced:    blocked && force,
	})
	c.mu.Unlock()

	c.logger.Debug("merge queued", "primary", primary.Name, "tags", len(mergeSet), "forced", blocked && force)
	return true, nil
}

// ApplyPendingMerges applies every queued merge group, each as one
// transaction. A group that fails rolls back, is recorded as failed, and
// does not stop the rest. Returns the records for all processed groups.
func (c *Consolidator) ApplyPendingMerges(ctx context.Context) ([]domain.MergeRecord, error) {
	c.mu.Lock()
	queue := c.pending
	c.pending = nil
	c.mu.Unlock()

	var applied []domain.MergeRecord
	for _, merge := range queue {
		rec := domain.MergeRecord{
			ID:          id.MustGenerate("merge"),
			PrimaryID:   merge.primary.ID,
			PrimaryName: merge.primary.Name,
			MergedNames: tagNames(merge.mergeSet),
			Conflicts:   merge.conflicts,
			Forced:      merge.forced,
			CreatedAt:   time.Now().UTC(),
		}

		if err := c.applyOne(ctx, merge, &rec); err != nil {
			rec.Status = domain.MergeFailed
			rec.Error = err.Error()
			c.logger.WithError(err).Error("merge failed", "primary", merge.primary.Name)
		} else {
			rec.Status = domain.MergeApplied
			// The merged tags are gone; keep the in-memory hierarchy and
			// the detector's variant index in step with the persisted rows.
			for _, t := range merge.mergeSet {
				if t.ID != merge.primary.ID {
					c.graph.RenameNode(t.ID, merge.primary.ID)
					c.detector.AddVariant(t.Name, merge.primary.ID)
				}
			}
			c.logger.Info("merge applied",
				"primary", merge.primary.Name,
				"merged", len(rec.MergedNames),
				"frequency", merge.primary.Frequency)
		}

		c.record(rec)
		applied = append(applied, rec)
	}
	return applied, nil
}

// applyOne executes one merge group atomically: relink albums, record
// variants, delete losers, recompute the primary's frequency, and append
// the audit entry, all in one transaction.
func (c *Consolidator) applyOne(ctx context.Context, merge *pendingMerge, rec *domain.MergeRecord) error {
	tx, err := c.store.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CodePersistence, "begin merge transaction")
	}
	defer tx.Rollback()

	primary := merge.primary
	now := time.Now().UTC()

	for _, t := range merge.mergeSet {
		if t.ID == primary.ID {
			continue
		}

		albums, err := tx.LoadAlbumsForTag(ctx, t.ID)
		if err != nil {
			return err
		}
		for _, album := range albums {
			if err := tx.RelinkAlbumTag(ctx, album, t.ID, primary.ID); err != nil {
				return err
			}
		}

		if err := tx.UpsertVariant(ctx, &domain.TagVariant{
			ID:        id.MustGenerate("var"),
			Name:      t.Name,
			TagID:     primary.ID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if err := tx.RelinkHierarchyEdges(ctx, t.ID, primary.ID); err != nil {
			return err
		}

		if err := tx.DeleteTag(ctx, t.ID); err != nil {
			return err
		}
	}

	frequency, err := tx.CountAlbumsForTag(ctx, primary.ID)
	if err != nil {
		return err
	}
	primary.Frequency = frequency
	primary.Touch()
	if err := tx.UpsertTag(ctx, primary); err != nil {
		return err
	}

	rec.Status = domain.MergeApplied
	if err := tx.AppendHistory(ctx, rec); err != nil {
		return err
	}

	return tx.Commit()
}

// History returns the in-memory merge log, oldest first.
func (c *Consolidator) History() []domain.MergeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.MergeRecord, len(c.history))
	copy(out, c.history)
	return out
}

// PendingCount reports how many merge groups are queued.
func (c *Consolidator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Consolidator) record(rec domain.MergeRecord) {
	c.mu.Lock()
	c.history = append(c.history, rec)
	c.mu.Unlock()
}

func tagNames(tags []*domain.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

// SelectCanonical picks the surviving tag of a duplicate group without
// human input: highest frequency, then shortest display name, then
// alphabetically first. Total and reproducible: the same group always
// yields the same survivor.
func SelectCanonical(group []*domain.Tag) *domain.Tag {
	if len(group) == 0 {
		return nil
	}
	sorted := make([]*domain.Tag, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		if len(a.Name) != len(b.Name) {
			return len(a.Name) < len(b.Name)
		}
		return a.Name < b.Name
	})
	return sorted[0]
}
