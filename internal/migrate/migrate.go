// Package migrate drives a full batch pass over an existing tag corpus:
// recompute normalized names, collapse duplicate groups, record variants,
// and refresh frequencies, all inside one transaction so a dry run can
// roll everything back without a trace.
package migrate

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cratekeeper/cratekeeper/internal/consolidate"
	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/errors"
	"github.com/cratekeeper/cratekeeper/internal/id"
	"github.com/cratekeeper/cratekeeper/internal/logger"
	"github.com/cratekeeper/cratekeeper/internal/store"
	"github.com/cratekeeper/cratekeeper/internal/tagnorm"
)

// Orchestrator runs the six-phase migration pass. Store-level failures
// (cannot begin or commit) abort the pass; a problem with a single tag is
// counted and skipped so one malformed row never sinks the whole run.
type Orchestrator struct {
	store  store.Store
	engine *tagnorm.Engine
	logger *logger.Logger
}

// NewOrchestrator wires a migration pass over the given store.
func NewOrchestrator(st store.Store, engine *tagnorm.Engine, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Discard()
	}
	return &Orchestrator{store: st, engine: engine, logger: log}
}

// analysis is the phase-1 snapshot: every tag with its freshly computed
// normalized form, grouped by that form.
type analysis struct {
	tags       []*domain.Tag
	normalized map[string]string   // tag ID -> computed normalized form
	groups     map[string][]*domain.Tag
}

// Run executes the full pass. With dryRun the mutation phases still run,
// so the returned stats are truthful, but the transaction rolls back and
// no history entry is written.
func (o *Orchestrator) Run(ctx context.Context, dryRun bool) (*domain.MigrationStats, error) {
	stats := &domain.MigrationStats{}
	start := time.Now()

	// Snapshot reads happen before the transaction opens: the store runs
	// on a single connection, so reads through it would wait on the tx.
	snap, err := o.analyze(ctx, stats)
	if err != nil {
		return nil, err
	}

	existingVariants, err := o.store.LoadAllVariants(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "load variants")
	}
	variantNames := make(map[string]struct{}, len(existingVariants))
	for _, v := range existingVariants {
		variantNames[v.Name] = struct{}{}
	}

	tx, err := o.store.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "begin migration transaction")
	}
	defer tx.Rollback()

	o.updateNormalizedNames(ctx, tx, snap, stats)
	survivors, mergedNames := o.consolidateDuplicates(ctx, tx, snap, stats)
	o.createVariants(ctx, tx, survivors, mergedNames, variantNames, stats)
	o.updateFrequencies(ctx, tx, snap, survivors, stats)

	if dryRun {
		o.logger.Info("dry run complete, rolling back",
			"processed", stats.TagsProcessed,
			"merged", stats.TagsMerged,
			"updated", stats.TagsUpdated,
			"errors", stats.Errors,
			"elapsed", time.Since(start))
		return stats, tx.Rollback()
	}

	if err := o.logHistory(ctx, tx, stats); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "commit migration")
	}

	o.logger.Info("migration complete",
		"processed", stats.TagsProcessed,
		"merged", stats.TagsMerged,
		"updated", stats.TagsUpdated,
		"variants", stats.VariantsCreated,
		"errors", stats.Errors,
		"elapsed", time.Since(start))
	return stats, nil
}

// analyze loads the corpus and groups tags by their recomputed normalized
// form. Pure reads; the normalization is fanned out across CPUs because a
// large corpus with fuzzy fallback is compute-bound.
func (o *Orchestrator) analyze(ctx context.Context, stats *domain.MigrationStats) (*analysis, error) {
	tags, err := o.store.LoadAllTags(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "load tags")
	}
	stats.TagsProcessed = len(tags)

	snap := &analysis{
		tags:       tags,
		normalized: make(map[string]string, len(tags)),
		groups:     make(map[string][]*domain.Tag),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, t := range tags {
		t := t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			norm := o.engine.Normalize(t.Name)
			mu.Lock()
			snap.normalized[t.ID] = norm
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range tags {
		norm := snap.normalized[t.ID]
		snap.groups[norm] = append(snap.groups[norm], t)
	}

	duplicateGroups := 0
	for _, group := range snap.groups {
		if len(group) > 1 {
			duplicateGroups++
		}
	}
	o.logger.Info("corpus analyzed", "tags", len(tags), "duplicate_groups", duplicateGroups)
	return snap, nil
}

// updateNormalizedNames writes back every tag whose stored normalized
// form no longer matches the rules.
func (o *Orchestrator) updateNormalizedNames(ctx context.Context, tx store.Tx, snap *analysis, stats *domain.MigrationStats) {
	for _, t := range snap.tags {
		norm := snap.normalized[t.ID]
		if t.NormalizedName == norm {
			continue
		}
		t.NormalizedName = norm
		t.Touch()
		if err := tx.UpsertTag(ctx, t); err != nil {
			stats.Errors++
			o.logger.WithError(err).Warn("normalized name update skipped", "tag", t.Name)
			continue
		}
		stats.TagsUpdated++
	}
}

// consolidateDuplicates collapses every duplicate group onto its
// deterministic survivor: albums relinked, hierarchy edges re-pointed,
// losers deleted. Returns the survivor per group and the display names
// that were merged away, keyed by survivor ID.
func (o *Orchestrator) consolidateDuplicates(ctx context.Context, tx store.Tx, snap *analysis, stats *domain.MigrationStats) (map[string]*domain.Tag, map[string][]string) {
	survivors := make(map[string]*domain.Tag)
	mergedNames := make(map[string][]string)

	// Deterministic group order so two runs produce identical logs and
	// identical error attribution.
	forms := make([]string, 0, len(snap.groups))
	for form := range snap.groups {
		forms = append(forms, form)
	}
	sort.Strings(forms)

	for _, form := range forms {
		group := snap.groups[form]
		// Tags that normalize to nothing are junk, not duplicates of each
		// other; merging them would cross-link unrelated albums. Left for
		// manual cleanup.
		if form == "" {
			for _, t := range group {
				o.logger.Warn("tag normalizes to empty form, skipped", "tag", t.Name)
			}
			continue
		}
		if len(group) < 2 {
			continue
		}

		primary := consolidate.SelectCanonical(group)
		primary.IsCanonical = true
		primary.Touch()
		if err := tx.UpsertTag(ctx, primary); err != nil {
			stats.Errors++
			o.logger.WithError(err).Warn("survivor update skipped", "tag", primary.Name)
			continue
		}
		survivors[primary.ID] = primary

		for _, t := range group {
			if t.ID == primary.ID {
				continue
			}
			if err := o.mergeInto(ctx, tx, t, primary); err != nil {
				stats.Errors++
				o.logger.WithError(err).Warn("duplicate merge skipped", "tag", t.Name, "into", primary.Name)
				continue
			}
			mergedNames[primary.ID] = append(mergedNames[primary.ID], t.Name)
			stats.TagsMerged++
		}
	}
	return survivors, mergedNames
}

func (o *Orchestrator) mergeInto(ctx context.Context, tx store.Tx, loser, primary *domain.Tag) error {
	albums, err := tx.LoadAlbumsForTag(ctx, loser.ID)
	if err != nil {
		return err
	}
	for _, album := range albums {
		if err := tx.RelinkAlbumTag(ctx, album, loser.ID, primary.ID); err != nil {
			return err
		}
	}
	if err := tx.RelinkHierarchyEdges(ctx, loser.ID, primary.ID); err != nil {
		return err
	}
	return tx.DeleteTag(ctx, loser.ID)
}

// createVariants records one variant per merged display name, skipping
// names the variant table already resolves.
func (o *Orchestrator) createVariants(ctx context.Context, tx store.Tx, survivors map[string]*domain.Tag, mergedNames map[string][]string, existing map[string]struct{}, stats *domain.MigrationStats) {
	now := time.Now().UTC()
	for primaryID, names := range mergedNames {
		for _, name := range names {
			if _, ok := existing[name]; ok {
				continue
			}
			v := &domain.TagVariant{
				ID:        id.MustGenerate("var"),
				Name:      name,
				TagID:     primaryID,
				CreatedAt: now,
			}
			if err := tx.UpsertVariant(ctx, v); err != nil {
				stats.Errors++
				o.logger.WithError(err).Warn("variant creation skipped", "name", name)
				continue
			}
			existing[name] = struct{}{}
			stats.VariantsCreated++
		}
	}
}

// updateFrequencies recomputes the album count of every surviving tag
// from the association table and writes back the ones that drifted.
func (o *Orchestrator) updateFrequencies(ctx context.Context, tx store.Tx, snap *analysis, survivors map[string]*domain.Tag, stats *domain.MigrationStats) {
	deleted := make(map[string]struct{})
	for form, group := range snap.groups {
		if form == "" || len(group) < 2 {
			continue
		}
		for _, t := range group {
			if _, keep := survivors[t.ID]; !keep {
				deleted[t.ID] = struct{}{}
			}
		}
	}

	for _, t := range snap.tags {
		if _, gone := deleted[t.ID]; gone {
			continue
		}
		count, err := tx.CountAlbumsForTag(ctx, t.ID)
		if err != nil {
			stats.Errors++
			o.logger.WithError(err).Warn("frequency recount skipped", "tag", t.Name)
			continue
		}
		if count == t.Frequency {
			continue
		}
		t.Frequency = count
		t.Touch()
		if err := tx.UpsertTag(ctx, t); err != nil {
			stats.Errors++
			o.logger.WithError(err).Warn("frequency update skipped", "tag", t.Name)
		}
	}
}

// logHistory appends one audit record summarizing the whole pass.
func (o *Orchestrator) logHistory(ctx context.Context, tx store.Tx, stats *domain.MigrationStats) error {
	rec := &domain.MergeRecord{
		ID:          id.MustGenerate("migration"),
		PrimaryName: "migration",
		Status:      domain.MergeApplied,
		Notes: fmt.Sprintf("processed=%d merged=%d updated=%d variants=%d errors=%d",
			stats.TagsProcessed, stats.TagsMerged, stats.TagsUpdated, stats.VariantsCreated, stats.Errors),
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.AppendHistory(ctx, rec); err != nil {
		return errors.Wrap(err, errors.CodePersistence, "append migration history")
	}
	return nil
}
