// Package service is the facade callers (CLI tooling, scripts, a future
// GUI) use. It ties normalization, validation, candidate finding, merging
// and migration together over one store, and keeps the in-memory hierarchy
// in step with the persisted edge set.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/consolidate"
	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/errors"
	"github.com/cratekeeper/cratekeeper/internal/hierarchy"
	"github.com/cratekeeper/cratekeeper/internal/id"
	"github.com/cratekeeper/cratekeeper/internal/logger"
	"github.com/cratekeeper/cratekeeper/internal/migrate"
	"github.com/cratekeeper/cratekeeper/internal/store"
	"github.com/cratekeeper/cratekeeper/internal/tagnorm"
)

// TagService exposes every catalogue-maintenance operation.
type TagService struct {
	store        store.Store
	engine       *tagnorm.Engine
	filter       *tagnorm.Filter
	graph        *hierarchy.Graph
	detector     *consolidate.Detector
	finder       *consolidate.Finder
	consolidator *consolidate.Consolidator
	orchestrator *migrate.Orchestrator
	rules        *config.Rules
	logger       *logger.Logger
}

// New assembles the service and hydrates the hierarchy graph from the
// persisted edge set.
func New(ctx context.Context, st store.Store, rules *config.Rules, log *logger.Logger) (*TagService, error) {
	if log == nil {
		log = logger.Discard()
	}

	engine := tagnorm.NewEngine(rules)
	filter := tagnorm.NewFilter(rules)

	edges, err := st.LoadHierarchyEdges(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "load hierarchy edges")
	}
	graph := hierarchy.FromEdges(edges)

	variants, err := st.LoadAllVariants(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "load variants")
	}

	detector := consolidate.NewDetector(graph, variants, rules)

	svc := &TagService{
		store:        st,
		engine:       engine,
		filter:       filter,
		graph:        graph,
		detector:     detector,
		finder:       consolidate.NewFinder(engine, rules),
		consolidator: consolidate.NewConsolidator(st, detector, graph, log),
		orchestrator: migrate.NewOrchestrator(st, engine, log),
		rules:        rules,
		logger:       log,
	}
	return svc, nil
}

// ReloadRules swaps in a new rule set, typically from the config watcher.
// The normalization cache is invalidated; the hierarchy graph is untouched
// because it reflects persisted edges, not rules.
func (s *TagService) ReloadRules(rules *config.Rules) {
	s.rules = rules
	s.engine.SetRules(rules)
	s.filter = tagnorm.NewFilter(rules)
	s.finder = consolidate.NewFinder(s.engine, rules)
	s.detector.SetRules(rules)
	s.logger.Info("rule tables reloaded")
}

// Normalize returns the canonical form of a raw tag string.
func (s *TagService) Normalize(raw string) string {
	return s.engine.Normalize(raw)
}

// Category classifies a tag into its broad genre family.
func (s *TagService) Category(tag string) domain.Category {
	return s.engine.Category(tag)
}

// Decompose expands a compound tag into its configured base tags.
func (s *TagService) Decompose(tag string) ([]string, bool) {
	return s.engine.Decompose(tag)
}

// ValidateTag runs the ingestion quality gate on one raw string.
func (s *TagService) ValidateTag(raw string) []domain.Finding {
	return s.filter.ValidateTag(raw)
}

// FilterTags partitions raw tags into accepted and rejected per the
// quality gate, applying suggested fixes to kept tags.
func (s *TagService) FilterTags(tags []string, strict bool) (accepted, rejected []string, report *tagnorm.FilterReport) {
	return s.filter.FilterTags(tags, strict)
}

// IngestResult reports what happened to each raw tag of one ingestion.
type IngestResult struct {
	Linked   []*domain.Tag        `json:"linked"`
	Rejected []string             `json:"rejected"`
	Unmapped []string             `json:"unmapped"`
	Report   *tagnorm.FilterReport `json:"report"`
}

// IngestAlbumTags runs the one-way ingestion flow for an album: validate,
// fix, normalize, find-or-create the canonical tag, and link it. Raw
// strings whose normalized form matches no known canonical vocabulary are
// additionally tracked for manual review.
func (s *TagService) IngestAlbumTags(ctx context.Context, albumID string, rawTags []string, strict bool) (*IngestResult, error) {
	accepted, rejected, report := s.filter.FilterTags(rawTags, strict)
	result := &IngestResult{Rejected: rejected, Report: report}

	for _, raw := range accepted {
		normalized := s.engine.Normalize(raw)
		if normalized == "" {
			result.Rejected = append(result.Rejected, raw)
			continue
		}

		if !s.engine.IsKnown(normalized) {
			if err := s.store.TrackUnmapped(ctx, raw); err != nil {
				return nil, errors.Wrapf(err, errors.CodePersistence, "track unmapped %q", raw)
			}
			result.Unmapped = append(result.Unmapped, raw)
		}

		tag, err := s.findOrCreateTag(ctx, raw, normalized)
		if err != nil {
			return nil, err
		}

		if err := s.store.LinkAlbumTag(ctx, albumID, tag.ID); err != nil {
			return nil, errors.Wrapf(err, errors.CodePersistence, "link album %s to %q", albumID, tag.Name)
		}
		result.Linked = append(result.Linked, tag)
	}

	return result, nil
}

func (s *TagService) findOrCreateTag(ctx context.Context, raw, normalized string) (*domain.Tag, error) {
	tag, err := s.store.GetTagByNormalized(ctx, normalized)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrapf(err, errors.CodePersistence, "lookup %q", normalized)
	}

	now := time.Now().UTC()
	tag = &domain.Tag{
		ID:             id.MustGenerate("tag"),
		Name:           displayName(raw, normalized),
		NormalizedName: normalized,
		Category:       s.engine.Category(normalized),
		IsCanonical:    true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return s.store.GetTagByNormalized(ctx, normalized)
		}
		return nil, errors.Wrapf(err, errors.CodePersistence, "create tag %q", tag.Name)
	}
	s.logger.Debug("tag created", "name", tag.Name, "normalized", normalized)
	return tag, nil
}

// displayName keeps the raw casing when it survives normalization intact,
// otherwise the canonical form itself becomes the display name.
func displayName(raw, normalized string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.EqualFold(strings.ReplaceAll(trimmed, " ", "-"), normalized) {
		return trimmed
	}
	return normalized
}

// IdentifyMergeCandidates groups likely duplicates across the whole
// corpus at the given similarity threshold.
func (s *TagService) IdentifyMergeCandidates(ctx context.Context, threshold float64) (map[string][]domain.SimilarityCandidate, error) {
	tags, err := s.store.LoadAllTags(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "load tags")
	}
	return s.finder.IdentifyMergeCandidates(tags, threshold), nil
}

// SuggestMerges returns deduplicated candidate pairs ranked by impact.
func (s *TagService) SuggestMerges(ctx context.Context, threshold float64, minFrequency int) ([]domain.SimilarityCandidate, error) {
	tags, err := s.store.LoadAllTags(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "load tags")
	}
	return s.finder.SuggestMerges(tags, threshold, minFrequency), nil
}

// PreviewMerge resolves tag names and computes a pure merge preview.
func (s *TagService) PreviewMerge(ctx context.Context, primaryName string, mergeNames []string) (*domain.MergePreview, error) {
	primary, mergeSet, err := s.resolveMerge(ctx, primaryName, mergeNames)
	if err != nil {
		return nil, err
	}
	return s.consolidator.PreviewMerge(ctx, primary, mergeSet)
}

// QueueMerge resolves tag names and queues the merge. Returns false when
// the merge is rejected by conflict policy and force is not set.
func (s *TagService) QueueMerge(ctx context.Context, primaryName string, mergeNames []string, force bool) (bool, error) {
	primary, mergeSet, err := s.resolveMerge(ctx, primaryName, mergeNames)
	if err != nil {
		return false, err
	}
	return s.consolidator.QueueMerge(ctx, primary, mergeSet, force)
}

// ApplyPendingMerges applies every queued merge, one transaction each.
func (s *TagService) ApplyPendingMerges(ctx context.Context) ([]domain.MergeRecord, error) {
	return s.consolidator.ApplyPendingMerges(ctx)
}

// PendingMerges reports how many merge groups await application.
func (s *TagService) PendingMerges() int {
	return s.consolidator.PendingCount()
}

// MergeHistory returns persisted audit records, newest first.
func (s *TagService) MergeHistory(ctx context.Context, limit int) ([]*domain.MergeRecord, error) {
	return s.store.ListHistory(ctx, limit)
}

func (s *TagService) resolveMerge(ctx context.Context, primaryName string, mergeNames []string) (*domain.Tag, []*domain.Tag, error) {
	primary, err := s.lookupTag(ctx, primaryName)
	if err != nil {
		return nil, nil, err
	}
	mergeSet := make([]*domain.Tag, 0, len(mergeNames))
	for _, name := range mergeNames {
		t, err := s.lookupTag(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		if t.ID == primary.ID {
			continue
		}
		mergeSet = append(mergeSet, t)
	}
	if len(mergeSet) == 0 {
		return nil, nil, errors.Validation("no tags to merge")
	}
	return primary, mergeSet, nil
}

func (s *TagService) lookupTag(ctx context.Context, name string) (*domain.Tag, error) {
	tag, err := s.store.GetTagByNormalized(ctx, s.engine.Normalize(name))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFoundf("tag %q", name)
		}
		return nil, errors.Wrapf(err, errors.CodePersistence, "lookup %q", name)
	}
	return tag, nil
}

// RunMigration executes the six-phase corpus pass. A committed run may
// have created variants in bulk, so the detector's alias index is re-read
// from the store afterwards.
func (s *TagService) RunMigration(ctx context.Context, dryRun bool) (*domain.MigrationStats, error) {
	stats, err := s.orchestrator.Run(ctx, dryRun)
	if err != nil || dryRun {
		return stats, err
	}

	variants, err := s.store.LoadAllVariants(ctx)
	if err != nil {
		return stats, errors.Wrap(err, errors.CodePersistence, "reload variants")
	}
	s.detector.ReplaceVariants(variants)
	return stats, nil
}

// AddRelationship records parent → child in both the persisted edge set
// and the in-memory graph, rejecting edges that would introduce a cycle.
func (s *TagService) AddRelationship(ctx context.Context, parentName, childName string) error {
	parent, err := s.lookupTag(ctx, parentName)
	if err != nil {
		return err
	}
	child, err := s.lookupTag(ctx, childName)
	if err != nil {
		return err
	}

	if err := s.graph.AddRelationship(parent.ID, child.ID); err != nil {
		return err
	}
	edge := domain.HierarchyEdge{ParentID: parent.ID, ChildID: child.ID}
	if err := s.store.AddHierarchyEdge(ctx, edge); err != nil {
		s.graph.RemoveRelationship(parent.ID, child.ID)
		return errors.Wrap(err, errors.CodePersistence, "persist hierarchy edge")
	}
	return nil
}

// RemoveRelationship drops the parent → child edge everywhere.
func (s *TagService) RemoveRelationship(ctx context.Context, parentName, childName string) error {
	parent, err := s.lookupTag(ctx, parentName)
	if err != nil {
		return err
	}
	child, err := s.lookupTag(ctx, childName)
	if err != nil {
		return err
	}

	s.graph.RemoveRelationship(parent.ID, child.ID)
	edge := domain.HierarchyEdge{ParentID: parent.ID, ChildID: child.ID}
	if err := s.store.RemoveHierarchyEdge(ctx, edge); err != nil {
		return errors.Wrap(err, errors.CodePersistence, "remove hierarchy edge")
	}
	return nil
}

// Ancestors returns every transitive parent of the named tag.
func (s *TagService) Ancestors(ctx context.Context, name string) ([]*domain.Tag, error) {
	return s.related(ctx, name, s.graph.Ancestors)
}

// Descendants returns every transitive child of the named tag.
func (s *TagService) Descendants(ctx context.Context, name string) ([]*domain.Tag, error) {
	return s.related(ctx, name, s.graph.Descendants)
}

func (s *TagService) related(ctx context.Context, name string, walk func(string) []string) ([]*domain.Tag, error) {
	tag, err := s.lookupTag(ctx, name)
	if err != nil {
		return nil, err
	}
	var out []*domain.Tag
	for _, tid := range walk(tag.ID) {
		t, err := s.store.GetTagByID(ctx, tid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, errors.Wrapf(err, errors.CodePersistence, "resolve tag %s", tid)
		}
		out = append(out, t)
	}
	return out, nil
}

// SuggestParents proposes hierarchy placements for a tag name based on
// the configured modifier and base-genre vocabulary.
func (s *TagService) SuggestParents(name string) []hierarchy.ParentSuggestion {
	return hierarchy.SuggestParents(s.engine.Normalize(name), &s.rules.Hierarchy)
}

// HierarchyStats summarizes the shape of the current graph.
func (s *TagService) HierarchyStats() hierarchy.Stats {
	return s.graph.Stats()
}

// ListUnmapped returns raw strings awaiting manual resolution, most
// frequent first.
func (s *TagService) ListUnmapped(ctx context.Context) ([]*domain.UnmappedTag, error) {
	return s.store.ListUnmapped(ctx)
}

// ResolveUnmapped marks a raw string as handled and teaches the engine
// its canonical form so future ingestions map it directly.
func (s *TagService) ResolveUnmapped(ctx context.Context, raw, canonical string) error {
	normalized := s.engine.Normalize(canonical)
	if normalized == "" {
		return errors.Validationf("canonical form of %q is empty", canonical)
	}
	s.engine.AddKnownTags(normalized)
	if err := s.store.ResolveUnmapped(ctx, raw); err != nil {
		return errors.Wrapf(err, errors.CodePersistence, "resolve unmapped %q", raw)
	}
	return nil
}
