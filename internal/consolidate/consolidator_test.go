package consolidate

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/hierarchy"
	"github.com/cratekeeper/cratekeeper/internal/logger"
	"github.com/cratekeeper/cratekeeper/internal/store"
	"github.com/cratekeeper/cratekeeper/internal/store/sqlite"
)

func newMergeFixture(t *testing.T) (store.Store, *Consolidator, *hierarchy.Graph) {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	graph := hierarchy.New()
	detector := NewDetector(graph, nil, config.DefaultRules())
	return s, NewConsolidator(s, detector, graph, logger.Discard()), graph
}

func seedTag(t *testing.T, s store.Store, id, name string, albums int) *domain.Tag {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	tag := &domain.Tag{
		ID:             id,
		Name:           name,
		NormalizedName: name,
		Category:       domain.CategoryMetal,
		IsCanonical:    true,
		Frequency:      albums,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.CreateTag(ctx, tag))

	for i := 0; i < albums; i++ {
		albumID := fmt.Sprintf("%s-album-%d", id, i)
		require.NoError(t, s.CreateAlbum(ctx, &domain.Album{
			ID:        albumID,
			Artist:    "artist",
			Title:     albumID,
			CreatedAt: now,
		}))
		require.NoError(t, s.LinkAlbumTag(ctx, albumID, id))
	}
	return tag
}

func TestPreviewMerge_PureComputation(t *testing.T) {
	s, c, _ := newMergeFixture(t)
	ctx := context.Background()

	primary := seedTag(t, s, "t1", "black-metal", 3)
	other := seedTag(t, s, "t2", "blackmetal", 2)

	preview, err := c.PreviewMerge(ctx, primary, []*domain.Tag{other})
	require.NoError(t, err)

	assert.Equal(t, 2, preview.AffectedAlbums)
	assert.Equal(t, 2, preview.FrequencyChange)
	assert.Empty(t, preview.Conflicts)

	// Nothing persisted, nothing queued.
	tags, err := s.LoadAllTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
	assert.Zero(t, c.PendingCount())
}

func TestPreviewMerge_SharedAlbumsDoNotInflateFrequency(t *testing.T) {
	s, c, _ := newMergeFixture(t)
	ctx := context.Background()

	primary := seedTag(t, s, "t1", "black-metal", 2)
	other := seedTag(t, s, "t2", "blackmetal", 2)
	// One of other's albums already carries the primary.
	require.NoError(t, s.LinkAlbumTag(ctx, "t2-album-0", "t1"))

	preview, err := c.PreviewMerge(ctx, primary, []*domain.Tag{other})
	require.NoError(t, err)
	assert.Equal(t, 2, preview.AffectedAlbums)
	assert.Equal(t, 1, preview.FrequencyChange)
}

func TestQueueMerge_FrequencyMismatchBlocksWithoutForce(t *testing.T) {
	s, c, _ := newMergeFixture(t)
	ctx := context.Background()

	primary := seedTag(t, s, "t1", "prog", 2)
	other := seedTag(t, s, "t2", "progressive", 10)

	queued, err := c.QueueMerge(ctx, primary, []*domain.Tag{other}, false)
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Zero(t, c.PendingCount())

	history := c.History()
	require.Len(t, history, 1)
	assert.Equal(t, domain.MergeRejected, history[0].Status)
	assert.True(t, history[0].Status.Terminal())
	require.NotEmpty(t, history[0].Conflicts)
	assert.Equal(t, domain.ConflictFrequencyMismatch, history[0].Conflicts[0].Type)
}

func TestQueueMerge_ForceBypassesAndRecordsConflict(t *testing.T) {
	s, c, _ := newMergeFixture(t)
	ctx := context.Background()

	primary := seedTag(t, s, "t1", "prog", 2)
	other := seedTag(t, s, "t2", "progressive", 10)

	queued, err := c.QueueMerge(ctx, primary, []*domain.Tag{other}, true)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, 1, c.PendingCount())

	records, err := c.ApplyPendingMerges(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.MergeApplied, records[0].Status)
	assert.True(t, records[0].Forced)
	require.NotEmpty(t, records[0].Conflicts)

	// The bypassed conflict survives in the persisted history.
	persisted, err := s.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.True(t, persisted[0].Forced)
	assert.NotEmpty(t, persisted[0].Conflicts)
}

func TestApplyPendingMerges_RelinksAndDeletes(t *testing.T) {
	s, c, graph := newMergeFixture(t)
	ctx := context.Background()

	require.NoError(t, graph.AddRelationship("parent", "t2"))

	primary := seedTag(t, s, "t1", "black-metal", 3)
	other := seedTag(t, s, "t2", "blackmetal", 2)
	// Overlap: one album carries both tags.
	require.NoError(t, s.LinkAlbumTag(ctx, "t2-album-0", "t1"))

	queued, err := c.QueueMerge(ctx, primary, []*domain.Tag{other}, false)
	require.NoError(t, err)
	require.True(t, queued)

	records, err := c.ApplyPendingMerges(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, domain.MergeApplied, records[0].Status)

	// Loser deleted.
	_, err = s.GetTagByID(ctx, "t2")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Albums relinked, deduplicated: 3 + 2 - 1 shared = 4.
	count, err := s.CountAlbumsForTag(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// Frequency recomputed on the surviving tag.
	survivor, err := s.GetTagByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 4, survivor.Frequency)

	// Merged display name recorded as a variant of the survivor.
	variants, err := s.LoadAllVariants(ctx)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "blackmetal", variants[0].Name)
	assert.Equal(t, "t1", variants[0].TagID)

	// Graph edge re-pointed onto the survivor.
	assert.Equal(t, []string{"t1"}, graph.Children("parent"))
}

func TestApplyPendingMerges_EmptyQueue(t *testing.T) {
	_, c, _ := newMergeFixture(t)

	records, err := c.ApplyPendingMerges(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSelectCanonical(t *testing.T) {
	byFrequency := SelectCanonical([]*domain.Tag{
		makeTag("t1", "blackmetal", 3),
		makeTag("t2", "black metal", 50),
	})
	assert.Equal(t, "t2", byFrequency.ID)

	byLength := SelectCanonical([]*domain.Tag{
		makeTag("t1", "black metal", 5),
		makeTag("t2", "black-metal!", 5),
	})
	assert.Equal(t, "t1", byLength.ID)

	alphabetical := SelectCanonical([]*domain.Tag{
		makeTag("t1", "blazk metal", 5),
		makeTag("t2", "black metal", 5),
	})
	assert.Equal(t, "t2", alphabetical.ID)

	assert.Nil(t, SelectCanonical(nil))
}

func TestSelectCanonical_Deterministic(t *testing.T) {
	group := []*domain.Tag{
		makeTag("t3", "doom metal", 5),
		makeTag("t1", "doommetal!", 5),
		makeTag("t2", "doom-metal", 5),
	}

	first := SelectCanonical(group)
	for i := 0; i < 10; i++ {
		// Same result regardless of input order.
		reversed := []*domain.Tag{group[2], group[0], group[1]}
		assert.Equal(t, first.ID, SelectCanonical(reversed).ID)
		assert.Equal(t, first.ID, SelectCanonical(group).ID)
	}
}

func TestQueueMerge_SeesVariantsFromEarlierApply(t *testing.T) {
	s, c, _ := newMergeFixture(t)
	ctx := context.Background()

	shoegaze := seedTag(t, s, "t1", "shoegaze", 3)
	dreamPop := seedTag(t, s, "t2", "dream-pop", 2)
	techno := seedTag(t, s, "t3", "techno", 2)

	queued, err := c.QueueMerge(ctx, shoegaze, []*domain.Tag{dreamPop}, false)
	require.NoError(t, err)
	require.True(t, queued)
	_, err = c.ApplyPendingMerges(ctx)
	require.NoError(t, err)

	// The merged name resurfaces as a fresh tag. Merging it anywhere
	// else would re-point the alias created above.
	reborn := seedTag(t, s, "t4", "dream-pop", 1)

	queued, err = c.QueueMerge(ctx, techno, []*domain.Tag{reborn}, false)
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Zero(t, c.PendingCount())

	history := c.History()
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, domain.MergeRejected, last.Status)
	assert.True(t, conflictOfType(last.Conflicts, domain.ConflictVariantCollision))
}
