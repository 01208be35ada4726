package service

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
	"github.com/cratekeeper/cratekeeper/internal/errors"
	"github.com/cratekeeper/cratekeeper/internal/id"
	"github.com/cratekeeper/cratekeeper/internal/logger"
	"github.com/cratekeeper/cratekeeper/internal/store/sqlite"
)

func newTestService(t *testing.T) (*TagService, *sqlite.Store) {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc, err := New(context.Background(), st, config.DefaultRules(), logger.Discard())
	require.NoError(t, err)
	return svc, st
}

func createAlbum(t *testing.T, st *sqlite.Store, albumID string) {
	t.Helper()
	err := st.CreateAlbum(context.Background(), &domain.Album{
		ID:        albumID,
		Artist:    "artist",
		Title:     albumID,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestIngestAlbumTags(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	createAlbum(t, st, "alb_1")

	result, err := svc.IngestAlbumTags(ctx, "alb_1", []string{"Black Metal", "LP", "Doom Metal"}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"LP"}, result.Rejected)
	require.Len(t, result.Linked, 2)
	assert.Equal(t, "black-metal", result.Linked[0].NormalizedName)
	assert.Equal(t, "Black Metal", result.Linked[0].Name)
	assert.Equal(t, domain.CategoryMetal, result.Linked[0].Category)
	assert.Empty(t, result.Unmapped)

	albums, err := st.LoadAlbumsForTag(ctx, result.Linked[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alb_1"}, albums)
}

func TestIngestAlbumTags_VariantsShareOneTag(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	createAlbum(t, st, "alb_1")
	createAlbum(t, st, "alb_2")

	first, err := svc.IngestAlbumTags(ctx, "alb_1", []string{"Black Metal"}, false)
	require.NoError(t, err)
	second, err := svc.IngestAlbumTags(ctx, "alb_2", []string{"blackmetal"}, false)
	require.NoError(t, err)

	require.Len(t, first.Linked, 1)
	require.Len(t, second.Linked, 1)
	assert.Equal(t, first.Linked[0].ID, second.Linked[0].ID)

	tags, err := st.LoadAllTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	count, err := st.CountAlbumsForTag(ctx, first.Linked[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestAlbumTags_TracksUnmapped(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	createAlbum(t, st, "alb_1")

	result, err := svc.IngestAlbumTags(ctx, "alb_1", []string{"qqqqqqqq"}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"qqqqqqqq"}, result.Unmapped)
	// Unknown tags are still created and linked; tracking is for review,
	// not a gate.
	require.Len(t, result.Linked, 1)

	unmapped, err := st.ListUnmapped(ctx)
	require.NoError(t, err)
	require.Len(t, unmapped, 1)
	assert.Equal(t, "qqqqqqqq", unmapped[0].RawValue)
}

func TestResolveUnmapped_TeachesEngine(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	createAlbum(t, st, "alb_1")
	createAlbum(t, st, "alb_2")

	_, err := svc.IngestAlbumTags(ctx, "alb_1", []string{"zeuhl"}, false)
	require.NoError(t, err)

	require.NoError(t, svc.ResolveUnmapped(ctx, "zeuhl", "zeuhl"))

	unmapped, err := st.ListUnmapped(ctx)
	require.NoError(t, err)
	assert.Empty(t, unmapped)

	result, err := svc.IngestAlbumTags(ctx, "alb_2", []string{"zeuhl"}, false)
	require.NoError(t, err)
	assert.Empty(t, result.Unmapped)
}

func TestMergeByName(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	createAlbum(t, st, "alb_1")
	createAlbum(t, st, "alb_2")

	_, err := svc.IngestAlbumTags(ctx, "alb_1", []string{"sludge metal"}, false)
	require.NoError(t, err)
	_, err = svc.IngestAlbumTags(ctx, "alb_2", []string{"stoner metal"}, false)
	require.NoError(t, err)

	preview, err := svc.PreviewMerge(ctx, "sludge metal", []string{"stoner metal"})
	require.NoError(t, err)
	assert.Equal(t, 1, preview.AffectedAlbums)
	assert.Equal(t, 1, preview.FrequencyChange)
	assert.False(t, preview.HasBlockingConflict())

	queued, err := svc.QueueMerge(ctx, "sludge metal", []string{"stoner metal"}, false)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, 1, svc.PendingMerges())

	records, err := svc.ApplyPendingMerges(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.MergeApplied, records[0].Status)
	assert.Equal(t, 0, svc.PendingMerges())

	// The loser resolves to nothing; the survivor holds both albums.
	_, err = svc.PreviewMerge(ctx, "stoner metal", []string{"sludge metal"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	survivor, err := st.GetTagByNormalized(ctx, "sludge-metal")
	require.NoError(t, err)
	assert.Equal(t, 2, survivor.Frequency)

	history, err := svc.MergeHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.MergeApplied, history[0].Status)
}

func TestMergeByName_NoTagsToMerge(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	createAlbum(t, st, "alb_1")

	_, err := svc.IngestAlbumTags(ctx, "alb_1", []string{"sludge metal"}, false)
	require.NoError(t, err)

	// Merging a tag into itself leaves an empty merge set.
	_, err = svc.QueueMerge(ctx, "sludge metal", []string{"Sludge Metal"}, false)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestHierarchyRelationships(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	createAlbum(t, st, "alb_1")

	_, err := svc.IngestAlbumTags(ctx, "alb_1", []string{"metal", "black metal", "atmospheric black metal"}, false)
	require.NoError(t, err)

	require.NoError(t, svc.AddRelationship(ctx, "metal", "black metal"))
	require.NoError(t, svc.AddRelationship(ctx, "black metal", "atmospheric black metal"))

	// The closing edge would make a cycle.
	err = svc.AddRelationship(ctx, "atmospheric black metal", "metal")
	assert.True(t, errors.Is(err, errors.ErrCycle))

	ancestors, err := svc.Ancestors(ctx, "atmospheric black metal")
	require.NoError(t, err)
	names := make([]string, 0, len(ancestors))
	for _, a := range ancestors {
		names = append(names, a.NormalizedName)
	}
	assert.ElementsMatch(t, []string{"black-metal", "metal"}, names)

	descendants, err := svc.Descendants(ctx, "metal")
	require.NoError(t, err)
	assert.Len(t, descendants, 2)

	// Edges survive a service restart through the persisted edge set.
	restarted, err := New(ctx, st, config.DefaultRules(), logger.Discard())
	require.NoError(t, err)
	ancestors, err = restarted.Ancestors(ctx, "atmospheric black metal")
	require.NoError(t, err)
	assert.Len(t, ancestors, 2)

	require.NoError(t, svc.RemoveRelationship(ctx, "black metal", "atmospheric black metal"))
	ancestors, err = svc.Ancestors(ctx, "atmospheric black metal")
	require.NoError(t, err)
	assert.Empty(t, ancestors)
}

func TestSuggestParents(t *testing.T) {
	svc, _ := newTestService(t)

	suggestions := svc.SuggestParents("Atmospheric Black Metal")
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "metal", suggestions[0].Parent)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Black Metal", displayName("Black Metal", "black-metal"))
	assert.Equal(t, "black-metal", displayName("blackmetal", "black-metal"))
	assert.Equal(t, "doom-metal", displayName("doom  metal", "doom-metal"))
}

func TestReloadRules(t *testing.T) {
	svc, _ := newTestService(t)

	rules := config.DefaultRules()
	rules.Normalization.Synonyms["braindance"] = "intelligent-dance-music"
	svc.ReloadRules(rules)

	assert.Equal(t, "intelligent-dance-music", svc.Normalize("Braindance"))
}

func TestRunMigration_Smoke(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	// A pre-normalization corpus: raw forms stored as their own normalized
	// names, the way a legacy import would leave them.
	for _, name := range []string{"Black Metal", "blackmetal"} {
		tag := &domain.Tag{
			ID:             id.MustGenerate("tag"),
			Name:           name,
			NormalizedName: name,
			Category:       domain.CategoryMetal,
			IsCanonical:    true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, st.CreateTag(ctx, tag))
	}

	stats, err := svc.RunMigration(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TagsProcessed)
	assert.Equal(t, 1, stats.TagsMerged)

	tags, err := st.LoadAllTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
	assert.Equal(t, "black-metal", tags[0].NormalizedName)
}

func TestReloadRules_FrequencyRatioAppliesToMerges(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	createAlbum(t, st, "alb_sg")
	_, err := svc.IngestAlbumTags(ctx, "alb_sg", []string{"Shoegaze"}, false)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		albumID := fmt.Sprintf("alb_tc_%d", i)
		createAlbum(t, st, albumID)
		_, err := svc.IngestAlbumTags(ctx, albumID, []string{"Techno"}, false)
		require.NoError(t, err)
	}

	// Merging the far more frequent tag into the rare one is refused
	// under the default ratio.
	queued, err := svc.QueueMerge(ctx, "shoegaze", []string{"techno"}, false)
	require.NoError(t, err)
	assert.False(t, queued)

	rules := config.DefaultRules()
	rules.Consolidation.FrequencyRatio = 100
	svc.ReloadRules(rules)

	queued, err = svc.QueueMerge(ctx, "shoegaze", []string{"techno"}, false)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, 1, svc.PendingMerges())
}

func TestRunMigration_RefreshesVariantIndex(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Two spellings of one tag; the migration keeps the busier one and
	// records the other as a variant.
	for _, seed := range []struct {
		id, name string
		albums   int
	}{
		{"tag_dp", "dream-pop", 2},
		{"tag_dp2", "DREAM-POP", 0},
	} {
		require.NoError(t, st.CreateTag(ctx, &domain.Tag{
			ID:             seed.id,
			Name:           seed.name,
			NormalizedName: seed.name,
			Category:       domain.CategoryElectronic,
			IsCanonical:    true,
			Frequency:      seed.albums,
			CreatedAt:      now,
			UpdatedAt:      now,
		}))
		for i := 0; i < seed.albums; i++ {
			albumID := fmt.Sprintf("%s_alb_%d", seed.id, i)
			createAlbum(t, st, albumID)
			require.NoError(t, st.LinkAlbumTag(ctx, albumID, seed.id))
		}
	}
	createAlbum(t, st, "alb_tc")
	_, err := svc.IngestAlbumTags(ctx, "alb_tc", []string{"Techno"}, false)
	require.NoError(t, err)

	stats, err := svc.RunMigration(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.VariantsCreated)

	// The merged-away spelling now aliases the survivor, so pulling the
	// survivor under another tag must surface the collision without a
	// restart.
	preview, err := svc.PreviewMerge(ctx, "techno", []string{"dream pop"})
	require.NoError(t, err)
	found := false
	for _, c := range preview.Conflicts {
		if c.Type == domain.ConflictVariantCollision {
			found = true
		}
	}
	assert.True(t, found)

	queued, err := svc.QueueMerge(ctx, "techno", []string{"dream pop"}, false)
	require.NoError(t, err)
	assert.False(t, queued)
}
