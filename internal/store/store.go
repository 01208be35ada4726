// Package store defines the persistence collaborator the tag engine works
// against. The engine only ever sees these operations; the concrete SQLite
// implementation lives in the sqlite subpackage.
package store

import (
	"context"
	"errors"

	"github.com/cratekeeper/cratekeeper/internal/domain"
)

// Sentinel errors shared by all store implementations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Store is the read side plus non-transactional writes of the persistence
// collaborator. Batch mutations (merges, migration) go through Begin.
type Store interface {
	// Tags.
	LoadAllTags(ctx context.Context) ([]*domain.Tag, error)
	GetTagByID(ctx context.Context, tagID string) (*domain.Tag, error)
	GetTagByNormalized(ctx context.Context, normalized string) (*domain.Tag, error)
	CreateTag(ctx context.Context, t *domain.Tag) error

	// Albums and associations.
	CreateAlbum(ctx context.Context, a *domain.Album) error
	LinkAlbumTag(ctx context.Context, albumID, tagID string) error
	LoadAlbumsForTag(ctx context.Context, tagID string) ([]string, error)
	CountAlbumsForTag(ctx context.Context, tagID string) (int, error)

	// Variants.
	LoadAllVariants(ctx context.Context) ([]*domain.TagVariant, error)

	// Hierarchy edges.
	LoadHierarchyEdges(ctx context.Context) ([]domain.HierarchyEdge, error)
	AddHierarchyEdge(ctx context.Context, edge domain.HierarchyEdge) error
	RemoveHierarchyEdge(ctx context.Context, edge domain.HierarchyEdge) error

	// Merge/migration audit log.
	ListHistory(ctx context.Context, limit int) ([]*domain.MergeRecord, error)

	// Unmapped raw strings awaiting manual resolution.
	TrackUnmapped(ctx context.Context, raw string) error
	ListUnmapped(ctx context.Context) ([]*domain.UnmappedTag, error)
	ResolveUnmapped(ctx context.Context, raw string) error

	// Begin opens a transaction for a merge group or migration pass.
	Begin(ctx context.Context) (Tx, error)

	Close() error
}

// Tx is one transactional unit of tag mutations. Either Commit or Rollback
// must be called exactly once. Not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	UpsertTag(ctx context.Context, t *domain.Tag) error
	DeleteTag(ctx context.Context, tagID string) error
	UpsertVariant(ctx context.Context, v *domain.TagVariant) error

	// RelinkAlbumTag moves one album's association from one tag to another,
	// deduplicating: an album never holds the same tag twice.
	RelinkAlbumTag(ctx context.Context, albumID, fromTagID, toTagID string) error

	LoadAlbumsForTag(ctx context.Context, tagID string) ([]string, error)
	CountAlbumsForTag(ctx context.Context, tagID string) (int, error)

	// RelinkHierarchyEdges re-points every hierarchy edge touching one tag
	// onto another, dropping self-loops. Used when a merge deletes a tag.
	RelinkHierarchyEdges(ctx context.Context, fromTagID, toTagID string) error

	AppendHistory(ctx context.Context, rec *domain.MergeRecord) error
}
