package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/store"
)

// Tx wraps a sql.Tx with the mutations a merge group or migration pass
// needs. Not safe for concurrent use.
type Tx struct {
	tx *sql.Tx
}

// Begin opens a new transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Safe to call after Commit; the error is
// discarded by callers that defer it.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// UpsertTag inserts or fully replaces a tag row.
func (t *Tx) UpsertTag(ctx context.Context, tag *domain.Tag) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tags (`+tagColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			normalized_name = excluded.normalized_name,
			category = excluded.category,
			is_canonical = excluded.is_canonical,
			frequency = excluded.frequency,
			updated_at = excluded.updated_at`,
		tag.ID,
		tag.Name,
		tag.NormalizedName,
		string(tag.Category),
		boolToInt(tag.IsCanonical),
		tag.Frequency,
		formatTime(tag.CreatedAt),
		formatTime(tag.UpdatedAt),
	)
	return mapError(err)
}

// DeleteTag removes a tag row. Album associations must be relinked first;
// any stragglers are cascaded away by the schema.
func (t *Tx) DeleteTag(ctx context.Context, tagID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, tagID)
	return err
}

// UpsertVariant records a historical alias. A variant name points at exactly
// one canonical tag; re-upserting the same name re-points it.
func (t *Tx) UpsertVariant(ctx context.Context, v *domain.TagVariant) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tag_variants (id, name, tag_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET tag_id = excluded.tag_id`,
		v.ID,
		v.Name,
		v.TagID,
		formatTime(v.CreatedAt),
	)
	return mapError(err)
}

// RelinkAlbumTag moves one album's association between tags, deduplicating:
// if the album already holds the target tag the old association is simply
// dropped.
func (t *Tx) RelinkAlbumTag(ctx context.Context, albumID, fromTagID, toTagID string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO album_tags (album_id, tag_id, created_at)
		VALUES (?, ?, ?)`,
		albumID,
		toTagID,
		formatTime(time.Now()),
	)
	if err != nil {
		return mapError(err)
	}

	_, err = t.tx.ExecContext(ctx,
		`DELETE FROM album_tags WHERE album_id = ? AND tag_id = ?`,
		albumID,
		fromTagID,
	)
	return err
}

// LoadAlbumsForTag returns the album ids associated with a tag within the
// transaction.
func (t *Tx) LoadAlbumsForTag(ctx context.Context, tagID string) ([]string, error) {
	return loadAlbumsForTag(ctx, t.tx, tagID)
}

// CountAlbumsForTag returns the number of distinct albums holding a tag
// within the transaction.
func (t *Tx) CountAlbumsForTag(ctx context.Context, tagID string) (int, error) {
	return countAlbumsForTag(ctx, t.tx, tagID)
}

// RelinkHierarchyEdges re-points edges from one tag onto another.
// Duplicate edges collapse and self-loops are dropped.
func (t *Tx) RelinkHierarchyEdges(ctx context.Context, fromTagID, toTagID string) error {
	statements := []struct {
		query string
		args  []any
	}{
		{`UPDATE OR IGNORE hierarchy_edges SET parent_id = ? WHERE parent_id = ?`, []any{toTagID, fromTagID}},
		{`DELETE FROM hierarchy_edges WHERE parent_id = ?`, []any{fromTagID}},
		{`UPDATE OR IGNORE hierarchy_edges SET child_id = ? WHERE child_id = ?`, []any{toTagID, fromTagID}},
		{`DELETE FROM hierarchy_edges WHERE child_id = ?`, []any{fromTagID}},
		{`DELETE FROM hierarchy_edges WHERE parent_id = child_id`, nil},
	}
	for _, stmt := range statements {
		if _, err := t.tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// AppendHistory writes one audit record.
func (t *Tx) AppendHistory(ctx context.Context, rec *domain.MergeRecord) error {
	return appendHistory(ctx, t.tx, rec)
}

var _ store.Tx = (*Tx)(nil)
