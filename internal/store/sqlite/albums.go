package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cratekeeper/cratekeeper/internal/domain"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so shared queries can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateAlbum inserts a new album.
func (s *Store) CreateAlbum(ctx context.Context, a *domain.Album) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO albums (id, artist, title, year, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID,
		a.Artist,
		a.Title,
		a.Year,
		formatTime(a.CreatedAt),
	)
	return mapError(err)
}

// LinkAlbumTag associates an album with a tag. Linking twice is a no-op.
func (s *Store) LinkAlbumTag(ctx context.Context, albumID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO album_tags (album_id, tag_id, created_at)
		VALUES (?, ?, ?)`,
		albumID,
		tagID,
		formatTime(time.Now()),
	)
	return mapError(err)
}

// LoadAlbumsForTag returns the album ids associated with a tag, ordered.
func (s *Store) LoadAlbumsForTag(ctx context.Context, tagID string) ([]string, error) {
	return loadAlbumsForTag(ctx, s.db, tagID)
}

// CountAlbumsForTag returns the number of distinct albums holding a tag.
func (s *Store) CountAlbumsForTag(ctx context.Context, tagID string) (int, error) {
	return countAlbumsForTag(ctx, s.db, tagID)
}

func loadAlbumsForTag(ctx context.Context, q dbtx, tagID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT album_id FROM album_tags WHERE tag_id = ? ORDER BY album_id`, tagID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	albums := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		albums = append(albums, id)
	}
	return albums, rows.Err()
}

func countAlbumsForTag(ctx context.Context, q dbtx, tagID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT album_id) FROM album_tags WHERE tag_id = ?`, tagID).Scan(&count)
	return count, err
}
