package sqlite

import (
	"context"
	"time"

	"github.com/cratekeeper/cratekeeper/internal/domain"
)

// TrackUnmapped records a raw tag string whose normalized form matched no
// known canonical tag, bumping its album count if already seen.
func (s *Store) TrackUnmapped(ctx context.Context, raw string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO unmapped_tags (raw_value, album_count, first_seen)
		VALUES (?, 1, ?)
		ON CONFLICT(raw_value) DO UPDATE SET album_count = album_count + 1`,
		raw,
		formatTime(time.Now()),
	)
	return mapError(err)
}

// ListUnmapped returns tracked unmapped strings, most frequent first.
func (s *Store) ListUnmapped(ctx context.Context) ([]*domain.UnmappedTag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT raw_value, album_count, first_seen
		FROM unmapped_tags ORDER BY album_count DESC, raw_value`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	unmapped := []*domain.UnmappedTag{}
	for rows.Next() {
		var u domain.UnmappedTag
		var firstSeen string
		if err := rows.Scan(&u.RawValue, &u.AlbumCount, &firstSeen); err != nil {
			return nil, err
		}
		u.FirstSeen, err = parseTime(firstSeen)
		if err != nil {
			return nil, err
		}
		unmapped = append(unmapped, &u)
	}
	return unmapped, rows.Err()
}

// ResolveUnmapped removes a raw string from the unmapped list once a mapping
// for it exists.
func (s *Store) ResolveUnmapped(ctx context.Context, raw string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM unmapped_tags WHERE raw_value = ?`, raw)
	return err
}
