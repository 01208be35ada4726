package sqlite

import (
	"context"
	"database/sql"

	"github.com/cratekeeper/cratekeeper/internal/domain"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, name, normalized_name, category, is_canonical, frequency, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		category  string
		canonical int
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&t.ID,
		&t.Name,
		&t.NormalizedName,
		&category,
		&canonical,
		&t.Frequency,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Category = domain.Category(category)
	t.IsCanonical = canonical != 0

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTag inserts a new tag.
// Returns store.ErrAlreadyExists if the id is taken.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (`+tagColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.NormalizedName,
		string(t.Category),
		boolToInt(t.IsCanonical),
		t.Frequency,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	return mapError(err)
}

// GetTagByID retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByID(ctx context.Context, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, tagID)

	t, err := scanTag(row)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

// GetTagByNormalized retrieves the canonical tag for a normalized form.
// Returns store.ErrNotFound if no canonical tag carries it.
func (s *Store) GetTagByNormalized(ctx context.Context, normalized string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags
		 WHERE normalized_name = ? AND is_canonical = 1
		 ORDER BY id LIMIT 1`, normalized)

	t, err := scanTag(row)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

// LoadAllTags returns every tag ordered by normalized name then id.
func (s *Store) LoadAllTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY normalized_name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTags(rows)
}

func collectTags(rows *sql.Rows) ([]*domain.Tag, error) {
	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
