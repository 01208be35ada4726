package sqlite

import (
	"context"

	"github.com/cratekeeper/cratekeeper/internal/domain"
)

// LoadAllVariants returns every recorded tag variant ordered by name.
func (s *Store) LoadAllVariants(ctx context.Context) ([]*domain.TagVariant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, tag_id, created_at FROM tag_variants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	variants := []*domain.TagVariant{}
	for rows.Next() {
		var v domain.TagVariant
		var createdAt string
		if err := rows.Scan(&v.ID, &v.Name, &v.TagID, &createdAt); err != nil {
			return nil, err
		}
		v.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		variants = append(variants, &v)
	}
	return variants, rows.Err()
}
