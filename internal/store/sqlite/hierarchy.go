package sqlite

import (
	"context"

	"github.com/cratekeeper/cratekeeper/internal/domain"
)

// LoadHierarchyEdges returns the persisted parent→child edge set.
func (s *Store) LoadHierarchyEdges(ctx context.Context) ([]domain.HierarchyEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT parent_id, child_id FROM hierarchy_edges ORDER BY parent_id, child_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := []domain.HierarchyEdge{}
	for rows.Next() {
		var e domain.HierarchyEdge
		if err := rows.Scan(&e.ParentID, &e.ChildID); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// AddHierarchyEdge persists one parent→child edge. Adding an existing edge
// is a no-op. Cycle prevention happens in the hierarchy graph before this
// call.
func (s *Store) AddHierarchyEdge(ctx context.Context, edge domain.HierarchyEdge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO hierarchy_edges (parent_id, child_id)
		VALUES (?, ?)`,
		edge.ParentID,
		edge.ChildID,
	)
	return mapError(err)
}

// RemoveHierarchyEdge deletes one parent→child edge.
func (s *Store) RemoveHierarchyEdge(ctx context.Context, edge domain.HierarchyEdge) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM hierarchy_edges WHERE parent_id = ? AND child_id = ?`,
		edge.ParentID,
		edge.ChildID,
	)
	return err
}
