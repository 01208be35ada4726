package hierarchy

// Stats summarizes the shape of the hierarchy, useful for sanity-checking
// after a migration pass.
type Stats struct {
	Tags          int     `json:"tags"`          // Tags with at least one edge
	Edges         int     `json:"edges"`         // Total parent→child edges
	Roots         int     `json:"roots"`         // Tags with children but no parents
	Leaves        int     `json:"leaves"`        // Tags with parents but no children
	Intermediates int     `json:"intermediates"` // Tags with both
	AvgFanOut     float64 `json:"avg_fan_out"`   // Mean children per non-leaf tag
}

// Stats computes summary statistics over the current graph.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make(map[string]struct{})
	edges := 0
	for parent, kids := range g.children {
		if len(kids) == 0 {
			continue
		}
		nodes[parent] = struct{}{}
		for child := range kids {
			nodes[child] = struct{}{}
			edges++
		}
	}

	var s Stats
	s.Tags = len(nodes)
	s.Edges = edges

	parentsCount := 0
	for node := range nodes {
		hasParents := len(g.parents[node]) > 0
		hasChildren := len(g.children[node]) > 0
		switch {
		case hasChildren && !hasParents:
			s.Roots++
		case hasParents && !hasChildren:
			s.Leaves++
		case hasParents && hasChildren:
			s.Intermediates++
		}
		if hasChildren {
			parentsCount++
		}
	}

	if parentsCount > 0 {
		s.AvgFanOut = float64(edges) / float64(parentsCount)
	}
	return s
}
