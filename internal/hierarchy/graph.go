// Package hierarchy maintains the acyclic parent/child relation over
// canonical tags as an explicit adjacency structure. Traversals use
// visited-set BFS so they terminate even if a malformed edit slips a cycle
// into persisted data.
package hierarchy

import (
	"sort"
	"sync"

	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/errors"
)

// Graph is the in-memory hierarchy DAG, keyed by tag ID.
// Safe for concurrent use. Persistence happens through the store
// collaborator at commit time, not here.
type Graph struct {
	mu       sync.RWMutex
	parents  map[string]map[string]struct{}
	children map[string]map[string]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		parents:  make(map[string]map[string]struct{}),
		children: make(map[string]map[string]struct{}),
	}
}

// FromEdges builds a graph from a persisted edge set. Edges that would
// create a cycle are dropped rather than trusted; hand-edited data is
// cycle-prone.
func FromEdges(edges []domain.HierarchyEdge) *Graph {
	g := New()
	for _, e := range edges {
		// Ignore the error: a bad persisted edge must not poison the rest.
		_ = g.AddRelationship(e.ParentID, e.ChildID)
	}
	return g
}

// AddRelationship adds a parent→child edge. It fails with a cycle error and
// leaves the graph unchanged if child is already an ancestor of parent (or
// parent == child).
func (g *Graph) AddRelationship(parent, child string) error {
	if parent == "" || child == "" {
		return errors.Validation("hierarchy edge requires both parent and child")
	}
	if parent == child {
		return errors.Cycle("tag %q cannot be its own parent", parent)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.reachableLocked(parent, child, g.parents) {
		return errors.Cycle("adding %q under %q would make it its own ancestor", child, parent)
	}

	if g.children[parent] == nil {
		g.children[parent] = make(map[string]struct{})
	}
	if g.parents[child] == nil {
		g.parents[child] = make(map[string]struct{})
	}
	g.children[parent][child] = struct{}{}
	g.parents[child][parent] = struct{}{}
	return nil
}

// RemoveRelationship removes a parent→child edge. Removing an absent edge is
// a no-op.
func (g *Graph) RemoveRelationship(parent, child string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.children[parent], child)
	delete(g.parents[child], parent)
}

// Parents returns the direct parents of a tag, sorted.
func (g *Graph) Parents(tag string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.parents[tag])
}

// Children returns the direct children of a tag, sorted.
func (g *Graph) Children(tag string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.children[tag])
}

// Ancestors returns every tag reachable by walking parent edges, sorted.
func (g *Graph) Ancestors(tag string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.walkLocked(tag, g.parents)
}

// Descendants returns every tag reachable by walking child edges, sorted.
func (g *Graph) Descendants(tag string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.walkLocked(tag, g.children)
}

// Roots returns the root tags above a tag: the ancestors with no parents of
// their own. A tag with no ancestors is its own root.
func (g *Graph) Roots(tag string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ancestors := g.walkLocked(tag, g.parents)
	if len(ancestors) == 0 {
		return []string{tag}
	}

	var roots []string
	for _, a := range ancestors {
		if len(g.parents[a]) == 0 {
			roots = append(roots, a)
		}
	}
	if len(roots) == 0 {
		// Malformed data: every ancestor has a parent. BFS above still
		// terminated; report the tag itself rather than nothing.
		return []string{tag}
	}
	sort.Strings(roots)
	return roots
}

// IsDescendantOf reports whether a is reachable from b by child edges.
func (g *Graph) IsDescendantOf(a, b string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reachableLocked(a, b, g.parents)
}

// WouldCycle reports whether collapsing the tag other into target (as a
// merge does: other's edges are re-pointed at target) would create a cycle.
// That happens exactly when a path of length two or more connects the pair
// in either direction: the connecting intermediates survive the merge and
// close a loop. A lone direct edge collapses into a self-loop and is
// dropped, so it does not count.
func (g *Graph) WouldCycle(target, other string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.indirectlyConnectedLocked(target, other) || g.indirectlyConnectedLocked(other, target)
}

// indirectlyConnectedLocked reports whether a path from ancestor down to
// descendant exists that passes through at least one intermediate node.
func (g *Graph) indirectlyConnectedLocked(ancestor, descendant string) bool {
	for mid := range g.children[ancestor] {
		if mid == descendant {
			continue
		}
		if mid == ancestor {
			continue
		}
		if g.reachableLocked(descendant, mid, g.parents) {
			return true
		}
	}
	return false
}

// Edges snapshots the current edge set, sorted for determinism.
func (g *Graph) Edges() []domain.HierarchyEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []domain.HierarchyEdge
	for parent, kids := range g.children {
		for child := range kids {
			edges = append(edges, domain.HierarchyEdge{ParentID: parent, ChildID: child})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].ParentID != edges[j].ParentID {
			return edges[i].ParentID < edges[j].ParentID
		}
		return edges[i].ChildID < edges[j].ChildID
	})
	return edges
}

// RenameNode re-points every edge touching old onto replacement, dropping
// would-be self-loops. Used when a merge collapses a tag into its survivor.
func (g *Graph) RenameNode(old, replacement string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for p := range g.parents[old] {
		delete(g.children[p], old)
		if p != replacement {
			if g.children[p] == nil {
				g.children[p] = make(map[string]struct{})
			}
			g.children[p][replacement] = struct{}{}
			if g.parents[replacement] == nil {
				g.parents[replacement] = make(map[string]struct{})
			}
			g.parents[replacement][p] = struct{}{}
		}
	}
	for c := range g.children[old] {
		delete(g.parents[c], old)
		if c != replacement {
			if g.parents[c] == nil {
				g.parents[c] = make(map[string]struct{})
			}
			g.parents[c][replacement] = struct{}{}
			if g.children[replacement] == nil {
				g.children[replacement] = make(map[string]struct{})
			}
			g.children[replacement][c] = struct{}{}
		}
	}
	delete(g.parents, old)
	delete(g.children, old)
}

// reachableLocked reports whether target is reachable from start following
// the given adjacency (parents = walk up, children = walk down).
// BFS with a visited set: terminates even on malformed cyclic data.
func (g *Graph) reachableLocked(start, target string, adjacency map[string]map[string]struct{}) bool {
	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for next := range adjacency[current] {
			if next == target {
				return true
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return false
}

// walkLocked collects everything reachable from start, sorted.
func (g *Graph) walkLocked(start string, adjacency map[string]map[string]struct{}) []string {
	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for next := range adjacency[current] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			result = append(result, next)
			queue = append(queue, next)
		}
	}
	sort.Strings(result)
	return result
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
