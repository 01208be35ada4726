package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratekeeper/cratekeeper/internal/config"
	"github.com/cratekeeper/cratekeeper/internal/domain"
	"github.com/cratekeeper/cratekeeper/internal/errors"
)

func buildChain(t *testing.T) *Graph {
	t.Helper()
	g := New()
	require.NoError(t, g.AddRelationship("metal", "black-metal"))
	require.NoError(t, g.AddRelationship("black-metal", "atmospheric-black-metal"))
	return g
}

func TestAddRelationship_CycleRejected(t *testing.T) {
	g := buildChain(t)

	err := g.AddRelationship("atmospheric-black-metal", "metal")
	require.Error(t, err)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, errors.CodeCycle, domainErr.Code)

	// Graph unchanged.
	assert.Empty(t, g.Children("atmospheric-black-metal"))
	assert.Equal(t, []string{"metal"}, g.Roots("atmospheric-black-metal"))
}

func TestAddRelationship_SelfEdgeRejected(t *testing.T) {
	g := New()
	err := g.AddRelationship("metal", "metal")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCycle))
}

func TestTraversals(t *testing.T) {
	g := buildChain(t)
	require.NoError(t, g.AddRelationship("metal", "doom-metal"))

	assert.Equal(t, []string{"black-metal", "metal"}, g.Ancestors("atmospheric-black-metal"))
	assert.Equal(t, []string{"atmospheric-black-metal", "black-metal", "doom-metal"}, g.Descendants("metal"))
	assert.Equal(t, []string{"black-metal", "doom-metal"}, g.Children("metal"))
	assert.Equal(t, []string{"metal"}, g.Parents("black-metal"))
	assert.True(t, g.IsDescendantOf("atmospheric-black-metal", "metal"))
	assert.False(t, g.IsDescendantOf("metal", "atmospheric-black-metal"))
}

func TestAncestorsAndDescendantsDisjoint(t *testing.T) {
	g := buildChain(t)
	require.NoError(t, g.AddRelationship("metal", "doom-metal"))
	require.NoError(t, g.AddRelationship("doom-metal", "funeral-doom"))

	for _, tag := range []string{"metal", "black-metal", "atmospheric-black-metal", "doom-metal", "funeral-doom"} {
		up := g.Ancestors(tag)
		down := make(map[string]struct{})
		for _, d := range g.Descendants(tag) {
			down[d] = struct{}{}
		}
		for _, a := range up {
			_, both := down[a]
			assert.False(t, both, "%q is both ancestor and descendant of %q", a, tag)
		}
	}
}

func TestRemoveRelationship(t *testing.T) {
	g := buildChain(t)

	g.RemoveRelationship("metal", "black-metal")
	assert.Empty(t, g.Parents("black-metal"))
	assert.Equal(t, []string{"black-metal"}, g.Ancestors("atmospheric-black-metal"))

	// Removing an absent edge is a no-op.
	g.RemoveRelationship("metal", "black-metal")
}

func TestWouldCycle(t *testing.T) {
	g := buildChain(t)

	// Indirect connection through black-metal: merging the ends closes a
	// loop through the surviving intermediate.
	assert.True(t, g.WouldCycle("metal", "atmospheric-black-metal"))
	assert.True(t, g.WouldCycle("atmospheric-black-metal", "metal"))

	// A lone direct edge collapses into a dropped self-loop.
	assert.False(t, g.WouldCycle("metal", "black-metal"))

	// Unrelated tags never cycle.
	assert.False(t, g.WouldCycle("metal", "shoegaze"))
}

func TestRenameNode(t *testing.T) {
	g := buildChain(t)
	require.NoError(t, g.AddRelationship("black-metal", "depressive-black-metal"))

	// Collapse black-metal into metal, as a merge would.
	g.RenameNode("black-metal", "metal")

	assert.ElementsMatch(t, []string{"atmospheric-black-metal", "depressive-black-metal"}, g.Children("metal"))
	assert.Empty(t, g.Parents("metal"))
	assert.Empty(t, g.Children("black-metal"))
	assert.Empty(t, g.Parents("black-metal"))
	assert.Equal(t, []string{"metal"}, g.Ancestors("atmospheric-black-metal"))
}

func TestFromEdges_DropsCycles(t *testing.T) {
	g := FromEdges([]domain.HierarchyEdge{
		{ParentID: "metal", ChildID: "black-metal"},
		{ParentID: "black-metal", ChildID: "atmospheric-black-metal"},
		{ParentID: "atmospheric-black-metal", ChildID: "metal"}, // would close a loop
	})

	assert.Len(t, g.Edges(), 2)
	assert.Empty(t, g.Children("atmospheric-black-metal"))
}

func TestEdges_Sorted(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship("rock", "post-rock"))
	require.NoError(t, g.AddRelationship("metal", "doom-metal"))
	require.NoError(t, g.AddRelationship("metal", "black-metal"))

	edges := g.Edges()
	require.Len(t, edges, 3)
	assert.Equal(t, domain.HierarchyEdge{ParentID: "metal", ChildID: "black-metal"}, edges[0])
	assert.Equal(t, domain.HierarchyEdge{ParentID: "metal", ChildID: "doom-metal"}, edges[1])
	assert.Equal(t, domain.HierarchyEdge{ParentID: "rock", ChildID: "post-rock"}, edges[2])
}

func TestStats(t *testing.T) {
	g := buildChain(t)
	require.NoError(t, g.AddRelationship("metal", "doom-metal"))

	stats := g.Stats()
	assert.Equal(t, 4, stats.Tags)
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, 1, stats.Roots)
	assert.Equal(t, 2, stats.Leaves)
	assert.Equal(t, 1, stats.Intermediates)
	assert.InDelta(t, 1.5, stats.AvgFanOut, 0.001)
}

func TestSuggestParents(t *testing.T) {
	rules := &config.DefaultRules().Hierarchy

	suggestions := SuggestParents("atmospheric-black-metal", rules)
	require.NotEmpty(t, suggestions)
	// Base-genre suffix outranks the modifier prefix.
	assert.Equal(t, "metal", suggestions[0].Parent)
	assert.InDelta(t, 0.9, suggestions[0].Confidence, 0.001)

	found := false
	for _, s := range suggestions {
		if s.Parent == "black-metal" || s.Parent == "atmospheric" {
			found = true
		}
	}
	assert.True(t, found)

	assert.Empty(t, SuggestParents("", rules))
}
