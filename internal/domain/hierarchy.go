package domain

// HierarchyEdge is a directed parent→child relation between canonical tags.
// The full edge set forms a DAG: a tag may have multiple parents, never a
// cycle.
type HierarchyEdge struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
}

// SimilarityCandidate is an ephemeral pairing of two tags that look like
// duplicates of each other. Never persisted.
type SimilarityCandidate struct {
	TagA  *Tag    `json:"tag_a"`
	TagB  *Tag    `json:"tag_b"`
	Score float64 `json:"score"`
}

// CombinedFrequency is the sum of both sides' album counts, used to rank
// which candidate pairs are worth a human look.
func (c SimilarityCandidate) CombinedFrequency() int {
	return c.TagA.Frequency + c.TagB.Frequency
}
