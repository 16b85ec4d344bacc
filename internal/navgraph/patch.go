package navgraph

import (
	"hostcp/internal/domain"
)

// PatchNode updates or inserts a single node into an already-built
// graph without a full rebuild. Its outgoing/incoming edges are left
// untouched; callers that changed a node's action sets should use
// PatchEdges instead — a single-node edit in the editor UI shouldn't
// force a rebuild of the whole unified graph.
func PatchNode(g *domain.UnifiedGraph, treeID, treeName string, treeDepth int, n domain.Node) {
	g.AddNode(domain.GraphNode{Node: n, TreeName: treeName, TreeDepth: treeDepth})
}

// PatchEdges re-derives the forward/reverse/conditional graph edges
// for a single tree's changed edge set and re-runs sibling-shortcut
// expansion and conditional-sibling precomputation, scoped to that
// tree. It does not touch cross-tree stitching for other trees.
func PatchEdges(g *domain.UnifiedGraph, td TreeData) error {
	removeTreeEdges(g, td.Tree.TreeID)

	if err := addTreeEdges(g, td); err != nil {
		return err
	}
	expandSiblingShortcuts(g, []TreeData{td})

	for _, e := range g.Edges {
		if e.TreeID != td.Tree.TreeID || !e.IsConditional {
			continue
		}
		siblings := make([]string, 0)
		for _, other := range g.Edges {
			if other == e {
				continue
			}
			if other.SourceNodeID == e.SourceNodeID && other.DefaultActionSetID == e.DefaultActionSetID {
				siblings = append(siblings, other.TargetNodeID)
			}
		}
		e.SiblingNodeIDs = siblings
	}
	return nil
}

// removeTreeEdges drops every graph edge previously derived from
// treeID, so PatchEdges can rebuild them from the fresh edge list
// without leaving stale forward/reverse/shortcut copies behind.
func removeTreeEdges(g *domain.UnifiedGraph, treeID string) {
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if e.TreeID == treeID {
			continue
		}
		kept = append(kept, e)
	}
	g.Edges = kept
	g.Reindex()
}
