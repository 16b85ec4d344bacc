// Package navgraph builds, caches, incrementally patches, and
// invalidates the UnifiedGraph stitched from a tree hierarchy.
package navgraph

import (
	"fmt"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
)

// TreeData is everything Build needs for one tree in a hierarchy.
type TreeData struct {
	Tree  domain.NavigationTree
	Nodes []domain.Node
	Edges []domain.Edge
}

// Build constructs the UnifiedGraph for a tree hierarchy: it adds every
// tree's nodes, then runs the five build steps in order — per-tree
// forward/reverse edges tagged with their tree (steps 1 and 2, both in
// addTreeEdges), sibling shortcut expansion, cross-tree stitching,
// conditional-sibling precomputation.
func Build(rootTreeID string, trees []TreeData) (*domain.UnifiedGraph, error) {
	g := domain.NewUnifiedGraph(rootTreeID)

	for _, td := range trees {
		for _, n := range td.Nodes {
			g.AddNode(domain.GraphNode{Node: n, TreeName: td.Tree.Name, TreeDepth: td.Tree.TreeDepth})
		}
	}

	for _, td := range trees {
		if err := addTreeEdges(g, td); err != nil {
			return nil, err
		}
	}

	expandSiblingShortcuts(g, trees)

	if err := stitchCrossTreeEdges(g, trees); err != nil {
		return nil, err
	}

	precomputeConditionalSiblings(g)

	return g, nil
}

// addTreeEdges implements step 1: for each Edge, inspect action_sets
// and add forward/reverse graph edges per the forward/reverse policy
// table.
func addTreeEdges(g *domain.UnifiedGraph, td TreeData) error {
	for _, e := range td.Edges {
		if len(e.ActionSets) == 0 {
			// Placeholder edge: still visible to pathfinding (initial-setup
			// use case); conditionality is resolved later, once every
			// edge from this source is known.
			g.PutEdge(&domain.GraphEdge{
				Edge:     e,
				TreeID:   td.Tree.TreeID,
				TreeName: td.Tree.Name,
				Weight:   1,
			})
			continue
		}

		def, ok := e.DefaultActionSet()
		if !ok {
			return derrors.NewUnifiedCacheError(td.Tree.TreeID,
				fmt.Sprintf("edge %s: default action set %q not found", e.EdgeID, e.DefaultActionSetID), nil)
		}

		isConditional := hasConditionalSibling(td.Edges, e)
		forwardHasActions := len(def.Actions) > 0

		if forwardHasActions || isConditional {
			fwd := e
			fwd.ActionSets = e.ActionSets
			g.PutEdge(&domain.GraphEdge{
				Edge:          fwd,
				TreeID:        td.Tree.TreeID,
				TreeName:      td.Tree.Name,
				IsForwardEdge: true,
				IsConditional: isConditional,
				Weight:        1,
			})
		}

		reverseHasActions := len(e.ActionSets) > 1 && len(e.ActionSets[1].Actions) > 0
		if reverseHasActions {
			rev := e
			rev.SourceNodeID = e.TargetNodeID
			rev.TargetNodeID = e.SourceNodeID
			rev.ActionSets = []domain.ActionSet{e.ActionSets[1]}
			g.PutEdge(&domain.GraphEdge{
				Edge:          rev,
				TreeID:        td.Tree.TreeID,
				TreeName:      td.Tree.Name,
				IsReverseEdge: true,
				Weight:        1,
			})
		}

		// An edge with no forward actions, no reverse actions, and no
		// conditional relationship is skipped entirely — nothing further
		// to do for it.
	}
	return nil
}

// hasConditionalSibling reports whether e's DefaultActionSetID is
// shared by at least one other edge from the same source — the
// definition of a conditional edge.
func hasConditionalSibling(edges []domain.Edge, e domain.Edge) bool {
	for _, other := range edges {
		if other.EdgeID == e.EdgeID {
			continue
		}
		if other.SourceNodeID == e.SourceNodeID && other.DefaultActionSetID == e.DefaultActionSetID {
			return true
		}
	}
	return false
}

// expandSiblingShortcuts implements step 3: for every parent node
// whose outgoing edges opt into sibling shortcuts, copy the
// parent→child attribute bag onto A→B and B→A shortcuts between every
// ordered pair of children lacking a direct edge already.
func expandSiblingShortcuts(g *domain.UnifiedGraph, trees []TreeData) {
	for _, td := range trees {
		childrenByParent := make(map[string][]*domain.GraphEdge)
		for _, e := range g.Edges {
			if e.TreeID != td.Tree.TreeID {
				continue
			}
			if !e.IsForwardEdge || !e.EffectiveEnableSiblingShortcuts() {
				continue
			}
			childrenByParent[e.SourceNodeID] = append(childrenByParent[e.SourceNodeID], e)
		}

		for parent, childEdges := range childrenByParent {
			for i, a := range childEdges {
				for j, b := range childEdges {
					if i == j {
						continue
					}
					if _, exists := g.Edge(a.TargetNodeID, b.TargetNodeID); exists {
						continue
					}
					shortcut := *b // copy parent→B's attribute bag onto A→B
					shortcut.Edge.SourceNodeID = a.TargetNodeID
					shortcut.Edge.TargetNodeID = b.TargetNodeID
					shortcut.EdgeType = domain.EdgeTypeSiblingShortcut
					shortcut.IsSiblingShortcut = true
					shortcut.IsForwardEdge = false
					shortcut.IsReverseEdge = false
					shortcut.Weight = 1
					g.PutEdge(&shortcut)
				}
			}
			_ = parent
		}
	}
}

// stitchCrossTreeEdges implements step 4: for every node mounting a
// sub-tree via ChildTreeID, add a virtual ENTER_SUBTREE edge to the
// sub-tree's entry point and a virtual EXIT_SUBTREE edge back.
func stitchCrossTreeEdges(g *domain.UnifiedGraph, trees []TreeData) error {
	treeByID := make(map[string]TreeData, len(trees))
	for _, td := range trees {
		treeByID[td.Tree.TreeID] = td
	}

	for _, td := range trees {
		for _, n := range td.Nodes {
			if n.ChildTreeID == "" {
				continue
			}
			child, ok := treeByID[n.ChildTreeID]
			if !ok {
				return derrors.NewUnifiedCacheError(td.Tree.TreeID,
					fmt.Sprintf("node %s references unknown sub-tree %s", n.NodeID, n.ChildTreeID), nil)
			}
			entry := findEntryNode(child)
			if entry == nil {
				return derrors.NewUnifiedCacheError(child.Tree.TreeID,
					fmt.Sprintf("sub-tree %s has no entry point", child.Tree.TreeID), nil)
			}

			enter := domain.Edge{
				EdgeID:       fmt.Sprintf("enter:%s:%s", n.NodeID, entry.NodeID),
				SourceNodeID: n.NodeID,
				TargetNodeID: entry.NodeID,
				EdgeType:     domain.EdgeTypeEnterSubtree,
				ActionSets: []domain.ActionSet{{
					ID: "enter_subtree", Label: "enter_subtree",
					Actions: []domain.Action{{Command: "enter_subtree", ActionType: "virtual",
						Params: map[string]any{"tree_id": n.ChildTreeID}}},
				}},
				DefaultActionSetID: "enter_subtree",
			}
			g.PutEdge(&domain.GraphEdge{Edge: enter, TreeID: td.Tree.TreeID, TreeName: td.Tree.Name,
				IsForwardEdge: true, Weight: 1})

			exit := domain.Edge{
				EdgeID:       fmt.Sprintf("exit:%s:%s", entry.NodeID, n.NodeID),
				SourceNodeID: entry.NodeID,
				TargetNodeID: n.NodeID,
				EdgeType:     domain.EdgeTypeExitSubtree,
				ActionSets: []domain.ActionSet{{
					ID: "exit_subtree", Label: "exit_subtree",
					Actions: []domain.Action{{Command: "exit_subtree", ActionType: "virtual",
						Params: map[string]any{"tree_id": td.Tree.TreeID}}},
				}},
				DefaultActionSetID: "exit_subtree",
			}
			g.PutEdge(&domain.GraphEdge{Edge: exit, TreeID: child.Tree.TreeID, TreeName: child.Tree.Name,
				IsForwardEdge: true, Weight: 1})
		}
	}
	return nil
}

func findEntryNode(td TreeData) *domain.Node {
	for i := range td.Nodes {
		if td.Nodes[i].IsEntryPoint() {
			return &td.Nodes[i]
		}
	}
	if len(td.Nodes) > 0 {
		return &td.Nodes[0]
	}
	return nil
}

// precomputeConditionalSiblings implements step 5: for every
// conditional edge, cache the targets of every sibling edge sharing
// its source and action_set_id, so the pathfinder/executor need not
// re-scan at traversal time.
func precomputeConditionalSiblings(g *domain.UnifiedGraph) {
	for _, e := range g.Edges {
		if !e.IsConditional {
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
}
