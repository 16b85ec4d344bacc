package pathfinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
)

func node(id, label string, nodeType domain.NodeType) domain.GraphNode {
	return domain.GraphNode{Node: domain.Node{NodeID: id, Label: label, NodeType: nodeType}}
}

func edge(id, from, to string, weight int) *domain.GraphEdge {
	return &domain.GraphEdge{
		Edge: domain.Edge{
			EdgeID:             id,
			SourceNodeID:       from,
			TargetNodeID:       to,
			DefaultActionSetID: "default",
			ActionSets:         []domain.ActionSet{{ID: "default", Label: "go"}},
		},
		Weight: weight,
	}
}

func linearGraph() *domain.UnifiedGraph {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("a", "Home", domain.NodeTypeEntry))
	g.AddNode(node("b", "Middle", domain.NodeTypeScreen))
	g.AddNode(node("c", "End", domain.NodeTypeScreen))
	g.PutEdge(edge("e1", "a", "b", 1))
	g.PutEdge(edge("e2", "b", "c", 1))
	return g
}

func TestResolveTarget_ByID(t *testing.T) {
	g := linearGraph()
	id, err := ResolveTarget(g, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", id)
}

func TestResolveTarget_ByLabel(t *testing.T) {
	g := linearGraph()
	id, err := ResolveTarget(g, "End")
	require.NoError(t, err)
	assert.Equal(t, "c", id)
}

func TestResolveTarget_AmbiguousLabel(t *testing.T) {
	g := linearGraph()
	g.AddNode(node("d", "Middle", domain.NodeTypeScreen))

	_, err := ResolveTarget(g, "Middle")
	require.Error(t, err)
	var ambig *derrors.AmbiguousTargetError
	assert.ErrorAs(t, err, &ambig)
}

func TestResolveTarget_NoMatch(t *testing.T) {
	g := linearGraph()
	id, err := ResolveTarget(g, "nope")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestFindPath_SameNode(t *testing.T) {
	g := linearGraph()
	path, err := FindPath(g, "a", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", path.TargetNodeID)
	assert.Empty(t, path.Steps)
}

func TestFindPath_MultiHop(t *testing.T) {
	g := linearGraph()
	path, err := FindPath(g, "a", "c")
	require.NoError(t, err)
	require.Len(t, path.Steps, 2)
	assert.Equal(t, "e1", path.Steps[0].Edge.EdgeID)
	assert.Equal(t, "e2", path.Steps[1].Edge.EdgeID)
	assert.Equal(t, "default", path.Steps[0].ActionSetID)
}

func TestFindPath_PicksCheaperRoute(t *testing.T) {
	g := linearGraph()
	g.PutEdge(edge("shortcut", "a", "c", 1))

	path, err := FindPath(g, "a", "c")
	require.NoError(t, err)
	require.Len(t, path.Steps, 1)
	assert.Equal(t, "shortcut", path.Steps[0].Edge.EdgeID)
}

func TestFindPath_NoPath(t *testing.T) {
	g := linearGraph()
	g.AddNode(node("isolated", "Isolated", domain.NodeTypeScreen))

	_, err := FindPath(g, "a", "isolated")
	require.Error(t, err)
	var notFound *derrors.PathNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestFindPath_UnknownTargetFoldsIntoPathNotFound(t *testing.T) {
	g := linearGraph()
	_, err := FindPath(g, "a", "does-not-exist")
	require.Error(t, err)
	var notFound *derrors.PathNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestFindPath_DynamicWeightExpression(t *testing.T) {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("a", "Home", domain.NodeTypeEntry))
	g.AddNode(node("b", "Mid", domain.NodeTypeScreen))
	g.AddNode(node("c", "End", domain.NodeTypeScreen))

	cheap := edge("cheap", "a", "b", 5)
	cheap.Data = map[string]any{"weight_expr": "1 + 1"}
	g.PutEdge(cheap)
	g.PutEdge(edge("to-end", "b", "c", 1))

	direct := edge("direct", "a", "c", 10)
	g.PutEdge(direct)

	path, err := FindPath(g, "a", "c")
	require.NoError(t, err)
	require.Len(t, path.Steps, 2)
	assert.Equal(t, "cheap", path.Steps[0].Edge.EdgeID)
}

func TestEntryPoint_ReturnsLowestIDAmongEntries(t *testing.T) {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("z-entry", "ENTRY", domain.NodeTypeEntry))
	g.AddNode(node("a-entry", "ENTRY", domain.NodeTypeEntry))

	id, err := EntryPoint(g, "root")
	require.NoError(t, err)
	assert.Equal(t, "a-entry", id)
}

func TestEntryPoint_NoEntryPointError(t *testing.T) {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("a", "Home", domain.NodeTypeScreen))

	_, err := EntryPoint(g, "root")
	require.Error(t, err)
	var noEntry *derrors.NoEntryPointError
	assert.ErrorAs(t, err, &noEntry)
}

func TestFindPath_ConditionalEdgeBorrowsActionsFromSibling(t *testing.T) {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("a", "Home", domain.NodeTypeEntry))
	g.AddNode(node("b", "B", domain.NodeTypeScreen))
	g.AddNode(node("c", "C", domain.NodeTypeScreen))

	eAB := &domain.GraphEdge{
		Edge: domain.Edge{
			EdgeID: "a-b", SourceNodeID: "a", TargetNodeID: "b",
			DefaultActionSetID: "cond",
			ActionSets:         []domain.ActionSet{{ID: "cond", Label: "cond", Actions: []domain.Action{{Command: "press_ok"}}}},
		},
		IsConditional: true, Weight: 1,
	}
	eAC := &domain.GraphEdge{
		Edge: domain.Edge{
			EdgeID: "a-c", SourceNodeID: "a", TargetNodeID: "c",
			DefaultActionSetID: "cond",
			ActionSets:         []domain.ActionSet{{ID: "cond", Label: "cond"}},
		},
		IsConditional: true, SiblingNodeIDs: []string{"b"}, Weight: 1,
	}
	g.PutEdge(eAB)
	g.PutEdge(eAC)

	path, err := FindPath(g, "a", "c")
	require.NoError(t, err)
	require.Len(t, path.Steps, 1)

	step := path.Steps[0]
	assert.Equal(t, "a-c", step.Edge.EdgeID)
	assert.Equal(t, "a-b", step.ActionSetEdge.EdgeID,
		"an empty default action set on a conditional edge must borrow a sibling's actions")

	as, ok := step.ActionSetEdge.ActionSetByID(step.ActionSetID)
	require.True(t, ok)
	assert.Len(t, as.Actions, 1)
}

func TestFindPath_ConditionalEdgeFallsBackToOwnEmptySetWhenNoSiblingHasActions(t *testing.T) {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("a", "Home", domain.NodeTypeEntry))
	g.AddNode(node("b", "B", domain.NodeTypeScreen))
	g.AddNode(node("c", "C", domain.NodeTypeScreen))

	eAB := &domain.GraphEdge{
		Edge: domain.Edge{
			EdgeID: "a-b", SourceNodeID: "a", TargetNodeID: "b",
			DefaultActionSetID: "cond",
			ActionSets:         []domain.ActionSet{{ID: "cond", Label: "cond"}},
		},
		IsConditional: true, Weight: 1,
	}
	eAC := &domain.GraphEdge{
		Edge: domain.Edge{
			EdgeID: "a-c", SourceNodeID: "a", TargetNodeID: "c",
			DefaultActionSetID: "cond",
			ActionSets:         []domain.ActionSet{{ID: "cond", Label: "cond"}},
		},
		IsConditional: true, SiblingNodeIDs: []string{"b"}, Weight: 1,
	}
	g.PutEdge(eAB)
	g.PutEdge(eAC)

	path, err := FindPath(g, "a", "c")
	require.NoError(t, err)
	require.Len(t, path.Steps, 1)
	assert.Equal(t, "a-c", path.Steps[0].ActionSetEdge.EdgeID)
}

func TestValidationSequence_DirectKPIReferencePrefersForwardOverReverse(t *testing.T) {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("a", "Home", domain.NodeTypeEntry))
	g.AddNode(node("b", "B", domain.NodeTypeScreen))

	fwd := &domain.GraphEdge{
		Edge: domain.Edge{EdgeID: "fwd", SourceNodeID: "a", TargetNodeID: "b",
			ActionSets: []domain.ActionSet{{ID: "as1", Label: "enter", KPIReferences: []string{"kpi.enter"}}}},
		IsForwardEdge: true,
	}
	rev := &domain.GraphEdge{
		Edge: domain.Edge{EdgeID: "rev", SourceNodeID: "b", TargetNodeID: "a",
			ActionSets: []domain.ActionSet{{ID: "as2", Label: "enter", KPIReferences: []string{"kpi.enter"}}}},
		IsReverseEdge: true,
	}
	g.PutEdge(fwd)
	g.PutEdge(rev)

	seq := ValidationSequence(g)
	require.Len(t, seq, 1)
	assert.Equal(t, "fwd", seq[0].EdgeID)
}

func TestValidationSequence_UsesTargetVerificationsWhenFlagSet(t *testing.T) {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("a", "Home", domain.NodeTypeEntry))
	g.AddNode(domain.GraphNode{Node: domain.Node{
		NodeID: "b", Label: "B",
		Verifications: []domain.Verification{{Command: "check_text"}},
	}})

	e := &domain.GraphEdge{
		Edge: domain.Edge{EdgeID: "e1", SourceNodeID: "a", TargetNodeID: "b",
			ActionSets: []domain.ActionSet{{ID: "as1", Label: "open", UseVerificationsForKPI: true}}},
		IsForwardEdge: true,
	}
	g.PutEdge(e)

	seq := ValidationSequence(g)
	require.Len(t, seq, 1)
	assert.Equal(t, "e1", seq[0].EdgeID)
}

func TestValidationSequence_UseVerificationsForKPIWithNoVerificationsIsSkipped(t *testing.T) {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("a", "Home", domain.NodeTypeEntry))
	g.AddNode(node("b", "B", domain.NodeTypeScreen))

	e := &domain.GraphEdge{
		Edge: domain.Edge{EdgeID: "e1", SourceNodeID: "a", TargetNodeID: "b",
			ActionSets: []domain.ActionSet{{ID: "as1", Label: "open", UseVerificationsForKPI: true}}},
		IsForwardEdge: true,
	}
	g.PutEdge(e)

	assert.Empty(t, ValidationSequence(g))
}

func TestValidationSequence_SkipsActionSetsWithoutKPIReference(t *testing.T) {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("a", "Home", domain.NodeTypeEntry))
	g.AddNode(node("b", "B", domain.NodeTypeScreen))

	e := &domain.GraphEdge{
		Edge: domain.Edge{EdgeID: "e1", SourceNodeID: "a", TargetNodeID: "b",
			ActionSets: []domain.ActionSet{{ID: "as1", Label: "open"}}},
	}
	g.PutEdge(e)

	assert.Empty(t, ValidationSequence(g))
}

func TestValidationSequence_OneEntryPerUniqueLabel(t *testing.T) {
	g := domain.NewUnifiedGraph("root")
	g.AddNode(node("a", "Home", domain.NodeTypeEntry))
	g.AddNode(node("b", "B", domain.NodeTypeScreen))
	g.AddNode(node("c", "C", domain.NodeTypeScreen))

	e1 := &domain.GraphEdge{Edge: domain.Edge{EdgeID: "e1", SourceNodeID: "a", TargetNodeID: "b",
		ActionSets: []domain.ActionSet{{ID: "as1", Label: "open", KPIReferences: []string{"k1"}}}}, IsForwardEdge: true}
	e2 := &domain.GraphEdge{Edge: domain.Edge{EdgeID: "e2", SourceNodeID: "a", TargetNodeID: "c",
		ActionSets: []domain.ActionSet{{ID: "as2", Label: "open", KPIReferences: []string{"k1"}}}}, IsForwardEdge: true}
	g.PutEdge(e1)
	g.PutEdge(e2)

	seq := ValidationSequence(g)
	assert.Len(t, seq, 1, "label 'open' must appear exactly once even though two edges share it")
}
