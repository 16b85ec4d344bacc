package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcp/internal/domain"
)

func seeded() *MemStore {
	s := New()
	s.Seed(
		domain.UserInterface{ID: "ui1", Name: "tv"},
		[]domain.NavigationTree{{TreeID: "t1", IsRootTree: true, Name: "t1", UserInterfaceID: "ui1"}},
		map[string][]domain.Node{"t1": {
			{NodeID: "home", NodeType: domain.NodeTypeEntry},
			{NodeID: "settings"},
		}},
		map[string][]domain.Edge{"t1": {
			{EdgeID: "e1", SourceNodeID: "home", TargetNodeID: "settings"},
		}},
	)
	return s
}

func TestGetUserInterfaceByName(t *testing.T) {
	s := seeded()
	ui, err := s.GetUserInterfaceByName(context.Background(), "tv", "team1")
	require.NoError(t, err)
	assert.Equal(t, "ui1", ui.ID)

	_, err = s.GetUserInterfaceByName(context.Background(), "does-not-exist", "team1")
	assert.Error(t, err)
}

func TestGetRootTreeForInterface(t *testing.T) {
	s := seeded()
	tree, err := s.GetRootTreeForInterface(context.Background(), "ui1", "team1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tree.TreeID)

	_, err = s.GetRootTreeForInterface(context.Background(), "does-not-exist", "team1")
	assert.Error(t, err)
}

func TestGetTreeAndGetFullTree(t *testing.T) {
	s := seeded()

	tree, err := s.GetTree(context.Background(), "t1", "team1")
	require.NoError(t, err)
	assert.True(t, tree.IsRootTree)

	full, err := s.GetFullTree(context.Background(), "t1", "team1")
	require.NoError(t, err)
	assert.Len(t, full.Nodes, 2)
	assert.Len(t, full.Edges, 1)

	_, err = s.GetTree(context.Background(), "does-not-exist", "team1")
	assert.Error(t, err)
	_, err = s.GetFullTree(context.Background(), "does-not-exist", "team1")
	assert.Error(t, err)
}

func TestSaveNodesBatch_InsertsAndUpdates(t *testing.T) {
	s := seeded()

	_, err := s.SaveNodesBatch(context.Background(), "t1", "team1", []domain.Node{
		{NodeID: "settings", Label: "Settings"},
		{NodeID: "apps", Label: "Apps"},
	})
	require.NoError(t, err)

	nodes, err := s.GetTreeNodes(context.Background(), "t1", "team1")
	require.NoError(t, err)
	byID := make(map[string]domain.Node, len(nodes))
	for _, n := range nodes {
		byID[n.NodeID] = n
	}
	assert.Equal(t, "Settings", byID["settings"].Label)
	assert.Equal(t, "Apps", byID["apps"].Label)
	assert.Equal(t, "t1", byID["apps"].TreeID)
}

func TestSaveEdgesBatch_InsertsAndUpdates(t *testing.T) {
	s := seeded()

	_, err := s.SaveEdgesBatch(context.Background(), "t1", "team1", []domain.Edge{
		{EdgeID: "e2", SourceNodeID: "settings", TargetNodeID: "home"},
	})
	require.NoError(t, err)

	edges, err := s.GetTreeEdges(context.Background(), "t1", "team1")
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestDeleteNode_AlsoDropsIncidentEdges(t *testing.T) {
	s := seeded()

	require.NoError(t, s.DeleteNode(context.Background(), "t1", "settings", "team1"))

	nodes, err := s.GetTreeNodes(context.Background(), "t1", "team1")
	require.NoError(t, err)
	for _, n := range nodes {
		assert.NotEqual(t, "settings", n.NodeID)
	}

	edges, err := s.GetTreeEdges(context.Background(), "t1", "team1")
	require.NoError(t, err)
	assert.Empty(t, edges, "edge referencing the deleted node must be dropped too")
}

func TestDeleteEdge(t *testing.T) {
	s := seeded()
	require.NoError(t, s.DeleteEdge(context.Background(), "t1", "e1", "team1"))

	edges, err := s.GetTreeEdges(context.Background(), "t1", "team1")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestDeleteTreeCascade(t *testing.T) {
	s := seeded()
	require.NoError(t, s.DeleteTreeCascade(context.Background(), "t1", "team1"))

	_, err := s.GetTree(context.Background(), "t1", "team1")
	assert.Error(t, err)
	nodes, err := s.GetTreeNodes(context.Background(), "t1", "team1")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestSaveReference_RecordsUnderUserInterfaceScopedKey(t *testing.T) {
	s := seeded()
	require.NoError(t, s.SaveReference(context.Background(), "home_text", "tv", "text", "team1", "", "", nil))
	assert.True(t, s.references["tv/home_text"])
}
