// Package memstore is the in-process Store implementation used by
// tests and local/dev runs: one RWMutex, one map per entity kind.
package memstore

import (
	"context"
	"sync"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
	"hostcp/internal/store"
)

type MemStore struct {
	mu             sync.RWMutex
	userInterfaces map[string]domain.UserInterface // keyed by name
	trees          map[string]domain.NavigationTree
	nodesByTree    map[string]map[string]domain.Node
	edgesByTree    map[string]map[string]domain.Edge
	references     map[string]bool
}

func New() *MemStore {
	return &MemStore{
		userInterfaces: make(map[string]domain.UserInterface),
		trees:          make(map[string]domain.NavigationTree),
		nodesByTree:    make(map[string]map[string]domain.Node),
		edgesByTree:    make(map[string]map[string]domain.Edge),
		references:     make(map[string]bool),
	}
}

// Seed is a test/bootstrap helper: installs a userinterface, its tree
// hierarchy, and every tree's nodes/edges in one call.
func (s *MemStore) Seed(ui domain.UserInterface, trees []domain.NavigationTree, nodes map[string][]domain.Node, edges map[string][]domain.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userInterfaces[ui.Name] = ui
	for _, t := range trees {
		s.trees[t.TreeID] = t
		s.nodesByTree[t.TreeID] = make(map[string]domain.Node)
		s.edgesByTree[t.TreeID] = make(map[string]domain.Edge)
		for _, n := range nodes[t.TreeID] {
			s.nodesByTree[t.TreeID][n.NodeID] = n
		}
		for _, e := range edges[t.TreeID] {
			s.edgesByTree[t.TreeID][e.EdgeID] = e
		}
	}
}

func (s *MemStore) GetUserInterfaceByName(ctx context.Context, name, teamID string) (domain.UserInterface, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ui, ok := s.userInterfaces[name]
	if !ok {
		return domain.UserInterface{}, derrors.NewPersistenceError("get_userinterface_by_name", "not found", nil)
	}
	return ui, nil
}

func (s *MemStore) GetRootTreeForInterface(ctx context.Context, userInterfaceID, teamID string) (domain.NavigationTree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.trees {
		if t.UserInterfaceID == userInterfaceID && t.IsRootTree {
			return t, nil
		}
	}
	return domain.NavigationTree{}, derrors.NewPersistenceError("get_root_tree_for_interface", "no root tree", nil)
}

func (s *MemStore) GetTree(ctx context.Context, treeID, teamID string) (domain.NavigationTree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trees[treeID]
	if !ok {
		return domain.NavigationTree{}, derrors.NewPersistenceError("get_tree", "not found", nil)
	}
	return t, nil
}

func (s *MemStore) GetFullTree(ctx context.Context, treeID, teamID string) (store.FullTree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trees[treeID]
	if !ok {
		return store.FullTree{}, derrors.NewPersistenceError("get_full_tree", "not found", nil)
	}
	return store.FullTree{
		Tree:  t,
		Nodes: mapValues(s.nodesByTree[treeID]),
		Edges: edgeValues(s.edgesByTree[treeID]),
	}, nil
}

func (s *MemStore) GetTreeNodes(ctx context.Context, treeID, teamID string) ([]domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mapValues(s.nodesByTree[treeID]), nil
}

func (s *MemStore) GetTreeEdges(ctx context.Context, treeID, teamID string) ([]domain.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return edgeValues(s.edgesByTree[treeID]), nil
}

func (s *MemStore) SaveNodesBatch(ctx context.Context, treeID, teamID string, nodes []domain.Node) ([]domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nodesByTree[treeID] == nil {
		s.nodesByTree[treeID] = make(map[string]domain.Node)
	}
	for _, n := range nodes {
		n.TreeID = treeID
		s.nodesByTree[treeID][n.NodeID] = n
	}
	return nodes, nil
}

func (s *MemStore) SaveEdgesBatch(ctx context.Context, treeID, teamID string, edges []domain.Edge) ([]domain.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edgesByTree[treeID] == nil {
		s.edgesByTree[treeID] = make(map[string]domain.Edge)
	}
	for _, e := range edges {
		s.edgesByTree[treeID][e.EdgeID] = e
	}
	return edges, nil
}

func (s *MemStore) DeleteNode(ctx context.Context, treeID, nodeID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodesByTree[treeID], nodeID)
	for id, e := range s.edgesByTree[treeID] {
		if e.SourceNodeID == nodeID || e.TargetNodeID == nodeID {
			delete(s.edgesByTree[treeID], id)
		}
	}
	return nil
}

func (s *MemStore) DeleteEdge(ctx context.Context, treeID, edgeID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edgesByTree[treeID], edgeID)
	return nil
}

func (s *MemStore) DeleteTreeCascade(ctx context.Context, treeID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodesByTree, treeID)
	delete(s.edgesByTree, treeID)
	delete(s.trees, treeID)
	return nil
}

func (s *MemStore) SaveReference(ctx context.Context, name, userInterfaceName, refType, teamID, r2Path, r2URL string, area map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.references[userInterfaceName+"/"+name] = true
	return nil
}

func mapValues(m map[string]domain.Node) []domain.Node {
	out := make([]domain.Node, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func edgeValues(m map[string]domain.Edge) []domain.Edge {
	out := make([]domain.Edge, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
