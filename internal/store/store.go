// Package store defines the external persistence contract, treated
// as a Supabase-equivalent boundary. Every method returns an error
// instead of panicking across the boundary; PersistenceError wraps
// failures from concrete adapters (memstore, pgstore).
package store

import (
	"context"

	"hostcp/internal/domain"
)

// FullTree is the get_full_tree response shape.
type FullTree struct {
	Tree  domain.NavigationTree
	Nodes []domain.Node
	Edges []domain.Edge
}

// Store is the persistence port every executor is constructed
// against. Concrete adapters: memstore (in-process, used for tests
// and local runs) and pgstore (Postgres/Supabase-compatible, bun-backed).
type Store interface {
	GetUserInterfaceByName(ctx context.Context, name, teamID string) (domain.UserInterface, error)
	GetRootTreeForInterface(ctx context.Context, userInterfaceID, teamID string) (domain.NavigationTree, error)
	GetTree(ctx context.Context, treeID, teamID string) (domain.NavigationTree, error)
	GetFullTree(ctx context.Context, treeID, teamID string) (FullTree, error)
	GetTreeNodes(ctx context.Context, treeID, teamID string) ([]domain.Node, error)
	GetTreeEdges(ctx context.Context, treeID, teamID string) ([]domain.Edge, error)

	SaveNodesBatch(ctx context.Context, treeID, teamID string, nodes []domain.Node) ([]domain.Node, error)
	SaveEdgesBatch(ctx context.Context, treeID, teamID string, edges []domain.Edge) ([]domain.Edge, error)
	DeleteNode(ctx context.Context, treeID, nodeID, teamID string) error
	DeleteEdge(ctx context.Context, treeID, edgeID, teamID string) error
	DeleteTreeCascade(ctx context.Context, treeID, teamID string) error

	SaveReference(ctx context.Context, name, userInterfaceName, refType, teamID, r2Path, r2URL string, area map[string]any) error
}
