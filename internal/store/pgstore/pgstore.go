// Package pgstore is the Postgres/Supabase-compatible Store adapter:
// bun + pgdialect + pgdriver, model-struct/ToDomain conversion,
// transactional batch writes.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
	"hostcp/internal/store"
)

type PGStore struct {
	db *bun.DB
}

func New(dsn string) *PGStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &PGStore{db: db}
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PGStore) InitSchema(ctx context.Context) error {
	models := []interface{}{
		(*UserInterfaceModel)(nil),
		(*NavigationTreeModel)(nil),
		(*NodeModel)(nil),
		(*EdgeModel)(nil),
		(*ReferenceModel)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return derrors.NewPersistenceError("init_schema", "create table failed", err)
		}
	}
	return nil
}

type UserInterfaceModel struct {
	bun.BaseModel `bun:"table:userinterfaces,alias:ui"`

	ID     string   `bun:"id,pk"`
	TeamID string   `bun:"team_id"`
	Name   string   `bun:"name"`
	Models []string `bun:"models,array"`
}

func (m *UserInterfaceModel) ToDomain() domain.UserInterface {
	return domain.UserInterface{ID: m.ID, Name: m.Name, Models: m.Models}
}

type NavigationTreeModel struct {
	bun.BaseModel `bun:"table:navigation_trees,alias:nt"`

	TreeID          string `bun:"tree_id,pk"`
	TeamID          string `bun:"team_id"`
	ParentTreeID    string `bun:"parent_tree_id"`
	ParentNodeID    string `bun:"parent_node_id"`
	IsRootTree      bool   `bun:"is_root_tree"`
	TreeDepth       int    `bun:"tree_depth"`
	UserInterfaceID string `bun:"userinterface_id"`
	Name            string `bun:"name"`
}

func (m *NavigationTreeModel) ToDomain() domain.NavigationTree {
	return domain.NavigationTree{
		TreeID: m.TreeID, ParentTreeID: m.ParentTreeID, ParentNodeID: m.ParentNodeID,
		IsRootTree: m.IsRootTree, TreeDepth: m.TreeDepth,
		UserInterfaceID: m.UserInterfaceID, Name: m.Name,
	}
}

func newNavigationTreeModel(t domain.NavigationTree, teamID string) *NavigationTreeModel {
	return &NavigationTreeModel{
		TreeID: t.TreeID, TeamID: teamID, ParentTreeID: t.ParentTreeID, ParentNodeID: t.ParentNodeID,
		IsRootTree: t.IsRootTree, TreeDepth: t.TreeDepth,
		UserInterfaceID: t.UserInterfaceID, Name: t.Name,
	}
}

type NodeModel struct {
	bun.BaseModel `bun:"table:nodes,alias:n"`

	NodeID                    string         `bun:"node_id,pk"`
	TreeID                    string         `bun:"tree_id,pk"`
	TeamID                    string         `bun:"team_id"`
	Label                     string         `bun:"label"`
	NodeType                  string         `bun:"node_type"`
	PositionX                 float64        `bun:"position_x"`
	PositionY                 float64        `bun:"position_y"`
	Data                      map[string]any `bun:"data,type:jsonb"`
	Verifications             []byte         `bun:"verifications,type:jsonb"`
	VerificationPassCondition string         `bun:"verification_pass_condition"`
	ChildTreeID               string         `bun:"child_tree_id"`
	UpdatedAt                 time.Time      `bun:"updated_at"`
}

func (m *NodeModel) ToDomain() (domain.Node, error) {
	var verifications []domain.Verification
	if len(m.Verifications) > 0 {
		if err := json.Unmarshal(m.Verifications, &verifications); err != nil {
			return domain.Node{}, err
		}
	}
	return domain.Node{
		NodeID: m.NodeID, TreeID: m.TreeID, Label: m.Label,
		NodeType:                  domain.NodeType(m.NodeType),
		Position:                  domain.Position{X: m.PositionX, Y: m.PositionY},
		Data:                      m.Data,
		Verifications:             verifications,
		VerificationPassCondition: domain.VerificationPassCondition(m.VerificationPassCondition),
		ChildTreeID:               m.ChildTreeID,
	}, nil
}

func newNodeModel(n domain.Node, treeID, teamID string) (*NodeModel, error) {
	verifications, err := json.Marshal(n.Verifications)
	if err != nil {
		return nil, err
	}
	return &NodeModel{
		NodeID: n.NodeID, TreeID: treeID, TeamID: teamID, Label: n.Label,
		NodeType: string(n.NodeType), PositionX: n.Position.X, PositionY: n.Position.Y,
		Data: n.Data, Verifications: verifications,
		VerificationPassCondition: string(n.VerificationPassCondition),
		ChildTreeID:               n.ChildTreeID, UpdatedAt: time.Now(),
	}, nil
}

type EdgeModel struct {
	bun.BaseModel `bun:"table:edges,alias:e"`

	EdgeID                 string         `bun:"edge_id,pk"`
	TreeID                 string         `bun:"tree_id,pk"`
	TeamID                 string         `bun:"team_id"`
	SourceNodeID           string         `bun:"source_node_id"`
	TargetNodeID           string         `bun:"target_node_id"`
	ActionSets             []byte         `bun:"action_sets,type:jsonb"`
	DefaultActionSetID     string         `bun:"default_action_set_id"`
	FinalWaitTimeMS        int            `bun:"final_wait_time_ms"`
	EdgeType               string         `bun:"edge_type"`
	EnableSiblingShortcuts bool           `bun:"enable_sibling_shortcuts"`
	Data                   map[string]any `bun:"data,type:jsonb"`
	UpdatedAt              time.Time      `bun:"updated_at"`
}

func (m *EdgeModel) ToDomain() (domain.Edge, error) {
	var actionSets []domain.ActionSet
	if len(m.ActionSets) > 0 {
		if err := json.Unmarshal(m.ActionSets, &actionSets); err != nil {
			return domain.Edge{}, err
		}
	}
	return domain.Edge{
		EdgeID: m.EdgeID, SourceNodeID: m.SourceNodeID, TargetNodeID: m.TargetNodeID,
		ActionSets: actionSets, DefaultActionSetID: m.DefaultActionSetID,
		FinalWaitTimeMS: m.FinalWaitTimeMS, EdgeType: domain.EdgeType(m.EdgeType),
		EnableSiblingShortcuts: m.EnableSiblingShortcuts, Data: m.Data,
	}, nil
}

func newEdgeModel(e domain.Edge, treeID, teamID string) (*EdgeModel, error) {
	actionSets, err := json.Marshal(e.ActionSets)
	if err != nil {
		return nil, err
	}
	return &EdgeModel{
		EdgeID: e.EdgeID, TreeID: treeID, TeamID: teamID,
		SourceNodeID: e.SourceNodeID, TargetNodeID: e.TargetNodeID,
		ActionSets: actionSets, DefaultActionSetID: e.DefaultActionSetID,
		FinalWaitTimeMS: e.FinalWaitTimeMS, EdgeType: string(e.EdgeType),
		EnableSiblingShortcuts: e.EnableSiblingShortcuts, Data: e.Data, UpdatedAt: time.Now(),
	}, nil
}

type ReferenceModel struct {
	bun.BaseModel `bun:"table:references,alias:r"`

	Name              string         `bun:"name,pk"`
	UserInterfaceName string         `bun:"userinterface_name,pk"`
	TeamID            string         `bun:"team_id"`
	RefType           string         `bun:"ref_type"`
	R2Path            string         `bun:"r2_path"`
	R2URL             string         `bun:"r2_url"`
	Area              map[string]any `bun:"area,type:jsonb"`
	CreatedAt         time.Time      `bun:"created_at"`
}

func (s *PGStore) GetUserInterfaceByName(ctx context.Context, name, teamID string) (domain.UserInterface, error) {
	var m UserInterfaceModel
	err := s.db.NewSelect().Model(&m).Where("name = ? AND team_id = ?", name, teamID).Scan(ctx)
	if err != nil {
		return domain.UserInterface{}, derrors.NewPersistenceError("get_userinterface_by_name", "query failed", err)
	}
	return m.ToDomain(), nil
}

func (s *PGStore) GetRootTreeForInterface(ctx context.Context, userInterfaceID, teamID string) (domain.NavigationTree, error) {
	var m NavigationTreeModel
	err := s.db.NewSelect().Model(&m).
		Where("userinterface_id = ? AND team_id = ? AND is_root_tree", userInterfaceID, teamID).
		Scan(ctx)
	if err != nil {
		return domain.NavigationTree{}, derrors.NewPersistenceError("get_root_tree_for_interface", "query failed", err)
	}
	return m.ToDomain(), nil
}

func (s *PGStore) GetTree(ctx context.Context, treeID, teamID string) (domain.NavigationTree, error) {
	var m NavigationTreeModel
	err := s.db.NewSelect().Model(&m).Where("tree_id = ? AND team_id = ?", treeID, teamID).Scan(ctx)
	if err != nil {
		return domain.NavigationTree{}, derrors.NewPersistenceError("get_tree", "query failed", err)
	}
	return m.ToDomain(), nil
}

func (s *PGStore) GetFullTree(ctx context.Context, treeID, teamID string) (store.FullTree, error) {
	tree, err := s.GetTree(ctx, treeID, teamID)
	if err != nil {
		return store.FullTree{}, err
	}
	nodes, err := s.GetTreeNodes(ctx, treeID, teamID)
	if err != nil {
		return store.FullTree{}, err
	}
	edges, err := s.GetTreeEdges(ctx, treeID, teamID)
	if err != nil {
		return store.FullTree{}, err
	}
	return store.FullTree{Tree: tree, Nodes: nodes, Edges: edges}, nil
}

func (s *PGStore) GetTreeNodes(ctx context.Context, treeID, teamID string) ([]domain.Node, error) {
	var models []NodeModel
	if err := s.db.NewSelect().Model(&models).Where("tree_id = ? AND team_id = ?", treeID, teamID).Scan(ctx); err != nil {
		return nil, derrors.NewPersistenceError("get_tree_nodes", "query failed", err)
	}
	nodes := make([]domain.Node, 0, len(models))
	for _, m := range models {
		n, err := m.ToDomain()
		if err != nil {
			return nil, derrors.NewPersistenceError("get_tree_nodes", "decode failed", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (s *PGStore) GetTreeEdges(ctx context.Context, treeID, teamID string) ([]domain.Edge, error) {
	var models []EdgeModel
	if err := s.db.NewSelect().Model(&models).Where("tree_id = ? AND team_id = ?", treeID, teamID).Scan(ctx); err != nil {
		return nil, derrors.NewPersistenceError("get_tree_edges", "query failed", err)
	}
	edges := make([]domain.Edge, 0, len(models))
	for _, m := range models {
		e, err := m.ToDomain()
		if err != nil {
			return nil, derrors.NewPersistenceError("get_tree_edges", "decode failed", err)
		}
		edges = append(edges, e)
	}
	return edges, nil
}

func (s *PGStore) SaveNodesBatch(ctx context.Context, treeID, teamID string, nodes []domain.Node) ([]domain.Node, error) {
	if len(nodes) == 0 {
		return nodes, nil
	}
	models := make([]*NodeModel, 0, len(nodes))
	for _, n := range nodes {
		m, err := newNodeModel(n, treeID, teamID)
		if err != nil {
			return nil, derrors.NewPersistenceError("save_nodes_batch", "encode failed", err)
		}
		models = append(models, m)
	}
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&models).
			On("CONFLICT (node_id, tree_id) DO UPDATE").Exec(ctx)
		return err
	})
	if err != nil {
		return nil, derrors.NewPersistenceError("save_nodes_batch", "insert failed", err)
	}
	return nodes, nil
}

func (s *PGStore) SaveEdgesBatch(ctx context.Context, treeID, teamID string, edges []domain.Edge) ([]domain.Edge, error) {
	if len(edges) == 0 {
		return edges, nil
	}
	models := make([]*EdgeModel, 0, len(edges))
	for _, e := range edges {
		m, err := newEdgeModel(e, treeID, teamID)
		if err != nil {
			return nil, derrors.NewPersistenceError("save_edges_batch", "encode failed", err)
		}
		models = append(models, m)
	}
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&models).
			On("CONFLICT (edge_id, tree_id) DO UPDATE").Exec(ctx)
		return err
	})
	if err != nil {
		return nil, derrors.NewPersistenceError("save_edges_batch", "insert failed", err)
	}
	return edges, nil
}

func (s *PGStore) DeleteNode(ctx context.Context, treeID, nodeID, teamID string) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*EdgeModel)(nil)).
			Where("tree_id = ? AND team_id = ? AND (source_node_id = ? OR target_node_id = ?)", treeID, teamID, nodeID, nodeID).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*NodeModel)(nil)).
			Where("tree_id = ? AND team_id = ? AND node_id = ?", treeID, teamID, nodeID).Exec(ctx)
		return err
	})
}

func (s *PGStore) DeleteEdge(ctx context.Context, treeID, edgeID, teamID string) error {
	_, err := s.db.NewDelete().Model((*EdgeModel)(nil)).
		Where("tree_id = ? AND team_id = ? AND edge_id = ?", treeID, teamID, edgeID).Exec(ctx)
	if err != nil {
		return derrors.NewPersistenceError("delete_edge", "delete failed", err)
	}
	return nil
}

func (s *PGStore) DeleteTreeCascade(ctx context.Context, treeID, teamID string) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*EdgeModel)(nil)).Where("tree_id = ? AND team_id = ?", treeID, teamID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*NodeModel)(nil)).Where("tree_id = ? AND team_id = ?", treeID, teamID).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*NavigationTreeModel)(nil)).Where("tree_id = ? AND team_id = ?", treeID, teamID).Exec(ctx)
		return err
	})
}

func (s *PGStore) SaveReference(ctx context.Context, name, userInterfaceName, refType, teamID, r2Path, r2URL string, area map[string]any) error {
	m := &ReferenceModel{
		Name: name, UserInterfaceName: userInterfaceName, TeamID: teamID,
		RefType: refType, R2Path: r2Path, R2URL: r2URL, Area: area, CreatedAt: time.Now(),
	}
	_, err := s.db.NewInsert().Model(m).On("CONFLICT (name, userinterface_name) DO UPDATE").Exec(ctx)
	if err != nil {
		return derrors.NewPersistenceError("save_reference", "insert failed", err)
	}
	return nil
}
