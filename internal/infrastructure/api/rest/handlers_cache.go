package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
	"hostcp/internal/navgraph"
)

// handleCacheCheck is GET /host/navigation/cache/check/{tree_id}?team_id=...
func (s *Server) handleCacheCheck(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}

	rootTreeID, err := navgraph.ResolveRootTreeID(c.Request.Context(), s.store, c.Param("tree_id"), teamID)
	if err != nil {
		respondErr(c, statusForError(err), err)
		return
	}

	g, ok := s.cache.Get(rootTreeID, teamID)
	if !ok {
		respondOK(c, http.StatusOK, gin.H{"exists": false, "nodes_count": 0, "edges_count": 0})
		return
	}
	respondOK(c, http.StatusOK, gin.H{"exists": true, "nodes_count": len(g.Nodes), "edges_count": len(g.Edges)})
}

type updateNodeBody struct {
	TreeID string      `json:"tree_id" binding:"required"`
	Node   domain.Node `json:"node"`
}

// handleCacheUpdateNode is POST /host/navigation/cache/update-node.
// It patches the already-cached unified graph in place; it does not
// itself persist the node, since the caller that edited it already
// wrote it through the store.
func (s *Server) handleCacheUpdateNode(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}
	var body updateNodeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}

	rootTreeID, err := navgraph.ResolveRootTreeID(c.Request.Context(), s.store, body.TreeID, teamID)
	if err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	g, ok := s.cache.Get(rootTreeID, teamID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewUnifiedCacheError(rootTreeID, "graph not cached; populate first", nil))
		return
	}

	tree, err := s.store.GetTree(c.Request.Context(), body.TreeID, teamID)
	if err != nil {
		respondErr(c, statusForError(err), derrors.NewPersistenceError("get_tree", err.Error(), err))
		return
	}
	navgraph.PatchNode(g, body.TreeID, tree.Name, tree.TreeDepth, body.Node)

	respondOK(c, http.StatusOK, nil)
}

type updateEdgeBody struct {
	TreeID string      `json:"tree_id" binding:"required"`
	Edge   domain.Edge `json:"edge"`
}

// handleCacheUpdateEdge is POST /host/navigation/cache/update-edge.
func (s *Server) handleCacheUpdateEdge(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}
	var body updateEdgeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}

	rootTreeID, err := navgraph.ResolveRootTreeID(c.Request.Context(), s.store, body.TreeID, teamID)
	if err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	g, ok := s.cache.Get(rootTreeID, teamID)
	if !ok {
		respondErr(c, http.StatusNotFound, derrors.NewUnifiedCacheError(rootTreeID, "graph not cached; populate first", nil))
		return
	}

	edges, err := s.store.GetTreeEdges(c.Request.Context(), body.TreeID, teamID)
	if err != nil {
		respondErr(c, statusForError(err), derrors.NewPersistenceError("get_tree_edges", err.Error(), err))
		return
	}
	tree, err := s.store.GetTree(c.Request.Context(), body.TreeID, teamID)
	if err != nil {
		respondErr(c, statusForError(err), derrors.NewPersistenceError("get_tree", err.Error(), err))
		return
	}
	nodes, err := s.store.GetTreeNodes(c.Request.Context(), body.TreeID, teamID)
	if err != nil {
		respondErr(c, statusForError(err), derrors.NewPersistenceError("get_tree_nodes", err.Error(), err))
		return
	}

	merged := make([]domain.Edge, 0, len(edges)+1)
	replaced := false
	for _, e := range edges {
		if e.EdgeID == body.Edge.EdgeID {
			merged = append(merged, body.Edge)
			replaced = true
			continue
		}
		merged = append(merged, e)
	}
	if !replaced {
		merged = append(merged, body.Edge)
	}

	if err := navgraph.PatchEdges(g, navgraph.TreeData{Tree: tree, Nodes: nodes, Edges: merged}); err != nil {
		respondErr(c, statusForError(err), err)
		return
	}

	respondOK(c, http.StatusOK, nil)
}

type cachePopulateBody struct {
	AllTreesData    []navgraph.TreeData `json:"all_trees_data" binding:"required"`
	ForceRepopulate bool                `json:"force_repopulate"`
}

// handleCachePopulate is POST /host/navigation/cache/populate/{tree_id}.
func (s *Server) handleCachePopulate(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}
	var body cachePopulateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}

	rootTreeID, err := navgraph.ResolveRootTreeID(c.Request.Context(), s.store, c.Param("tree_id"), teamID)
	if err != nil {
		respondErr(c, statusForError(err), err)
		return
	}

	if !body.ForceRepopulate {
		if _, ok := s.cache.Get(rootTreeID, teamID); ok {
			respondOK(c, http.StatusOK, gin.H{"populated": false, "reason": "already cached"})
			return
		}
	}

	g, err := navgraph.Build(rootTreeID, body.AllTreesData)
	if err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	s.cache.Put(rootTreeID, teamID, g)

	respondOK(c, http.StatusOK, gin.H{"populated": true, "nodes_count": len(g.Nodes), "edges_count": len(g.Edges)})
}

// handleCacheClear is POST /host/navigation/cache/clear/{tree_id}.
func (s *Server) handleCacheClear(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		respondErr(c, http.StatusBadRequest, derrors.NewConfigError("team_id", "required query parameter missing"))
		return
	}

	rootTreeID, err := navgraph.ResolveRootTreeID(c.Request.Context(), s.store, c.Param("tree_id"), teamID)
	if err != nil {
		respondErr(c, statusForError(err), err)
		return
	}
	s.cache.Invalidate(rootTreeID, teamID)
	respondOK(c, http.StatusOK, nil)
}
