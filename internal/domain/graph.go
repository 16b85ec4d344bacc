package domain

// GraphNode is a UnifiedGraph node: a Node plus the tree it came from.
type GraphNode struct {
	Node
	TreeName  string
	TreeDepth int
}

// GraphEdge is a UnifiedGraph edge: an Edge plus direction/virtual
// flags and the pre-computed conditional-sibling set the pathfinder
// and executor both read without re-scanning.
type GraphEdge struct {
	Edge
	TreeID           string
	TreeName         string
	IsForwardEdge    bool
	IsReverseEdge    bool
	IsSiblingShortcut bool
	IsConditional    bool
	SiblingNodeIDs   []string
	Weight           int
}

// UnifiedGraph is a directed multigraph-in-spirit: at most one edge
// per (source, target) pair per direction, held as an adjacency map
// keyed by source node id.
type UnifiedGraph struct {
	RootTreeID string

	Nodes map[string]GraphNode
	// Adjacency keyed by source node id, then by target node id, so a
	// lookup or patch by (source, target) is O(1) without a linear
	// scan of Edges.
	adjacency map[string]map[string]*GraphEdge
	// Edges is the flattened view used by enumeration and tests (the
	// "graph round-trip" property).
	Edges []*GraphEdge
}

func NewUnifiedGraph(rootTreeID string) *UnifiedGraph {
	return &UnifiedGraph{
		RootTreeID: rootTreeID,
		Nodes:      make(map[string]GraphNode),
		adjacency:  make(map[string]map[string]*GraphEdge),
	}
}

func (g *UnifiedGraph) AddNode(n GraphNode) {
	g.Nodes[n.NodeID] = n
}

// PutEdge inserts or replaces the (source, target) edge: the builder
// and the incremental-patch path both funnel through here so the "no
// two edges with the same (source,target)" invariant holds by
// construction.
func (g *UnifiedGraph) PutEdge(e *GraphEdge) {
	if _, ok := g.adjacency[e.SourceNodeID]; !ok {
		g.adjacency[e.SourceNodeID] = make(map[string]*GraphEdge)
	}
	if old, ok := g.adjacency[e.SourceNodeID][e.TargetNodeID]; ok {
		g.removeFromFlatList(old)
	}
	g.adjacency[e.SourceNodeID][e.TargetNodeID] = e
	g.Edges = append(g.Edges, e)
}

func (g *UnifiedGraph) removeFromFlatList(old *GraphEdge) {
	for i, e := range g.Edges {
		if e == old {
			g.Edges = append(g.Edges[:i], g.Edges[i+1:]...)
			return
		}
	}
}

// Edge returns the (source,target) edge, if present.
func (g *UnifiedGraph) Edge(source, target string) (*GraphEdge, bool) {
	byTarget, ok := g.adjacency[source]
	if !ok {
		return nil, false
	}
	e, ok := byTarget[target]
	return e, ok
}

// OutEdges returns every edge leaving source, in insertion order.
func (g *UnifiedGraph) OutEdges(source string) []*GraphEdge {
	out := make([]*GraphEdge, 0, len(g.adjacency[source]))
	for _, e := range g.Edges {
		if e.SourceNodeID == source {
			out = append(out, e)
		}
	}
	return out
}

// Reindex rebuilds the adjacency map from Edges. Callers that mutate
// Edges directly (e.g. dropping every edge derived from one tree
// during an incremental patch) must call this afterwards to keep
// Edge/OutEdges lookups consistent.
func (g *UnifiedGraph) Reindex() {
	g.adjacency = make(map[string]map[string]*GraphEdge, len(g.adjacency))
	for _, e := range g.Edges {
		if _, ok := g.adjacency[e.SourceNodeID]; !ok {
			g.adjacency[e.SourceNodeID] = make(map[string]*GraphEdge)
		}
		g.adjacency[e.SourceNodeID][e.TargetNodeID] = e
	}
}

// EntryPoints returns every node flagged as an entry point, in Nodes
// map iteration order, which is not stable between calls. The
// pathfinder's EntryPoint picks the one with the lowest NodeID.
func (g *UnifiedGraph) EntryPoints() []GraphNode {
	out := make([]GraphNode, 0)
	for _, n := range g.Nodes {
		if n.IsEntryPoint() {
			out = append(out, n)
		}
	}
	return out
}

// NodesByLabel returns every node whose Label matches, case-sensitive
// — used for pathfinder target resolution.
func (g *UnifiedGraph) NodesByLabel(label string) []GraphNode {
	out := make([]GraphNode, 0, 1)
	for _, n := range g.Nodes {
		if n.Label == label {
			out = append(out, n)
		}
	}
	return out
}
