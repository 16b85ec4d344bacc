// Package pathfinder resolves a target node (by id or label) within a
// UnifiedGraph and computes the shortest action-weighted path to it.
package pathfinder

import (
	"container/heap"
	"sort"

	"github.com/expr-lang/expr"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
)

// Step is one hop of a resolved path: the edge traversed and the
// action set chosen for it. ActionSetEdge is usually Edge itself, but
// for a conditional edge whose own default action set is empty it is
// the sibling edge the actions were borrowed from.
type Step struct {
	Edge          *domain.GraphEdge
	ActionSetID   string
	ActionSetEdge *domain.GraphEdge
}

// Path is the full route from a start node to a resolved target.
type Path struct {
	TargetNodeID string
	Steps        []Step
}

// ResolveTarget finds exactly one node matching identifier, tried
// first as a node id, then as a label. Multiple label matches are an
// AmbiguousTargetError; zero matches are folded into PathNotFoundError
// by the caller (FindPath), since "no such node" and "no path to it"
// share the same user-facing shape.
func ResolveTarget(g *domain.UnifiedGraph, identifier string) (string, error) {
	if _, ok := g.Nodes[identifier]; ok {
		return identifier, nil
	}
	matches := g.NodesByLabel(identifier)
	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0].NodeID, nil
	default:
		ids := make([]string, len(matches))
		for i, n := range matches {
			ids[i] = n.NodeID
		}
		return "", derrors.NewAmbiguousTargetError(identifier, ids)
	}
}

// FindPath computes the shortest path from startNodeID to the node
// identified by targetIdentifier (id or label), using Dijkstra over
// GraphEdge.Weight, with an optional per-edge dynamic weight
// expression (Data["weight_expr"]) evaluated against the edge's own
// Data map — e.g. to penalize edges known to be flaky.
func FindPath(g *domain.UnifiedGraph, startNodeID, targetIdentifier string) (*Path, error) {
	targetID, err := ResolveTarget(g, targetIdentifier)
	if err != nil {
		return nil, err
	}
	if targetID == "" {
		return nil, derrors.NewPathNotFoundError(startNodeID, targetIdentifier)
	}
	if startNodeID == targetID {
		return &Path{TargetNodeID: targetID}, nil
	}

	dist := map[string]int{startNodeID: 0}
	prevEdge := map[string]*domain.GraphEdge{}
	visited := map[string]bool{}

	pq := &priorityQueue{{nodeID: startNodeID, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem)
		if visited[cur.nodeID] {
			continue
		}
		visited[cur.nodeID] = true
		if cur.nodeID == targetID {
			break
		}

		for _, e := range g.OutEdges(cur.nodeID) {
			w := edgeWeight(e)
			nd := dist[cur.nodeID] + w
			if existing, ok := dist[e.TargetNodeID]; !ok || nd < existing {
				dist[e.TargetNodeID] = nd
				prevEdge[e.TargetNodeID] = e
				heap.Push(pq, &pqItem{nodeID: e.TargetNodeID, dist: nd})
			}
		}
	}

	if _, ok := dist[targetID]; !ok {
		return nil, derrors.NewPathNotFoundError(startNodeID, targetIdentifier)
	}

	var steps []Step
	for node := targetID; node != startNodeID; {
		e, ok := prevEdge[node]
		if !ok {
			return nil, derrors.NewPathNotFoundError(startNodeID, targetIdentifier)
		}
		id, actionSetEdge := chooseActionSetID(g, e)
		steps = append([]Step{{Edge: e, ActionSetID: id, ActionSetEdge: actionSetEdge}}, steps...)
		node = e.SourceNodeID
	}

	return &Path{TargetNodeID: targetID, Steps: steps}, nil
}

// chooseActionSetID picks the action-set id to run for e, and the edge
// whose ActionSets actually hold it. Usually that's e itself; but a
// conditional edge's own default action set is allowed to be empty
// (spec: "the executor will borrow from a sibling"), so when it is, a
// sibling sharing the same source and default action set id is tried
// next, in SiblingNodeIDs order, picking the first one with actions.
func chooseActionSetID(g *domain.UnifiedGraph, e *domain.GraphEdge) (string, *domain.GraphEdge) {
	id := defaultActionSetID(e)
	if as, ok := e.ActionSetByID(id); ok && len(as.Actions) > 0 {
		return id, e
	}
	if e.IsConditional {
		for _, siblingTarget := range e.SiblingNodeIDs {
			sibling, ok := g.Edge(e.SourceNodeID, siblingTarget)
			if !ok {
				continue
			}
			if as, ok := sibling.ActionSetByID(id); ok && len(as.Actions) > 0 {
				return id, sibling
			}
		}
	}
	return id, e
}

func defaultActionSetID(e *domain.GraphEdge) string {
	if e.IsReverseEdge && len(e.ActionSets) > 0 {
		return e.ActionSets[0].ID
	}
	return e.DefaultActionSetID
}

// edgeWeight returns the edge's static Weight unless Data carries a
// "weight_expr" boolean-free arithmetic expression, in which case it's
// compiled and evaluated against Data itself (e.g. "base + flaky_penalty").
func edgeWeight(e *domain.GraphEdge) int {
	raw, ok := e.Data["weight_expr"]
	if !ok {
		if e.Weight <= 0 {
			return 1
		}
		return e.Weight
	}
	exprStr, ok := raw.(string)
	if !ok {
		return e.Weight
	}
	program, err := expr.Compile(exprStr, expr.Env(e.Data))
	if err != nil {
		return e.Weight
	}
	result, err := expr.Run(program, e.Data)
	if err != nil {
		return e.Weight
	}
	switch v := result.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return e.Weight
	}
}

type pqItem struct {
	nodeID string
	dist   int
	index  int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i]; pq[i].index, pq[j].index = i, j }
func (pq *priorityQueue) Push(x any) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// EntryPoint returns the entry node for a tree hierarchy's graph: the
// entry point with the lowest NodeID when there are several, or a
// NoEntryPointError when there is none.
func EntryPoint(g *domain.UnifiedGraph, rootTreeID string) (string, error) {
	eps := g.EntryPoints()
	if len(eps) == 0 {
		return "", derrors.NewNoEntryPointError(rootTreeID)
	}
	best := eps[0]
	for _, n := range eps[1:] {
		if n.NodeID < best.NodeID {
			best = n
		}
	}
	return best.NodeID, nil
}

// ValidationSequence produces an ordered list of edges seeding batch
// edge validation by an external runner: one edge per unique
// action-set label carrying a KPI reference (either a direct
// KPIReferences list, or, when UseVerificationsForKPI is set, a
// non-empty Verifications list on the edge's target node), preferring
// a forward edge over a reverse edge when both qualify under the same
// label.
func ValidationSequence(g *domain.UnifiedGraph) []*domain.GraphEdge {
	bestForLabel := make(map[string]*domain.GraphEdge)
	for _, e := range g.Edges {
		for _, as := range e.ActionSets {
			if !hasKPIReference(g, e, as) {
				continue
			}
			existing, ok := bestForLabel[as.Label]
			if !ok || (e.IsForwardEdge && !existing.IsForwardEdge) {
				bestForLabel[as.Label] = e
			}
		}
	}

	out := make([]*domain.GraphEdge, 0, len(bestForLabel))
	for _, e := range bestForLabel {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EdgeID < out[j].EdgeID })
	return out
}

func hasKPIReference(g *domain.UnifiedGraph, e *domain.GraphEdge, as domain.ActionSet) bool {
	if len(as.KPIReferences) > 0 {
		return true
	}
	if !as.UseVerificationsForKPI {
		return false
	}
	target, ok := g.Nodes[e.TargetNodeID]
	return ok && len(target.Verifications) > 0
}
