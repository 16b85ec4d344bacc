// Package navexec is the per-device navigation executor:
// load_navigation_tree, execute_navigation, verify_node,
// get_execution_status, clear_preview_cache.
package navexec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hostcp/internal/asynctask"
	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
	"hostcp/internal/infrastructure/logger"
	"hostcp/internal/infrastructure/monitoring"
	"hostcp/internal/navgraph"
	"hostcp/internal/pathfinder"
	"hostcp/internal/store"

	"go.opentelemetry.io/otel/trace"
)

// ActionRunner invokes one action against the device's controllers.
// navexec depends on this narrow interface rather than the full
// controller registry so it stays testable without real hardware.
type ActionRunner interface {
	RunAction(ctx context.Context, deviceID string, a domain.Action) (domain.ActionResult, error)
	RunVerification(ctx context.Context, deviceID string, v domain.Verification) (bool, domain.VerificationDetail, error)
}

// Executor is a per-device singleton; callers key a map of these by
// device id.
type Executor struct {
	mu sync.Mutex

	deviceID  string
	store     store.Store
	cache     *navgraph.Cache
	runner    ActionRunner
	tasks     *asynctask.Manager
	log       *logger.Logger
	observers *monitoring.ObserverManager
	tracer    *monitoring.Tracer

	loadHierarchy func(ctx context.Context, teamID, rootTreeID string) ([]navgraph.TreeData, error)
}

func New(deviceID string, s store.Store, cache *navgraph.Cache, runner ActionRunner, tasks *asynctask.Manager, log *logger.Logger,
	observers *monitoring.ObserverManager, tracer *monitoring.Tracer,
	loadHierarchy func(ctx context.Context, teamID, rootTreeID string) ([]navgraph.TreeData, error)) *Executor {
	return &Executor{deviceID: deviceID, store: s, cache: cache, runner: runner, tasks: tasks, log: log, observers: observers, tracer: tracer, loadHierarchy: loadHierarchy}
}

// LoadResult reports whether the unified graph came from cache.
type LoadResult struct {
	Graph     *domain.UnifiedGraph
	FromCache bool
}

// LoadNavigationTree resolves a userinterface to its root tree,
// serves the cached unified graph when present, and otherwise loads
// the full hierarchy and builds + caches it.
func (e *Executor) LoadNavigationTree(ctx context.Context, userInterfaceName, teamID string) (*LoadResult, error) {
	ui, err := e.store.GetUserInterfaceByName(ctx, userInterfaceName, teamID)
	if err != nil {
		return nil, derrors.NewNavigationTreeError(userInterfaceName, "", "userinterface not found", err)
	}

	rootTree, err := e.store.GetRootTreeForInterface(ctx, ui.ID, teamID)
	if err != nil {
		return nil, derrors.NewNavigationTreeError(userInterfaceName, "", "no root tree", err)
	}

	if g, ok := e.cache.Get(rootTree.TreeID, teamID); ok {
		return &LoadResult{Graph: g, FromCache: true}, nil
	}

	hierarchy, err := e.loadHierarchy(ctx, teamID, rootTree.TreeID)
	if err != nil {
		return nil, derrors.NewNavigationTreeError(userInterfaceName, rootTree.TreeID, "hierarchy load failed", err)
	}

	g, err := navgraph.Build(rootTree.TreeID, hierarchy)
	if err != nil {
		return nil, err
	}
	e.cache.Put(rootTree.TreeID, teamID, g)

	return &LoadResult{Graph: g, FromCache: false}, nil
}

// ExecuteNavigationRequest is execute_navigation's argument bag.
type ExecuteNavigationRequest struct {
	TreeID            string
	UserInterfaceName string
	TeamID            string
	TargetNodeID      string
	TargetNodeLabel   string
	CurrentNodeID     string
	CallbackURL       string
}

// ExecuteNavigation allocates an execution id, records a running
// status, and runs the pathfinder + per-step action execution on a
// background goroutine, returning immediately.
func (e *Executor) ExecuteNavigation(ctx context.Context, req ExecuteNavigationRequest) (string, error) {
	target := req.TargetNodeID
	if target == "" {
		target = req.TargetNodeLabel
	}
	if target == "" {
		return "", derrors.NewNavigationTreeError(req.UserInterfaceName, req.TreeID, "target_node_id or target_node_label required", nil)
	}

	taskID := e.tasks.Start(ctx, req.CallbackURL, func(ctx context.Context, progress func(int, string)) (any, error) {
		return e.runNavigation(ctx, req, target, progress)
	})
	return taskID, nil
}

func (e *Executor) runNavigation(ctx context.Context, req ExecuteNavigationRequest, target string, progress func(int, string)) (*domain.ExecutionResult, error) {
	start := time.Now()
	ctx, span := e.tracer.StartNavigationSpan(ctx, req.TreeID, e.deviceID, req.TreeID)
	e.observers.NotifyNavigationStarted(e.deviceID, req.TreeID, req.TreeID)
	result, err := e.runNavigationTraced(ctx, span, req, target, progress)
	monitoring.End(span, err)
	if err != nil {
		e.observers.NotifyNavigationFailed(e.deviceID, req.TreeID, err, time.Since(start))
	} else {
		e.observers.NotifyNavigationCompleted(e.deviceID, req.TreeID, time.Since(start))
	}
	return result, err
}

func (e *Executor) runNavigationTraced(ctx context.Context, span trace.Span, req ExecuteNavigationRequest, target string, progress func(int, string)) (*domain.ExecutionResult, error) {
	progress(0, "loading navigation graph")
	loaded, err := e.LoadNavigationTree(ctx, req.UserInterfaceName, req.TeamID)
	if err != nil {
		return nil, err
	}

	current := req.CurrentNodeID
	if current == "" {
		current, err = pathfinder.EntryPoint(loaded.Graph, loaded.Graph.RootTreeID)
		if err != nil {
			return nil, err
		}
	}

	path, err := pathfinder.FindPath(loaded.Graph, current, target)
	if err != nil {
		return nil, err
	}

	result := &domain.ExecutionResult{}
	total := len(path.Steps)
	for i, step := range path.Steps {
		progress((i*100)/max(total, 1), fmt.Sprintf("executing edge %s", step.Edge.EdgeID))

		stepStart := time.Now()
		e.observers.NotifyStepStarted(req.TreeID, step.Edge.TargetNodeID, step.ActionSetID)

		actionSet, ok := step.ActionSetEdge.ActionSetByID(step.ActionSetID)
		if !ok {
			err := derrors.NewControllerError(string(domain.ControllerKindRemote), "navigate",
				fmt.Sprintf("action set %s not found on edge %s", step.ActionSetID, step.Edge.EdgeID), nil, false)
			e.observers.NotifyStepFailed(req.TreeID, step.Edge.TargetNodeID, err, time.Since(stepStart), false)
			return nil, err
		}

		if err := e.runBucketWithFallback(ctx, actionSet); err != nil {
			e.observers.NotifyStepFailed(req.TreeID, step.Edge.TargetNodeID, err, time.Since(stepStart), len(actionSet.RetryActions) > 0)
			return nil, err
		}
		e.observers.NotifyStepCompleted(req.TreeID, step.Edge.TargetNodeID, time.Since(stepStart))
		monitoring.RecordStep(span, step.Edge.TargetNodeID, step.ActionSetID, true)

		result.Steps = append(result.Steps, domain.ExecutionStep{EdgeID: step.Edge.EdgeID, ActionsRun: len(actionSet.Actions)})

		if step.Edge.FinalWaitTimeMS > 0 {
			sleep(ctx, time.Duration(step.Edge.FinalWaitTimeMS)*time.Millisecond)
		}
	}

	targetNode, ok := loaded.Graph.Nodes[path.TargetNodeID]
	if ok && len(targetNode.Verifications) > 0 {
		if err := e.verifyNode(ctx, targetNode.Node); err != nil {
			return nil, err
		}
	}

	progress(100, "done")
	return result, nil
}

// runBucketWithFallback runs actions, then retry_actions on failure,
// then failure_actions if the retry bucket also fails.
func (e *Executor) runBucketWithFallback(ctx context.Context, as domain.ActionSet) error {
	if err := e.runActions(ctx, as.Actions); err == nil {
		return nil
	} else if len(as.RetryActions) == 0 && len(as.FailureActions) == 0 {
		return err
	}

	if err := e.runActions(ctx, as.RetryActions); err == nil {
		return nil
	} else if len(as.FailureActions) == 0 {
		return err
	}

	return e.runActions(ctx, as.FailureActions)
}

func (e *Executor) runActions(ctx context.Context, actions []domain.Action) error {
	if len(actions) == 0 {
		return derrors.NewControllerError(string(domain.ControllerKindRemote), "run_actions", "empty action bucket", nil, true)
	}
	for _, a := range actions {
		res, err := e.runner.RunAction(ctx, e.deviceID, a)
		if err != nil {
			return derrors.NewControllerError(a.ActionType, a.Command, "action failed", err, true)
		}
		if !res.Success {
			return derrors.NewControllerError(a.ActionType, a.Command, res.Error, nil, true)
		}
		if a.WaitTimeMS > 0 {
			sleep(ctx, time.Duration(a.WaitTimeMS)*time.Millisecond)
		}
	}
	return nil
}

// VerifyNode runs a node's verifications under its pass-condition
// policy.
func (e *Executor) VerifyNode(ctx context.Context, userInterfaceName, teamID, treeID, nodeID string) (bool, []domain.VerificationDetail, error) {
	loaded, err := e.LoadNavigationTree(ctx, userInterfaceName, teamID)
	if err != nil {
		return false, nil, err
	}
	node, ok := loaded.Graph.Nodes[nodeID]
	if !ok {
		return false, nil, derrors.NewVerificationError(nodeID, "verify_node", "node not found")
	}

	return e.runVerificationsDetailed(ctx, node.Node)
}

func (e *Executor) verifyNode(ctx context.Context, n domain.Node) error {
	ok, _, err := e.runVerificationsDetailed(ctx, n)
	if err != nil {
		return err
	}
	if !ok {
		return derrors.NewVerificationError(n.NodeID, "verify_node", "verification failed")
	}
	return nil
}

func (e *Executor) runVerificationsDetailed(ctx context.Context, n domain.Node) (bool, []domain.VerificationDetail, error) {
	if len(n.Verifications) == 0 {
		return true, nil, nil
	}

	details := make([]domain.VerificationDetail, 0, len(n.Verifications))
	successCount := 0
	for _, v := range n.Verifications {
		ok, detail, err := e.runner.RunVerification(ctx, e.deviceID, v)
		if err != nil {
			return false, details, derrors.NewVerificationError(n.NodeID, v.Command, err.Error())
		}
		details = append(details, detail)
		if ok {
			successCount++
		}
	}

	switch n.VerificationPassCondition {
	case domain.VerificationPassAny:
		return successCount > 0, details, nil
	default:
		return successCount == len(n.Verifications), details, nil
	}
}

// GetExecutionStatus polls a task record; never blocks.
func (e *Executor) GetExecutionStatus(executionID string) (asynctask.Record, bool) {
	return e.tasks.Get(executionID)
}

// ClearPreviewCache invalidates the cached graph for a root tree,
// forcing the next load to rebuild from persistence.
func (e *Executor) ClearPreviewCache(rootTreeID, teamID string) {
	e.cache.Invalidate(rootTreeID, teamID)
}

// PreviewPath computes a path without executing it, for the
// navigation/preview HTTP route.
func (e *Executor) PreviewPath(ctx context.Context, userInterfaceName, teamID, currentNodeID, target string) (*pathfinder.Path, error) {
	loaded, err := e.LoadNavigationTree(ctx, userInterfaceName, teamID)
	if err != nil {
		return nil, err
	}
	current := currentNodeID
	if current == "" {
		current, err = pathfinder.EntryPoint(loaded.Graph, loaded.Graph.RootTreeID)
		if err != nil {
			return nil, err
		}
	}
	return pathfinder.FindPath(loaded.Graph, current, target)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
