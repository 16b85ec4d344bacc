package navexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcp/internal/asynctask"
	"hostcp/internal/domain"
	"hostcp/internal/infrastructure/callback"
	"hostcp/internal/infrastructure/logger"
	"hostcp/internal/infrastructure/monitoring"
	"hostcp/internal/navgraph"
	"hostcp/internal/store/memstore"
)

type fakeRunner struct {
	actionErr        error
	verifyOK         bool
	verifyErr        error
	ranActions       []domain.Action
	ranVerifications []domain.Verification
}

func (f *fakeRunner) RunAction(ctx context.Context, deviceID string, a domain.Action) (domain.ActionResult, error) {
	f.ranActions = append(f.ranActions, a)
	if f.actionErr != nil {
		return domain.ActionResult{}, f.actionErr
	}
	return domain.ActionResult{Success: true}, nil
}

func (f *fakeRunner) RunVerification(ctx context.Context, deviceID string, v domain.Verification) (bool, domain.VerificationDetail, error) {
	f.ranVerifications = append(f.ranVerifications, v)
	if f.verifyErr != nil {
		return false, domain.VerificationDetail{}, f.verifyErr
	}
	return f.verifyOK, domain.VerificationDetail{}, nil
}

func seededExecutor(t *testing.T, runner *fakeRunner) *Executor {
	t.Helper()
	s := memstore.New()
	s.Seed(
		domain.UserInterface{ID: "ui1", Name: "tv"},
		[]domain.NavigationTree{{TreeID: "t1", IsRootTree: true, Name: "t1", UserInterfaceID: "ui1"}},
		map[string][]domain.Node{"t1": {
			{NodeID: "home", NodeType: domain.NodeTypeEntry},
			{NodeID: "settings", Verifications: []domain.Verification{{Command: "check_text", VerificationType: "text"}}},
		}},
		map[string][]domain.Edge{"t1": {{
			EdgeID:             "home__settings",
			SourceNodeID:       "home",
			TargetNodeID:       "settings",
			DefaultActionSetID: "forward",
			ActionSets: []domain.ActionSet{
				{ID: "forward", Actions: []domain.Action{{Command: "click", ActionType: "remote"}}},
				{ID: "reverse", Actions: []domain.Action{{Command: "press_key", ActionType: "remote", Params: map[string]any{"key": "BACK"}}}},
			},
		}}},
	)

	loadHierarchy := func(ctx context.Context, teamID, rootTreeID string) ([]navgraph.TreeData, error) {
		tree, err := s.GetTree(ctx, rootTreeID, teamID)
		if err != nil {
			return nil, err
		}
		nodes, _ := s.GetTreeNodes(ctx, rootTreeID, teamID)
		edges, _ := s.GetTreeEdges(ctx, rootTreeID, teamID)
		return []navgraph.TreeData{{Tree: tree, Nodes: nodes, Edges: edges}}, nil
	}

	return New("d1", s, navgraph.NewCache(), runner,
		asynctask.NewManager(callback.New(nil), logger.Nop()), logger.Nop(),
		monitoring.NewObserverManager(), monitoring.NewTracer(), loadHierarchy)
}

func waitForStatus(t *testing.T, e *Executor, taskID string, timeout time.Duration) asynctask.Record {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		rec, ok := e.GetExecutionStatus(taskID)
		if ok && rec.Status != asynctask.StatusRunning {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("execution did not reach a terminal status before timeout")
	return asynctask.Record{}
}

func TestLoadNavigationTree_CachesAfterFirstBuild(t *testing.T) {
	e := seededExecutor(t, &fakeRunner{verifyOK: true})

	first, err := e.LoadNavigationTree(context.Background(), "tv", "team1")
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := e.LoadNavigationTree(context.Background(), "tv", "team1")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Same(t, first.Graph, second.Graph)
}

func TestLoadNavigationTree_UnknownUserInterface(t *testing.T) {
	e := seededExecutor(t, &fakeRunner{})
	_, err := e.LoadNavigationTree(context.Background(), "does-not-exist", "team1")
	assert.Error(t, err)
}

func TestExecuteNavigation_RunsPathAndVerifiesTarget(t *testing.T) {
	runner := &fakeRunner{verifyOK: true}
	e := seededExecutor(t, runner)

	taskID, err := e.ExecuteNavigation(context.Background(), ExecuteNavigationRequest{
		TreeID: "t1", UserInterfaceName: "tv", TeamID: "team1", TargetNodeID: "settings",
	})
	require.NoError(t, err)

	rec := waitForStatus(t, e, taskID, time.Second)
	require.Equal(t, asynctask.StatusCompleted, rec.Status)
	assert.Len(t, runner.ranActions, 1)
	assert.Equal(t, "click", runner.ranActions[0].Command)
	assert.Len(t, runner.ranVerifications, 1)
}

func TestExecuteNavigation_RequiresTarget(t *testing.T) {
	e := seededExecutor(t, &fakeRunner{})
	_, err := e.ExecuteNavigation(context.Background(), ExecuteNavigationRequest{TreeID: "t1", UserInterfaceName: "tv"})
	assert.Error(t, err)
}

func TestExecuteNavigation_ActionFailurePropagatesAsError(t *testing.T) {
	runner := &fakeRunner{actionErr: assert.AnError}
	e := seededExecutor(t, runner)

	taskID, err := e.ExecuteNavigation(context.Background(), ExecuteNavigationRequest{
		TreeID: "t1", UserInterfaceName: "tv", TeamID: "team1", TargetNodeID: "settings",
	})
	require.NoError(t, err)

	rec := waitForStatus(t, e, taskID, time.Second)
	assert.Equal(t, asynctask.StatusError, rec.Status)
}

func TestVerifyNode_RunsNodeVerifications(t *testing.T) {
	runner := &fakeRunner{verifyOK: true}
	e := seededExecutor(t, runner)

	ok, details, err := e.VerifyNode(context.Background(), "tv", "team1", "t1", "settings")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, details, 1)
}

func TestVerifyNode_UnknownNode(t *testing.T) {
	e := seededExecutor(t, &fakeRunner{})
	_, _, err := e.VerifyNode(context.Background(), "tv", "team1", "t1", "does-not-exist")
	assert.Error(t, err)
}

func TestPreviewPath_ComputesWithoutRunningActions(t *testing.T) {
	runner := &fakeRunner{}
	e := seededExecutor(t, runner)

	path, err := e.PreviewPath(context.Background(), "tv", "team1", "home", "settings")
	require.NoError(t, err)
	assert.Equal(t, "settings", path.TargetNodeID)
	assert.Empty(t, runner.ranActions, "preview must not execute any action")
}

func TestClearPreviewCache_ForcesRebuildOnNextLoad(t *testing.T) {
	e := seededExecutor(t, &fakeRunner{verifyOK: true})

	first, err := e.LoadNavigationTree(context.Background(), "tv", "team1")
	require.NoError(t, err)

	e.ClearPreviewCache(first.Graph.RootTreeID, "team1")

	second, err := e.LoadNavigationTree(context.Background(), "tv", "team1")
	require.NoError(t, err)
	assert.False(t, second.FromCache)
}
