package exploration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcp/internal/aiplanner"
	"hostcp/internal/domain"
	"hostcp/internal/infrastructure/logger"
	"hostcp/internal/navgraph"
	"hostcp/internal/store/memstore"
)

// recordingRemote is like fakeRemote but records every SendCommand
// key press, for asserting the dpad navigation sequence.
type recordingRemote struct {
	fakeRemote
	presses []string
}

func (r *recordingRemote) SendCommand(ctx context.Context, command string, params map[string]any) (domain.ActionResult, error) {
	if command == "press_key" {
		if key, ok := params["key"].(string); ok {
			r.presses = append(r.presses, key)
		}
	}
	return domain.ActionResult{Success: true}, nil
}

func buildRecordingEngine(remote *recordingRemote, items []string, itemsLeftOfHome, itemsRightOfHome []string) *Engine {
	host := domain.NewHost("", 0, "host1", "")
	device := domain.NewDevice("d1", "Device 1", "model", "", 0)
	device.IRType = "ir_blaster"
	device.AddController(domain.ControllerKindRemote, remote)
	device.AddController(domain.ControllerKindAV, &fakeAV{shotPath: "/tmp/shot.png"})
	host.AddDevice(device)

	plan := &aiplanner.Plan{
		MenuType:         "grid",
		Items:            items,
		ItemsLeftOfHome:  itemsLeftOfHome,
		ItemsRightOfHome: itemsRightOfHome,
		Strategy:         string(domain.StrategyDpadWithScreenshot),
	}
	return NewEngine("d1", host, fakeObjects{}, &fakePlanner{plan: plan})
}

func startedExecutor(t *testing.T) (*Executor, *memstore.MemStore) {
	t.Helper()
	s := memstore.New()
	s.Seed(
		domain.UserInterface{ID: "ui1", Name: "tv"},
		[]domain.NavigationTree{{TreeID: "t1", IsRootTree: true, Name: "t1", UserInterfaceID: "ui1"}},
		map[string][]domain.Node{"t1": {
			{NodeID: "home", NodeType: domain.NodeTypeEntry},
			{NodeID: "settings"},
			{NodeID: "apps"},
		}},
		map[string][]domain.Edge{},
	)
	cache := navgraph.NewCache()
	engine := buildTestEngine()
	exec := New("d1", s, cache, nil, engine, logger.Nop())

	_, err := exec.StartExploration(context.Background(), "t1", "tv", "home", "find settings")
	require.NoError(t, err)
	return exec, s
}

func TestCleanupTemp_DeletesOnlyFailedItems(t *testing.T) {
	exec, s := startedExecutor(t)

	exec.ctx.FailedItems = []string{"settings"}

	require.NoError(t, exec.CleanupTemp(context.Background(), "team1"))

	nodes, err := s.GetTreeNodes(context.Background(), "t1", "team1")
	require.NoError(t, err)
	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.NodeID)
	}
	assert.Contains(t, ids, "home")
	assert.Contains(t, ids, "apps")
	assert.NotContains(t, ids, "settings")

	remaining, _ := exec.Context()
	assert.Empty(t, remaining.FailedItems)
}

func TestCleanupTemp_NoContextIsNoop(t *testing.T) {
	s := memstore.New()
	cache := navgraph.NewCache()
	engine := buildTestEngine()
	exec := New("d1", s, cache, nil, engine, logger.Nop())

	assert.NoError(t, exec.CleanupTemp(context.Background(), "team1"))
}

func TestStartValidation_RequiresStructureCreatedState(t *testing.T) {
	exec, _ := startedExecutor(t)
	err := exec.StartValidation()
	assert.Error(t, err, "still awaiting_approval, not structure_created")
}

func TestStartValidation_AdvancesFromStructureCreated(t *testing.T) {
	exec, _ := startedExecutor(t)
	exec.ctx.SelectedItems = []string{"settings", "apps"}
	exec.state = domain.StateStructureCreated

	require.NoError(t, exec.StartValidation())
	assert.Equal(t, domain.StateAwaitingValidation, exec.State())

	got, _ := exec.Context()
	assert.Equal(t, 2, got.TotalSteps)
	assert.Equal(t, 0, got.CurrentStep)
}

func TestContinueExploration_RejectsOutsideAwaitingApproval(t *testing.T) {
	s := memstore.New()
	cache := navgraph.NewCache()
	engine := buildTestEngine()
	exec := New("d1", s, cache, nil, engine, logger.Nop())

	err := exec.ContinueExploration(context.Background(), "team1", []string{"settings"}, nil)
	assert.Error(t, err, "idle state never accepts continue_exploration")
}

func TestContinueExploration_RejectsUnknownStartNode(t *testing.T) {
	exec, _ := startedExecutor(t)
	exec.ctx.StartNodeID = "does-not-exist"

	err := exec.ContinueExploration(context.Background(), "team1", []string{"settings"}, nil)
	assert.Error(t, err)
	assert.Equal(t, domain.StateFailed, exec.State())
}

func TestDpadGroups_DefaultsUnmarkedItemsToRightArm(t *testing.T) {
	right, left, vertical := dpadGroups([]string{"a", "b", "c"}, []string{"a"}, nil)
	assert.Equal(t, []string{"b", "c"}, right)
	assert.Equal(t, []string{"a"}, left)
	assert.Empty(t, vertical)
}

func TestDpadGroups_ExplicitRightLeavesRemainderVertical(t *testing.T) {
	right, left, vertical := dpadGroups([]string{"a", "b", "c", "d"}, []string{"a"}, []string{"b"})
	assert.Equal(t, []string{"b"}, right)
	assert.Equal(t, []string{"a"}, left)
	assert.Equal(t, []string{"c", "d"}, vertical)
}

func TestDpadGroups_IgnoresUnselectedLeftRightHints(t *testing.T) {
	right, left, vertical := dpadGroups([]string{"a", "b"}, []string{"not-selected"}, nil)
	assert.Equal(t, []string{"a", "b"}, right)
	assert.Empty(t, left)
	assert.Empty(t, vertical)
}

func TestDpadDirectionFor_PerArm(t *testing.T) {
	selected := []string{"a", "b", "c", "d"}
	left := []string{"a"}
	right := []string{"b"}

	assert.Equal(t, "LEFT", dpadDirectionFor("a", selected, left, right))
	assert.Equal(t, "RIGHT", dpadDirectionFor("b", selected, left, right))
	assert.Equal(t, "DOWN", dpadDirectionFor("c", selected, left, right))
	assert.Equal(t, "DOWN", dpadDirectionFor("d", selected, left, right))
}

func TestDpadOffsetFor_CountsPositionWithinArm(t *testing.T) {
	selected := []string{"a", "b", "c", "d"}
	left := []string{"a"}
	right := []string{"b"}

	assert.Equal(t, 0, dpadOffsetFor("a", selected, left, right))
	assert.Equal(t, 0, dpadOffsetFor("b", selected, left, right))
	assert.Equal(t, 0, dpadOffsetFor("c", selected, left, right))
	assert.Equal(t, 1, dpadOffsetFor("d", selected, left, right))
}

func TestBuildDpadStructure_BuildsRightLeftAndVerticalChains(t *testing.T) {
	nodes, edges := buildDpadStructure("home", []string{"a", "b", "c", "d"}, []string{"a"}, []string{"b"}, map[string]bool{"b": true})

	edgeByID := make(map[string]domain.Edge)
	for _, e := range edges {
		edgeByID[e.EdgeID] = e
	}

	// right arm: home -> focus_b
	require.Contains(t, edgeByID, "home__focus_b")
	assert.Equal(t, "RIGHT", edgeByID["home__focus_b"].ActionSets[0].Actions[0].Params["key"])

	// left arm: home -> focus_a
	require.Contains(t, edgeByID, "home__focus_a")
	assert.Equal(t, "LEFT", edgeByID["home__focus_a"].ActionSets[0].Actions[0].Params["key"])

	// vertical chain: home -> focus_c -> focus_d, both DOWN
	require.Contains(t, edgeByID, "home__focus_c")
	assert.Equal(t, "DOWN", edgeByID["home__focus_c"].ActionSets[0].Actions[0].Params["key"])
	require.Contains(t, edgeByID, "focus_c__focus_d")
	assert.Equal(t, "DOWN", edgeByID["focus_c__focus_d"].ActionSets[0].Actions[0].Params["key"])

	// b was also selected as a screen item: focus_b -> b via OK/BACK
	require.Contains(t, edgeByID, "focus_b__b")
	assert.Equal(t, "OK", edgeByID["focus_b__b"].ActionSets[0].Actions[0].Params["key"])
	assert.Equal(t, "BACK", edgeByID["focus_b__b"].ActionSets[1].Actions[0].Params["key"])

	var nodeIDs []string
	for _, n := range nodes {
		nodeIDs = append(nodeIDs, n.NodeID)
	}
	assert.Contains(t, nodeIDs, "focus_a")
	assert.Contains(t, nodeIDs, "focus_b")
	assert.Contains(t, nodeIDs, "focus_c")
	assert.Contains(t, nodeIDs, "focus_d")
	assert.Contains(t, nodeIDs, "b")
}

func TestValidateDpadItem_VerticalRowTwoPressesDownTwice(t *testing.T) {
	remote := &recordingRemote{}
	s := memstore.New()
	s.Seed(
		domain.UserInterface{ID: "ui1", Name: "tv"},
		[]domain.NavigationTree{{TreeID: "t1", IsRootTree: true, Name: "t1", UserInterfaceID: "ui1"}},
		map[string][]domain.Node{"t1": {{NodeID: "home", NodeType: domain.NodeTypeEntry}}},
		map[string][]domain.Edge{},
	)
	cache := navgraph.NewCache()
	engine := buildRecordingEngine(remote, []string{"a", "b", "c", "d"}, []string{"a"}, []string{"b"})
	exec := New("d1", s, cache, nil, engine, logger.Nop())

	_, err := exec.StartExploration(context.Background(), "t1", "tv", "home", "find stuff")
	require.NoError(t, err)

	require.NoError(t, exec.ContinueExploration(context.Background(), "team1", []string{"a", "b", "c", "d"}, nil))
	require.NoError(t, exec.StartValidation())

	for i := 0; i < 4; i++ {
		_, err := exec.ValidateNextItem(context.Background(), "team1")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"LEFT", "OK", "BACK", "RIGHT", // a: offset 0, left arm
		"RIGHT", "OK", "BACK", "LEFT", // b: offset 0, right arm
		"DOWN", "OK", "BACK", "UP", // c: offset 0, vertical
		"DOWN", "DOWN", "OK", "BACK", "UP", "UP", // d: offset 1, vertical
	}, remote.presses)
}
