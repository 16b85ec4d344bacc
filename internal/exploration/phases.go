package exploration

import (
	"context"
	"fmt"
	"time"

	"hostcp/internal/asynctask"
	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
	"hostcp/internal/navexec"
)

// ContinueExploration is phase 2a: structure creation. It must be
// called while awaiting_approval.
func (e *Executor) ContinueExploration(ctx context.Context, teamID string, selectedItems []string, selectedScreenItems map[string]bool) error {
	e.mu.Lock()
	if err := e.requireState(domain.StateAwaitingApproval); err != nil {
		e.mu.Unlock()
		return err
	}
	startNodeID := e.ctx.StartNodeID
	treeID := e.ctx.TreeID
	strategy := e.ctx.Strategy
	itemsLeftOfHome := e.ctx.ItemsLeftOfHome
	itemsRightOfHome := e.ctx.ItemsRightOfHome
	e.ctx.SelectedItems = selectedItems
	if selectedScreenItems != nil {
		e.ctx.SelectedScreenItems = selectedScreenItems
	}
	e.mu.Unlock()

	nodes, err := e.store.GetTreeNodes(ctx, treeID, teamID)
	if err != nil {
		return derrors.NewExplorationRecoveryError(startNodeID, "failed loading tree nodes")
	}
	found := false
	for _, n := range nodes {
		if n.NodeID == startNodeID {
			found = true
			break
		}
	}
	if !found {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.fail(derrors.NewExplorationRecoveryError(startNodeID, "start node does not exist"))
	}

	var newNodes []domain.Node
	var newEdges []domain.Edge

	switch strategy {
	case domain.StrategyDpadWithScreenshot:
		newNodes, newEdges = buildDpadStructure(startNodeID, selectedItems, itemsLeftOfHome, itemsRightOfHome, selectedScreenItems)
	default:
		newNodes, newEdges = buildClickStructure(startNodeID, selectedItems)
	}

	if _, err := e.store.SaveNodesBatch(ctx, treeID, teamID, newNodes); err != nil {
		return derrors.NewPersistenceError("save_nodes_batch", "exploration structure write failed", err)
	}
	if _, err := e.store.SaveEdgesBatch(ctx, treeID, teamID, newEdges); err != nil {
		return derrors.NewPersistenceError("save_edges_batch", "exploration structure write failed", err)
	}

	e.cache.Invalidate(rootOf(treeID), teamID)
	time.Sleep(settlingDelay)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.setState(domain.StateStructureCreated)
	return nil
}

// rootOf is a placeholder identity mapping: callers that know the
// tree's actual root (via navgraph.ResolveRootTreeID) should invalidate
// that key directly; kept here so exploration doesn't need a store
// round-trip just to invalidate its own writes.
func rootOf(treeID string) string { return treeID }

func buildClickStructure(startNodeID string, items []string) ([]domain.Node, []domain.Edge) {
	nodes := make([]domain.Node, 0, len(items))
	edges := make([]domain.Edge, 0, len(items))
	for _, item := range items {
		node := domain.Node{NodeID: item, Label: item + "_temp", NodeType: domain.NodeTypeScreen}
		edge := domain.Edge{
			EdgeID:       fmt.Sprintf("%s__%s", startNodeID, item),
			SourceNodeID: startNodeID,
			TargetNodeID: item,
			ActionSets: []domain.ActionSet{
				{ID: "forward", Actions: []domain.Action{{Command: "click_element", ActionType: "remote", Params: map[string]any{"text": item}}}},
				{ID: "reverse", Actions: []domain.Action{{Command: "press_key", ActionType: "remote", Params: map[string]any{"key": "BACK"}}}},
			},
			DefaultActionSetID: "forward",
		}
		nodes = append(nodes, node)
		edges = append(edges, edge)
	}
	return nodes, edges
}

// buildDpadStructure builds the dual-layer structure for the TV/dpad
// branch. Row 0 is startNodeID. Row 1 is a horizontal strip split into
// a right arm (RIGHT/LEFT from start) and a left arm (LEFT/RIGHT from
// start); any selected item not placed in either arm is a subsequent
// (vertical) row, chained by DOWN/UP edges starting from start. Every
// focus node whose item was also selected as a screen gets a
// bidirectional OK/BACK edge to its screen node.
func buildDpadStructure(startNodeID string, selectedItems, itemsLeftOfHome, itemsRightOfHome []string, screenItems map[string]bool) ([]domain.Node, []domain.Edge) {
	right, left, vertical := dpadGroups(selectedItems, itemsLeftOfHome, itemsRightOfHome)

	var nodes []domain.Node
	var edges []domain.Edge

	addChain := func(chain []string, fwdKey, revKey string) {
		prev := startNodeID
		for _, item := range chain {
			focusID := "focus_" + item
			nodes = append(nodes, domain.Node{NodeID: focusID, Label: focusID + "_temp", NodeType: domain.NodeTypeScreen})
			edges = append(edges, dpadFocusEdge(prev, focusID, fwdKey, revKey))
			if screenItems[item] {
				screenNode, screenEdge := dpadScreenNodeAndEdge(focusID, item)
				nodes = append(nodes, screenNode)
				edges = append(edges, screenEdge)
			}
			prev = focusID
		}
	}

	addChain(right, "RIGHT", "LEFT")
	addChain(left, "LEFT", "RIGHT")
	addChain(vertical, "DOWN", "UP")

	return nodes, edges
}

// dpadGroups partitions selectedItems into the three dpad navigation
// groups relative to start: the right arm (RIGHT from start — every
// item not placed left, when the plan gives no explicit
// items_right_of_home), the left arm (LEFT from start), and the
// vertical rows beyond row 1 (DOWN from start, chained in selection
// order) — only populated when items_right_of_home explicitly leaves
// some selected items unclassified.
func dpadGroups(selectedItems, itemsLeftOfHome, itemsRightOfHome []string) (right, left, vertical []string) {
	selected := make(map[string]bool, len(selectedItems))
	for _, it := range selectedItems {
		selected[it] = true
	}

	leftSet := make(map[string]bool, len(itemsLeftOfHome))
	for _, it := range itemsLeftOfHome {
		if selected[it] {
			left = append(left, it)
			leftSet[it] = true
		}
	}

	rightSet := make(map[string]bool, len(selectedItems))
	if len(itemsRightOfHome) > 0 {
		for _, it := range itemsRightOfHome {
			if selected[it] && !leftSet[it] {
				right = append(right, it)
				rightSet[it] = true
			}
		}
	} else {
		for _, it := range selectedItems {
			if !leftSet[it] {
				right = append(right, it)
				rightSet[it] = true
			}
		}
	}

	for _, it := range selectedItems {
		if !leftSet[it] && !rightSet[it] {
			vertical = append(vertical, it)
		}
	}
	return right, left, vertical
}

// dpadDirectionFor reports the focus-navigation key that moves the dpad
// cursor from the start node along item's arm: RIGHT or LEFT for row
// 1's two arms, DOWN for anything chained below it.
func dpadDirectionFor(item string, selectedItems, itemsLeftOfHome, itemsRightOfHome []string) string {
	_, left, vertical := dpadGroups(selectedItems, itemsLeftOfHome, itemsRightOfHome)
	if containsString(left, item) {
		return "LEFT"
	}
	if containsString(vertical, item) {
		return "DOWN"
	}
	return "RIGHT"
}

func containsString(items []string, want string) bool {
	for _, it := range items {
		if it == want {
			return true
		}
	}
	return false
}

func dpadFocusEdge(from, to, fwdKey, revKey string) domain.Edge {
	return domain.Edge{
		EdgeID:       fmt.Sprintf("%s__%s", from, to),
		SourceNodeID: from,
		TargetNodeID: to,
		ActionSets: []domain.ActionSet{
			{ID: "forward", Actions: []domain.Action{{Command: "press_key", ActionType: "remote", Params: map[string]any{"key": fwdKey}}}},
			{ID: "reverse", Actions: []domain.Action{{Command: "press_key", ActionType: "remote", Params: map[string]any{"key": revKey}}}},
		},
		DefaultActionSetID: "forward",
	}
}

func dpadScreenNodeAndEdge(focusID, item string) (domain.Node, domain.Edge) {
	node := domain.Node{NodeID: item, Label: item + "_temp", NodeType: domain.NodeTypeScreen}
	edge := domain.Edge{
		EdgeID:       fmt.Sprintf("%s__%s", focusID, item),
		SourceNodeID: focusID,
		TargetNodeID: item,
		ActionSets: []domain.ActionSet{
			{ID: "forward", Actions: []domain.Action{{Command: "press_key", ActionType: "remote", Params: map[string]any{"key": "OK"}}}},
			{ID: "reverse", Actions: []domain.Action{{Command: "press_key", ActionType: "remote", Params: map[string]any{"key": "BACK"}}}},
		},
		DefaultActionSetID: "forward",
	}
	return node, edge
}

// StartValidation moves structure_created -> awaiting_validation.
func (e *Executor) StartValidation() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(domain.StateStructureCreated); err != nil {
		return err
	}
	e.ctx.TotalSteps = len(e.ctx.SelectedItems)
	e.ctx.CurrentStep = 0
	e.setState(domain.StateAwaitingValidation)
	return nil
}

// ValidateNextItem runs phase 2b for the next pending item: click
// strategies click+verify+return; dpad strategies move the focus
// cursor depth-first.
func (e *Executor) ValidateNextItem(ctx context.Context, teamID string) (domain.ExplorationStep, error) {
	e.mu.Lock()
	if err := e.requireState(domain.StateAwaitingValidation); err != nil {
		e.mu.Unlock()
		return domain.ExplorationStep{}, err
	}
	if e.ctx.CurrentStep >= len(e.ctx.SelectedItems) {
		e.mu.Unlock()
		return domain.ExplorationStep{}, derrors.NewExplorationRecoveryError(e.ctx.StartNodeID, "no items left to validate")
	}
	item := e.ctx.SelectedItems[e.ctx.CurrentStep]
	strategy := e.ctx.Strategy
	userInterfaceName := e.ctx.UserInterface
	treeID := e.ctx.TreeID
	startNodeID := e.ctx.StartNodeID
	e.setState(domain.StateValidating)
	e.mu.Unlock()

	step := domain.ExplorationStep{ItemName: item, Timestamp: time.Now()}

	var validationErr error
	switch strategy {
	case domain.StrategyDpadWithScreenshot:
		validationErr = e.validateDpadItem(ctx, item)
	default:
		validationErr = e.validateClickItem(ctx, userInterfaceName, item)
	}

	status := domain.ValidationSuccess
	if validationErr != nil {
		if recoverErr := e.recoverToStart(ctx, userInterfaceName, treeID, startNodeID); recoverErr != nil {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.setState(domain.StateValidationFailed)
			e.ctx.FailedItems = append(e.ctx.FailedItems, item)
			now := time.Now()
			e.ctx.LastFailureAt = &now
			step.Success = false
			step.Detail = validationErr.Error()
			e.ctx.StepHistory = append(e.ctx.StepHistory, step)
			return step, derrors.NewExplorationRecoveryError(startNodeID, "validation failed and recovery failed: "+validationErr.Error())
		}
		status = domain.ValidationFailedRecovered
	}

	if saveErr := e.writeValidationStatus(ctx, teamID, treeID, startNodeID, item, status); saveErr != nil {
		e.log.Warn("validation status write failed", "item", item, "error", saveErr.Error())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	step.Success = validationErr == nil
	if validationErr != nil {
		step.Detail = validationErr.Error()
		e.ctx.FailedItems = append(e.ctx.FailedItems, item)
		now := time.Now()
		e.ctx.LastFailureAt = &now
	} else {
		e.ctx.CompletedItems = append(e.ctx.CompletedItems, item)
		now := time.Now()
		e.ctx.LastSuccessAt = &now
	}
	e.ctx.StepHistory = append(e.ctx.StepHistory, step)

	e.ctx.CurrentStep++
	if e.ctx.CurrentStep >= e.ctx.TotalSteps {
		e.setState(domain.StateValidationComplete)
	} else {
		e.setState(domain.StateAwaitingValidation)
	}
	return step, nil
}

// writeValidationStatus stamps the start→item edge's two action_sets
// with the outcome and a timestamp, writing validation_status onto
// action_sets[0].actions[0] and action_sets[1].actions[0].
func (e *Executor) writeValidationStatus(ctx context.Context, teamID, treeID, startNodeID, item string, status domain.ValidationStatus) error {
	edges, err := e.store.GetTreeEdges(ctx, treeID, teamID)
	if err != nil {
		return err
	}
	now := time.Now().Format(time.RFC3339)
	for _, edge := range edges {
		if edge.SourceNodeID != startNodeID || edge.TargetNodeID != item {
			continue
		}
		for i := range edge.ActionSets {
			if len(edge.ActionSets[i].Actions) == 0 {
				continue
			}
			edge.ActionSets[i].Actions[0].ValidationStatus = status
			edge.ActionSets[i].Actions[0].ValidatedAt = now
		}
		_, err := e.store.SaveEdgesBatch(ctx, treeID, teamID, []domain.Edge{edge})
		return err
	}
	return nil
}

func (e *Executor) validateClickItem(ctx context.Context, userInterfaceName, item string) error {
	if _, err := e.engine.RunRemoteCommand(ctx, "click_element", map[string]any{"text": item}); err != nil {
		return err
	}
	screenshotURL, dump, err := e.engine.CaptureScreen(ctx, userInterfaceName, item+"_validate.png")
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.ctx.NodeVerificationData = append(e.ctx.NodeVerificationData, domain.NodeVerificationEntry{NodeID: item, Dump: dump, ScreenshotURL: screenshotURL})
	expectedFirstItem := ""
	if len(e.ctx.SelectedItems) > 0 {
		expectedFirstItem = e.ctx.SelectedItems[0]
	}
	e.mu.Unlock()

	if _, err := e.engine.RunRemoteCommand(ctx, "press_key", map[string]any{"key": "BACK"}); err != nil {
		return err
	}

	if !containsText(dump, expectedFirstItem) {
		// Double-BACK fallback before giving up.
		_, _ = e.engine.RunRemoteCommand(ctx, "press_key", map[string]any{"key": "BACK"})
	}
	return nil
}

// validateDpadItem drives the cursor from start to item's focus node
// and back. Each arm (right/left/vertical) is a chain of identical
// presses from start, so reaching position k in an arm takes k+1
// presses of that arm's direction key, and returning takes the same
// count of the reverse key — stateless, so item order within
// SelectedItems doesn't need to track which arm the cursor was last
// left in.
func (e *Executor) validateDpadItem(ctx context.Context, item string) error {
	e.mu.Lock()
	direction := dpadDirectionFor(item, e.ctx.SelectedItems, e.ctx.ItemsLeftOfHome, e.ctx.ItemsRightOfHome)
	presses := dpadOffsetFor(item, e.ctx.SelectedItems, e.ctx.ItemsLeftOfHome, e.ctx.ItemsRightOfHome) + 1
	userInterfaceName := e.ctx.UserInterface
	e.mu.Unlock()

	for i := 0; i < presses; i++ {
		if _, err := e.engine.RunRemoteCommand(ctx, "press_key", map[string]any{"key": direction}); err != nil {
			return err
		}
	}
	if _, err := e.engine.RunRemoteCommand(ctx, "press_key", map[string]any{"key": "OK"}); err != nil {
		return err
	}

	screenshotURL, dump, err := e.engine.CaptureScreen(ctx, userInterfaceName, item+"_dpad.png")
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.ctx.NodeVerificationData = append(e.ctx.NodeVerificationData, domain.NodeVerificationEntry{NodeID: item, Dump: dump, ScreenshotURL: screenshotURL})
	e.mu.Unlock()

	if _, err := e.engine.RunRemoteCommand(ctx, "press_key", map[string]any{"key": "BACK"}); err != nil {
		return err
	}
	reverse := dpadReverseKey(direction)
	for i := 0; i < presses; i++ {
		if _, err := e.engine.RunRemoteCommand(ctx, "press_key", map[string]any{"key": reverse}); err != nil {
			return err
		}
	}
	return nil
}

func dpadReverseKey(direction string) string {
	switch direction {
	case "LEFT":
		return "RIGHT"
	case "DOWN":
		return "UP"
	default:
		return "LEFT"
	}
}

// dpadOffsetFor returns item's zero-based position within its arm
// (right/left/vertical), i.e. how many presses of the arm's direction
// key precede reaching it from start.
func dpadOffsetFor(item string, selectedItems, itemsLeftOfHome, itemsRightOfHome []string) int {
	right, left, vertical := dpadGroups(selectedItems, itemsLeftOfHome, itemsRightOfHome)
	for _, arm := range [][]string{right, left, vertical} {
		for i, it := range arm {
			if it == item {
				return i
			}
		}
	}
	return 0
}

func containsText(dump domain.UIDump, text string) bool {
	if text == "" {
		return true
	}
	for _, el := range dump.Elements {
		if el.Text == text {
			return true
		}
	}
	return false
}

// recoverToStart attempts to navigate back to the exploration's start
// node using the navigation executor when a validation step fails in
// place. It polls the async task record until terminal, since navexec
// itself only runs async.
func (e *Executor) recoverToStart(ctx context.Context, userInterfaceName, treeID, startNodeID string) error {
	taskID, err := e.navExec.ExecuteNavigation(ctx, navexec.ExecuteNavigationRequest{
		TreeID: treeID, UserInterfaceName: userInterfaceName, TargetNodeID: startNodeID,
	})
	if err != nil {
		return err
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rec, ok := e.navExec.GetExecutionStatus(taskID)
			if !ok {
				continue
			}
			switch rec.Status {
			case asynctask.StatusCompleted:
				return nil
			case asynctask.StatusError:
				return fmt.Errorf("recovery navigation failed: %s", rec.Error)
			}
		}
	}
}

// StartNodeVerification is phase 2c's first half: suggest a
// verification per accumulated dump.
func (e *Executor) StartNodeVerification() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(domain.StateValidationComplete); err != nil {
		return err
	}

	var suggestions []domain.SuggestedVerification
	for _, entry := range e.ctx.NodeVerificationData {
		if entry.NodeID == e.ctx.StartNodeID {
			continue
		}
		suggestions = append(suggestions, suggestVerification(e.ctx.Strategy, entry))
	}
	e.ctx.SuggestedVerifications = suggestions
	e.setState(domain.StateAwaitingNodeVerification)
	return nil
}

func suggestVerification(strategy domain.ExplorationStrategy, entry domain.NodeVerificationEntry) domain.SuggestedVerification {
	if strategy == domain.StrategyDpadWithScreenshot && entry.Dump.OCRText != "" {
		return domain.SuggestedVerification{
			NodeID: entry.NodeID,
			Verification: domain.Verification{
				Command: "waitForTextToAppear", VerificationType: "text",
				Params: map[string]any{"text": entry.Dump.OCRText},
			},
		}
	}
	if len(entry.Dump.Elements) > 0 {
		el := entry.Dump.Elements[0]
		return domain.SuggestedVerification{
			NodeID: entry.NodeID,
			Verification: domain.Verification{
				Command: "waitForElementToAppear", VerificationType: "element",
				Params: map[string]any{"selector": el.Selector, "text": el.Text},
			},
		}
	}
	return domain.SuggestedVerification{NodeID: entry.NodeID}
}

// ApproveNodeVerifications applies the operator's approvals, creating
// a named text reference for TV text verifications before attaching
// them.
func (e *Executor) ApproveNodeVerifications(ctx context.Context, teamID string, approved []domain.SuggestedVerification) error {
	e.mu.Lock()
	if err := e.requireState(domain.StateAwaitingNodeVerification); err != nil {
		e.mu.Unlock()
		return err
	}
	treeID := e.ctx.TreeID
	userInterfaceName := e.ctx.UserInterface
	e.mu.Unlock()

	nodes, err := e.store.GetTreeNodes(ctx, treeID, teamID)
	if err != nil {
		return derrors.NewPersistenceError("get_tree_nodes", "node verification load failed", err)
	}
	byID := make(map[string]domain.Node, len(nodes))
	for _, n := range nodes {
		byID[n.NodeID] = n
	}

	var toSave []domain.Node
	for _, sv := range approved {
		if !sv.Approved || sv.Verification.Command == "" || len(sv.Verification.Params) == 0 {
			continue
		}
		n, ok := byID[sv.NodeID]
		if !ok {
			continue
		}

		v := sv.Verification
		if v.Command == "waitForTextToAppear" {
			refName := fmt.Sprintf("%s_%s_text", userInterfaceName, n.FinalizedLabel())
			text, _ := v.Params["text"].(string)
			if err := e.store.SaveReference(ctx, refName, userInterfaceName, "text", teamID, "", "", map[string]any{}); err != nil {
				return derrors.NewPersistenceError("save_reference", "reference write failed", err)
			}
			v.Params = map[string]any{"reference_name": refName, "text": text, "area": map[string]any{}}
		}

		n.Verifications = append(n.Verifications, v)
		toSave = append(toSave, n)
	}

	if len(toSave) > 0 {
		if _, err := e.store.SaveNodesBatch(ctx, treeID, teamID, toSave); err != nil {
			return derrors.NewPersistenceError("save_nodes_batch", "node verification write failed", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.setState(domain.StateNodeVerificationComplete)
	return nil
}

// CleanupTemp removes the temporary nodes left behind by items that
// failed validation, without resetting the rest of the exploration —
// the operator can keep working through the remaining pending items
// after a failed one has been cleared.
func (e *Executor) CleanupTemp(ctx context.Context, teamID string) error {
	e.mu.Lock()
	if e.ctx == nil {
		e.mu.Unlock()
		return nil
	}
	treeID := e.ctx.TreeID
	failed := append([]string(nil), e.ctx.FailedItems...)
	e.mu.Unlock()

	for _, item := range failed {
		if err := e.store.DeleteNode(ctx, treeID, item, teamID); err != nil {
			return derrors.NewPersistenceError("delete_node", "temp node cleanup failed", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.FailedItems = nil
	return nil
}

// FinalizeStructure strips the "_temp" suffix from the label of every
// node in the exploration's tree that still carries it and persists the
// cleanup. Edges have no label of their own and are left as they are.
func (e *Executor) FinalizeStructure(ctx context.Context, teamID string) error {
	e.mu.Lock()
	if err := e.requireState(domain.StateNodeVerificationComplete); err != nil {
		e.mu.Unlock()
		return err
	}
	treeID := e.ctx.TreeID
	e.mu.Unlock()

	nodes, err := e.store.GetTreeNodes(ctx, treeID, teamID)
	if err != nil {
		return derrors.NewPersistenceError("get_tree_nodes", "finalize load failed", err)
	}
	var changedNodes []domain.Node
	for _, n := range nodes {
		if n.IsTemp() {
			n.Label = n.FinalizedLabel()
			changedNodes = append(changedNodes, n)
		}
	}
	if len(changedNodes) > 0 {
		if _, err := e.store.SaveNodesBatch(ctx, treeID, teamID, changedNodes); err != nil {
			return derrors.NewPersistenceError("save_nodes_batch", "finalize write failed", err)
		}
	}

	e.cache.Invalidate(rootOf(treeID), teamID)
	time.Sleep(settlingDelay)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.setState(domain.StateFinalized)
	return nil
}
