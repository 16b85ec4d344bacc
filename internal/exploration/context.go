package exploration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hostcp/internal/aiplanner"
	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
	"hostcp/internal/infrastructure/logger"
	"hostcp/internal/navexec"
	"hostcp/internal/navgraph"
	"hostcp/internal/store"
)

const settlingDelay = 2 * time.Second

// Executor is the per-device exploration singleton holding one
// optional ExplorationContext and one state field. All writes to
// ctx/state pass through mu; heavy work (uploads, device calls)
// happens outside the lock.
type Executor struct {
	mu sync.Mutex

	deviceID string
	store    store.Store
	cache    *navgraph.Cache
	navExec  *navexec.Executor
	engine   *Engine
	log      *logger.Logger

	state domain.ExplorationState
	ctx   *domain.ExplorationContext
}

func New(deviceID string, s store.Store, cache *navgraph.Cache, navExec *navexec.Executor, engine *Engine, log *logger.Logger) *Executor {
	return &Executor{deviceID: deviceID, store: s, cache: cache, navExec: navExec, engine: engine, log: log, state: domain.StateIdle}
}

// State returns the current machine position.
func (e *Executor) State() domain.ExplorationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Context returns a copy of the live exploration context, if any.
func (e *Executor) Context() (domain.ExplorationContext, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil {
		return domain.ExplorationContext{}, false
	}
	return *e.ctx, true
}

func (e *Executor) setState(s domain.ExplorationState) {
	e.ctx.UpdatedAt = time.Now()
	e.state = s
}

func (e *Executor) requireState(want domain.ExplorationState) error {
	if e.state != want {
		return derrors.NewExplorationRecoveryError(e.startNodeIDLocked(), fmt.Sprintf("expected state %s, got %s", want, e.state))
	}
	return nil
}

func (e *Executor) startNodeIDLocked() string {
	if e.ctx == nil {
		return ""
	}
	return e.ctx.StartNodeID
}

// fail transitions to the failed terminal state and records the error
// (any state can fail, per the state diagram's "Any failure" arrow).
func (e *Executor) fail(err error) error {
	if e.ctx != nil {
		e.ctx.Error = err.Error()
	}
	e.state = domain.StateFailed
	return err
}

// StartExploration begins phases 0-1 and lands in awaiting_approval.
// Only idle/finalized/cancelled/failed states accept a new start.
func (e *Executor) StartExploration(ctx context.Context, treeID, userInterfaceName, startNodeID, originalPrompt string) (domain.ExplorationContext, error) {
	e.mu.Lock()
	switch e.state {
	case domain.StateIdle, domain.StateFinalized, domain.StateCancelled, domain.StateFailed:
	default:
		e.mu.Unlock()
		return domain.ExplorationContext{}, derrors.NewExplorationRecoveryError(startNodeID, "exploration already in progress")
	}
	if startNodeID == "" {
		startNodeID = "home"
	}
	e.ctx = &domain.ExplorationContext{
		ExplorationID: uuid.NewString(), DeviceID: e.deviceID,
		OriginalPrompt: originalPrompt, TreeID: treeID, UserInterface: userInterfaceName,
		StartNodeID: startNodeID, CreatedAt: time.Now(), UpdatedAt: time.Now(),
		SelectedScreenItems: make(map[string]bool),
	}
	e.setState(domain.StateAnalysis)
	e.mu.Unlock()

	strategy, hasDump, elements, err := e.engine.Phase0DetectStrategy(ctx)
	if err != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		return domain.ExplorationContext{}, e.fail(err)
	}

	plan, screenshotURL, err := e.engine.Phase1AnalyzeAndPlan(ctx, userInterfaceName, originalPrompt)
	if err != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		return domain.ExplorationContext{}, e.fail(err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.Strategy = strategy
	e.ctx.HasDumpUI = hasDump
	e.ctx.AvailableElements = elements
	e.ctx.MenuType = domain.MenuType(plan.MenuType)
	e.ctx.PredictedItems = plan.Items
	e.ctx.ItemsLeftOfHome = plan.ItemsLeftOfHome
	e.ctx.ItemsRightOfHome = plan.ItemsRightOfHome
	e.ctx.ScreenshotURL = screenshotURL
	e.ctx.PredictedDepth = plan.PredictedDepth
	e.ctx.Reasoning = plan.Reasoning
	e.setState(domain.StateAwaitingApproval)

	return *e.ctx, nil
}

// CancelExploration deletes every node created by the current
// exploration (cascading its edges) and resets to idle, from any
// state.
func (e *Executor) CancelExploration(ctx context.Context, teamID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx == nil {
		e.state = domain.StateIdle
		return nil
	}

	for _, item := range e.ctx.CompletedItems {
		_ = e.store.DeleteNode(ctx, e.ctx.TreeID, item, teamID)
	}
	for _, item := range e.ctx.SelectedItems {
		_ = e.store.DeleteNode(ctx, e.ctx.TreeID, item, teamID)
		_ = e.store.DeleteNode(ctx, e.ctx.TreeID, "focus_"+item, teamID)
	}

	e.state = domain.StateCancelled
	e.ctx = nil
	e.state = domain.StateIdle
	return nil
}
