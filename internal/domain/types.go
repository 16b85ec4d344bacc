package domain

// ControllerKind identifies a capability category a device may expose.
// Each kind is polymorphic over variants (documented in the registry).
type ControllerKind string

const (
	ControllerKindRemote       ControllerKind = "remote"
	ControllerKindAV           ControllerKind = "av"
	ControllerKindVerification ControllerKind = "verification"
	ControllerKindDesktop      ControllerKind = "desktop"
	ControllerKindWeb          ControllerKind = "web"
	ControllerKindPower        ControllerKind = "power"
	ControllerKindAI           ControllerKind = "ai"
)

func (k ControllerKind) IsValid() bool {
	switch k {
	case ControllerKindRemote, ControllerKindAV, ControllerKindVerification,
		ControllerKindDesktop, ControllerKindWeb, ControllerKindPower, ControllerKindAI:
		return true
	default:
		return false
	}
}

func (k ControllerKind) String() string { return string(k) }

// NodeType distinguishes ordinary screens from entry points. A node
// whose label equals "ENTRY" (case-insensitive) is also treated as an
// entry point regardless of NodeType.
type NodeType string

const (
	NodeTypeScreen NodeType = "screen"
	NodeTypeEntry  NodeType = "entry"
)

func (t NodeType) String() string { return string(t) }

// VerificationPassCondition governs how a node's verification list is
// evaluated after arrival.
type VerificationPassCondition string

const (
	VerificationPassAll VerificationPassCondition = "all"
	VerificationPassAny VerificationPassCondition = "any"
)

func (c VerificationPassCondition) IsValid() bool {
	switch c {
	case VerificationPassAll, VerificationPassAny:
		return true
	default:
		return false
	}
}

// EdgeType classifies the purpose of a graph edge.
type EdgeType string

const (
	EdgeTypeNavigation      EdgeType = "navigation"
	EdgeTypeEnterSubtree    EdgeType = "ENTER_SUBTREE"
	EdgeTypeExitSubtree     EdgeType = "EXIT_SUBTREE"
	EdgeTypeSiblingShortcut EdgeType = "SIBLING_SHORTCUT"
)

func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeTypeNavigation, EdgeTypeEnterSubtree, EdgeTypeExitSubtree, EdgeTypeSiblingShortcut:
		return true
	default:
		return false
	}
}

func (t EdgeType) String() string { return string(t) }

// ExplorationStrategy picks how phase 2a/2b drive the device.
type ExplorationStrategy string

const (
	StrategyClickWithSelectors ExplorationStrategy = "click_with_selectors"
	StrategyClickWithText      ExplorationStrategy = "click_with_text"
	StrategyDpadWithScreenshot ExplorationStrategy = "dpad_with_screenshot"
)

// MenuType describes the predicted layout of a screen's menu.
type MenuType string

const (
	MenuHorizontal MenuType = "horizontal"
	MenuVertical   MenuType = "vertical"
	MenuGrid       MenuType = "grid"
	MenuMixed      MenuType = "mixed"
)

// ExplorationState is the exploration executor's state-machine
// position.
type ExplorationState string

const (
	StateIdle                     ExplorationState = "idle"
	StateAnalysis                 ExplorationState = "analysis"
	StateAwaitingApproval         ExplorationState = "awaiting_approval"
	StateStructureCreated         ExplorationState = "structure_created"
	StateAwaitingValidation       ExplorationState = "awaiting_validation"
	StateValidating               ExplorationState = "validating"
	StateValidationFailed         ExplorationState = "validation_failed"
	StateValidationComplete       ExplorationState = "validation_complete"
	StateAwaitingNodeVerification ExplorationState = "awaiting_node_verification"
	StateNodeVerificationComplete ExplorationState = "node_verification_complete"
	StateFinalized                ExplorationState = "finalized"
	StateCancelled                ExplorationState = "cancelled"
	StateFailed                   ExplorationState = "failed"
)

// ValidationStatus is written onto an action after validate_next_item
// runs it.
type ValidationStatus string

const (
	ValidationSuccess         ValidationStatus = "success"
	ValidationFailed          ValidationStatus = "failed"
	ValidationFailedRecovered ValidationStatus = "failed_recovered"
)

// ExecutionStatus is the terminal/in-flight status of an async
// navigation execution.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionError     ExecutionStatus = "error"
)
