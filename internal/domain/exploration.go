package domain

import "time"

// ExplorationContext is the per-device, mutable state the exploration
// executor owns across phases 0-3. All mutation passes through the
// owning executor's single lock; this struct has no lock of its own
// by design.
type ExplorationContext struct {
	ExplorationID   string
	DeviceID        string
	OriginalPrompt  string
	TreeID          string
	UserInterface   string
	StartNodeID     string // default "home"

	Strategy    ExplorationStrategy
	HasDumpUI   bool
	AvailableElements []UIElement // truncated to 10 for API echoes

	// Phase 1 plan output.
	MenuType           MenuType
	PredictedItems     []string
	ItemsLeftOfHome    []string
	ItemsRightOfHome   []string
	ItemSelectors      map[string]string
	ScreenshotURL      string
	PredictedDepth     int
	Reasoning          string

	// Phase 2a selections.
	SelectedItems       []string
	SelectedScreenItems map[string]bool

	// Phase 2b/2c bookkeeping.
	CurrentStep        int
	TotalSteps         int
	CompletedItems     []string
	FailedItems        []string
	StepHistory        []ExplorationStep
	LastSuccessAt      *time.Time
	LastFailureAt      *time.Time
	NodeVerificationData []NodeVerificationEntry
	SuggestedVerifications []SuggestedVerification

	CreatedAt time.Time
	UpdatedAt time.Time

	Error string
}

// ExplorationStep is one entry in StepHistory, recording what phase
// 2b did for a single item.
type ExplorationStep struct {
	ItemName  string
	Action    string
	Success   bool
	Timestamp time.Time
	Detail    string
}

// NodeVerificationEntry stashes a captured dump/screenshot pair for a
// screen node pending phase 2c's suggestion pass.
type NodeVerificationEntry struct {
	NodeID        string
	Dump          UIDump
	ScreenshotURL string
}

// SuggestedVerification is phase 2c's candidate verification for one
// node, awaiting operator approval.
type SuggestedVerification struct {
	NodeID       string
	Verification Verification
	Approved     bool
}
