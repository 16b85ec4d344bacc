package domain

// Action is a single controller command. Actions are described
// structurally; the controller layer gives them meaning.
type Action struct {
	Command          string
	ActionType       string // "remote" | "web" | "av" | ...
	Params           map[string]any
	WaitTimeMS       int
	ValidationStatus ValidationStatus
	ValidatedAt      string // RFC3339, "" if never validated
	ActualResult     map[string]any
}

// Verification names a condition an Action or Node must satisfy.
type Verification struct {
	Command          string
	VerificationType string
	Params           map[string]any
	Expected         any
}

// ActionSet is a labelled, ordered bundle of actions with an identity
// shared across "conditional edges" (edges whose DefaultActionSetID
// matches a sibling's). KPIReferences (direct, or the target node's
// verifications when UseVerificationsForKPI is set) seed the
// validation-sequence helper.
type ActionSet struct {
	ID                     string
	Label                  string
	Actions                []Action
	RetryActions           []Action
	FailureActions         []Action
	KPIReferences          []string
	UseVerificationsForKPI bool
	Data                   map[string]any
}

// Edge connects two nodes. By convention ActionSets[0] is the forward
// direction and ActionSets[1] is the reverse; no other ordering is
// assumed by the builder.
type Edge struct {
	EdgeID                 string
	SourceNodeID           string
	TargetNodeID           string
	ActionSets             []ActionSet
	DefaultActionSetID     string
	FinalWaitTimeMS        int
	EdgeType               EdgeType
	EnableSiblingShortcuts bool
	Data                   map[string]any
}

// DefaultActionSet resolves DefaultActionSetID within ActionSets, or
// reports absent so the caller can fail fast.
func (e Edge) DefaultActionSet() (ActionSet, bool) {
	for _, as := range e.ActionSets {
		if as.ID == e.DefaultActionSetID {
			return as, true
		}
	}
	return ActionSet{}, false
}

// ActionSetByID finds an action set by id regardless of default
// status; used when an edge is conditional and must borrow a
// sibling's actions at execution time.
func (e Edge) ActionSetByID(id string) (ActionSet, bool) {
	for _, as := range e.ActionSets {
		if as.ID == id {
			return as, true
		}
	}
	return ActionSet{}, false
}

// EffectiveEnableSiblingShortcuts resolves precedence: the edge's own
// flag wins; a same-named key under ActionSets[0]'s Data (mirroring
// the source's action_sets[0] lookup) is only a fallback.
func (e Edge) EffectiveEnableSiblingShortcuts() bool {
	if e.EnableSiblingShortcuts {
		return true
	}
	if len(e.ActionSets) > 0 && e.ActionSets[0].Data != nil {
		if v, ok := e.ActionSets[0].Data["enable_sibling_shortcuts"].(bool); ok {
			return v
		}
	}
	return false
}
