package domain

import "time"

// ExecutionRecord is the per-navigation-execution status record
// polled by the HTTP surface. It lives for the process lifetime; there
// is no persistence for it.
type ExecutionRecord struct {
	ExecutionID    string
	Status         ExecutionStatus
	TreeID         string
	TargetNodeID   string
	TargetNodeLabel string
	Progress       int // 0..100
	Message        string
	StartTime      time.Time
	Result         *ExecutionResult
	Error          string
}

// ExecutionResult is the success payload, carrying the executed step
// list.
type ExecutionResult struct {
	Steps []ExecutionStep
}

// ExecutionStep records one traversed edge and how many actions ran,
// mirroring S1's {edge, actions_run} shape.
type ExecutionStep struct {
	EdgeID     string
	ActionsRun int
}

// Clone returns a value copy safe to hand to a caller without
// aliasing the record the executor keeps mutating under its lock.
func (r ExecutionRecord) Clone() ExecutionRecord {
	c := r
	if r.Result != nil {
		steps := append([]ExecutionStep(nil), r.Result.Steps...)
		c.Result = &ExecutionResult{Steps: steps}
	}
	return c
}
