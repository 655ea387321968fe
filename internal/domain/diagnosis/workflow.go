package diagnosis

import (
	"sync"
)

// Workflow owns the Idle → Analyzing → Ready|Failed lifecycle of one
// diagnosis slot. It is the single place state transitions happen, so
// the invariant "never a result and an error at the same time" holds by
// construction. Safe for concurrent use.
//
// Each Begin bumps a generation counter; Complete/Fail only apply when
// called with the generation they were issued. A slow superseded call
// resolving late is therefore discarded instead of clobbering newer
// state.
type Workflow struct {
	mu    sync.Mutex
	state WorkflowState
	gen   uint64

	result *AnalysisResult
	errMsg string
}

// WorkflowSnapshot is what the presentation side consumes.
type WorkflowSnapshot struct {
	State  WorkflowState   `json:"state"`
	Result *AnalysisResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func NewWorkflow() *Workflow {
	return &Workflow{state: StateIdle}
}

// Begin enters Analyzing, clears any prior outcome and returns the
// generation token the eventual Complete/Fail must present.
func (w *Workflow) Begin() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateAnalyzing
	w.result = nil
	w.errMsg = ""
	w.gen++
	return w.gen
}

// Complete moves to Ready with the given result. Returns false when the
// token is stale and the outcome was dropped.
func (w *Workflow) Complete(gen uint64, res AnalysisResult) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen || w.state != StateAnalyzing {
		return false
	}
	w.state = StateReady
	w.result = &res
	w.errMsg = ""
	return true
}

// Fail moves to Failed with a user-facing message. Returns false when
// the token is stale and the outcome was dropped.
func (w *Workflow) Fail(gen uint64, msg string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen || w.state != StateAnalyzing {
		return false
	}
	w.state = StateFailed
	w.result = nil
	w.errMsg = msg
	return true
}

// Reset returns to Idle unconditionally. Calling it twice is the same
// as calling it once. It also bumps the generation so an in-flight call
// cannot resurrect discarded state.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateIdle
	w.result = nil
	w.errMsg = ""
	w.gen++
}

// Snapshot returns the current state for rendering. The result pointer
// is a copy; callers cannot mutate workflow internals through it.
func (w *Workflow) Snapshot() WorkflowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := WorkflowSnapshot{State: w.state, Error: w.errMsg}
	if w.result != nil {
		r := *w.result
		snap.Result = &r
	}
	return snap
}

// State returns only the current state.
func (w *Workflow) State() WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
