package saga

import (
	"sort"

	"github.com/google/uuid"
)

// RunState tracks one run through its lifecycle.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
)

// Run is the per-run context object: it owns the state that only lives for
// one start-to-terminal cycle (held tasks, retained scopes, the external
// callback) and is threaded explicitly through dispatcher, loop, and
// executor calls. It is created by Start and discarded at a terminal state.
type Run struct {
	id       string
	start    string
	callback func(*Result)
	state    RunState

	held     map[string]*Task
	scopes   []*retainedScope
	scopeIdx map[string]int
}

// retainedScope remembers the scope a service executed in, together with the
// task that produced it, so rollback can reach the constructed instances.
type retainedScope struct {
	serviceID string
	task      *Task
	scope     Scope
}

func newRun(startFullName string, callback func(*Result)) *Run {
	return &Run{
		id:       uuid.NewString(),
		start:    startFullName,
		callback: callback,
		state:    RunStateRunning,
		held:     make(map[string]*Task),
		scopeIdx: make(map[string]int),
	}
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// Start returns the full name of the action that began the run.
func (r *Run) Start() string { return r.start }

// State returns the run's lifecycle state.
func (r *Run) State() RunState { return r.state }

// HeldNames returns the sorted full names currently parked as held tasks.
func (r *Run) HeldNames() []string {
	if r == nil || len(r.held) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.held))
	for name := range r.held {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hold parks a task until its requirements complete. Holding the same full
// name again replaces the earlier task.
func (r *Run) hold(task *Task) {
	r.held[task.FullName()] = task
}

func (r *Run) succeed() {
	if r.state == RunStateRunning {
		r.state = RunStateSucceeded
	}
}

func (r *Run) fail() {
	if r.state == RunStateRunning {
		r.state = RunStateFailed
	}
}

// retain stores the scope used for a service, overwriting any earlier scope
// for the same serviceId. The newest scope moves to the end so rollback
// walks newest-first.
func (r *Run) retain(serviceID string, task *Task, scope Scope) {
	entry := &retainedScope{serviceID: serviceID, task: task, scope: scope}
	if idx, ok := r.scopeIdx[serviceID]; ok {
		r.scopes = append(r.scopes[:idx], r.scopes[idx+1:]...)
		for sid, i := range r.scopeIdx {
			if i > idx {
				r.scopeIdx[sid] = i - 1
			}
		}
	}
	r.scopeIdx[serviceID] = len(r.scopes)
	r.scopes = append(r.scopes, entry)
}

// scopesNewestFirst returns retained scopes in reverse construction order.
func (r *Run) scopesNewestFirst() []*retainedScope {
	out := make([]*retainedScope, len(r.scopes))
	for i, s := range r.scopes {
		out[len(r.scopes)-1-i] = s
	}
	return out
}

// closeScopes releases every retained scope; close failures only warn.
func (r *Run) closeScopes(logger Logger) {
	for _, entry := range r.scopesNewestFirst() {
		if entry.scope == nil {
			continue
		}
		if err := entry.scope.Close(); err != nil && logger != nil {
			logger.Warn("scope close failed for %s: %v", entry.serviceID, err)
		}
	}
}
