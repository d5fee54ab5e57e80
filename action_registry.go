package saga

import (
	"sort"
	"sync"
)

// ActionRegistry stores action definitions keyed by full name. Written once
// during setup, read on every dispatch.
type ActionRegistry struct {
	mu      sync.RWMutex
	actions map[string]*Action
}

// NewActionRegistry creates an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]*Action)}
}

// Register normalizes, validates, and stores an action definition. The
// stored copy is immutable: later mutations of the argument are not seen.
func (r *ActionRegistry) Register(a *Action) error {
	if a == nil {
		return invalidIdentity("action required", nil, nil)
	}
	cp := a.clone()
	cp.normalize()
	if err := cp.validateIdentity(); err != nil {
		return err
	}
	key := cp.FullName()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[key]; exists {
		return alreadyRegistered("action", key)
	}
	r.actions[key] = cp
	return nil
}

// Get returns a copy of the action registered under fullName.
func (r *ActionRegistry) Get(fullName string) (*Action, error) {
	if r == nil {
		return nil, actionNotFound(fullName)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[fullName]
	if !ok {
		return nil, actionNotFound(fullName)
	}
	return a.clone(), nil
}

// Has reports whether fullName is registered.
func (r *ActionRegistry) Has(fullName string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actions[fullName]
	return ok
}

// All returns copies of every registered action sorted by full name.
func (r *ActionRegistry) All() []*Action {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Action, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out
}

// Names returns the sorted full names of every registered action.
func (r *ActionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
