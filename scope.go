package saga

import "sync"

// ScopeProvider hands out instantiation scopes for task execution. One fresh
// scope is created per serviceId per run and retained until the run ends so
// rollback can reach every instance that was actually constructed.
type ScopeProvider interface {
	HasHandler(ref string) bool
	HasCompensator(ref string) bool
	Scope(serviceID string) Scope
}

// FactoryRegistrar is the optional provider capability that accepts
// constructor registrations after construction. The orchestrator's
// RegisterHandler and RegisterCompensator delegate through it.
type FactoryRegistrar interface {
	RegisterHandler(ref string, factory HandlerFactory) error
	RegisterCompensator(ref string, factory CompensatorFactory) error
}

// Scope is one instantiation boundary. Instances are memoized per ref inside
// a scope, so an action whose rollback ref equals its handler ref is
// compensated on the very instance that executed.
type Scope interface {
	Injections
	// Inject makes a prior result reachable by factories under the
	// producing action's full name.
	Inject(fullName string, res *Result)
	// Bind applies the task's auxiliary bindings.
	Bind(bindings map[string]string)
	// Handler constructs (or returns the memoized) handler for ref.
	Handler(ref string) (Handler, error)
	// Compensator constructs (or returns the memoized) compensator for ref.
	Compensator(ref string) (Compensator, error)
	// Close releases scope resources once the run reaches a terminal state.
	Close() error
}

// Factories is the default ScopeProvider: a typed constructor registry keyed
// by handler ref. Capabilities are fixed by the registration signatures, so
// a ref registered only as a handler can never be resolved as a compensator.
type Factories struct {
	mu           sync.RWMutex
	handlers     map[string]HandlerFactory
	compensators map[string]CompensatorFactory
}

// NewFactories constructs an empty typed factory registry.
func NewFactories() *Factories {
	return &Factories{
		handlers:     make(map[string]HandlerFactory),
		compensators: make(map[string]CompensatorFactory),
	}
}

// RegisterHandler stores a handler constructor under ref.
func (f *Factories) RegisterHandler(ref string, factory HandlerFactory) error {
	if ref == "" || factory == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.handlers[ref]; exists {
		return alreadyRegistered("handler", ref)
	}
	f.handlers[ref] = factory
	return nil
}

// RegisterCompensator stores a compensator constructor under ref.
func (f *Factories) RegisterCompensator(ref string, factory CompensatorFactory) error {
	if ref == "" || factory == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.compensators[ref]; exists {
		return alreadyRegistered("compensator", ref)
	}
	f.compensators[ref] = factory
	return nil
}

func (f *Factories) HasHandler(ref string) bool {
	if f == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.handlers[ref]
	return ok
}

func (f *Factories) HasCompensator(ref string) bool {
	if f == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.compensators[ref]
	return ok
}

// HandlerRefs returns the registered handler refs, unordered.
func (f *Factories) HandlerRefs() []string {
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	refs := make([]string, 0, len(f.handlers))
	for ref := range f.handlers {
		refs = append(refs, ref)
	}
	return refs
}

// CompensatorRefs returns the registered compensator refs, unordered.
func (f *Factories) CompensatorRefs() []string {
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	refs := make([]string, 0, len(f.compensators))
	for ref := range f.compensators {
		refs = append(refs, ref)
	}
	return refs
}

// Scope returns a fresh factory-backed scope for one service invocation.
func (f *Factories) Scope(serviceID string) Scope {
	return &factoryScope{
		provider:  f,
		serviceID: serviceID,
		results:   make(map[string]*Result),
		bindings:  make(map[string]string),
		instances: make(map[string]any),
	}
}

type factoryScope struct {
	provider  *Factories
	serviceID string
	results   map[string]*Result
	bindings  map[string]string
	instances map[string]any
}

func (s *factoryScope) Inject(fullName string, res *Result) {
	if fullName == "" || res == nil {
		return
	}
	s.results[fullName] = res
}

func (s *factoryScope) Bind(bindings map[string]string) {
	for k, v := range bindings {
		s.bindings[k] = v
	}
}

func (s *factoryScope) Result(fullName string) (*Result, bool) {
	res, ok := s.results[fullName]
	return res, ok
}

func (s *factoryScope) Results() map[string]*Result {
	out := make(map[string]*Result, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

func (s *factoryScope) Binding(key string) (string, bool) {
	v, ok := s.bindings[key]
	return v, ok
}

func (s *factoryScope) Handler(ref string) (Handler, error) {
	if inst, ok := s.instances[ref]; ok {
		if h, ok := inst.(Handler); ok {
			return h, nil
		}
	}
	s.provider.mu.RLock()
	factory, ok := s.provider.handlers[ref]
	s.provider.mu.RUnlock()
	if !ok {
		return nil, handlerMissing(ref, s.serviceID)
	}
	h, err := factory(s)
	if err != nil {
		return nil, err
	}
	s.instances[ref] = h
	return h, nil
}

func (s *factoryScope) Compensator(ref string) (Compensator, error) {
	// The memoized handler instance wins when it carries the capability:
	// compensation then reaches the object that did the work.
	if inst, ok := s.instances[ref]; ok {
		if c, ok := inst.(Compensator); ok {
			return c, nil
		}
	}
	s.provider.mu.RLock()
	factory, ok := s.provider.compensators[ref]
	s.provider.mu.RUnlock()
	if !ok {
		return nil, compensatorMissing(ref, s.serviceID)
	}
	c, err := factory(s)
	if err != nil {
		return nil, err
	}
	s.instances[ref] = c
	return c, nil
}

func (s *factoryScope) Close() error { return nil }
