// Package container adapts a samber/do injector to the engine's scope
// provider contract. Handler and compensator constructors register as named
// providers; every task scope is a child do scope, so instances memoize per
// scope, can resolve application services from the parent graph, and shut
// down with the scope.
package container

import (
	"fmt"
	"sync"
	"sync/atomic"

	apperrors "github.com/goliatone/go-errors"
	"github.com/samber/do/v2"

	saga "github.com/goliatone/go-saga"
)

// Container is a saga.ScopeProvider backed by a do injector.
type Container struct {
	root do.Injector
	seq  atomic.Uint64

	mu           sync.RWMutex
	handlers     map[string]saga.HandlerFactory
	compensators map[string]saga.CompensatorFactory
}

// New builds a container over a fresh do root scope.
func New() *Container {
	return NewWithInjector(do.New())
}

// NewWithInjector builds a container whose task scopes are children of the
// given injector. Factories that close over the injector can resolve
// application services wired there.
func NewWithInjector(root do.Injector) *Container {
	if root == nil {
		root = do.New()
	}
	return &Container{
		root:         root,
		handlers:     make(map[string]saga.HandlerFactory),
		compensators: make(map[string]saga.CompensatorFactory),
	}
}

// Injector exposes the underlying root injector.
func (c *Container) Injector() do.Injector { return c.root }

// RegisterHandler stores a handler constructor under ref.
func (c *Container) RegisterHandler(ref string, factory saga.HandlerFactory) error {
	if ref == "" || factory == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.handlers[ref]; exists {
		return duplicateRef("handler", ref)
	}
	c.handlers[ref] = factory
	return nil
}

// RegisterCompensator stores a compensator constructor under ref.
func (c *Container) RegisterCompensator(ref string, factory saga.CompensatorFactory) error {
	if ref == "" || factory == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.compensators[ref]; exists {
		return duplicateRef("compensator", ref)
	}
	c.compensators[ref] = factory
	return nil
}

func (c *Container) HasHandler(ref string) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.handlers[ref]
	return ok
}

func (c *Container) HasCompensator(ref string) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.compensators[ref]
	return ok
}

// HandlerRefs returns the registered handler refs, unordered.
func (c *Container) HandlerRefs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	refs := make([]string, 0, len(c.handlers))
	for ref := range c.handlers {
		refs = append(refs, ref)
	}
	return refs
}

// CompensatorRefs returns the registered compensator refs, unordered.
func (c *Container) CompensatorRefs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	refs := make([]string, 0, len(c.compensators))
	for ref := range c.compensators {
		refs = append(refs, ref)
	}
	return refs
}

// Scope opens a child do scope for one service invocation. The child name
// carries a sequence number so repeated scopes for the same service never
// collide inside the do graph.
func (c *Container) Scope(serviceID string) saga.Scope {
	name := fmt.Sprintf("saga.%s.%d", serviceID, c.seq.Add(1))
	return &doScope{
		provider:  c,
		serviceID: serviceID,
		scope:     c.root.Scope(name),
		results:   make(map[string]*saga.Result),
		bindings:  make(map[string]string),
		instances: make(map[string]any),
		declared:  make(map[string]bool),
	}
}

// ScopeInjector is implemented by the scopes this provider hands out.
// Factories can assert their Injections to it and resolve services, prior
// results, or bindings straight from the do graph.
type ScopeInjector interface {
	Injector() do.Injector
}

type doScope struct {
	provider  *Container
	serviceID string
	scope     do.Injector
	results   map[string]*saga.Result
	bindings  map[string]string
	instances map[string]any
	declared  map[string]bool
}

// Injector returns the child do scope backing this task scope.
func (s *doScope) Injector() do.Injector { return s.scope }

func handlerService(ref string) string     { return "saga.handler:" + ref }
func compensatorService(ref string) string { return "saga.compensator:" + ref }
func resultService(fullName string) string { return "saga.result:" + fullName }
func bindingService(key string) string     { return "saga.binding:" + key }

// Inject stores a prior result and publishes it as a named value on the do
// scope so providers can resolve it too.
func (s *doScope) Inject(fullName string, res *saga.Result) {
	if fullName == "" || res == nil {
		return
	}
	s.results[fullName] = res
	provideScopedValue(s, resultService(fullName), res)
}

// Bind applies the task's auxiliary bindings, each also published as a named
// do value.
func (s *doScope) Bind(bindings map[string]string) {
	for key, value := range bindings {
		s.bindings[key] = value
		provideScopedValue(s, bindingService(key), value)
	}
}

func (s *doScope) Result(fullName string) (*saga.Result, bool) {
	res, ok := s.results[fullName]
	return res, ok
}

func (s *doScope) Results() map[string]*saga.Result {
	out := make(map[string]*saga.Result, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

func (s *doScope) Binding(key string) (string, bool) {
	v, ok := s.bindings[key]
	return v, ok
}

func (s *doScope) Handler(ref string) (saga.Handler, error) {
	if inst, ok := s.instances[ref]; ok {
		if h, ok := inst.(saga.Handler); ok {
			return h, nil
		}
	}
	s.provider.mu.RLock()
	factory, ok := s.provider.handlers[ref]
	s.provider.mu.RUnlock()
	if !ok {
		return nil, missingRef(saga.ErrHandlerMissing, "handler", ref, s.serviceID)
	}

	name := handlerService(ref)
	if !s.declared[name] {
		do.ProvideNamed(s.scope, name, func(do.Injector) (saga.Handler, error) {
			return factory(s)
		})
		s.declared[name] = true
	}
	h, err := do.InvokeNamed[saga.Handler](s.scope, name)
	if err != nil {
		return nil, err
	}
	s.instances[ref] = h
	return h, nil
}

func (s *doScope) Compensator(ref string) (saga.Compensator, error) {
	// The memoized handler instance wins when it carries the capability:
	// compensation then reaches the object that did the work.
	if inst, ok := s.instances[ref]; ok {
		if c, ok := inst.(saga.Compensator); ok {
			return c, nil
		}
	}
	s.provider.mu.RLock()
	factory, ok := s.provider.compensators[ref]
	s.provider.mu.RUnlock()
	if !ok {
		return nil, missingRef(saga.ErrCompensatorMissing, "compensator", ref, s.serviceID)
	}

	name := compensatorService(ref)
	if !s.declared[name] {
		do.ProvideNamed(s.scope, name, func(do.Injector) (saga.Compensator, error) {
			return factory(s)
		})
		s.declared[name] = true
	}
	comp, err := do.InvokeNamed[saga.Compensator](s.scope, name)
	if err != nil {
		return nil, err
	}
	s.instances[ref] = comp
	return comp, nil
}

// Close shuts the child scope down; instances implementing do.Shutdowner
// get their shutdown hooks.
func (s *doScope) Close() error {
	report := s.scope.Shutdown()
	if report != nil && !report.Succeed {
		return report
	}
	return nil
}

// provideScopedValue declares a named value, overriding it when the name
// already exists in this scope.
func provideScopedValue[T any](s *doScope, name string, value T) {
	if s.declared[name] {
		do.OverrideNamedValue(s.scope, name, value)
		return
	}
	do.ProvideNamedValue(s.scope, name, value)
	s.declared[name] = true
}

func missingRef(base *apperrors.Error, kind, ref, serviceID string) error {
	err := base.Clone()
	err.Message = kind + " " + ref + " not registered"
	return err.WithMetadata(map[string]any{
		"ref":        ref,
		"service_id": serviceID,
	})
}

func duplicateRef(kind, ref string) error {
	err := saga.ErrAlreadyRegistered.Clone()
	err.Message = kind + " " + ref + " already registered"
	return err.WithMetadata(map[string]any{
		"kind": kind,
		"key":  ref,
	})
}
