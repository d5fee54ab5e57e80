package saga

import "context"

// Handler is the execution capability of an action. Returning a nil Result
// with a nil error is fire-and-forget: the loop advances without recording a
// completion, releasing held tasks, or cascading. Returning an error aborts
// the run after compensation.
type Handler interface {
	Execute(ctx context.Context) (*Result, error)
}

// HandlerFunc adapts a function to the Handler capability.
type HandlerFunc func(ctx context.Context) (*Result, error)

func (f HandlerFunc) Execute(ctx context.Context) (*Result, error) {
	return f(ctx)
}

// Compensator is the compensation capability invoked during rollback to undo
// the effects of an already-executed handler.
type Compensator interface {
	Compensate(ctx context.Context) error
}

// CompensatorFunc adapts a function to the Compensator capability.
type CompensatorFunc func(ctx context.Context) error

func (f CompensatorFunc) Compensate(ctx context.Context) error {
	return f(ctx)
}

// Injections is the read view a factory gets of its scope: the prior results
// gathered for the action's requirements and the action's auxiliary
// bindings.
type Injections interface {
	// Result returns the latest result injected for a required full name.
	Result(fullName string) (*Result, bool)
	// Results returns every injected result keyed by full name.
	Results() map[string]*Result
	// Binding returns one auxiliary binding by key.
	Binding(key string) (string, bool)
}

// HandlerFactory constructs a handler instance inside a scope. Registered
// per handler ref; the compile-time signature replaces reflection-based
// capability checks.
type HandlerFactory func(in Injections) (Handler, error)

// CompensatorFactory constructs a compensator instance inside a scope.
type CompensatorFactory func(in Injections) (Compensator, error)
