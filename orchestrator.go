package saga

import "context"

// Orchestrator is the engine façade. It owns the registries, the stores, the
// scope provider, and the dispatch machinery, and exposes registration,
// queries, validation, and run starts as one surface.
//
// Runs are strictly sequential: starting an action drives the loop on the
// calling goroutine until the run reaches a terminal state, and a start
// issued while a run is draining (for example from inside a handler) fails
// with the loop-already-started error.
type Orchestrator struct {
	actions   *ActionRegistry
	subs      *SubscriptionRegistry
	completed *CompletionStore
	results   *ResultStore
	scopes    ScopeProvider
	cache     ValidationCache
	logger    Logger
	metrics   MetricsRecorder

	loop       *Loop
	executor   *Executor
	dispatcher *Dispatcher
	validator  *Validator
}

// New builds an orchestrator with empty registries. Without options it uses
// the typed factory registry as scope provider, the in-memory validation
// cache, and the fallback logger.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		actions:   NewActionRegistry(),
		subs:      NewSubscriptionRegistry(),
		completed: NewCompletionStore(),
		results:   NewResultStore(),
		scopes:    NewFactories(),
		cache:     NewMemoryValidationCache(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	o.logger = normalizeLogger(o.logger)

	o.executor = NewExecutor(o.scopes, o.completed, o.results, o.logger, o.metrics)
	o.loop = NewLoop(o.executor, o.logger)
	o.dispatcher = NewDispatcher(o.actions, o.subs, o.completed, o.results, o.loop, o.logger, o.metrics)
	o.validator = NewValidator(o.actions, o.subs, o.scopes)
	return o
}

// Register stores an action definition.
func (o *Orchestrator) Register(a *Action) error {
	return o.actions.Register(a)
}

// RegisterHandler stores a handler constructor on the scope provider. It
// fails when the configured provider does not accept registrations.
func (o *Orchestrator) RegisterHandler(ref string, factory HandlerFactory) error {
	registrar, ok := o.scopes.(FactoryRegistrar)
	if !ok {
		return providerReadOnly("handler", ref)
	}
	return registrar.RegisterHandler(ref, factory)
}

// RegisterCompensator stores a compensator constructor on the scope provider.
func (o *Orchestrator) RegisterCompensator(ref string, factory CompensatorFactory) error {
	registrar, ok := o.scopes.(FactoryRegistrar)
	if !ok {
		return providerReadOnly("compensator", ref)
	}
	return registrar.RegisterCompensator(ref, factory)
}

// Subscribe registers a cascade: when subject produces a result with the
// given status, each target dispatches in order.
func (o *Orchestrator) Subscribe(subject string, status Status, targets ...string) error {
	return o.subs.Register(subject, status, targets...)
}

// RegisterSubscription is the key-string form of Subscribe; the key is a
// serviceId.action.status triple.
func (o *Orchestrator) RegisterSubscription(subjectKey string, targets ...string) error {
	subject, status, err := ParseSubjectKey(subjectKey)
	if err != nil {
		return err
	}
	return o.subs.Register(subject, status, targets...)
}

// Get returns a copy of the action registered under fullName.
func (o *Orchestrator) Get(fullName string) (*Action, error) {
	return o.actions.Get(fullName)
}

// IsRegistered reports whether fullName names a registered action.
func (o *Orchestrator) IsRegistered(fullName string) bool {
	return o.actions.Has(fullName)
}

// Actions returns every registered action sorted by full name.
func (o *Orchestrator) Actions() []*Action {
	return o.actions.All()
}

// SubscribersOf returns the ordered targets registered for a subject key.
func (o *Orchestrator) SubscribersOf(subjectKey string) []string {
	return o.subs.TargetsOf(subjectKey)
}

// Validate runs the structural validator unless the definition set is
// unchanged since the last pass that succeeded.
func (o *Orchestrator) Validate() error {
	fp := Fingerprint(o.actions, o.subs, o.scopes)
	if cached, ok := o.cache.Load(); ok && cached == fp {
		o.logger.Debug("validation fingerprint unchanged, skipping")
		return nil
	}
	if err := o.validator.Validate(); err != nil {
		return err
	}
	o.cache.Store(fp)
	return nil
}

// StartAction validates the definition set, then begins a run rooted at
// fullName. The callback, when not nil, fires once on success with the last
// result the start action stored; pass nil and query LatestResult instead.
func (o *Orchestrator) StartAction(ctx context.Context, fullName string, callback func(*Result)) error {
	if err := o.Validate(); err != nil {
		return err
	}
	return o.dispatcher.Start(ctx, fullName, callback)
}

// LatestResult returns the last result stored for fullName.
func (o *Orchestrator) LatestResult(fullName string) (*Result, bool) {
	return o.results.Latest(fullName)
}

// Completed returns the sorted full names with a completion on file.
func (o *Orchestrator) Completed() []string {
	return o.completed.Names()
}
