package saga

// Option configures an Orchestrator during construction.
type Option func(*Orchestrator)

// WithLogger routes engine logs to an external logger.
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics installs a metrics recorder around task execution and run
// termination.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(o *Orchestrator) {
		o.metrics = recorder
	}
}

// WithScopeProvider replaces the default typed factory registry with a
// custom provider, such as the samber/do adapter in the container package.
func WithScopeProvider(provider ScopeProvider) Option {
	return func(o *Orchestrator) {
		if provider != nil {
			o.scopes = provider
		}
	}
}

// WithValidationCache replaces the in-memory fingerprint cache.
func WithValidationCache(cache ValidationCache) Option {
	return func(o *Orchestrator) {
		if cache != nil {
			o.cache = cache
		}
	}
}
