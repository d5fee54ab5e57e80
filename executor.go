package saga

import (
	"context"
	"time"
)

// TaskRunner executes one task and reports through the continuation.
type TaskRunner interface {
	Handle(ctx context.Context, run *Run, task *Task, next Continuation) error
}

// Executor is the task handler. For each task it obtains a scope dedicated
// to the task's serviceId, injects the stored results of the task's
// requirements, applies bindings, constructs the handler by ref, and runs
// it. Any error or panic on that path aborts the run: the failing task is
// recorded complete, every retained scope is compensated, and the abort
// error propagates to the caller that started the run.
type Executor struct {
	scopes    ScopeProvider
	completed *CompletionStore
	results   *ResultStore
	logger    Logger
	metrics   MetricsRecorder
}

// NewExecutor wires a task handler over a scope provider and the run stores.
func NewExecutor(scopes ScopeProvider, completed *CompletionStore, results *ResultStore, logger Logger, metrics MetricsRecorder) *Executor {
	return &Executor{
		scopes:    scopes,
		completed: completed,
		results:   results,
		logger:    normalizeLogger(logger),
		metrics:   metrics,
	}
}

// Handle runs exactly one task and invokes next with the produced result,
// or nil when the handler yielded none.
func (e *Executor) Handle(ctx context.Context, run *Run, task *Task, next Continuation) error {
	logger := withLoggerFields(e.logger, map[string]any{
		"run_id": run.ID(),
		"task":   task.FullName(),
	})
	logger.Debug("executing task")

	start := time.Now()
	res, err := e.execute(ctx, run, task)
	recordDuration(e.metrics, metricTaskDuration, start)

	if err != nil {
		recordError(e.metrics, metricTaskError)
		logger.Error("task failed: %v", err)

		// Completion is recorded first so a retry path cannot re-attempt
		// the failing task; then everything constructed so far compensates.
		e.completed.Record(task.FullName())
		compErr := rollbackRun(ctx, run, logger)
		run.fail()
		run.closeScopes(logger)
		recordError(e.metrics, metricRunFailed)
		return abortError(task, err, compErr)
	}

	if res != nil {
		e.results.Store(task.FullName(), res)
		logger.Debug("stored result with status %s", res.Status)
	}
	recordSuccess(e.metrics, metricTaskSuccess)
	return next(ctx, run, task, res)
}

// execute covers scope construction, injection, instantiation, and the
// handler call; a panic anywhere on that path converts to an error.
func (e *Executor) execute(ctx context.Context, run *Run, task *Task) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = panicError(p)
		}
	}()

	scope := e.scopes.Scope(task.ServiceID)
	run.retain(task.ServiceID, task, scope)

	for _, name := range task.Requires {
		if prior, ok := e.results.Latest(name); ok && prior.Data != nil {
			scope.Inject(name, prior)
		}
	}
	if len(task.Bindings) > 0 {
		scope.Bind(task.Bindings)
	}

	handler, err := scope.Handler(task.Handler)
	if err != nil {
		return nil, err
	}
	return handler.Execute(ctx)
}

func abortError(task *Task, cause, compensationErr error) error {
	metadata := map[string]any{
		"task":       task.FullName(),
		"service_id": task.ServiceID,
	}
	if compensationErr != nil {
		metadata["compensation_error"] = compensationErr.Error()
	}
	return cloneError(ErrRunAborted, "run aborted at "+task.FullName(), cause, metadata)
}
