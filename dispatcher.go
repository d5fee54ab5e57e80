package saga

import (
	"context"
	"sort"
)

// Dispatcher decides which tasks run and in what order. It resolves an
// action's transitive requirements depth first, gates every task through a
// single admission path, and reacts to each produced result by recording
// completions, promoting held tasks, and fanning out to subscribers.
//
// A Dispatcher is driven through Start and keeps no state of its own
// between runs; everything per run lives on the Run it creates.
type Dispatcher struct {
	actions   *ActionRegistry
	subs      *SubscriptionRegistry
	completed *CompletionStore
	results   *ResultStore
	loop      *Loop
	logger    Logger
	metrics   MetricsRecorder
}

// NewDispatcher wires a dispatcher over the shared registries, stores, and
// the loop that drains its queue.
func NewDispatcher(actions *ActionRegistry, subs *SubscriptionRegistry, completed *CompletionStore, results *ResultStore, loop *Loop, logger Logger, metrics MetricsRecorder) *Dispatcher {
	return &Dispatcher{
		actions:   actions,
		subs:      subs,
		completed: completed,
		results:   results,
		loop:      loop,
		logger:    normalizeLogger(logger),
		metrics:   metrics,
	}
}

// Start begins a run rooted at the action named by fullName. Requirements
// are dispatched before the action itself, then the loop drains the queue
// sequentially until nothing is left to run. The callback, when not nil,
// fires once on success with the last result the start action stored.
//
// Start returns a structural error when fullName is not registered, a
// queue-empty error when admission dropped everything (nothing to run),
// and a run-abort error when a handler failed and the run compensated.
func (d *Dispatcher) Start(ctx context.Context, fullName string, callback func(*Result)) error {
	action, err := d.actions.Get(fullName)
	if err != nil {
		return err
	}

	run := newRun(fullName, callback)
	logger := withLoggerFields(d.logger, map[string]any{"run_id": run.ID()})
	logger.Info("starting run at %s", fullName)

	task := NewTask(action)
	if err := d.dispatchRequired(run, task, map[string]struct{}{}); err != nil {
		return err
	}
	d.dispatchTask(run, task)

	return d.loop.Run(ctx, run, d.react)
}

// dispatchRequired dispatches the transitive requirements of task, depth
// first. Each requirement is admitted before its own requirements are
// visited, and the visited set keeps every name to exactly one dispatch
// per call chain, so requirement cycles terminate.
func (d *Dispatcher) dispatchRequired(run *Run, task *Task, visited map[string]struct{}) error {
	for _, name := range task.Requires {
		if d.completed.Has(name) {
			continue
		}
		if _, seen := visited[name]; seen {
			continue
		}
		visited[name] = struct{}{}

		action, err := d.actions.Get(name)
		if err != nil {
			return err
		}
		required := NewTask(action)
		d.dispatchTask(run, required)
		if err := d.dispatchRequired(run, required, visited); err != nil {
			return err
		}
	}
	return nil
}

// dispatchTask is the single admission gate. A task already completed is
// dropped unless its action repeats; a task whose requirements are all
// completed queues; anything else holds, keyed by full name, where a
// newer dispatch of the same name replaces the older one.
func (d *Dispatcher) dispatchTask(run *Run, task *Task) {
	name := task.FullName()
	if d.completed.Has(name) && !task.Repeat {
		d.logger.Debug("drop %s: already completed", name)
		return
	}
	if d.satisfied(task) {
		d.loop.Add(task)
		d.logger.Debug("queue %s", name)
		return
	}
	run.hold(task)
	d.logger.Debug("hold %s: requirements pending", name)
}

func (d *Dispatcher) satisfied(task *Task) bool {
	for _, name := range task.Requires {
		if !d.completed.Has(name) {
			return false
		}
	}
	return true
}

// react is the continuation the loop invokes after every task. A nil
// result means the task was fire and forget: nothing is recorded, no held
// task is promoted, no subscriber cascades, the loop just advances. A real
// result records completion on success, promotes every held task whose
// requirements are now met, and cascades to the subscribers registered for
// the task's subject and status. When all of that leaves the queue empty
// the run is complete.
func (d *Dispatcher) react(ctx context.Context, run *Run, task *Task, res *Result) error {
	if res == nil {
		d.logger.Debug("no result from %s, advancing", task.FullName())
		return d.loop.Next(ctx)
	}

	if res.Status == StatusSuccess {
		d.completed.Record(task.FullName())
	}
	d.releaseHeld(run)
	if err := d.cascade(run, task, res); err != nil {
		return err
	}

	if d.loop.Empty() {
		d.finish(run)
	}
	return d.loop.Next(ctx)
}

// releaseHeld promotes held tasks whose requirements completed since they
// were parked. Candidates are collected first and promoted in name order,
// so promotion never mutates the held set mid scan.
func (d *Dispatcher) releaseHeld(run *Run) {
	var ready []string
	for name, held := range run.held {
		if d.satisfied(held) {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	for _, name := range ready {
		task := run.held[name]
		delete(run.held, name)
		d.loop.Add(task)
		d.logger.Debug("release %s", name)
	}
}

// cascade dispatches every subscriber registered for the finished task's
// subject and status. Subscribers admit through the same gate as any other
// task, requirements first, each with a fresh visited set.
func (d *Dispatcher) cascade(run *Run, task *Task, res *Result) error {
	key := SubjectKey(task.FullName(), res.Status)
	for _, target := range d.subs.TargetsOf(key) {
		action, err := d.actions.Get(target)
		if err != nil {
			return err
		}
		d.logger.Debug("cascade %s -> %s", key, target)
		sub := NewTask(action)
		if err := d.dispatchRequired(run, sub, map[string]struct{}{}); err != nil {
			return err
		}
		d.dispatchTask(run, sub)
	}
	return nil
}

// finish marks the run succeeded, fires the callback with the start
// action's last stored result, and closes every retained scope. Tasks
// still held at this point stay held; they are reported and dropped with
// the run.
func (d *Dispatcher) finish(run *Run) {
	run.succeed()
	if names := run.HeldNames(); len(names) > 0 {
		d.logger.Warn("run ended with held tasks %v", names)
	}
	if run.callback != nil {
		final, _ := d.results.Latest(run.start)
		run.callback(final)
	}
	run.closeScopes(d.logger)
	recordSuccess(d.metrics, metricRunCompleted)
	d.logger.Info("run %s completed", run.ID())
}
