package saga

import "context"

// Continuation is invoked by the task runner once per task with the
// produced result, or nil when the handler yielded none.
type Continuation func(ctx context.Context, run *Run, task *Task, res *Result) error

// Loop is the sequential execution driver: a FIFO queue of pending tasks
// plus a single current slot. It never runs two tasks concurrently; control
// only leaves through the synchronous task runner, so one Run call drives
// the whole chain by call-stack recursion.
type Loop struct {
	queue   []*Task
	current *Task
	started bool

	run    *Run
	cont   Continuation
	exec   TaskRunner
	logger Logger
}

// NewLoop builds an idle loop around a task runner.
func NewLoop(exec TaskRunner, logger Logger) *Loop {
	return &Loop{exec: exec, logger: normalizeLogger(logger)}
}

// Add appends a task to the tail of the queue.
func (l *Loop) Add(task *Task) {
	if task == nil {
		return
	}
	l.queue = append(l.queue, task)
}

// Len returns the number of queued tasks, excluding the current one.
func (l *Loop) Len() int { return len(l.queue) }

// Empty reports whether the queue is drained.
func (l *Loop) Empty() bool { return len(l.queue) == 0 }

// Started reports whether a run currently drives the loop.
func (l *Loop) Started() bool { return l.started }

// Run begins draining the queue for one run. It fails when the loop is
// already started or when nothing is queued. An error from the task runner
// abandons whatever is still queued and returns the loop to idle, so a
// failed run never blocks the next one.
func (l *Loop) Run(ctx context.Context, run *Run, cont Continuation) error {
	if l.started {
		return cloneError(ErrLoopStarted, "", nil, map[string]any{"current": l.currentName()})
	}
	if len(l.queue) == 0 {
		return ErrQueueEmpty
	}

	l.started = true
	l.run = run
	l.cont = cont
	l.current = l.dequeue()

	logger := withLoggerFields(l.logger, map[string]any{"run_id": run.ID()})
	logger.Debug("loop started with %s", l.current.FullName())

	if err := l.exec.Handle(ctx, l.run, l.current, l.cont); err != nil {
		l.abandon()
		return err
	}
	return nil
}

// Next advances to the next queued task, or returns the loop to idle when
// the queue is drained.
func (l *Loop) Next(ctx context.Context) error {
	if len(l.queue) == 0 {
		l.logger.Debug("loop idle: queue drained")
		l.reset()
		return nil
	}
	l.current = l.dequeue()
	return l.exec.Handle(ctx, l.run, l.current, l.cont)
}

func (l *Loop) dequeue() *Task {
	task := l.queue[0]
	l.queue = l.queue[1:]
	return task
}

func (l *Loop) reset() {
	l.started = false
	l.current = nil
	l.run = nil
	l.cont = nil
}

// abandon drops the rest of the queue along with the loop state.
func (l *Loop) abandon() {
	l.queue = nil
	l.reset()
}

func (l *Loop) currentName() string {
	if l.current == nil {
		return ""
	}
	return l.current.FullName()
}
