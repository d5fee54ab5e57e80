// Package cron starts registered actions on schedules: recurring cron
// expressions, one-shot delays, and absolute times, driven by a robfig/cron
// instance.
package cron

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	saga "github.com/goliatone/go-saga"
)

// Logger is the logging surface the scheduler writes to. The engine's
// logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// ActionStarter begins one run of a registered action. The orchestrator
// implements it.
type ActionStarter interface {
	StartAction(ctx context.Context, fullName string, callback func(*saga.Result)) error
}

// Scheduler triggers action starts from a cron instance. Runs execute on
// the cron goroutine; because the engine drains one run at a time, a fire
// that overlaps a still-draining run fails and reports through the error
// handler.
type Scheduler struct {
	mu           sync.Mutex
	cron         *rcron.Cron
	starter      ActionStarter
	location     *time.Location
	errorHandler func(error)

	logger    Logger
	parser    Parser
	logWriter io.Writer
	logLevel  LogLevel

	runCtx       context.Context
	nextHandleID int64
	handles      map[int64]*scheduleHandle
}

// NewScheduler creates a scheduler that starts actions on starter.
func NewScheduler(starter ActionStarter, opts ...Option) *Scheduler {
	s := &Scheduler{
		starter:  starter,
		location: time.Local,
		parser:   DefaultParser,
		logLevel: LogLevelError,
		errorHandler: func(err error) {
			log.Printf("error: %v\n", err)
		},
		runCtx:  context.Background(),
		handles: make(map[int64]*scheduleHandle),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.cron = rcron.New(s.build()...)
	return s
}

// SetLogger replaces the scheduler logger.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// ScheduleAction starts fullName on every tick of the cron expression.
// Recurring fires only re-run the action when it declares Repeat; the
// completion gate drops re-dispatches of non-repeating actions.
func (s *Scheduler) ScheduleAction(expression, fullName string, callback func(*saga.Result)) (Handle, error) {
	if expression == "" {
		return nil, fmt.Errorf("cron expression cannot be empty")
	}
	if s.starter == nil {
		return nil, fmt.Errorf("scheduler has no action starter")
	}

	handle := s.newHandle(fullName)
	job := rcron.FuncJob(func() {
		if isTerminalStatus(handle.Status()) {
			return
		}

		handle.setStatus(ScheduleStatusRunning, nil)
		if err := s.starter.StartAction(s.baseContext(), fullName, callback); err != nil {
			handle.setStatus(ScheduleStatusFailed, err)
			s.errorHandler(err)
			return
		}

		if !isTerminalStatus(handle.Status()) {
			handle.setStatus(ScheduleStatusIdle, nil)
		}
	})

	entryID, err := s.cron.AddJob(expression, job)
	if err != nil {
		return nil, fmt.Errorf("failed to add job: %w", err)
	}
	handle.entryID = int(entryID)
	s.storeHandle(handle)
	return handle, nil
}

// StartAfter starts fullName once after delay.
func (s *Scheduler) StartAfter(delay time.Duration, fullName string, callback func(*saga.Result)) (Handle, error) {
	if delay < 0 {
		delay = 0
	}
	return s.StartAt(time.Now().Add(delay), fullName, callback)
}

// StartAt starts fullName once at a specific time. Canceling the handle
// before the timer fires prevents the run.
func (s *Scheduler) StartAt(at time.Time, fullName string, callback func(*saga.Result)) (Handle, error) {
	if s.starter == nil {
		return nil, fmt.Errorf("scheduler has no action starter")
	}

	handle := s.newHandle(fullName)
	s.storeHandle(handle)

	go func() {
		wait := time.Until(at)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-handle.Done():
			return
		}

		if isTerminalStatus(handle.Status()) {
			return
		}
		handle.setStatus(ScheduleStatusRunning, nil)
		if err := s.starter.StartAction(s.baseContext(), fullName, callback); err != nil {
			handle.setTerminal(ScheduleStatusFailed, err)
			s.errorHandler(err)
			s.removeStoredHandle(handle.id)
			return
		}
		handle.setTerminal(ScheduleStatusCompleted, nil)
		s.removeStoredHandle(handle.id)
	}()

	return handle, nil
}

// Start begins firing scheduled jobs. ctx becomes the base context for the
// runs the jobs start.
func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	s.cron.Start()
	return nil
}

// Stop stops firing jobs and marks every live handle stopped.
func (s *Scheduler) Stop(_ context.Context) error {
	s.cron.Stop()

	var handles []*scheduleHandle
	s.mu.Lock()
	for _, handle := range s.handles {
		handles = append(handles, handle)
	}
	s.handles = make(map[int64]*scheduleHandle)
	s.mu.Unlock()

	for _, handle := range handles {
		if handle == nil {
			continue
		}
		if handle.entryID > 0 {
			s.cron.Remove(rcron.EntryID(handle.entryID))
		}
		if isTerminalStatus(handle.Status()) {
			continue
		}
		handle.setTerminal(ScheduleStatusStopped, nil)
	}
	return nil
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx != nil {
		return s.runCtx
	}
	return context.Background()
}

func (s *Scheduler) removeHandle(id int64) {
	handle := s.removeStoredHandle(id)
	if handle == nil {
		return
	}
	if handle.entryID > 0 {
		s.cron.Remove(rcron.EntryID(handle.entryID))
	}
}

func (s *Scheduler) removeStoredHandle(id int64) *scheduleHandle {
	if s == nil || id == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := s.handles[id]
	delete(s.handles, id)
	return handle
}

func (s *Scheduler) storeHandle(handle *scheduleHandle) {
	if s == nil || handle == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles == nil {
		s.handles = make(map[int64]*scheduleHandle)
	}
	s.handles[handle.id] = handle
}

func (s *Scheduler) newHandle(fullName string) *scheduleHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandleID++
	return &scheduleHandle{
		scheduler: s,
		id:        s.nextHandleID,
		action:    fullName,
		status:    ScheduleStatusScheduled,
		done:      make(chan struct{}),
	}
}

func isTerminalStatus(status ScheduleStatus) bool {
	switch status {
	case ScheduleStatusCompleted, ScheduleStatusCanceled, ScheduleStatusFailed, ScheduleStatusStopped:
		return true
	default:
		return false
	}
}

func makeLogger(out io.Writer, level LogLevel) rcron.Logger {
	stdLogger := log.New(out, "cron: ", log.LstdFlags)
	cronLogger := rcron.PrintfLogger(stdLogger)
	if level >= LogLevelDebug {
		cronLogger = rcron.VerbosePrintfLogger(stdLogger)
	}
	return cronLogger
}

// build converts implementation-agnostic options to rcron options.
func (s *Scheduler) build() []rcron.Option {
	opts := make([]rcron.Option, 0)

	if s.location != nil {
		opts = append(opts, rcron.WithLocation(s.location))
	}

	switch s.parser {
	case StandardParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	case SecondsParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Second|rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	}

	if s.errorHandler != nil {
		opts = append(opts, rcron.WithChain(
			rcron.Recover(&errorHandlerAdapter{handler: s.errorHandler}),
		))
	}

	var cronLogger rcron.Logger
	switch {
	case s.logger != nil:
		cronLogger = &loggerAdapter{logger: s.logger, level: s.logLevel}
	case s.logWriter != nil:
		cronLogger = makeLogger(s.logWriter, s.logLevel)
	default:
		if s.logLevel > LogLevelSilent {
			cronLogger = makeLogger(os.Stdout, s.logLevel)
		}
	}

	if cronLogger != nil {
		opts = append(opts, rcron.WithLogger(cronLogger))
	}

	return opts
}
