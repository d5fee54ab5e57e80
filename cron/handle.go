package cron

import "sync"

// ScheduleStatus reports a schedule handle state.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusRunning   ScheduleStatus = "running"
	ScheduleStatusIdle      ScheduleStatus = "idle"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCanceled  ScheduleStatus = "canceled"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusStopped   ScheduleStatus = "stopped"
)

// Handle controls one scheduled action start.
type Handle interface {
	// Cancel removes the schedule; a cancel that lands before a one-shot
	// fires prevents the run.
	Cancel()
	// Status reports the handle state.
	Status() ScheduleStatus
	// Err returns the error that moved the handle to failed.
	Err() error
	// Done closes when the handle reaches a terminal state.
	Done() <-chan struct{}
	// ID returns the scheduler-local handle id.
	ID() int64
	// Action returns the full name this handle starts.
	Action() string
}

type scheduleHandle struct {
	scheduler *Scheduler
	id        int64
	entryID   int
	action    string
	done      chan struct{}

	mu       sync.RWMutex
	status   ScheduleStatus
	err      error
	once     sync.Once
	doneOnce sync.Once
}

func (h *scheduleHandle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.scheduler != nil {
			h.scheduler.removeHandle(h.id)
		}
		h.setTerminal(ScheduleStatusCanceled, nil)
	})
}

func (h *scheduleHandle) Status() ScheduleStatus {
	if h == nil {
		return ScheduleStatusStopped
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *scheduleHandle) Err() error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

func (h *scheduleHandle) Done() <-chan struct{} {
	if h == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return h.done
}

func (h *scheduleHandle) ID() int64 {
	if h == nil {
		return 0
	}
	return h.id
}

func (h *scheduleHandle) Action() string {
	if h == nil {
		return ""
	}
	return h.action
}

func (h *scheduleHandle) setStatus(status ScheduleStatus, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.err = err
}

func (h *scheduleHandle) setTerminal(status ScheduleStatus, err error) {
	h.setStatus(status, err)
	h.doneOnce.Do(func() {
		if h.done != nil {
			close(h.done)
		}
	})
}
