package saga

// Task is one scheduled execution instance of an Action within a run. It
// snapshots the action's definition at dispatch time so later registry
// mutations cannot change a queued task. The loop owns a task while queued,
// the executor while running; completion is recorded separately in the
// completion store.
type Task struct {
	ServiceID string
	Action    string
	Handler   string
	Rollback  string
	Requires  []string
	Channel   Channel
	Bindings  map[string]string
	Repeat    bool
}

// NewTask snapshots an Action into a dispatchable Task.
func NewTask(a *Action) *Task {
	if a == nil {
		return nil
	}
	return &Task{
		ServiceID: a.ServiceID,
		Action:    a.Name,
		Handler:   a.Handler,
		Rollback:  a.Rollback,
		Requires:  append([]string(nil), a.Requires...),
		Channel:   a.Channel,
		Bindings:  copyBindings(a.Bindings),
		Repeat:    a.Repeat,
	}
}

// FullName returns the task's global identity serviceId.action.
func (t *Task) FullName() string {
	return t.ServiceID + "." + t.Action
}
