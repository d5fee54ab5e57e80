package saga

import (
	"fmt"
	"strings"
)

// Channel partitions actions into isolation groups. Actions on the default
// channel are visible to and subscribable by every channel; actions on any
// other channel only interact within that channel.
type Channel string

// ChannelDefault is the open channel every action can see.
const ChannelDefault Channel = "default"

// Action is a registered, reusable unit of work. Identity is
// ServiceID + "." + Name, globally unique. Handler and Rollback are string
// refs resolved through the scope provider; an empty Rollback means the
// action is not compensable. Actions are immutable after registration.
type Action struct {
	ServiceID string
	Name      string
	Handler   string
	Rollback  string
	Requires  []string
	Channel   Channel
	Bindings  map[string]string

	// Repeat declares the action safe to re-fire within a single run, e.g.
	// when several subscriptions target it. Non-repeat actions dispatch at
	// most once per completion record.
	Repeat bool
}

// FullName returns the global identity serviceId.name.
func (a *Action) FullName() string {
	return a.ServiceID + "." + a.Name
}

// normalize trims identity fields and defaults the channel.
func (a *Action) normalize() {
	a.ServiceID = strings.TrimSpace(a.ServiceID)
	a.Name = strings.TrimSpace(a.Name)
	a.Handler = strings.TrimSpace(a.Handler)
	a.Rollback = strings.TrimSpace(a.Rollback)
	if a.Channel == "" {
		a.Channel = ChannelDefault
	}
	for i, req := range a.Requires {
		a.Requires[i] = strings.TrimSpace(req)
	}
}

// validateIdentity enforces the naming rules full names depend on: non-empty
// segments with no embedded dots, a handler ref, and well-formed requirement
// names.
func (a *Action) validateIdentity() error {
	if a.ServiceID == "" || a.Name == "" {
		return invalidIdentity("action requires serviceId and name", nil, map[string]any{
			"service_id": a.ServiceID,
			"name":       a.Name,
		})
	}
	if strings.Contains(a.ServiceID, ".") || strings.Contains(a.Name, ".") {
		return invalidIdentity("serviceId and name must not contain dots", nil, map[string]any{
			"full_name": a.FullName(),
		})
	}
	if a.Handler == "" {
		return invalidIdentity("action requires a handler ref", nil, map[string]any{
			"full_name": a.FullName(),
		})
	}
	for _, req := range a.Requires {
		if !validFullName(req) {
			return invalidIdentity(fmt.Sprintf("required name %q is not a serviceId.name pair", req), nil, map[string]any{
				"full_name": a.FullName(),
			})
		}
	}
	return nil
}

func (a *Action) clone() *Action {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Requires = append([]string(nil), a.Requires...)
	cp.Bindings = copyBindings(a.Bindings)
	return &cp
}

func copyBindings(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// validFullName reports whether s is a serviceId.name pair with exactly two
// non-empty segments.
func validFullName(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

// ActionBuilder assembles an Action fluently; Build re-runs identity
// validation so definitions fail at assembly time rather than at dispatch.
type ActionBuilder struct {
	action Action
}

// NewAction starts a builder for serviceID.name.
func NewAction(serviceID, name string) *ActionBuilder {
	return &ActionBuilder{action: Action{ServiceID: serviceID, Name: name}}
}

// Handler sets the handler ref.
func (b *ActionBuilder) Handler(ref string) *ActionBuilder {
	b.action.Handler = ref
	return b
}

// Rollback sets the compensator ref.
func (b *ActionBuilder) Rollback(ref string) *ActionBuilder {
	b.action.Rollback = ref
	return b
}

// Requires appends required full names.
func (b *ActionBuilder) Requires(fullNames ...string) *ActionBuilder {
	b.action.Requires = append(b.action.Requires, fullNames...)
	return b
}

// Channel assigns the isolation channel.
func (b *ActionBuilder) Channel(ch Channel) *ActionBuilder {
	b.action.Channel = ch
	return b
}

// Bind adds one auxiliary binding passed to the instantiation scope.
func (b *ActionBuilder) Bind(key, value string) *ActionBuilder {
	if b.action.Bindings == nil {
		b.action.Bindings = make(map[string]string)
	}
	b.action.Bindings[key] = value
	return b
}

// Repeat marks the action re-dispatchable within a run.
func (b *ActionBuilder) Repeat() *ActionBuilder {
	b.action.Repeat = true
	return b
}

// Build normalizes and validates the assembled action.
func (b *ActionBuilder) Build() (*Action, error) {
	a := b.action.clone()
	a.normalize()
	if err := a.validateIdentity(); err != nil {
		return nil, err
	}
	return a, nil
}
