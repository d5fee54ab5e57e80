// Package config loads declarative action and subscription definitions from
// YAML or JSON documents and applies them to an orchestrator.
package config

import (
	"fmt"
	"strings"

	saga "github.com/goliatone/go-saga"
)

// Definition is one declarative document: the actions of a system plus the
// subscriptions that cascade between them.
type Definition struct {
	Version       int                      `json:"version" yaml:"version"`
	Actions       []ActionDefinition       `json:"actions" yaml:"actions"`
	Subscriptions []SubscriptionDefinition `json:"subscriptions,omitempty" yaml:"subscriptions,omitempty"`
	Meta          map[string]any           `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// ActionDefinition declares one action.
type ActionDefinition struct {
	ServiceID string            `json:"service_id" yaml:"service_id"`
	Name      string            `json:"name" yaml:"name"`
	Handler   string            `json:"handler" yaml:"handler"`
	Rollback  string            `json:"rollback,omitempty" yaml:"rollback,omitempty"`
	Requires  []string          `json:"requires,omitempty" yaml:"requires,omitempty"`
	Channel   string            `json:"channel,omitempty" yaml:"channel,omitempty"`
	Bindings  map[string]string `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	Repeat    bool              `json:"repeat,omitempty" yaml:"repeat,omitempty"`
}

// FullName returns serviceId.name for the declared action.
func (d ActionDefinition) FullName() string {
	return strings.TrimSpace(d.ServiceID) + "." + strings.TrimSpace(d.Name)
}

// Action converts the definition into an engine action.
func (d ActionDefinition) Action() *saga.Action {
	return &saga.Action{
		ServiceID: d.ServiceID,
		Name:      d.Name,
		Handler:   d.Handler,
		Rollback:  d.Rollback,
		Requires:  append([]string(nil), d.Requires...),
		Channel:   saga.Channel(d.Channel),
		Bindings:  copyBindings(d.Bindings),
		Repeat:    d.Repeat,
	}
}

// Validate checks required fields and the identity rules.
func (d ActionDefinition) Validate() error {
	serviceID := strings.TrimSpace(d.ServiceID)
	name := strings.TrimSpace(d.Name)
	if serviceID == "" {
		return fmt.Errorf("service_id is required")
	}
	if name == "" {
		return fmt.Errorf("name is required for %s", serviceID)
	}
	if strings.Contains(serviceID, ".") || strings.Contains(name, ".") {
		return fmt.Errorf("%s.%s: identity segments must not contain dots", serviceID, name)
	}
	if strings.TrimSpace(d.Handler) == "" {
		return fmt.Errorf("%s: handler is required", d.FullName())
	}
	for _, req := range d.Requires {
		if len(strings.Split(strings.TrimSpace(req), ".")) != 2 {
			return fmt.Errorf("%s: requires entry %q is not a serviceId.name pair", d.FullName(), req)
		}
	}
	return nil
}

// SubscriptionDefinition declares one cascade rule.
type SubscriptionDefinition struct {
	Subject string   `json:"subject" yaml:"subject"`
	Status  string   `json:"status" yaml:"status"`
	Targets []string `json:"targets" yaml:"targets"`
}

// Key returns the subject key this rule fires on.
func (d SubscriptionDefinition) Key() string {
	return saga.SubjectKey(strings.TrimSpace(d.Subject), saga.Status(strings.TrimSpace(d.Status)))
}

// Validate checks required fields.
func (d SubscriptionDefinition) Validate() error {
	if strings.TrimSpace(d.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(d.Status) == "" {
		return fmt.Errorf("%s: status is required", d.Subject)
	}
	if len(d.Targets) == 0 {
		return fmt.Errorf("%s: at least one target is required", d.Key())
	}
	return nil
}

// Validate performs the document-level structural lint: per-element field
// checks, duplicate detection, references that stay inside the document,
// and channel isolation between subjects and targets.
func (c Definition) Validate() error {
	declared := make(map[string]ActionDefinition, len(c.Actions))
	for idx, def := range c.Actions {
		if err := def.Validate(); err != nil {
			return fmt.Errorf("actions[%d]: %w", idx, err)
		}
		full := def.FullName()
		if _, dup := declared[full]; dup {
			return fmt.Errorf("actions[%d]: duplicate action %s", idx, full)
		}
		declared[full] = def
	}

	for idx, def := range c.Actions {
		for _, req := range def.Requires {
			if _, ok := declared[strings.TrimSpace(req)]; !ok {
				return fmt.Errorf("actions[%d]: %s requires undeclared action %s", idx, def.FullName(), req)
			}
		}
	}

	seen := make(map[string]struct{}, len(c.Subscriptions))
	for idx, sub := range c.Subscriptions {
		if err := sub.Validate(); err != nil {
			return fmt.Errorf("subscriptions[%d]: %w", idx, err)
		}
		key := sub.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("subscriptions[%d]: duplicate subscription %s", idx, key)
		}
		seen[key] = struct{}{}

		subject, ok := declared[strings.TrimSpace(sub.Subject)]
		if !ok {
			return fmt.Errorf("subscriptions[%d]: subject %s is not declared", idx, sub.Subject)
		}
		for _, target := range sub.Targets {
			decl, ok := declared[strings.TrimSpace(target)]
			if !ok {
				return fmt.Errorf("subscriptions[%d]: target %s is not declared", idx, target)
			}
			if !channelsCompatible(subject.Channel, decl.Channel) {
				return fmt.Errorf("subscriptions[%d]: %s crosses channels %s -> %s",
					idx, key, channelOrDefault(subject.Channel), channelOrDefault(decl.Channel))
			}
		}
	}
	return nil
}

// Apply validates the document, registers every action, then every
// subscription, on the orchestrator.
func (c Definition) Apply(o *saga.Orchestrator) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, def := range c.Actions {
		if err := o.Register(def.Action()); err != nil {
			return fmt.Errorf("register %s: %w", def.FullName(), err)
		}
	}
	for _, sub := range c.Subscriptions {
		if err := o.Subscribe(sub.Subject, saga.Status(sub.Status), sub.Targets...); err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.Key(), err)
		}
	}
	return nil
}

func channelsCompatible(subject, target string) bool {
	s := channelOrDefault(subject)
	t := channelOrDefault(target)
	return s == t || s == string(saga.ChannelDefault) || t == string(saga.ChannelDefault)
}

func channelOrDefault(channel string) string {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return string(saga.ChannelDefault)
	}
	return channel
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
