package saga

// Validator checks the registered definitions against each other and against
// the scope provider before anything runs. Every finding is a
// validation-category error; the first one stops the pass, so a run never
// starts over a half-broken definition set.
type Validator struct {
	actions *ActionRegistry
	subs    *SubscriptionRegistry
	scopes  ScopeProvider
}

// NewValidator wires a validator over the registries and the provider that
// will resolve handler and rollback refs at run time.
func NewValidator(actions *ActionRegistry, subs *SubscriptionRegistry, scopes ScopeProvider) *Validator {
	return &Validator{actions: actions, subs: subs, scopes: scopes}
}

// Validate walks every action, then every subscription, in sorted order.
// Actions need a resolvable handler ref, a resolvable compensator ref when
// they declare a rollback, and registered requirements. Subscriptions need a
// registered subject and registered targets, and the subject and each target
// must share a channel unless either side runs on the default channel.
func (v *Validator) Validate() error {
	byName := make(map[string]*Action)
	for _, a := range v.actions.All() {
		byName[a.FullName()] = a
	}

	for _, a := range v.actions.All() {
		if !v.scopes.HasHandler(a.Handler) {
			return handlerMissing(a.Handler, a.ServiceID)
		}
		if a.Rollback != "" && !v.scopes.HasCompensator(a.Rollback) {
			return compensatorMissing(a.Rollback, a.ServiceID)
		}
		for _, required := range a.Requires {
			if _, ok := byName[required]; !ok {
				return dependencyUnregistered(a.FullName(), required)
			}
		}
	}

	for _, sub := range v.subs.All() {
		subject, ok := byName[sub.Subject]
		if !ok {
			return subjectUnknown(sub.Key(), sub.Subject)
		}
		for _, name := range sub.Targets {
			target, ok := byName[name]
			if !ok {
				return targetUnknown(sub.Key(), name)
			}
			if !channelsCompatible(subject.Channel, target.Channel) {
				return channelViolation(sub.Key(), name, subject.Channel, target.Channel)
			}
		}
	}
	return nil
}

// channelsCompatible reports whether a subscription may bridge the two
// channels. The default channel bridges to anything.
func channelsCompatible(subject, target Channel) bool {
	return subject == target || subject == ChannelDefault || target == ChannelDefault
}
