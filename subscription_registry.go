package saga

import (
	"sort"
	"strings"
	"sync"
)

// SubscriptionRegistry stores cascade rules keyed by subject key
// (serviceId.action.status). Targets keep registration order; registering
// the same target twice for one key is a no-op.
type SubscriptionRegistry struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewSubscriptionRegistry creates an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{subs: make(map[string]*Subscription)}
}

// Register appends targets to the rule for subject+status.
func (r *SubscriptionRegistry) Register(subjectFullName string, status Status, targets ...string) error {
	subjectFullName = strings.TrimSpace(subjectFullName)
	if !validFullName(subjectFullName) {
		return invalidIdentity("subscription subject must be a serviceId.name pair", nil, map[string]any{
			"subject": subjectFullName,
		})
	}
	if strings.TrimSpace(string(status)) == "" {
		return invalidIdentity("subscription requires a status", nil, map[string]any{
			"subject": subjectFullName,
		})
	}

	clean := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if !validFullName(t) {
			return invalidIdentity("subscription target must be a serviceId.name pair", nil, map[string]any{
				"subject": subjectFullName,
				"target":  t,
			})
		}
		clean = append(clean, t)
	}

	key := SubjectKey(subjectFullName, status)

	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[key]
	if !ok {
		sub = &Subscription{Subject: subjectFullName, Status: status}
		r.subs[key] = sub
	}
	for _, t := range clean {
		if !containsString(sub.Targets, t) {
			sub.Targets = append(sub.Targets, t)
		}
	}
	return nil
}

// TargetsOf returns the ordered targets registered for a subject key.
func (r *SubscriptionRegistry) TargetsOf(key string) []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[key]
	if !ok {
		return nil
	}
	return append([]string(nil), sub.Targets...)
}

// All returns copies of every subscription sorted by subject key.
func (r *SubscriptionRegistry) All() []*Subscription {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
