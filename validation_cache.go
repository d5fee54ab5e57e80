package saga

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// ValidationCache remembers the fingerprint of the last definition set that
// passed validation, so repeated starts over unchanged registries skip the
// structural pass.
type ValidationCache interface {
	// Load returns the cached fingerprint, or false when nothing validated yet.
	Load() (string, bool)
	// Store replaces the cached fingerprint.
	Store(fingerprint string)
}

// MemoryValidationCache is the in-process default cache.
type MemoryValidationCache struct {
	mu sync.RWMutex
	fp string
}

// NewMemoryValidationCache constructs an empty cache.
func NewMemoryValidationCache() *MemoryValidationCache {
	return &MemoryValidationCache{}
}

func (c *MemoryValidationCache) Load() (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fp, c.fp != ""
}

func (c *MemoryValidationCache) Store(fingerprint string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fp = fingerprint
}

// refLister is the optional provider capability that exposes the registered
// refs; providers that support it contribute them to the fingerprint, so
// registering a new factory invalidates the cached validation too.
type refLister interface {
	HandlerRefs() []string
	CompensatorRefs() []string
}

// Fingerprint hashes the current definition set: every action, every
// subscription, and the provider refs when the provider can enumerate them.
// Equal content yields the same fingerprint regardless of registration
// order.
func Fingerprint(actions *ActionRegistry, subs *SubscriptionRegistry, scopes ScopeProvider) string {
	type actionPrint struct {
		FullName string            `json:"full_name"`
		Handler  string            `json:"handler"`
		Rollback string            `json:"rollback,omitempty"`
		Requires []string          `json:"requires,omitempty"`
		Channel  Channel           `json:"channel"`
		Bindings map[string]string `json:"bindings,omitempty"`
		Repeat   bool              `json:"repeat,omitempty"`
	}
	type subscriptionPrint struct {
		Key     string   `json:"key"`
		Targets []string `json:"targets"`
	}
	type registryPrint struct {
		Actions       []actionPrint       `json:"actions"`
		Subscriptions []subscriptionPrint `json:"subscriptions"`
		Handlers      []string            `json:"handlers,omitempty"`
		Compensators  []string            `json:"compensators,omitempty"`
	}

	doc := registryPrint{}
	for _, a := range actions.All() {
		doc.Actions = append(doc.Actions, actionPrint{
			FullName: a.FullName(),
			Handler:  a.Handler,
			Rollback: a.Rollback,
			Requires: a.Requires,
			Channel:  a.Channel,
			Bindings: a.Bindings,
			Repeat:   a.Repeat,
		})
	}
	for _, sub := range subs.All() {
		doc.Subscriptions = append(doc.Subscriptions, subscriptionPrint{
			Key:     sub.Key(),
			Targets: sub.Targets,
		})
	}
	if lister, ok := scopes.(refLister); ok {
		doc.Handlers = sortedCopy(lister.HandlerRefs())
		doc.Compensators = sortedCopy(lister.CompensatorRefs())
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		raw = []byte(fmt.Sprintf("%#v", doc))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func sortedCopy(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := append([]string(nil), list...)
	sort.Strings(out)
	return out
}
