package saga

import (
	"sort"
	"sync"
)

// CompletionStore is the task registry: it records which actions have a
// completion on file, keyed by full name. Dependency satisfaction and
// re-dispatch eligibility both read it.
type CompletionStore struct {
	mu        sync.RWMutex
	completed map[string]struct{}
}

// NewCompletionStore creates an empty completion store.
func NewCompletionStore() *CompletionStore {
	return &CompletionStore{completed: make(map[string]struct{})}
}

// Record marks fullName completed. Recording twice is harmless.
func (s *CompletionStore) Record(fullName string) {
	if s == nil || fullName == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[fullName] = struct{}{}
}

// Has reports whether fullName has a completion record.
func (s *CompletionStore) Has(fullName string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.completed[fullName]
	return ok
}

// Names returns the sorted full names with completion records.
func (s *CompletionStore) Names() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.completed))
	for name := range s.completed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResultStore holds the latest result per full action name. Callers that
// start an action without a callback query it after the run returns.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*Result
}

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]*Result)}
}

// Store replaces the result recorded for fullName.
func (s *ResultStore) Store(fullName string, res *Result) {
	if s == nil || fullName == "" || res == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[fullName] = res.clone()
}

// Latest returns a copy of the last result stored for fullName.
func (s *ResultStore) Latest(fullName string) (*Result, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[fullName]
	if !ok {
		return nil, false
	}
	return res.clone(), true
}
