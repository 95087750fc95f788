// Package templatestore provides a thread-safe, in-memory store of help
// templates keyed by name.
//
// # Purpose
//
// The help registry renders every binding through a named template. Most
// deployments use only the default template; others register a handful of
// variants at startup and read them many times afterwards. sync.Map fits that
// write-once, read-many pattern without a global lock.
//
// # Default slot
//
// The store knows nothing about which name is the default. The registry
// decides that and uses SetIfAbsent to install its built-in fallback without
// clobbering a template registered earlier by the caller.
package templatestore

import (
	"sort"
	"sync"
)

// Store maps template names to template sources.
type Store struct {
	templates sync.Map // Key: template name, Value: template source string
}

// New creates a new, empty template store.
func New() *Store {
	return &Store{}
}

// Set stores source under name, replacing any previous entry.
func (s *Store) Set(name, source string) {
	s.templates.Store(name, source)
}

// SetIfAbsent stores source under name only when the slot is empty. It reports
// whether the store was changed.
func (s *Store) SetIfAbsent(name, source string) bool {
	_, loaded := s.templates.LoadOrStore(name, source)
	return !loaded
}

// Get returns the template stored under name.
func (s *Store) Get(name string) (string, bool) {
	v, ok := s.templates.Load(name)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Names returns all template names in sorted order.
func (s *Store) Names() []string {
	var names []string
	s.templates.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}
