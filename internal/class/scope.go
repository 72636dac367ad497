package class

import "sync"

// Scope is an object's context. Reads fall through to the parent scope;
// writes stay local.
type Scope struct {
	parent *Scope
	mu     sync.RWMutex
	values map[string]any
}

// NewScope creates a scope that inherits reads from parent, which may be
// nil.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, values: make(map[string]any)}
}

// Get returns the nearest value for key along the scope chain.
func (s *Scope) Get(key string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		v, ok := cur.values[key]
		cur.mu.RUnlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// Set stores key in this scope, shadowing any inherited value.
func (s *Scope) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

// Parent returns the scope reads fall through to, or nil.
func (s *Scope) Parent() *Scope {
	return s.parent
}
