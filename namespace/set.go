package namespace

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Set is the registry of active namespaces. Reads work on an immutable
// snapshot and never block; writers copy the slice under a mutex. A lookup
// racing an Add or Remove may or may not observe it.
type Set struct {
	mu   sync.Mutex
	snap atomic.Pointer[[]*Namespace]
}

// NewSet creates an empty set.
func NewSet() *Set {
	s := &Set{}
	empty := []*Namespace{}
	s.snap.Store(&empty)
	return s
}

// Snapshot returns the active namespaces in registration order. The returned
// slice must not be modified.
func (s *Set) Snapshot() []*Namespace {
	return *s.snap.Load()
}

// Len returns the number of active namespaces.
func (s *Set) Len() int {
	return len(s.Snapshot())
}

// Add registers n at the end of the search order. Closed namespaces and
// namespaces already in the set are ignored.
func (s *Set) Add(n *Namespace) bool {
	if n == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.Closed() {
		return false
	}

	cur := *s.snap.Load()
	if slices.Contains(cur, n) {
		return false
	}
	next := make([]*Namespace, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, n)
	n.set.Store(s)
	s.snap.Store(&next)
	return true
}

// Remove unregisters n. It reports whether n was present.
func (s *Set) Remove(n *Namespace) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.snap.Load()
	i := slices.Index(cur, n)
	if i < 0 {
		return false
	}
	next := slices.Delete(slices.Clone(cur), i, i+1)
	s.snap.Store(&next)
	return true
}

// Get returns the active namespace with the given id.
func (s *Set) Get(id string) *Namespace {
	for _, n := range s.Snapshot() {
		if n.id == id {
			return n
		}
	}
	return nil
}

// Lookup resolves a symbol from any active namespace in registration order.
func (s *Set) Lookup(name string) (any, error) {
	for _, n := range s.Snapshot() {
		if v, ok := n.lookupLocal(name); ok {
			return v, nil
		}
	}
	return nil, &NotFoundError{Namespace: "*", Name: name}
}
