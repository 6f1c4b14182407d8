// Package namespace provides the per-module isolation scope.
//
// A Namespace holds the symbols a module exports and the files of the
// artifacts it was seeded with. Lookups search the namespace itself first and
// then every other namespace that is active in the same Set, in registration
// order, so modules can use what their peers expose without knowing where it
// lives.
package namespace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
)

// Namespace is the code and resource scope of one module.
type Namespace struct {
	id      string
	sources []Source

	mu      sync.RWMutex
	exports map[string]any

	set    atomic.Pointer[Set]
	closed atomic.Bool
}

// New creates a namespace seeded with sources, searched in the given order.
// The namespace takes ownership of the sources and closes them on Close.
func New(id string, sources ...Source) *Namespace {
	return &Namespace{
		id:      id,
		sources: slices.Clone(sources),
		exports: make(map[string]any),
	}
}

// ID returns the identifier of the owning module.
func (n *Namespace) ID() string { return n.id }

// Sources returns the seed sources in search order.
func (n *Namespace) Sources() []Source { return slices.Clone(n.sources) }

// Closed reports whether Close has been called.
func (n *Namespace) Closed() bool { return n.closed.Load() }

// Export publishes a symbol. Re-exporting a name replaces the previous value.
func (n *Namespace) Export(name string, value any) error {
	if name == "" {
		return ErrEmptySymbolName
	}
	if n.closed.Load() {
		return fmt.Errorf("%w: %s", ErrClosed, n.id)
	}
	n.mu.Lock()
	n.exports[name] = value
	n.mu.Unlock()
	return nil
}

// Exports returns the exported symbol names, sorted.
func (n *Namespace) Exports() []string {
	n.mu.RLock()
	names := make([]string, 0, len(n.exports))
	for name := range n.exports {
		names = append(names, name)
	}
	n.mu.RUnlock()
	slices.Sort(names)
	return names
}

func (n *Namespace) lookupLocal(name string) (any, bool) {
	if n.closed.Load() {
		return nil, false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.exports[name]
	return v, ok
}

// others returns the other active namespaces of the owning set.
func (n *Namespace) others() []*Namespace {
	s := n.set.Load()
	if s == nil {
		return nil
	}
	return s.Snapshot()
}

// Lookup resolves a symbol from this namespace or, failing that, from the
// other active namespaces in registration order.
func (n *Namespace) Lookup(name string) (any, error) {
	if n.closed.Load() {
		return nil, fmt.Errorf("%w: %s", ErrClosed, n.id)
	}
	if v, ok := n.lookupLocal(name); ok {
		return v, nil
	}
	for _, other := range n.others() {
		if other == n {
			continue
		}
		if v, ok := other.lookupLocal(name); ok {
			return v, nil
		}
	}
	return nil, &NotFoundError{Namespace: n.id, Name: name}
}

// LookupAs resolves a symbol and asserts it to T.
func LookupAs[T any](n *Namespace, name string) (T, error) {
	var zero T
	v, err := n.Lookup(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, want %T", ErrTypeMismatch, name, v, zero)
	}
	return t, nil
}

func (n *Namespace) openLocal(name string) (fs.File, error) {
	if n.closed.Load() {
		return nil, fs.ErrNotExist
	}
	for _, src := range n.sources {
		f, err := src.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fs.ErrNotExist
}

// Open resolves a resource with the same search order as Lookup. It makes
// Namespace an fs.FS.
func (n *Namespace) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if n.closed.Load() {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrClosed}
	}

	f, err := n.openLocal(name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	for _, other := range n.others() {
		if other == n {
			continue
		}
		f, err := other.openLocal(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
	}
	return nil, &NotFoundError{Namespace: n.id, Name: name}
}

// ReadFile reads a whole resource.
func (n *Namespace) ReadFile(name string) ([]byte, error) {
	f, err := n.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Close removes the namespace from its set, drops the exports and closes the
// seed sources. Calling it again is a no-op.
func (n *Namespace) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s := n.set.Load(); s != nil {
		s.Remove(n)
	}

	n.mu.Lock()
	clear(n.exports)
	n.mu.Unlock()

	var err error
	for _, src := range n.sources {
		err = multierr.Append(err, src.Close())
	}
	return err
}
