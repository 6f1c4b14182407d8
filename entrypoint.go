package modhost

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/namespace"
)

// ModuleContext is handed to an entry point when its module is instantiated.
type ModuleContext struct {
	Descriptor *manifest.Descriptor
	Namespace  *namespace.Namespace
	DataDir    string
	Logger     Logger
	Provider   *Provider
}

// EnsureDataDir creates the module data directory and returns it.
func (mc *ModuleContext) EnsureDataDir() (string, error) {
	if err := os.MkdirAll(mc.DataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory %s: %w", mc.DataDir, err)
	}
	return mc.DataDir, nil
}

// Factory instantiates a module's main object.
type Factory func(mc *ModuleContext) (any, error)

// EntryPoints maps the "main" reference of a manifest to a Factory.
type EntryPoints struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewEntryPoints creates an empty registry.
func NewEntryPoints() *EntryPoints {
	return &EntryPoints{factories: make(map[string]Factory)}
}

// Register binds name to f. Names are unique.
func (e *EntryPoints) Register(name string, f Factory) error {
	if f == nil {
		return fmt.Errorf("%w: nil factory for %s", ErrEntryPointFailed, name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrEntryPointExists, name)
	}
	e.factories[name] = f
	return nil
}

// MustRegister is Register for init-time wiring; it panics on error.
func (e *EntryPoints) MustRegister(name string, f Factory) {
	if err := e.Register(name, f); err != nil {
		panic(err)
	}
}

// Lookup returns the factory registered under name.
func (e *EntryPoints) Lookup(name string) (Factory, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	f, ok := e.factories[name]
	return f, ok
}

// Names returns the registered names, sorted.
func (e *EntryPoints) Names() []string {
	e.mu.RLock()
	names := make([]string, 0, len(e.factories))
	for name := range e.factories {
		names = append(names, name)
	}
	e.mu.RUnlock()
	slices.Sort(names)
	return names
}

// instantiate runs the factory for mc.Descriptor.Main. Factory panics are
// converted into errors.
func (e *EntryPoints) instantiate(mc *ModuleContext) (instance any, err error) {
	main := mc.Descriptor.Main
	f, ok := e.Lookup(main)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryPointNotFound, main)
	}

	defer func() {
		if rec := recover(); rec != nil {
			instance = nil
			err = fmt.Errorf("%w: %s panicked: %v", ErrEntryPointFailed, main, rec)
		}
	}()

	instance, err = f(mc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEntryPointFailed, main, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilInstance, main)
	}
	return instance, nil
}
