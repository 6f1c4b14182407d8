package modhost

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/namespace"
	"github.com/GoCodeAlone/modhost/resolver"
)

// DefaultModuleDir is the module directory used when none is configured.
const DefaultModuleDir = "modules"

// Provider is the registry of loaded modules. It owns the namespace set the
// modules resolve each other through.
type Provider struct {
	mu       sync.RWMutex
	modules  []*Wrapper
	bySource map[string]*Wrapper
	pending  map[string]struct{}

	resolver     resolver.Resolver
	handler      ProviderHandler
	logger       Logger
	entryPoints  *EntryPoints
	moduleDir    string
	defaultRepos []manifest.Repository
	sourceFetch  namespace.FetchFunc
	namespaces   *namespace.Set
}

// NewProvider creates a provider. Without options it resolves dependencies
// directly, allows every transition and logs nothing.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		bySource:     make(map[string]*Wrapper),
		pending:      make(map[string]struct{}),
		resolver:     resolver.NewDirect(),
		handler:      NopHandler{},
		logger:       NopLogger(),
		entryPoints:  NewEntryPoints(),
		moduleDir:    DefaultModuleDir,
		defaultRepos: slices.Clone(manifest.DefaultRepositories),
		namespaces:   namespace.NewSet(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sourceFetch == nil {
		p.sourceFetch = resolver.FetchBody(resolver.NewFetcher())
	}
	return p
}

// Handler returns the lifecycle handler.
func (p *Provider) Handler() ProviderHandler { return p.handler }

// Resolver returns the dependency resolver.
func (p *Provider) Resolver() resolver.Resolver { return p.resolver }

// EntryPoints returns the entry point registry.
func (p *Provider) EntryPoints() *EntryPoints { return p.entryPoints }

// ModuleDir returns the module directory.
func (p *Provider) ModuleDir() string { return p.moduleDir }

// Namespaces returns the set of active module namespaces.
func (p *Provider) Namespaces() *namespace.Set { return p.namespaces }

// NormalizeLocation turns a path into a cleaned absolute path and file URLs
// into paths. Remote URLs are returned unchanged.
func NormalizeLocation(location string) (string, error) {
	if location == "" {
		return "", ErrEmptyLocation
	}
	if namespace.IsRemote(location) {
		return location, nil
	}
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("invalid module location %q: %w", location, err)
		}
		location = filepath.FromSlash(u.Path)
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("invalid module location %q: %w", location, err)
	}
	return filepath.Clean(abs), nil
}

// Load reads the module at location, registers it and loads it. A location
// that is already registered or currently being loaded yields (nil, nil). A
// module that cannot be built is not registered and its error is returned.
func (p *Provider) Load(ctx context.Context, location string) (*Wrapper, error) {
	loc, err := NormalizeLocation(location)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if _, exists := p.bySource[loc]; exists {
		p.mu.Unlock()
		p.logger.Debug("Module already loaded", "location", loc)
		return nil, nil
	}
	if _, loading := p.pending[loc]; loading {
		p.mu.Unlock()
		return nil, nil
	}
	p.pending[loc] = struct{}{}
	p.mu.Unlock()

	w, err := p.construct(ctx, loc)

	p.mu.Lock()
	delete(p.pending, loc)
	if err == nil {
		p.modules = append(p.modules, w)
		p.bySource[loc] = w
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("Failed to load module", "location", loc, "error", err)
		return nil, &ModuleError{Module: loc, Op: "construct", Err: err}
	}

	p.logger.Info("Module registered", moduleAttrs(w, "location", loc)...)
	if err := w.Load(ctx); err != nil {
		return w, &ModuleError{Module: w.desc.ID(), Op: "load", Err: err}
	}
	return w, nil
}

func (p *Provider) construct(ctx context.Context, loc string) (*Wrapper, error) {
	return newWrapper(ctx, p, loc)
}

func (p *Provider) unregister(w *Wrapper) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.Index(p.modules, w); i >= 0 {
		p.modules = slices.Delete(p.modules, i, i+1)
	}
	if cur, ok := p.bySource[w.source]; ok && cur == w {
		delete(p.bySource, w.source)
	}
}

// Modules returns a snapshot of the registered modules in load order.
func (p *Provider) Modules() []*Wrapper {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.modules)
}

// Len returns the number of registered modules.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.modules)
}

// Get returns the first registered module with the given name.
func (p *Provider) Get(name string) *Wrapper {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, w := range p.modules {
		if w.desc.Name == name {
			return w
		}
	}
	return nil
}

// GetByGroup returns every registered module of group.
func (p *Provider) GetByGroup(group string) []*Wrapper {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*Wrapper
	for _, w := range p.modules {
		if w.desc.Group == group {
			out = append(out, w)
		}
	}
	return out
}

// Find returns the registered module with the given group and name.
func (p *Provider) Find(group, name string) *Wrapper {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, w := range p.modules {
		if w.desc.Group == group && w.desc.Name == name {
			return w
		}
	}
	return nil
}

// BySource returns the module loaded from location.
func (p *Provider) BySource(location string) *Wrapper {
	loc, err := NormalizeLocation(location)
	if err != nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bySource[loc]
}

// each runs op on a snapshot of the modules. Errors and panics are collected
// and never stop the iteration.
func (p *Provider) each(ctx context.Context, op string, fn func(*Wrapper, context.Context) error) error {
	var errs error
	for _, w := range p.Modules() {
		if err := p.safely(ctx, w, op, fn); err != nil {
			p.logger.Error("Module operation failed", moduleAttrs(w, "op", op, "error", err)...)
			errs = multierr.Append(errs, &ModuleError{Module: w.desc.ID(), Op: op, Err: err})
		}
	}
	return errs
}

func (p *Provider) safely(ctx context.Context, w *Wrapper, op string, fn func(*Wrapper, context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s: %v", op, r)
		}
	}()
	return fn(w, ctx)
}

// StartAll starts every registered module.
func (p *Provider) StartAll(ctx context.Context) error {
	return p.each(ctx, "start", (*Wrapper).Start)
}

// StopAll stops every registered module.
func (p *Provider) StopAll(ctx context.Context) error {
	return p.each(ctx, "stop", (*Wrapper).Stop)
}

// UnloadAll unloads every registered module.
func (p *Provider) UnloadAll(ctx context.Context) error {
	return p.each(ctx, "unload", (*Wrapper).Unload)
}

// ReloadAll reloads every started, non-runtime module.
func (p *Provider) ReloadAll(ctx context.Context) error {
	return p.each(ctx, "reload", (*Wrapper).Reload)
}
