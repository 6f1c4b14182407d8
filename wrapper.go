package modhost

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/namespace"
	"github.com/GoCodeAlone/modhost/resolver"
)

// Wrapper owns one loaded module: its descriptor, namespace, live instance
// and lifecycle state. Wrappers are created by a Provider and belong to it.
//
// Transitions of a single Wrapper must not run concurrently; State and the
// accessors are safe to call at any time.
type Wrapper struct {
	provider *Provider
	source   string
	desc     *manifest.Descriptor
	deps     []resolver.Location
	ns       *namespace.Namespace
	instance any
	hooks    *HookRegistry
	dataDir  string

	state     atomic.Int32
	starting  atomic.Bool
	reloading atomic.Bool
	released  atomic.Bool
}

// WrapperInfo is a printable snapshot of a Wrapper.
type WrapperInfo struct {
	Group        string              `json:"group"`
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Main         string              `json:"main"`
	Description  string              `json:"description,omitempty"`
	Author       string              `json:"author,omitempty"`
	Website      string              `json:"website,omitempty"`
	State        State               `json:"state"`
	Source       string              `json:"source"`
	DataDir      string              `json:"dataDir"`
	Runtime      bool                `json:"runtimeModule"`
	Dependencies []string            `json:"dependencies,omitempty"`
	Peers        []string            `json:"peers,omitempty"`
	Exports      []string            `json:"exports,omitempty"`
	Hooks        int                 `json:"hooks"`
	Properties   manifest.Properties `json:"properties,omitempty"`
}

// newWrapper builds a module from location. Everything opened on the way is
// released again when a step fails or panics; a panic is returned as an error.
func newWrapper(ctx context.Context, p *Provider, location string) (w *Wrapper, err error) {
	var sources []namespace.Source
	var ns *namespace.Namespace
	defer func() {
		if r := recover(); r != nil {
			w = nil
			err = fmt.Errorf("%w: panic while building module: %v", ErrEntryPointFailed, r)
		}
		if err == nil {
			return
		}
		if ns != nil {
			_ = ns.Close()
			return
		}
		for _, src := range sources {
			_ = src.Close()
		}
	}()

	src, err := namespace.OpenSource(location, p.sourceFetch)
	if err != nil {
		return nil, err
	}
	sources = append(sources, src)

	desc, err := manifest.Read(src)
	if err != nil {
		return nil, err
	}

	repos := manifest.MergeRepositories(p.defaultRepos, desc.Repositories)
	var deps []resolver.Location
	for _, dep := range desc.Dependencies {
		if dep.Kind() == manifest.KindPeer {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.handler.PreInstallDependency(ctx, desc, dep)
		loc, err := resolver.Resolve(ctx, p.resolver, desc, dep, repos)
		if err != nil {
			return nil, err
		}
		p.handler.PostInstallDependency(ctx, desc, dep, loc)
		p.logger.Debug("Dependency installed", "module", desc.ID(), "dependency", dep.PackageURL(), "location", loc.String())

		depSrc, err := namespace.OpenSource(loc.String(), p.sourceFetch)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", dep.Coordinates(), err)
		}
		sources = append(sources, depSrc)
		deps = append(deps, loc)
	}

	ns = namespace.New(desc.ID(), sources...)
	p.namespaces.Add(ns)

	dataDir := desc.DataFolder
	if dataDir == "" {
		dataDir = filepath.Join(p.moduleDir, desc.Name)
	}

	w = &Wrapper{
		provider: p,
		source:   location,
		desc:     desc,
		deps:     deps,
		ns:       ns,
		dataDir:  dataDir,
	}
	w.state.Store(int32(StateUnloaded))

	instance, err := p.entryPoints.instantiate(&ModuleContext{
		Descriptor: desc,
		Namespace:  ns,
		DataDir:    dataDir,
		Logger:     p.logger,
		Provider:   p,
	})
	if err != nil {
		return nil, err
	}
	w.instance = instance
	w.hooks = NewHookRegistry(instance)
	return w, nil
}

// Descriptor returns the parsed manifest.
func (w *Wrapper) Descriptor() *manifest.Descriptor { return w.desc }

// State returns the current lifecycle state.
func (w *Wrapper) State() State { return State(w.state.Load()) }

// Source returns the normalized location the module was loaded from.
func (w *Wrapper) Source() string { return w.source }

// Instance returns the entry-point instance, or nil once the module is unusable.
func (w *Wrapper) Instance() any {
	if w.State() == StateUnusable {
		return nil
	}
	return w.instance
}

// Namespace returns the module namespace.
func (w *Wrapper) Namespace() *namespace.Namespace { return w.ns }

// Dependencies returns the resolved artifact locations in declaration order.
func (w *Wrapper) Dependencies() []resolver.Location { return slices.Clone(w.deps) }

// PeerDependencies returns the declared dependencies on other modules.
func (w *Wrapper) PeerDependencies() []manifest.Dependency { return w.desc.PeerDependencies() }

// Hooks returns the lifecycle hooks scanned from the instance.
func (w *Wrapper) Hooks() *HookRegistry { return w.hooks }

// DataDir returns the module data directory.
func (w *Wrapper) DataDir() string { return w.dataDir }

// Provider returns the owning provider.
func (w *Wrapper) Provider() *Provider { return w.provider }

// Info returns a snapshot. Properties are omitted for modules that store
// sensitive data.
func (w *Wrapper) Info() WrapperInfo {
	d := w.desc.Redacted()
	info := WrapperInfo{
		Group:       d.Group,
		Name:        d.Name,
		Version:     d.Version,
		Main:        d.Main,
		Description: d.Description,
		Author:      d.Author,
		Website:     d.Website,
		State:       w.State(),
		Source:      w.source,
		DataDir:     w.dataDir,
		Runtime:     d.RuntimeModule,
		Hooks:       w.hooks.Len(),
		Properties:  d.Properties,
	}
	for _, loc := range w.deps {
		info.Dependencies = append(info.Dependencies, loc.String())
	}
	for _, peer := range d.PeerDependencies() {
		info.Peers = append(info.Peers, peer.Coordinates())
	}
	if !w.ns.Closed() {
		info.Exports = w.ns.Exports()
	}
	return info
}

func (w *Wrapper) String() string {
	return fmt.Sprintf("%s (%s)", w.desc.Coordinates(), w.State())
}

func (w *Wrapper) setState(s State) {
	w.state.Store(int32(s))
}

func (w *Wrapper) logger() Logger { return w.provider.logger }

// allow asks the handler whether a transition may happen. A panicking
// handler counts as a veto.
func (w *Wrapper) allow(ctx context.Context, op string, fn func(context.Context, *Wrapper) bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger().Error("Handler panicked", moduleAttrs(w, "op", op, "error", fmt.Errorf("%w: %v", ErrHandlerPanic, r))...)
			ok = false
		}
	}()
	if fn(ctx, w) {
		return true
	}
	w.logger().Info("Transition vetoed", moduleAttrs(w, "op", op)...)
	return false
}

// notify delivers a notification to the handler, recovering panics.
func (w *Wrapper) notify(ctx context.Context, op string, fn func(context.Context, *Wrapper)) {
	defer func() {
		if r := recover(); r != nil {
			w.logger().Error("Handler panicked", moduleAttrs(w, "op", op, "error", fmt.Errorf("%w: %v", ErrHandlerPanic, r))...)
		}
	}()
	fn(ctx, w)
}

func (w *Wrapper) fire(ctx context.Context, phase State) {
	w.hooks.Fire(ctx, phase, w.logger(), moduleAttrs(w)...)
}

// Load moves an UNLOADED module to LOADED and fires its LOADED hooks. It is a
// no-op in any other state or when the handler vetoes.
func (w *Wrapper) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.State() != StateUnloaded {
		return nil
	}
	h := w.provider.handler
	if !w.allow(ctx, "load", h.PreLoad) {
		return nil
	}
	w.fire(ctx, StateLoaded)
	w.setState(StateLoaded)
	w.notify(ctx, "load", h.PostLoad)
	w.logger().Info("Module loaded", moduleAttrs(w)...)
	return nil
}

// Start moves a LOADED or STOPPED module to STARTED, loading it first when
// needed. Peer dependencies are started before the module's own hooks fire.
// A missing peer leaves the state unchanged and returns a *PeerNotFoundError.
func (w *Wrapper) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.State() == StateUnloaded {
		if err := w.Load(ctx); err != nil {
			return err
		}
	}
	if s := w.State(); s != StateLoaded && s != StateStopped {
		return nil
	}
	// A start already in progress further up the call stack means a peer cycle.
	if !w.starting.CompareAndSwap(false, true) {
		return nil
	}
	defer w.starting.Store(false)

	h := w.provider.handler
	if !w.allow(ctx, "start", h.PreStart) {
		return nil
	}

	for _, peer := range w.desc.PeerDependencies() {
		pw := w.provider.Find(peer.Group, peer.Name)
		if pw == nil {
			err := &PeerNotFoundError{Module: w.desc.ID(), Peer: peer}
			w.logger().Error("Peer dependency not found", moduleAttrs(w, "peer", peer.Group+":"+peer.Name)...)
			return err
		}
		if err := pw.Start(ctx); err != nil {
			return fmt.Errorf("start peer %s of %s: %w", pw.desc.ID(), w.desc.ID(), err)
		}
	}

	w.fire(ctx, StateStarted)
	w.setState(StateStarted)
	w.notify(ctx, "start", h.PostStart)
	w.logger().Info("Module started", moduleAttrs(w)...)
	return nil
}

// Stop moves a STARTED or LOADED module to STOPPED.
func (w *Wrapper) Stop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s := w.State(); s != StateStarted && s != StateLoaded {
		return nil
	}
	h := w.provider.handler
	if !w.allow(ctx, "stop", h.PreStop) {
		return nil
	}
	w.fire(ctx, StateStopped)
	w.setState(StateStopped)
	w.notify(ctx, "stop", h.PostStop)
	w.logger().Info("Module stopped", moduleAttrs(w)...)
	return nil
}

// Unload stops the module if needed, fires its UNLOADED hooks, marks it
// UNUSABLE, removes it from the provider and releases its namespace. The
// handler cannot veto an unload.
func (w *Wrapper) Unload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.State() == StateUnusable {
		return nil
	}
	if s := w.State(); s == StateStarted || s == StateLoaded {
		if err := w.Stop(ctx); err != nil {
			return err
		}
	}

	h := w.provider.handler
	w.notify(ctx, "unload", h.PreUnload)
	w.fire(ctx, StateUnloaded)
	w.setState(StateUnusable)
	w.provider.unregister(w)
	if err := w.release(); err != nil {
		w.logger().Warn("Failed to release module resources", moduleAttrs(w, "error", err)...)
	}
	w.notify(ctx, "unload", h.PostUnload)
	w.logger().Info("Module unloaded", moduleAttrs(w)...)
	return nil
}

// release closes the instance and the namespace exactly once.
func (w *Wrapper) release() error {
	if !w.released.CompareAndSwap(false, true) {
		return nil
	}
	var errs error
	if c, ok := w.instance.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close instance: %w", err))
		}
	}
	if err := w.ns.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("close namespace: %w", err))
	}
	return errs
}

// Reload restarts a STARTED module, reloading its started peers first.
// Runtime modules are never reloaded.
func (w *Wrapper) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.desc.RuntimeModule {
		w.logger().Debug("Runtime module is not reloadable", moduleAttrs(w)...)
		return nil
	}
	if w.State() != StateStarted {
		return nil
	}
	if !w.reloading.CompareAndSwap(false, true) {
		return nil
	}
	defer w.reloading.Store(false)

	for _, peer := range w.desc.PeerDependencies() {
		if pw := w.provider.Find(peer.Group, peer.Name); pw != nil {
			if err := pw.Reload(ctx); err != nil {
				return fmt.Errorf("reload peer %s of %s: %w", pw.desc.ID(), w.desc.ID(), err)
			}
		}
	}

	if err := w.Stop(ctx); err != nil {
		return err
	}
	if w.State() != StateStopped {
		return nil
	}
	w.logger().Info("Module reloading", moduleAttrs(w)...)
	return w.Start(ctx)
}
