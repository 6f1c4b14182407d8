package modhost

import (
	"context"

	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/resolver"
)

// ProviderHandler observes every lifecycle transition of the modules of a
// Provider. PreLoad, PreStart and PreStop may veto their transition by
// returning false; every other method is a notification.
type ProviderHandler interface {
	PreLoad(ctx context.Context, w *Wrapper) bool
	PostLoad(ctx context.Context, w *Wrapper)

	PreStart(ctx context.Context, w *Wrapper) bool
	PostStart(ctx context.Context, w *Wrapper)

	PreStop(ctx context.Context, w *Wrapper) bool
	PostStop(ctx context.Context, w *Wrapper)

	PreUnload(ctx context.Context, w *Wrapper)
	PostUnload(ctx context.Context, w *Wrapper)

	// Dependency installation happens before the module is registered, so
	// these receive the descriptor rather than a Wrapper.
	PreInstallDependency(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency)
	PostInstallDependency(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency, loc resolver.Location)
}

// NopHandler allows every transition and ignores every notification.
// Embed it to implement only the methods you need.
type NopHandler struct{}

func (NopHandler) PreLoad(context.Context, *Wrapper) bool  { return true }
func (NopHandler) PostLoad(context.Context, *Wrapper)      {}
func (NopHandler) PreStart(context.Context, *Wrapper) bool { return true }
func (NopHandler) PostStart(context.Context, *Wrapper)     {}
func (NopHandler) PreStop(context.Context, *Wrapper) bool  { return true }
func (NopHandler) PostStop(context.Context, *Wrapper)      {}
func (NopHandler) PreUnload(context.Context, *Wrapper)     {}
func (NopHandler) PostUnload(context.Context, *Wrapper)    {}

func (NopHandler) PreInstallDependency(context.Context, *manifest.Descriptor, manifest.Dependency) {
}

func (NopHandler) PostInstallDependency(context.Context, *manifest.Descriptor, manifest.Dependency, resolver.Location) {
}

// LoggingHandler writes an audit line for every transition and allows all of them.
type LoggingHandler struct {
	Logger Logger
}

func (h LoggingHandler) log(msg string, w *Wrapper) {
	h.Logger.Info(msg, moduleAttrs(w, "state", w.State().String())...)
}

func (h LoggingHandler) PreLoad(_ context.Context, w *Wrapper) bool {
	h.log("Loading module", w)
	return true
}

func (h LoggingHandler) PostLoad(_ context.Context, w *Wrapper) { h.log("Module loaded", w) }

func (h LoggingHandler) PreStart(_ context.Context, w *Wrapper) bool {
	h.log("Starting module", w)
	return true
}

func (h LoggingHandler) PostStart(_ context.Context, w *Wrapper) { h.log("Module started", w) }

func (h LoggingHandler) PreStop(_ context.Context, w *Wrapper) bool {
	h.log("Stopping module", w)
	return true
}

func (h LoggingHandler) PostStop(_ context.Context, w *Wrapper)   { h.log("Module stopped", w) }
func (h LoggingHandler) PreUnload(_ context.Context, w *Wrapper)  { h.log("Unloading module", w) }
func (h LoggingHandler) PostUnload(_ context.Context, w *Wrapper) { h.log("Module unloaded", w) }

func (h LoggingHandler) PreInstallDependency(_ context.Context, desc *manifest.Descriptor, dep manifest.Dependency) {
	h.Logger.Info("Installing dependency", "module", desc.ID(), "dependency", dep.PackageURL())
}

func (h LoggingHandler) PostInstallDependency(_ context.Context, desc *manifest.Descriptor, dep manifest.Dependency, loc resolver.Location) {
	h.Logger.Info("Dependency installed", "module", desc.ID(), "dependency", dep.PackageURL(), "location", loc.String())
}

// HandlerChain notifies every member in order. A pre-transition call is
// vetoed when any member vetoes; all members are still asked.
type HandlerChain []ProviderHandler

func (c HandlerChain) all(fn func(h ProviderHandler) bool) bool {
	allowed := true
	for _, h := range c {
		if !fn(h) {
			allowed = false
		}
	}
	return allowed
}

func (c HandlerChain) each(fn func(h ProviderHandler)) {
	for _, h := range c {
		fn(h)
	}
}

func (c HandlerChain) PreLoad(ctx context.Context, w *Wrapper) bool {
	return c.all(func(h ProviderHandler) bool { return h.PreLoad(ctx, w) })
}

func (c HandlerChain) PostLoad(ctx context.Context, w *Wrapper) {
	c.each(func(h ProviderHandler) { h.PostLoad(ctx, w) })
}

func (c HandlerChain) PreStart(ctx context.Context, w *Wrapper) bool {
	return c.all(func(h ProviderHandler) bool { return h.PreStart(ctx, w) })
}

func (c HandlerChain) PostStart(ctx context.Context, w *Wrapper) {
	c.each(func(h ProviderHandler) { h.PostStart(ctx, w) })
}

func (c HandlerChain) PreStop(ctx context.Context, w *Wrapper) bool {
	return c.all(func(h ProviderHandler) bool { return h.PreStop(ctx, w) })
}

func (c HandlerChain) PostStop(ctx context.Context, w *Wrapper) {
	c.each(func(h ProviderHandler) { h.PostStop(ctx, w) })
}

func (c HandlerChain) PreUnload(ctx context.Context, w *Wrapper) {
	c.each(func(h ProviderHandler) { h.PreUnload(ctx, w) })
}

func (c HandlerChain) PostUnload(ctx context.Context, w *Wrapper) {
	c.each(func(h ProviderHandler) { h.PostUnload(ctx, w) })
}

func (c HandlerChain) PreInstallDependency(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency) {
	c.each(func(h ProviderHandler) { h.PreInstallDependency(ctx, desc, dep) })
}

func (c HandlerChain) PostInstallDependency(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency, loc resolver.Location) {
	c.each(func(h ProviderHandler) { h.PostInstallDependency(ctx, desc, dep, loc) })
}
