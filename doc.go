// Package modhost loads, isolates and drives the lifecycle of pluggable
// modules inside a long-running host process.
//
// A module is a package (a directory or a .zip/.jar archive) carrying a
// manifest. The Provider reads the manifest, resolves the declared artifact
// dependencies, builds a namespace for the module, instantiates its entry
// point and registers the resulting Wrapper. Every Wrapper then moves through
// a fixed state machine:
//
//	UNLOADED -> LOADED -> STARTED <-> STOPPED
//	    any non-terminal state -> UNUSABLE
//
// Transitions can be vetoed by a ProviderHandler and fire the lifecycle
// hooks the module declared, in descending order. A failing hook is logged
// and reported but never aborts a transition.
//
// Basic usage:
//
//	entries := modhost.NewEntryPoints()
//	entries.Register("demo.Core", func(mc *modhost.ModuleContext) (any, error) {
//		return &Core{}, nil
//	})
//
//	provider := modhost.NewProvider(
//		modhost.WithEntryPoints(entries),
//		modhost.WithLogger(slog.Default()),
//	)
//	w, err := provider.Load(ctx, "modules/core")
//	if err != nil {
//		return err
//	}
//	if err := w.Start(ctx); err != nil {
//		return err
//	}
package modhost
