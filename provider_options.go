package modhost

import (
	"slices"

	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/namespace"
	"github.com/GoCodeAlone/modhost/resolver"
)

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithResolver sets the dependency resolution strategy.
func WithResolver(r resolver.Resolver) ProviderOption {
	return func(p *Provider) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithHandler sets the lifecycle handler.
func WithHandler(h ProviderHandler) ProviderOption {
	return func(p *Provider) {
		if h != nil {
			p.handler = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEntryPoints sets the entry point registry.
func WithEntryPoints(e *EntryPoints) ProviderOption {
	return func(p *Provider) {
		if e != nil {
			p.entryPoints = e
		}
	}
}

// WithModuleDir sets the directory under which default data directories live.
func WithModuleDir(dir string) ProviderOption {
	return func(p *Provider) {
		if dir != "" {
			p.moduleDir = dir
		}
	}
}

// WithDefaultRepositories replaces the default repository set. Modules can
// add repositories but never override these.
func WithDefaultRepositories(repos ...manifest.Repository) ProviderOption {
	return func(p *Provider) {
		p.defaultRepos = slices.Clone(repos)
	}
}

// WithSourceFetcher sets how remote module and dependency artifacts are read.
func WithSourceFetcher(fetch namespace.FetchFunc) ProviderOption {
	return func(p *Provider) {
		p.sourceFetch = fetch
	}
}
