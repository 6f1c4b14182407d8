// Package resolver turns declared module dependencies into artifact locations.
//
// Two strategies are provided. Direct hands back remote URLs untouched, so the
// artifact is read from the network whenever a module opens it. Cached
// downloads each artifact once into a local Store and hands back the local
// path.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/GoCodeAlone/modhost/manifest"
)

// Location is where a resolved artifact can be opened: a local path or a URL.
type Location string

func (l Location) String() string { return string(l) }

// IsRemote reports whether the location is an http(s) URL.
func (l Location) IsRemote() bool {
	return strings.HasPrefix(string(l), "http://") || strings.HasPrefix(string(l), "https://")
}

// Resolver resolves URL and repository dependencies. Peer dependencies are
// never passed to a Resolver.
type Resolver interface {
	// ResolveURL resolves a dependency that declares an explicit url.
	ResolveURL(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency) (Location, error)
	// ResolveRepository resolves a dependency against the base URL of the
	// repository it names.
	ResolveRepository(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency, repoBaseURL string) (Location, error)
}

// ArtifactURL builds <base>/<group with dots as slashes>/<name>/<version>/<name>-<version>.<ext>.
func ArtifactURL(base string, dep manifest.Dependency) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + ArtifactPath(dep)
}

// ArtifactPath is the repository-relative path of a dependency artifact.
func ArtifactPath(dep manifest.Dependency) string {
	return strings.ReplaceAll(dep.Group, ".", "/") + "/" + dep.Name + "/" + dep.Version + "/" + dep.FileName()
}

// Resolve dispatches dep to r according to its kind. repos maps repository
// names to base URLs.
func Resolve(ctx context.Context, r Resolver, desc *manifest.Descriptor, dep manifest.Dependency, repos map[string]string) (Location, error) {
	switch dep.Kind() {
	case manifest.KindURL:
		return r.ResolveURL(ctx, desc, dep)
	case manifest.KindRepository:
		base, ok := repos[dep.Repo]
		if !ok {
			return "", newError(desc, dep, fmt.Errorf("%w: %q", ErrUnknownRepository, dep.Repo))
		}
		return r.ResolveRepository(ctx, desc, dep, base)
	default:
		return "", newError(desc, dep, fmt.Errorf("%w: %s", ErrUnsupportedKind, dep.Kind()))
	}
}

// Direct returns remote locations without downloading anything.
type Direct struct{}

// NewDirect creates the direct strategy.
func NewDirect() *Direct { return &Direct{} }

func (d *Direct) ResolveURL(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency) (Location, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(desc, dep, err)
	}
	return Location(dep.URL), nil
}

func (d *Direct) ResolveRepository(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency, repoBaseURL string) (Location, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(desc, dep, err)
	}
	return Location(ArtifactURL(repoBaseURL, dep)), nil
}
