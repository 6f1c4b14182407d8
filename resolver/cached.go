package resolver

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/GoCodeAlone/modhost/manifest"
)

// Cached downloads each artifact once into a Store and resolves to the local
// path afterwards. Concurrent misses for the same artifact share one download.
type Cached struct {
	store   *Store
	fetcher ArtifactFetcher
	group   singleflight.Group
}

// NewCached creates the cached strategy.
func NewCached(store *Store, fetcher ArtifactFetcher) *Cached {
	return &Cached{store: store, fetcher: fetcher}
}

// Store returns the backing cache.
func (c *Cached) Store() *Store { return c.store }

func (c *Cached) ResolveURL(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency) (Location, error) {
	return c.resolve(ctx, desc, dep, dep.URL)
}

func (c *Cached) ResolveRepository(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency, repoBaseURL string) (Location, error) {
	return c.resolve(ctx, desc, dep, ArtifactURL(repoBaseURL, dep))
}

func (c *Cached) resolve(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency, remote string) (Location, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(desc, dep, err)
	}
	if c.store.Has(dep) {
		c.store.Touch(dep)
		return Location(c.store.Path(dep)), nil
	}

	v, err, _ := c.group.Do(c.store.Path(dep), func() (any, error) {
		if c.store.Has(dep) {
			return c.store.Path(dep), nil
		}
		artifact, err := c.fetcher.Fetch(ctx, remote)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", remote, err)
		}
		defer func() { _ = artifact.Body.Close() }()
		return c.store.Put(dep, artifact.Body)
	})
	if err != nil {
		return "", newError(desc, dep, err)
	}
	return Location(v.(string)), nil
}
