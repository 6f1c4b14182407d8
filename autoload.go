package modhost

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/namespace"
)

// IsModulePackage reports whether path is a directory with a manifest at its
// root or a .zip/.jar archive.
func IsModulePackage(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err := manifest.Find(os.DirFS(path))
		return err == nil
	}
	return info.Mode().IsRegular() && namespace.IsArchive(path)
}

// DiscoverModules lists the module packages directly inside dir in lexical order.
func DiscoverModules(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read module directory %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if IsModulePackage(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// LoadDirectory loads every module package inside dir. A module that fails
// does not prevent the others from loading; the failures are combined.
// A missing directory is created and yields no modules.
func (p *Provider) LoadDirectory(ctx context.Context, dir string) ([]*Wrapper, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create module directory %s: %w", dir, err)
		}
		return nil, nil
	}

	paths, err := DiscoverModules(dir)
	if err != nil {
		return nil, err
	}

	var loaded []*Wrapper
	var errs error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return loaded, multierr.Append(errs, err)
		}
		w, err := p.Load(ctx, path)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		if w != nil {
			loaded = append(loaded, w)
		}
	}
	p.logger.Info("Module directory loaded", "dir", dir, "modules", len(loaded))
	return loaded, errs
}
