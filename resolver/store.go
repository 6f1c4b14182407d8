package resolver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/GoCodeAlone/modhost/manifest"
)

// Store is the local artifact cache, laid out like a repository:
// <root>/<group path>/<name>/<version>/<name>-<version>.<ext>.
type Store struct {
	root string
}

// NewStore creates the cache root if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: cache directory is empty", ErrInvalidCacheConfig)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute cache directory.
func (s *Store) Root() string { return s.root }

// Path returns where dep is, or would be, stored.
func (s *Store) Path(dep manifest.Dependency) string {
	return filepath.Join(s.root, filepath.FromSlash(ArtifactPath(dep)))
}

// Has reports whether dep is cached.
func (s *Store) Has(dep manifest.Dependency) bool {
	info, err := os.Stat(s.Path(dep))
	return err == nil && info.Mode().IsRegular()
}

// Touch marks dep as used so Prune keeps it.
func (s *Store) Touch(dep manifest.Dependency) {
	now := time.Now()
	_ = os.Chtimes(s.Path(dep), now, now)
}

// Put writes r to the cache through a temporary file that is renamed into
// place, so readers never observe a partial artifact.
func (s *Store) Put(dep manifest.Dependency, r io.Reader) (string, error) {
	dst := s.Path(dep)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+dep.FileName()+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return dst, nil
}

// Prune removes cached artifacts not written or used within maxAge and
// returns how many were removed.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
