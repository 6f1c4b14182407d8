// Package testutil provides fixtures shared by the package tests: module
// package directories, zip archives and manifests.
package testutil

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// Manifest is a loosely typed manifest used to write fixtures, including
// invalid ones.
type Manifest map[string]any

// NewManifest returns a manifest with group, name, version and main set.
func NewManifest(group, name, version, main string) Manifest {
	return Manifest{"group": group, "name": name, "version": version, "main": main}
}

// With returns a copy of m with key set to value.
func (m Manifest) With(key string, value any) Manifest {
	c := make(Manifest, len(m)+1)
	for k, v := range m {
		c[k] = v
	}
	c[key] = value
	return c
}

// Without returns a copy of m without key.
func (m Manifest) Without(key string) Manifest {
	c := make(Manifest, len(m))
	for k, v := range m {
		if k != key {
			c[k] = v
		}
	}
	return c
}

// JSON encodes m.
func (m Manifest) JSON(t testing.TB) []byte {
	t.Helper()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		t.Fatalf("failed to encode manifest: %v", err)
	}
	return data
}

// WriteFiles writes files relative to dir, creating parent directories.
func WriteFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}
}

// ModuleDir writes a module package directory named dirName under parent with
// module.json and the extra files, and returns its path.
func ModuleDir(t testing.TB, parent, dirName string, m Manifest, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(parent, dirName)
	all := map[string]string{"module.json": string(m.JSON(t))}
	for k, v := range files {
		all[k] = v
	}
	WriteFiles(t, dir, all)
	return dir
}

// Zip writes a zip archive at path containing files.
func Zip(t testing.TB, path string, files map[string]string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close %s: %v", path, err)
	}
	return path
}

// ZipBytes returns an in-memory zip archive containing files.
func ZipBytes(t testing.TB, files map[string]string) []byte {
	t.Helper()
	path := Zip(t, filepath.Join(t.TempDir(), "archive.zip"), files)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return data
}

// ModuleZip writes a module package archive with module.json and files.
func ModuleZip(t testing.TB, path string, m Manifest, files map[string]string) string {
	t.Helper()
	all := map[string]string{"module.json": string(m.JSON(t))}
	for k, v := range files {
		all[k] = v
	}
	return Zip(t, path, all)
}
