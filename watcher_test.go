package modhost

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/modhost/internal/testutil"
)

func startWatcher(t *testing.T, h *testHost, dir string) {
	t.Helper()
	w, err := NewDirectoryWatcher(h.provider, WatcherConfig{Dir: dir, Debounce: 20 * time.Millisecond, AutoStart: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func TestDirectoryWatcherLoadsAndUnloads(t *testing.T) {
	h := newTestHost(t)
	dir := t.TempDir()
	startWatcher(t, h, dir)

	archive := filepath.Join(dir, "core.zip")
	testutil.ModuleZip(t, archive, demoManifest("core"), nil)

	require.Eventually(t, func() bool {
		w := h.provider.Get("core")
		return w != nil && w.State() == StateStarted
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(archive))
	require.Eventually(t, func() bool { return h.provider.Get("core") == nil }, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, h.journal.list(), "core.unload")
}

func TestDirectoryWatcherPicksUpNewPackageDirectory(t *testing.T) {
	h := newTestHost(t)
	dir := t.TempDir()
	startWatcher(t, h, dir)

	pkg := filepath.Join(dir, "lib")
	require.NoError(t, os.Mkdir(pkg, 0o755))
	time.Sleep(50 * time.Millisecond)
	testutil.WriteFiles(t, pkg, map[string]string{"module.json": string(demoManifest("lib").JSON(t))})

	require.Eventually(t, func() bool { return h.provider.Get("lib") != nil }, 5*time.Second, 10*time.Millisecond)
}

func TestDirectoryWatcherRedeploysChangedArchive(t *testing.T) {
	h := newTestHost(t)
	dir := t.TempDir()
	archive := testutil.ModuleZip(t, filepath.Join(dir, "core.zip"), demoManifest("core"), nil)
	_, err := h.provider.Load(context.Background(), archive)
	require.NoError(t, err)
	first := h.provider.Get("core")
	startWatcher(t, h, dir)

	testutil.ModuleZip(t, archive, demoManifest("core").With("version", "2.0"), nil)

	require.Eventually(t, func() bool {
		w := h.provider.Get("core")
		return w != nil && w.Descriptor().Version == "2.0"
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateUnusable, first.State())
}

func TestDirectoryWatcherIgnoresHiddenAndInvalid(t *testing.T) {
	h := newTestHost(t)
	dir := t.TempDir()
	w, err := NewDirectoryWatcher(h.provider, WatcherConfig{Dir: dir, Ignore: []string{"scratch/**"}})
	require.NoError(t, err)
	defer func() { _ = w.fsw.Close() }()

	cases := map[string]bool{
		".core.zip.tmp":       false,
		"core.zip~":           false,
		"scratch/module.json": false,
		"core.zip":            true,
		"lib/module.json":     true,
	}
	for name, relevant := range cases {
		_, _, ok := w.classify(fsnotify.Event{Name: filepath.Join(dir, name), Op: fsnotify.Create})
		assert.Equal(t, relevant, ok, name)
	}

	_, err = NewDirectoryWatcher(h.provider, WatcherConfig{Dir: dir, Ignore: []string{"[unclosed"}})
	assert.Error(t, err)
}

func TestDirectoryWatcherRunOnce(t *testing.T) {
	h := newTestHost(t)
	w, err := NewDirectoryWatcher(h.provider, WatcherConfig{Dir: t.TempDir(), Lock: &sync.Mutex{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Error(t, w.Run(ctx))
}
