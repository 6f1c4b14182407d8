package modhost

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/modhost/manifest"
)

const defaultWatchDebounce = 500 * time.Millisecond

// defaultWatchIgnores are never treated as module packages.
var defaultWatchIgnores = []string{
	"**/.*",
	"**/*~",
	"**/*.tmp",
	"**/*.swp",
}

// WatcherConfig configures a DirectoryWatcher.
type WatcherConfig struct {
	// Dir is the module directory to watch.
	Dir string
	// Debounce is the quiet period before changes are applied.
	Debounce time.Duration
	// Ignore holds extra doublestar patterns, relative to Dir.
	Ignore []string
	// AutoStart starts modules right after they are loaded.
	AutoStart bool
	// Lock serializes the watcher's transitions with other callers, such as
	// the admin API. Nil uses a private mutex.
	Lock sync.Locker
}

// DirectoryWatcher loads module packages dropped into a directory, unloads
// them when they disappear and redeploys them when an archive or manifest
// changes.
type DirectoryWatcher struct {
	provider *Provider
	cfg      WatcherConfig
	dir      string
	fsw      *fsnotify.Watcher
	ignores  []string
	lock     sync.Locker
	started  atomic.Bool
}

// NewDirectoryWatcher watches cfg.Dir and every package directory inside it.
func NewDirectoryWatcher(p *Provider, cfg WatcherConfig) (*DirectoryWatcher, error) {
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve module directory: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultWatchDebounce
	}
	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}
	lock := cfg.Lock
	if lock == nil {
		lock = &sync.Mutex{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w := &DirectoryWatcher{
		provider: p,
		cfg:      cfg,
		dir:      dir,
		fsw:      fsw,
		ignores:  append(slices.Clone(defaultWatchIgnores), cfg.Ignore...),
		lock:     lock,
	}

	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch: read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() && !w.ignored(e.Name()) {
			w.addDir(filepath.Join(dir, e.Name()))
		}
	}
	return w, nil
}

func (w *DirectoryWatcher) addDir(path string) {
	if err := w.fsw.Add(path); err != nil {
		w.provider.logger.Warn("Failed to watch module directory", "dir", path, "error", err)
	}
}

func (w *DirectoryWatcher) ignored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

// classify maps an event to the top-level package path it concerns and
// reports whether the package content changed.
func (w *DirectoryWatcher) classify(evt fsnotify.Event) (string, bool, bool) {
	rel, err := filepath.Rel(w.dir, evt.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false, false
	}
	if w.ignored(rel) {
		return "", false, false
	}
	top, rest, nested := strings.Cut(filepath.ToSlash(rel), "/")
	pkg := filepath.Join(w.dir, top)
	if !nested {
		changed := evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create)
		return pkg, changed && !isDir(pkg), true
	}
	changed := slices.Contains(manifest.ManifestFiles, rest)
	return pkg, changed, true
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Run processes filesystem events until ctx is cancelled. It may only be
// called once.
func (w *DirectoryWatcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]bool)
		timer   *time.Timer
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		mu.Lock()
		batch := maps.Clone(pending)
		clear(pending)
		mu.Unlock()

		for _, pkg := range slices.Sorted(maps.Keys(batch)) {
			w.apply(ctx, pkg, batch[pkg])
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		_ = w.fsw.Close()
	}()

	w.provider.logger.Info("Watching module directory", "dir", w.dir, "debounce", w.cfg.Debounce)
	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			pkg, changed, relevant := w.classify(evt)
			if !relevant {
				continue
			}
			if evt.Has(fsnotify.Create) && filepath.Dir(evt.Name) == w.dir && isDir(evt.Name) {
				w.addDir(evt.Name)
			}

			mu.Lock()
			pending[pkg] = pending[pkg] || changed
			if timer == nil {
				timer = time.AfterFunc(w.cfg.Debounce, fire)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			w.provider.logger.Warn("Module directory watch error", "dir", w.dir, "error", err)
		}
	}
}

// apply reconciles one package path with the provider.
func (w *DirectoryWatcher) apply(ctx context.Context, pkg string, changed bool) {
	w.lock.Lock()
	defer w.lock.Unlock()

	existing := w.provider.BySource(pkg)
	present := IsModulePackage(pkg)
	logger := w.provider.logger

	switch {
	case !present && existing != nil:
		logger.Info("Module package removed", "location", pkg)
		if err := existing.Unload(ctx); err != nil {
			logger.Error("Failed to unload removed module", "location", pkg, "error", err)
		}
	case present && existing == nil:
		w.load(ctx, pkg)
	case present && changed:
		logger.Info("Module package changed, redeploying", "location", pkg)
		if err := existing.Unload(ctx); err != nil {
			logger.Error("Failed to unload changed module", "location", pkg, "error", err)
			return
		}
		w.load(ctx, pkg)
	}
}

func (w *DirectoryWatcher) load(ctx context.Context, pkg string) {
	mod, err := w.provider.Load(ctx, pkg)
	if err != nil || mod == nil {
		return
	}
	if w.cfg.AutoStart {
		if err := mod.Start(ctx); err != nil {
			w.provider.logger.Error("Failed to start module", moduleAttrs(mod, "error", err)...)
		}
	}
}
