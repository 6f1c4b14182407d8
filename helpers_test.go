package modhost

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/GoCodeAlone/modhost/internal/testutil"
	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/resolver"
)

const testEntryPoint = "test.Module"

type logEntry struct {
	Level string
	Msg   string
	Args  []any
}

// recordingLogger keeps every log call for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{Level: level, Msg: msg, Args: args})
}

func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.ContainsFunc(l.entries, func(e logEntry) bool {
		return e.Level == level && e.Msg == msg
	})
}

func (l *recordingLogger) find(level, msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Level == level && e.Msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

// journal is an ordered record of hook and handler calls.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.entries)
}

func (j *journal) reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

// testModule records its lifecycle hooks in a journal.
type testModule struct {
	name     string
	journal  *journal
	startErr error
	closed   atomic.Bool
}

func (m *testModule) OnLoad(context.Context) error {
	m.journal.add("%s.load", m.name)
	return nil
}

func (m *testModule) Start(context.Context) error {
	m.journal.add("%s.start", m.name)
	return m.startErr
}

func (m *testModule) Stop(context.Context) error {
	m.journal.add("%s.stop", m.name)
	return nil
}

func (m *testModule) OnUnload(context.Context) error {
	m.journal.add("%s.unload", m.name)
	return nil
}

func (m *testModule) Close() error {
	m.closed.Store(true)
	return nil
}

// recordingHandler records every handler call and vetoes the named
// transitions.
type recordingHandler struct {
	journal *journal
	veto    map[string]bool
}

func (h *recordingHandler) check(op string, w *Wrapper) bool {
	h.journal.add("handler.%s %s", op, w.Descriptor().Name)
	return !h.veto[op]
}

func (h *recordingHandler) PreLoad(_ context.Context, w *Wrapper) bool  { return h.check("preLoad", w) }
func (h *recordingHandler) PostLoad(_ context.Context, w *Wrapper)      { h.check("postLoad", w) }
func (h *recordingHandler) PreStart(_ context.Context, w *Wrapper) bool { return h.check("preStart", w) }
func (h *recordingHandler) PostStart(_ context.Context, w *Wrapper)     { h.check("postStart", w) }
func (h *recordingHandler) PreStop(_ context.Context, w *Wrapper) bool  { return h.check("preStop", w) }
func (h *recordingHandler) PostStop(_ context.Context, w *Wrapper)      { h.check("postStop", w) }
func (h *recordingHandler) PreUnload(_ context.Context, w *Wrapper)     { h.check("preUnload", w) }
func (h *recordingHandler) PostUnload(_ context.Context, w *Wrapper)    { h.check("postUnload", w) }

func (h *recordingHandler) PreInstallDependency(_ context.Context, desc *manifest.Descriptor, dep manifest.Dependency) {
	h.journal.add("handler.preInstall %s %s", desc.Name, dep.Name)
}

func (h *recordingHandler) PostInstallDependency(_ context.Context, desc *manifest.Descriptor, dep manifest.Dependency, loc resolver.Location) {
	h.journal.add("handler.postInstall %s %s", desc.Name, dep.Name)
}

type testHost struct {
	provider *Provider
	journal  *journal
	handler  *recordingHandler
	logger   *recordingLogger
	modules  map[string]*testModule
	dir      string
	mu       sync.Mutex
}

// newTestHost builds a provider whose test.Module entry point yields
// journaling testModules.
func newTestHost(t *testing.T, opts ...ProviderOption) *testHost {
	t.Helper()
	h := &testHost{
		journal: &journal{},
		logger:  &recordingLogger{},
		modules: make(map[string]*testModule),
		dir:     t.TempDir(),
	}
	h.handler = &recordingHandler{journal: h.journal, veto: map[string]bool{}}

	eps := NewEntryPoints()
	eps.MustRegister(testEntryPoint, func(mc *ModuleContext) (any, error) {
		m := &testModule{name: mc.Descriptor.Name, journal: h.journal}
		h.mu.Lock()
		h.modules[m.name] = m
		h.mu.Unlock()
		return m, nil
	})

	base := []ProviderOption{
		WithEntryPoints(eps),
		WithHandler(h.handler),
		WithLogger(h.logger),
		WithModuleDir(h.dir),
	}
	h.provider = NewProvider(append(base, opts...)...)
	t.Cleanup(func() { _ = h.provider.UnloadAll(context.Background()) })
	return h
}

func (h *testHost) module(name string) *testModule {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.modules[name]
}

// writeModule writes a module package directory and returns its path.
func (h *testHost) writeModule(t *testing.T, m testutil.Manifest, files map[string]string) string {
	t.Helper()
	return testutil.ModuleDir(t, h.dir, m["name"].(string), m, files)
}

// load writes and loads a module in one step.
func (h *testHost) load(t *testing.T, m testutil.Manifest) *Wrapper {
	t.Helper()
	w, err := h.provider.Load(context.Background(), h.writeModule(t, m, nil))
	if err != nil {
		t.Fatalf("failed to load %v: %v", m["name"], err)
	}
	if w == nil {
		t.Fatalf("load of %v returned no module", m["name"])
	}
	return w
}

func demoManifest(name string) testutil.Manifest {
	return testutil.NewManifest("demo", name, "1.0", testEntryPoint)
}

func peer(group, name string) map[string]any {
	return map[string]any{"group": group, "name": name, "version": "1.0"}
}

var errBoom = errors.New("boom")
