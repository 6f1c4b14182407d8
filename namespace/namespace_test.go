package namespace

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/modhost/internal/testutil"
)

type greeter interface{ Greet() string }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

func dirNamespace(t *testing.T, id string, files map[string]string) *Namespace {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, files)
	src, err := OpenSource(dir, nil)
	require.NoError(t, err)
	return New(id, src)
}

func TestLookupLocalFirst(t *testing.T) {
	set := NewSet()
	a := New("demo:a")
	b := New("demo:b")
	set.Add(a)
	set.Add(b)

	require.NoError(t, a.Export("Service", "from-a"))
	require.NoError(t, b.Export("Service", "from-b"))

	v, err := b.Lookup("Service")
	require.NoError(t, err)
	assert.Equal(t, "from-b", v)
}

func TestLookupFallsBackInRegistrationOrder(t *testing.T) {
	set := NewSet()
	a := New("demo:a")
	b := New("demo:b")
	c := New("demo:c")
	set.Add(a)
	set.Add(b)
	set.Add(c)

	require.NoError(t, b.Export("Shared", "from-b"))
	require.NoError(t, c.Export("Shared", "from-c"))

	v, err := a.Lookup("Shared")
	require.NoError(t, err)
	assert.Equal(t, "from-b", v)
}

func TestLookupNotFound(t *testing.T) {
	set := NewSet()
	a := New("demo:a")
	set.Add(a)

	_, err := a.Lookup("Missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Missing", nf.Name)
}

func TestLookupAs(t *testing.T) {
	set := NewSet()
	provider := New("demo:core")
	consumer := New("demo:consumer")
	set.Add(provider)
	set.Add(consumer)

	require.NoError(t, provider.Export("Greeter", englishGreeter{}))

	g, err := LookupAs[greeter](consumer, "Greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello", g.Greet())

	_, err = LookupAs[int](consumer, "Greeter")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestClosedNamespaceIsUnresolvable(t *testing.T) {
	set := NewSet()
	core := New("demo:core")
	other := New("demo:other")
	set.Add(core)
	set.Add(other)
	require.NoError(t, core.Export("Core", 1))

	_, err := other.Lookup("Core")
	require.NoError(t, err)

	require.NoError(t, core.Close())
	require.NoError(t, core.Close(), "close is idempotent")

	assert.Equal(t, 1, set.Len())
	_, err = other.Lookup("Core")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = core.Lookup("Core")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, core.Export("Core", 2), ErrClosed)
	assert.False(t, set.Add(core), "closed namespaces cannot rejoin a set")
}

func TestResourcesFollowLookupOrder(t *testing.T) {
	set := NewSet()
	a := dirNamespace(t, "demo:a", map[string]string{"a.txt": "A", "shared.txt": "shared-a"})
	b := dirNamespace(t, "demo:b", map[string]string{"b.txt": "B", "shared.txt": "shared-b"})
	set.Add(a)
	set.Add(b)

	data, err := a.ReadFile("b.txt")
	require.NoError(t, err)
	assert.Equal(t, "B", string(data))

	data, err = b.ReadFile("shared.txt")
	require.NoError(t, err)
	assert.Equal(t, "shared-b", string(data))

	_, err = a.ReadFile("none.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = a.Open("../escape")
	assert.ErrorIs(t, err, fs.ErrInvalid)

	require.NoError(t, b.Close())
	_, err = a.ReadFile("b.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMultipleSourcesSearchedInOrder(t *testing.T) {
	d1 := t.TempDir()
	d2 := t.TempDir()
	testutil.WriteFiles(t, d1, map[string]string{"x.txt": "first"})
	testutil.WriteFiles(t, d2, map[string]string{"x.txt": "second", "y.txt": "only-second"})
	s1, err := OpenSource(d1, nil)
	require.NoError(t, err)
	s2, err := OpenSource(d2, nil)
	require.NoError(t, err)

	ns := New("demo:multi", s1, s2)
	data, err := ns.ReadFile("x.txt")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	data, err = ns.ReadFile("y.txt")
	require.NoError(t, err)
	assert.Equal(t, "only-second", string(data))
	assert.Len(t, ns.Sources(), 2)
}

func TestReadFileThroughFS(t *testing.T) {
	ns := dirNamespace(t, "demo:fs", map[string]string{"conf/app.txt": "value"})

	data, err := fs.ReadFile(ns, "conf/app.txt")
	require.NoError(t, err)
	assert.Equal(t, "value", string(data))

	data, err = ns.ReadFile("conf/app.txt")
	require.NoError(t, err)
	assert.Equal(t, "value", string(data))

	_, err = fs.ReadFile(ns, "conf/missing.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestExportsSorted(t *testing.T) {
	ns := New("demo:a")
	require.NoError(t, ns.Export("b", 1))
	require.NoError(t, ns.Export("a", 2))
	assert.ErrorIs(t, ns.Export("", 3), ErrEmptySymbolName)
	assert.Equal(t, []string{"a", "b"}, ns.Exports())
}
