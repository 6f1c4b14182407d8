package modhost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ProviderHandler = NopHandler{}
	_ ProviderHandler = LoggingHandler{}
	_ ProviderHandler = HandlerChain{}
	_ ProviderHandler = (*EventHandler)(nil)
)

func TestHandlerChainAsksEveryMember(t *testing.T) {
	j := &journal{}
	first := &recordingHandler{journal: j, veto: map[string]bool{"preStart": true}}
	second := &recordingHandler{journal: j, veto: map[string]bool{}}

	h := newTestHost(t, WithHandler(HandlerChain{first, second}))
	w := h.load(t, demoManifest("core"))
	j.reset()

	require.NoError(t, w.Start(context.Background()))

	assert.Equal(t, StateLoaded, w.State())
	assert.Equal(t, []string{"handler.preStart core", "handler.preStart core"}, j.list())
}

func TestHandlerChainNotifiesInOrder(t *testing.T) {
	j := &journal{}
	logger := &recordingLogger{}
	chain := HandlerChain{LoggingHandler{Logger: logger}, &recordingHandler{journal: j, veto: map[string]bool{}}}

	h := newTestHost(t, WithHandler(chain))
	w := h.load(t, demoManifest("core"))
	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Unload(ctx))

	assert.Equal(t, []string{
		"handler.preLoad core", "handler.postLoad core",
		"handler.preStart core", "handler.postStart core",
		"handler.preStop core", "handler.postStop core",
		"handler.preUnload core", "handler.postUnload core",
	}, j.list())

	for _, msg := range []string{"Loading module", "Module loaded", "Starting module", "Module started", "Stopping module", "Module stopped", "Unloading module", "Module unloaded"} {
		assert.True(t, logger.has("info", msg), msg)
	}
	entry, ok := logger.find("info", "Module started")
	require.True(t, ok)
	assert.Equal(t, []any{"module", "demo:core", "group", "demo", "version", "1.0", "state", "STARTED"}, entry.Args)
}

func TestNopHandlerAllowsEverything(t *testing.T) {
	h := newTestHost(t, WithHandler(NopHandler{}))
	w := h.load(t, demoManifest("core"))
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	assert.Equal(t, StateStarted, w.State())
	require.NoError(t, w.Stop(ctx))
	assert.Equal(t, StateStopped, w.State())
}
