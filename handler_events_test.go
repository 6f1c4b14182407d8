package modhost

import (
	"context"
	"fmt"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/modhost/manifest"
)

func TestEventHandlerPublishesLifecycle(t *testing.T) {
	bus := NewEventBus(nil)
	o := &collectingObserver{id: "audit"}
	require.NoError(t, bus.RegisterObserver(o))

	h := newTestHost(t, WithHandler(NewEventHandler(bus, "node-1", nil)))
	w := h.load(t, demoManifest("core"))
	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Unload(ctx))
	bus.Wait()

	assert.ElementsMatch(t, []string{
		EventTypeModulePreLoad, EventTypeModulePostLoad,
		EventTypeModulePreStart, EventTypeModulePostStart,
		EventTypeModulePreStop, EventTypeModulePostStop,
		EventTypeModulePreUnload, EventTypeModulePostUnload,
	}, o.types())

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.events {
		assert.Equal(t, "node-1", e.Source())
		assert.Equal(t, "core", e.Extensions()["modulename"])
		if e.Type() == EventTypeModulePostStart {
			var data ModuleEventData
			require.NoError(t, e.DataAs(&data))
			assert.Equal(t, StateStarted, data.State)
			assert.Equal(t, "demo:core", data.Module)
		}
	}
}

func TestEventHandlerObserverVeto(t *testing.T) {
	bus := NewEventBus(nil)
	require.NoError(t, bus.RegisterObserver(NewFunctionalObserver("gate", func(context.Context, cloudevents.Event) error {
		return fmt.Errorf("maintenance window: %w", ErrVeto)
	}), EventTypeModulePreStart))
	require.NoError(t, bus.RegisterObserver(NewFunctionalObserver("flaky", func(context.Context, cloudevents.Event) error {
		return errBoom
	}), EventTypeModulePreStop))

	logger := &recordingLogger{}
	h := newTestHost(t, WithHandler(NewEventHandler(bus, "", logger)))
	w := h.load(t, demoManifest("core"))
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	assert.Equal(t, StateLoaded, w.State())
	assert.True(t, logger.has("info", "Transition vetoed by observer"))

	require.NoError(t, w.Stop(ctx))
	assert.Equal(t, StateStopped, w.State(), "errors other than a veto do not block")
	assert.True(t, logger.has("warn", "Observer failed on pre-transition event"))
}

func TestEventHandlerDependencyEvents(t *testing.T) {
	bus := NewEventBus(nil)
	o := &collectingObserver{id: "deps"}
	require.NoError(t, bus.RegisterObserver(o, EventTypeDependencyPreInstall, EventTypeDependencyPostInstall))
	eh := NewEventHandler(bus, "node-1", nil)

	h := newTestHost(t)
	w := h.load(t, demoManifest("core"))
	d := manifest.Dependency{Repo: "maven", Group: "org.example", Name: "lib", Version: "1.0"}
	eh.PreInstallDependency(context.Background(), w.Descriptor(), d)
	eh.PostInstallDependency(context.Background(), w.Descriptor(), d, "https://repo.example.com/lib.jar")
	bus.Wait()

	require.Len(t, o.types(), 2)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.events {
		var data DependencyEventData
		require.NoError(t, e.DataAs(&data))
		assert.Equal(t, "demo:core", data.Module)
		assert.Equal(t, "org.example:lib:1.0", data.Dependency)
		assert.Equal(t, "repository", data.Kind)
		assert.Equal(t, "pkg:maven/org.example/lib@1.0", data.PackageURL)
		if e.Type() == EventTypeDependencyPostInstall {
			assert.Equal(t, "https://repo.example.com/lib.jar", data.Location)
		}
	}
}
