package modhost

import (
	"context"
	"errors"
	"sync"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingObserver struct {
	id     string
	mu     sync.Mutex
	events []cloudevents.Event
	err    error
}

func (o *collectingObserver) OnEvent(_ context.Context, event cloudevents.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return o.err
}

func (o *collectingObserver) ObserverID() string { return o.id }

func (o *collectingObserver) types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type()
	}
	return out
}

func TestEventBusRegistration(t *testing.T) {
	bus := NewEventBus(nil)
	all := &collectingObserver{id: "all"}
	starts := &collectingObserver{id: "starts"}

	require.NoError(t, bus.RegisterObserver(all))
	require.NoError(t, bus.RegisterObserver(starts, EventTypeModulePostStart))
	assert.ErrorIs(t, bus.RegisterObserver(nil), ErrObserverNil)

	observers := bus.GetObservers()
	require.Len(t, observers, 2)
	assert.Equal(t, "all", observers[0].ID)
	assert.Equal(t, []string{EventTypeModulePostStart}, observers[1].EventTypes)

	ctx := context.Background()
	require.NoError(t, bus.NotifyObservers(ctx, NewCloudEvent(EventTypeModulePostLoad, "test", nil, nil)))
	require.NoError(t, bus.NotifyObservers(ctx, NewCloudEvent(EventTypeModulePostStart, "test", nil, nil)))
	bus.Wait()

	assert.ElementsMatch(t, []string{EventTypeModulePostLoad, EventTypeModulePostStart}, all.types())
	assert.Equal(t, []string{EventTypeModulePostStart}, starts.types())

	require.NoError(t, bus.UnregisterObserver(all))
	require.NoError(t, bus.UnregisterObserver(all))
	assert.Len(t, bus.GetObservers(), 1)
}

func TestEventBusDispatchCombinesErrors(t *testing.T) {
	bus := NewEventBus(nil)
	require.NoError(t, bus.RegisterObserver(&collectingObserver{id: "a", err: errBoom}))
	require.NoError(t, bus.RegisterObserver(NewFunctionalObserver("b", func(context.Context, cloudevents.Event) error {
		panic("observer exploded")
	})))
	ok := &collectingObserver{id: "c"}
	require.NoError(t, bus.RegisterObserver(ok))

	err := bus.Dispatch(context.Background(), NewCloudEvent(EventTypeModulePreStart, "test", nil, nil))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom))
	assert.Contains(t, err.Error(), "observer b panicked")
	assert.Len(t, ok.types(), 1, "later observers still run")
}

func TestEventBusRejectsInvalidEvents(t *testing.T) {
	bus := NewEventBus(nil)
	o := &collectingObserver{id: "o"}
	require.NoError(t, bus.RegisterObserver(o))

	invalid := cloudevents.NewEvent()
	assert.Error(t, bus.NotifyObservers(context.Background(), invalid))
	assert.Error(t, bus.Dispatch(context.Background(), invalid))
	bus.Wait()
	assert.Empty(t, o.types())
}

func TestNewCloudEvent(t *testing.T) {
	event := NewCloudEvent(EventTypeModulePostLoad, "node-1", ModuleEventData{Module: "demo:core"}, map[string]any{"modulename": "core"})

	require.NoError(t, ValidateCloudEvent(event))
	assert.Equal(t, "node-1", event.Source())
	assert.Equal(t, cloudevents.VersionV1, event.SpecVersion())
	assert.Equal(t, "core", event.Extensions()["modulename"])
	assert.Len(t, event.ID(), 36)

	var data ModuleEventData
	require.NoError(t, event.DataAs(&data))
	assert.Equal(t, "demo:core", data.Module)
}
