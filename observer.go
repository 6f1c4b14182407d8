package modhost

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer receives lifecycle events published on an EventBus.
type Observer interface {
	// OnEvent handles one event. For pre-transition events, returning an
	// error that wraps ErrVeto cancels the transition.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID identifies the observer for registration tracking.
	ObserverID() string
}

// Subject is implemented by event emitters.
type Subject interface {
	// RegisterObserver subscribes observer to eventTypes, or to every event
	// when none are given. Registering the same ID again replaces it.
	RegisterObserver(observer Observer, eventTypes ...string) error
	UnregisterObserver(observer Observer) error
	NotifyObservers(ctx context.Context, event cloudevents.Event) error
	GetObservers() []ObserverInfo
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Event types emitted by EventHandler.
const (
	EventTypeModulePreLoad    = "com.modhost.module.load.pre"
	EventTypeModulePostLoad   = "com.modhost.module.load.post"
	EventTypeModulePreStart   = "com.modhost.module.start.pre"
	EventTypeModulePostStart  = "com.modhost.module.start.post"
	EventTypeModulePreStop    = "com.modhost.module.stop.pre"
	EventTypeModulePostStop   = "com.modhost.module.stop.post"
	EventTypeModulePreUnload  = "com.modhost.module.unload.pre"
	EventTypeModulePostUnload = "com.modhost.module.unload.post"

	EventTypeDependencyPreInstall  = "com.modhost.dependency.install.pre"
	EventTypeDependencyPostInstall = "com.modhost.dependency.install.post"
)

// FunctionalObserver adapts a function to Observer.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer backed by handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
