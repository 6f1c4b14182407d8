package modhost

import (
	"context"
	"errors"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/resolver"
)

// EventHandler publishes every transition on an EventBus. Pre-transition
// events are dispatched synchronously so an observer can veto by returning an
// error wrapping ErrVeto; other observer errors are logged only. Post events
// are delivered asynchronously.
type EventHandler struct {
	bus    *EventBus
	source string
	logger Logger
}

// NewEventHandler creates a handler publishing on bus with the given event source.
func NewEventHandler(bus *EventBus, source string, logger Logger) *EventHandler {
	if source == "" {
		source = "modhost"
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &EventHandler{bus: bus, source: source, logger: logger}
}

// Bus returns the underlying bus.
func (h *EventHandler) Bus() *EventBus { return h.bus }

func (h *EventHandler) pre(ctx context.Context, eventType string, w *Wrapper) bool {
	err := h.bus.Dispatch(ctx, newModuleEvent(eventType, h.source, w))
	if err == nil {
		return true
	}
	if errors.Is(err, ErrVeto) {
		h.logger.Info("Transition vetoed by observer", moduleAttrs(w, "event", eventType, "reason", err)...)
		return false
	}
	h.logger.Warn("Observer failed on pre-transition event", moduleAttrs(w, "event", eventType, "error", err)...)
	return true
}

func (h *EventHandler) post(ctx context.Context, event cloudevents.Event) {
	if err := h.bus.NotifyObservers(context.WithoutCancel(ctx), event); err != nil {
		h.logger.Error("Failed to publish event", "event", event.Type(), "error", err)
	}
}

func (h *EventHandler) PreLoad(ctx context.Context, w *Wrapper) bool {
	return h.pre(ctx, EventTypeModulePreLoad, w)
}

func (h *EventHandler) PostLoad(ctx context.Context, w *Wrapper) {
	h.post(ctx, newModuleEvent(EventTypeModulePostLoad, h.source, w))
}

func (h *EventHandler) PreStart(ctx context.Context, w *Wrapper) bool {
	return h.pre(ctx, EventTypeModulePreStart, w)
}

func (h *EventHandler) PostStart(ctx context.Context, w *Wrapper) {
	h.post(ctx, newModuleEvent(EventTypeModulePostStart, h.source, w))
}

func (h *EventHandler) PreStop(ctx context.Context, w *Wrapper) bool {
	return h.pre(ctx, EventTypeModulePreStop, w)
}

func (h *EventHandler) PostStop(ctx context.Context, w *Wrapper) {
	h.post(ctx, newModuleEvent(EventTypeModulePostStop, h.source, w))
}

func (h *EventHandler) PreUnload(ctx context.Context, w *Wrapper) {
	h.post(ctx, newModuleEvent(EventTypeModulePreUnload, h.source, w))
}

func (h *EventHandler) PostUnload(ctx context.Context, w *Wrapper) {
	h.post(ctx, newModuleEvent(EventTypeModulePostUnload, h.source, w))
}

func (h *EventHandler) PreInstallDependency(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency) {
	h.post(ctx, newDependencyEvent(EventTypeDependencyPreInstall, h.source, desc, dep, ""))
}

func (h *EventHandler) PostInstallDependency(ctx context.Context, desc *manifest.Descriptor, dep manifest.Dependency, loc resolver.Location) {
	h.post(ctx, newDependencyEvent(EventTypeDependencyPostInstall, h.source, desc, dep, loc))
}
