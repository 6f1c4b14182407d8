package modhost

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.uber.org/multierr"
)

type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// EventBus fans CloudEvents out to registered observers.
type EventBus struct {
	observers     map[string]*observerRegistration
	observerMutex sync.RWMutex
	logger        Logger
	wg            sync.WaitGroup
}

// NewEventBus creates an empty bus.
func NewEventBus(logger Logger) *EventBus {
	if logger == nil {
		logger = NopLogger()
	}
	return &EventBus{
		observers: make(map[string]*observerRegistration),
		logger:    logger,
	}
}

// RegisterObserver subscribes observer. With no eventTypes it receives everything.
func (b *EventBus) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}
	b.observerMutex.Lock()
	defer b.observerMutex.Unlock()

	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	b.observers[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   types,
		registeredAt: time.Now(),
	}
	b.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver is idempotent.
func (b *EventBus) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}
	b.observerMutex.Lock()
	defer b.observerMutex.Unlock()

	if _, exists := b.observers[observer.ObserverID()]; exists {
		delete(b.observers, observer.ObserverID())
		b.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
	}
	return nil
}

// interested returns the observers subscribed to eventType, ordered by id.
func (b *EventBus) interested(eventType string) []Observer {
	b.observerMutex.RLock()
	defer b.observerMutex.RUnlock()

	ids := make([]string, 0, len(b.observers))
	for id, reg := range b.observers {
		if len(reg.eventTypes) > 0 && !reg.eventTypes[eventType] {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Observer, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.observers[id].observer)
	}
	return out
}

func (b *EventBus) deliver(ctx context.Context, o Observer, event cloudevents.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Observer panicked", "observerID", o.ObserverID(), "event", event.Type(), "panic", r)
			err = fmt.Errorf("observer %s panicked: %v", o.ObserverID(), r)
		}
	}()
	return o.OnEvent(ctx, event)
}

func (b *EventBus) prepare(event *cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(*event); err != nil {
		b.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}
	return nil
}

// NotifyObservers delivers event asynchronously. Observer errors and panics
// are logged.
func (b *EventBus) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if err := b.prepare(&event); err != nil {
		return err
	}
	for _, o := range b.interested(event.Type()) {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.deliver(ctx, o, event); err != nil {
				b.logger.Error("Observer error", "observerID", o.ObserverID(), "event", event.Type(), "error", err)
			}
		}()
	}
	return nil
}

// Dispatch delivers event synchronously, in observer id order, and returns
// the combined observer errors.
func (b *EventBus) Dispatch(ctx context.Context, event cloudevents.Event) error {
	if err := b.prepare(&event); err != nil {
		return err
	}
	var errs error
	for _, o := range b.interested(event.Type()) {
		if err := b.deliver(ctx, o, event); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("observer %s: %w", o.ObserverID(), err))
		}
	}
	return errs
}

// Wait blocks until every asynchronous delivery started so far has finished.
func (b *EventBus) Wait() {
	b.wg.Wait()
}

// GetObservers lists the registered observers.
func (b *EventBus) GetObservers() []ObserverInfo {
	b.observerMutex.RLock()
	defer b.observerMutex.RUnlock()

	info := make([]ObserverInfo, 0, len(b.observers))
	for _, reg := range b.observers {
		types := make([]string, 0, len(reg.eventTypes))
		for t := range reg.eventTypes {
			types = append(types, t)
		}
		slices.Sort(types)
		info = append(info, ObserverInfo{
			ID:           reg.observer.ObserverID(),
			EventTypes:   types,
			RegisteredAt: reg.registeredAt,
		})
	}
	slices.SortFunc(info, func(a, b ObserverInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return info
}
