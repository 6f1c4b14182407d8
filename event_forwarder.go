package modhost

import (
	"context"
	"fmt"
	"slices"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"go.uber.org/multierr"
)

// PostTransitionEventTypes are the events worth replicating to other nodes.
var PostTransitionEventTypes = []string{
	EventTypeModulePostLoad,
	EventTypeModulePostStart,
	EventTypeModulePostStop,
	EventTypeModulePostUnload,
	EventTypeDependencyPostInstall,
}

// EventForwarder is an Observer that sends every event it receives to a fixed
// set of peer node endpoints over CloudEvents HTTP.
type EventForwarder struct {
	client  cloudevents.Client
	targets []string
	logger  Logger
}

// NewEventForwarder creates a forwarder. Extra options configure the HTTP
// protocol, e.g. cehttp.WithClient.
func NewEventForwarder(targets []string, logger Logger, opts ...cehttp.Option) (*EventForwarder, error) {
	if len(targets) == 0 {
		return nil, ErrNoEventTargets
	}
	if logger == nil {
		logger = NopLogger()
	}
	client, err := cloudevents.NewClientHTTP(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}
	return &EventForwarder{client: client, targets: slices.Clone(targets), logger: logger}, nil
}

func (f *EventForwarder) ObserverID() string { return "modhost.event-forwarder" }

// Targets returns the peer endpoints.
func (f *EventForwarder) Targets() []string { return slices.Clone(f.targets) }

// OnEvent sends event to every target and returns the combined failures.
func (f *EventForwarder) OnEvent(ctx context.Context, event cloudevents.Event) error {
	var errs error
	for _, target := range f.targets {
		result := f.client.Send(cloudevents.ContextWithTarget(ctx, target), event)
		if cloudevents.IsACK(result) {
			continue
		}
		f.logger.Warn("Failed to forward event", "target", target, "event", event.Type(), "error", result)
		errs = multierr.Append(errs, fmt.Errorf("forward %s to %s: %w", event.Type(), target, result))
	}
	return errs
}
