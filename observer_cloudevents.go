package modhost

import (
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/resolver"
)

// CloudEvent is an alias for the CloudEvents event type.
type CloudEvent = cloudevents.Event

// ModuleEventData is the payload of module lifecycle events.
type ModuleEventData struct {
	Module  string `json:"module"`
	Group   string `json:"group"`
	Name    string `json:"name"`
	Version string `json:"version"`
	State   State  `json:"state"`
	Source  string `json:"source"`
}

// DependencyEventData is the payload of dependency installation events.
type DependencyEventData struct {
	Module     string `json:"module"`
	Dependency string `json:"dependency"`
	PackageURL string `json:"purl"`
	Kind       string `json:"kind"`
	Location   string `json:"location,omitempty"`
}

// NewCloudEvent builds a CloudEvent with a UUIDv7 id and the current time.
func NewCloudEvent(eventType, source string, data any, metadata map[string]any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	for key, value := range metadata {
		event.SetExtension(key, value)
	}
	return event
}

func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// ValidateCloudEvent checks the event against the CloudEvents specification.
func ValidateCloudEvent(event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return nil
}

func newModuleEvent(eventType, source string, w *Wrapper) cloudevents.Event {
	d := w.Descriptor()
	return NewCloudEvent(eventType, source, ModuleEventData{
		Module:  d.ID(),
		Group:   d.Group,
		Name:    d.Name,
		Version: d.Version,
		State:   w.State(),
		Source:  w.Source(),
	}, map[string]any{"modulename": d.Name})
}

func newDependencyEvent(eventType, source string, desc *manifest.Descriptor, dep manifest.Dependency, loc resolver.Location) cloudevents.Event {
	return NewCloudEvent(eventType, source, DependencyEventData{
		Module:     desc.ID(),
		Dependency: dep.Coordinates(),
		PackageURL: dep.PackageURL(),
		Kind:       dep.Kind().String(),
		Location:   loc.String(),
	}, map[string]any{"modulename": desc.Name})
}
