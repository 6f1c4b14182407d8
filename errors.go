package modhost

import (
	"errors"
	"fmt"

	"github.com/GoCodeAlone/modhost/manifest"
)

// Host errors
var (
	// Module construction errors
	ErrEntryPointNotFound = errors.New("entry point not registered")
	ErrEntryPointFailed   = errors.New("entry point failed")
	ErrEntryPointExists   = errors.New("entry point already registered")
	ErrNilInstance        = errors.New("entry point returned a nil instance")
	ErrEmptyLocation      = errors.New("module location is empty")

	// Lifecycle errors
	ErrPeerDependencyNotFound = errors.New("peer dependency not loaded")
	ErrModuleNotFound         = errors.New("module not found")
	ErrModuleUnusable         = errors.New("module is unusable")
	ErrHandlerPanic           = errors.New("handler panicked")

	// Event errors
	ErrVeto           = errors.New("transition vetoed")
	ErrObserverNil    = errors.New("observer is nil")
	ErrNoEventTargets = errors.New("event forwarder has no targets")

	// Config errors
	ErrConfigNil                  = errors.New("config is nil")
	ErrConfigNotPointer           = errors.New("config must be a pointer")
	ErrConfigNotStruct            = errors.New("config must be a struct")
	ErrConfigRequiredFieldMissing = errors.New("required field is missing")
	ErrConfigValidationFailed     = errors.New("config validation failed")
	ErrUnsupportedTypeForDefault  = errors.New("unsupported type for default value")
	ErrDefaultValueOverflows      = errors.New("default value overflows field")
	ErrIncompatibleFieldKind      = errors.New("incompatible field kind")
	ErrUnsupportedFormatType      = errors.New("unsupported format type")
	ErrConfigFeederError          = errors.New("config feeder error")
)

// ModuleError attributes a failure to exactly one module.
type ModuleError struct {
	Module string
	Op     string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: %s: %v", e.Module, e.Op, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}

// PeerNotFoundError is returned by Start when a peer dependency is not
// registered with the owning provider.
type PeerNotFoundError struct {
	Module string
	Peer   manifest.Dependency
}

func (e *PeerNotFoundError) Error() string {
	return fmt.Sprintf("%s: module %s requires %s:%s", ErrPeerDependencyNotFound.Error(), e.Module, e.Peer.Group, e.Peer.Name)
}

func (e *PeerNotFoundError) Unwrap() error {
	return ErrPeerDependencyNotFound
}
