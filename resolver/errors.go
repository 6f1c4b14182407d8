package resolver

import (
	"errors"
	"fmt"

	"github.com/GoCodeAlone/modhost/manifest"
)

// Resolution errors
var (
	ErrResolution         = errors.New("dependency resolution failed")
	ErrUnknownRepository  = errors.New("unknown repository")
	ErrUnsupportedKind    = errors.New("dependency kind cannot be resolved to an artifact")
	ErrInvalidCacheConfig = errors.New("invalid cache configuration")
)

// Fetch errors
var (
	ErrNotFound     = errors.New("artifact not found")
	ErrRateLimited  = errors.New("rate limited by upstream")
	ErrUpstreamDown = errors.New("upstream repository unavailable")
)

// Error attributes a resolution failure to one dependency of one module.
type Error struct {
	Module     string
	Dependency manifest.Dependency
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: module %s dependency %s: %v", ErrResolution.Error(), e.Module, e.Dependency.Coordinates(), e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrResolution, e.Err}
}

func newError(desc *manifest.Descriptor, dep manifest.Dependency, err error) *Error {
	module := ""
	if desc != nil {
		module = desc.Coordinates()
	}
	return &Error{Module: module, Dependency: dep, Err: err}
}
