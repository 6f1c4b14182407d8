package namespace

import (
	"errors"
	"fmt"
	"io/fs"
)

// Namespace errors
var (
	ErrNotFound          = errors.New("not found in any active namespace")
	ErrClosed            = errors.New("namespace is closed")
	ErrTypeMismatch      = errors.New("exported symbol has a different type")
	ErrUnsupportedSource = errors.New("unsupported module source")
	ErrNoFetcher         = errors.New("remote source requires a fetch function")
	ErrEmptySymbolName   = errors.New("symbol name must not be empty")
)

// NotFoundError is returned when neither the namespace itself nor any other
// active namespace knows a symbol or resource. It matches both ErrNotFound and
// fs.ErrNotExist.
type NotFoundError struct {
	Namespace string
	Name      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q (requested by %s)", ErrNotFound.Error(), e.Name, e.Namespace)
}

func (e *NotFoundError) Unwrap() []error {
	return []error{ErrNotFound, fs.ErrNotExist}
}
