package manifest

import (
	"errors"
	"fmt"
)

// Manifest errors
var (
	ErrManifestNotFound   = errors.New("module manifest not found")
	ErrMissingField       = errors.New("required manifest field is missing")
	ErrInvalidDependency  = errors.New("invalid module dependency")
	ErrInvalidRepository  = errors.New("invalid module repository")
	ErrUnsupportedFormat  = errors.New("unsupported manifest format")
	ErrPropertyNotFound   = errors.New("module property not found")
	ErrPropertyTargetType = errors.New("property target must be a non-nil pointer")
)

// MissingFieldError reports the first required descriptor field that was empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField.Error(), e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}
