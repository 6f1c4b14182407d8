package manifest

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"

	"github.com/golobby/cast"
)

// Properties is the opaque key/value bag of a descriptor.
type Properties map[string]any

// Get returns the raw value for key.
func (p Properties) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// String returns the value for key formatted as a string, or def when absent.
func (p Properties) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Decode stores the value for key into target, which must be a non-nil pointer.
// String values are converted to scalar targets (so "8080" decodes into an int);
// structured values are re-marshalled through JSON.
func (p Properties) Decode(key string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrPropertyTargetType
	}
	v, ok := p[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPropertyNotFound, key)
	}

	elem := rv.Elem()
	if s, isString := v.(string); isString && elem.Kind() != reflect.String {
		converted, err := cast.FromType(s, elem.Type())
		if err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
		elem.Set(reflect.ValueOf(converted))
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("property %s: failed to marshal value: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("property %s: failed to unmarshal value: %w", key, err)
	}
	return nil
}

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}
