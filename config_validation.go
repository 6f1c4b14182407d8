package modhost

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

const (
	tagDefault  = "default"
	tagRequired = "required"
	tagDesc     = "desc"
)

var durationType = reflect.TypeOf(time.Duration(0))

// ConfigValidator is implemented by configuration structs that check
// themselves after defaults are applied.
type ConfigValidator interface {
	Validate() error
}

// ProcessConfigDefaults applies `default:"..."` tags to zero-valued fields of
// the struct cfg points to. Nested structs are walked; nil struct pointers
// are left alone. Slices take comma-separated defaults.
func ProcessConfigDefaults(cfg any) error {
	v, err := configStruct(cfg)
	if err != nil {
		return err
	}
	return processStructDefaults(v)
}

func configStruct(cfg any) (reflect.Value, error) {
	if cfg == nil {
		return reflect.Value{}, ErrConfigNil
	}
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return reflect.Value{}, ErrConfigNotPointer
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, ErrConfigNotStruct
	}
	return v, nil
}

func processStructDefaults(v reflect.Value) error {
	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := processStructDefaults(field); err != nil {
				return err
			}
			continue
		}
		if field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct {
			if !field.IsNil() {
				if err := processStructDefaults(field.Elem()); err != nil {
					return err
				}
			}
			continue
		}

		defaultVal, ok := fieldType.Tag.Lookup(tagDefault)
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefaultValue(field, defaultVal); err != nil {
			return fmt.Errorf("failed to set default value for %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

func setDefaultValue(field reflect.Value, defaultVal string) error {
	switch field.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		converted, err := castScalar(defaultVal, field.Type())
		if err != nil {
			return err
		}
		field.Set(converted)
		return nil
	case reflect.Slice:
		if defaultVal == "" {
			return nil
		}
		parts := strings.Split(defaultVal, ",")
		slice := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, part := range parts {
			elem, err := castScalar(strings.TrimSpace(part), field.Type().Elem())
			if err != nil {
				return err
			}
			slice = reflect.Append(slice, elem)
		}
		field.Set(slice)
		return nil
	case reflect.Map:
		m := reflect.New(field.Type())
		if err := json.Unmarshal([]byte(defaultVal), m.Interface()); err != nil {
			return fmt.Errorf("%w: map default must be JSON: %w", ErrIncompatibleFieldKind, err)
		}
		field.Set(m.Elem())
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedTypeForDefault, field.Kind())
	}
}

func castScalar(value string, typ reflect.Type) (reflect.Value, error) {
	out := reflect.New(typ).Elem()
	switch typ.Kind() {
	case reflect.String:
		out.SetString(value)
	case reflect.Bool:
		v, err := cast.FromType(value, reflect.TypeOf(false))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert %q to %s: %w", value, typ, err)
		}
		out.SetBool(reflect.ValueOf(v).Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if typ == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("invalid duration %q: %w", value, err)
			}
			out.SetInt(int64(d))
			break
		}
		v, err := cast.FromType(value, reflect.TypeOf(int64(0)))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert %q to %s: %w", value, typ, err)
		}
		n := reflect.ValueOf(v).Int()
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("%w: %q for %s", ErrDefaultValueOverflows, value, typ)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := cast.FromType(value, reflect.TypeOf(uint64(0)))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert %q to %s: %w", value, typ, err)
		}
		n := reflect.ValueOf(v).Uint()
		if out.OverflowUint(n) {
			return reflect.Value{}, fmt.Errorf("%w: %q for %s", ErrDefaultValueOverflows, value, typ)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		v, err := cast.FromType(value, reflect.TypeOf(float64(0)))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert %q to %s: %w", value, typ, err)
		}
		f := reflect.ValueOf(v).Float()
		if out.OverflowFloat(f) {
			return reflect.Value{}, fmt.Errorf("%w: %q for %s", ErrDefaultValueOverflows, value, typ)
		}
		out.SetFloat(f)
	default:
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnsupportedTypeForDefault, typ)
	}
	return out, nil
}

// ValidateConfigRequired reports every `required:"true"` field that is still
// zero, by dotted path.
func ValidateConfigRequired(cfg any) error {
	v, err := configStruct(cfg)
	if err != nil {
		return err
	}
	var missing []string
	validateRequiredFields(v, "", &missing)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigRequiredFieldMissing, strings.Join(missing, ", "))
	}
	return nil
}

func validateRequiredFields(v reflect.Value, prefix string, missing *[]string) {
	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}
		name := fieldType.Name
		if prefix != "" {
			name = prefix + "." + name
		}

		switch {
		case field.Kind() == reflect.Struct:
			validateRequiredFields(field, name, missing)
		case field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct:
			if !field.IsNil() {
				validateRequiredFields(field.Elem(), name, missing)
			} else if fieldType.Tag.Get(tagRequired) == "true" {
				*missing = append(*missing, name)
			}
		case fieldType.Tag.Get(tagRequired) == "true" && field.IsZero():
			*missing = append(*missing, name)
		}
	}
}

// ValidateConfig applies defaults, checks required fields and then calls
// Validate when cfg implements ConfigValidator.
func ValidateConfig(cfg any) error {
	if err := ProcessConfigDefaults(cfg); err != nil {
		return err
	}
	if err := ValidateConfigRequired(cfg); err != nil {
		return err
	}
	if v, ok := cfg.(ConfigValidator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrConfigValidationFailed, err)
		}
	}
	return nil
}

// GenerateSampleConfig renders cfg with its defaults applied as yaml, json
// or toml.
func GenerateSampleConfig(cfg any, format string) ([]byte, error) {
	if err := ProcessConfigDefaults(cfg); err != nil {
		return nil, err
	}
	switch format {
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	case "json":
		return json.MarshalIndent(cfg, "", "  ")
	case "toml":
		var b strings.Builder
		if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to encode toml: %w", err)
		}
		return []byte(b.String()), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormatType, format)
	}
}

// SaveSampleConfig writes GenerateSampleConfig output to path.
func SaveSampleConfig(cfg any, format, path string) error {
	data, err := GenerateSampleConfig(cfg, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ConfigFieldDoc describes one documented configuration field.
type ConfigFieldDoc struct {
	Path        string
	Default     string
	Required    bool
	Description string
}

// DescribeConfig lists the fields of cfg's struct type that carry a desc,
// default or required tag.
func DescribeConfig(cfg any) []ConfigFieldDoc {
	t := reflect.TypeOf(cfg)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var docs []ConfigFieldDoc
	describeFields(t, "", &docs)
	return docs
}

func describeFields(t reflect.Type, prefix string, docs *[]ConfigFieldDoc) {
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct && f.Type != durationType {
			describeFields(f.Type, name, docs)
			continue
		}
		def, hasDefault := f.Tag.Lookup(tagDefault)
		desc := f.Tag.Get(tagDesc)
		required := f.Tag.Get(tagRequired) == "true"
		if !hasDefault && desc == "" && !required {
			continue
		}
		*docs = append(*docs, ConfigFieldDoc{Path: name, Default: def, Required: required, Description: desc})
	}
}
