package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies a manifest encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ManifestFiles lists the accepted manifest file names in lookup order.
var ManifestFiles = []string{"module.json", "module.yaml", "module.yml", "module.toml"}

// FormatFor returns the format implied by a file name's extension.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// Find returns the name of the first manifest file present at the root of fsys.
func Find(fsys fs.FS) (string, error) {
	for _, name := range ManifestFiles {
		if _, err := fs.Stat(fsys, name); err == nil {
			return name, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %s: %w", name, err)
		}
	}
	return "", ErrManifestNotFound
}

// Read locates, parses and validates the manifest at the root of fsys.
func Read(fsys fs.FS) (*Descriptor, error) {
	name, err := Find(fsys)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	format, err := FormatFor(name)
	if err != nil {
		return nil, err
	}
	desc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return desc, nil
}

// Parse decodes data in the given format and validates the result.
func Parse(data []byte, format Format) (*Descriptor, error) {
	desc := &Descriptor{}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, desc); err != nil {
			return nil, fmt.Errorf("failed to decode json manifest: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, desc); err != nil {
			return nil, fmt.Errorf("failed to decode yaml manifest: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), desc); err != nil {
			return nil, fmt.Errorf("failed to decode toml manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}
