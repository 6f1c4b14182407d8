// Package manifest parses and validates module descriptors.
//
// A module package carries a manifest at its root (module.json, or one of the
// YAML/TOML variants) describing its identity, its entry point and the
// dependencies that have to be resolved before the module can be instantiated.
package manifest

import (
	"fmt"
	"strings"
)

// Descriptor is the parsed manifest of a module. It is treated as immutable
// once Parse or Read returned it.
type Descriptor struct {
	Group       string `json:"group" yaml:"group" toml:"group"`
	Name        string `json:"name" yaml:"name" toml:"name"`
	Version     string `json:"version" yaml:"version" toml:"version"`
	Main        string `json:"main" yaml:"main" toml:"main"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty" toml:"author,omitempty"`
	Website     string `json:"website,omitempty" yaml:"website,omitempty" toml:"website,omitempty"`

	// DataFolder overrides the default data directory (<module dir>/<name>).
	DataFolder string `json:"dataFolder,omitempty" yaml:"dataFolder,omitempty" toml:"dataFolder,omitempty"`

	// RuntimeModule marks modules that cannot be reloaded while the host runs.
	RuntimeModule bool `json:"runtimeModule,omitempty" yaml:"runtimeModule,omitempty" toml:"runtimeModule,omitempty"`

	// StoresSensitiveData hides the module properties from dumps and the admin API.
	StoresSensitiveData bool `json:"storesSensitiveData,omitempty" yaml:"storesSensitiveData,omitempty" toml:"storesSensitiveData,omitempty"`

	Repositories []Repository `json:"repos,omitempty" yaml:"repos,omitempty" toml:"repos,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
	Properties   Properties   `json:"properties,omitempty" yaml:"properties,omitempty" toml:"properties,omitempty"`
}

// Validate checks the required identity fields in declaration order and the
// shape of every declared repository and dependency. The first problem found
// is returned; nothing else is inspected after it.
func (d *Descriptor) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"group", d.Group},
		{"name", d.Name},
		{"version", d.Version},
		{"main", d.Main},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &MissingFieldError{Field: r.field}
		}
	}

	for i, repo := range d.Repositories {
		if err := repo.Validate(); err != nil {
			return fmt.Errorf("repos[%d]: %w", i, err)
		}
	}
	for i, dep := range d.Dependencies {
		if err := dep.Validate(); err != nil {
			return fmt.Errorf("dependencies[%d]: %w", i, err)
		}
	}
	return nil
}

// ID returns the group:name identity used for peer lookups.
func (d *Descriptor) ID() string {
	return d.Group + ":" + d.Name
}

// Coordinates returns group:name:version.
func (d *Descriptor) Coordinates() string {
	return d.Group + ":" + d.Name + ":" + d.Version
}

// PeerDependencies returns the dependencies that refer to other modules.
func (d *Descriptor) PeerDependencies() []Dependency {
	var peers []Dependency
	for _, dep := range d.Dependencies {
		if dep.Kind() == KindPeer {
			peers = append(peers, dep)
		}
	}
	return peers
}

// Redacted returns a copy safe to print. Properties are dropped when the module
// declares that it stores sensitive data.
func (d *Descriptor) Redacted() *Descriptor {
	c := *d
	c.Repositories = append([]Repository(nil), d.Repositories...)
	c.Dependencies = append([]Dependency(nil), d.Dependencies...)
	if d.StoresSensitiveData {
		c.Properties = nil
	} else {
		c.Properties = d.Properties.Clone()
	}
	return &c
}
