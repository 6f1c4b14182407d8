package manifest

import (
	"fmt"
	"strings"

	packageurl "github.com/package-url/packageurl-go"
)

// DefaultExtension is the artifact extension used when a dependency does not declare one.
const DefaultExtension = "jar"

// DependencyKind tells how a dependency is resolved.
type DependencyKind int

const (
	// KindPeer refers to another module that must already be registered.
	KindPeer DependencyKind = iota
	// KindURL points at an explicit artifact location.
	KindURL
	// KindRepository is resolved against a named repository.
	KindRepository
)

func (k DependencyKind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindRepository:
		return "repository"
	default:
		return "peer"
	}
}

// Dependency is one entry of a descriptor's dependency list.
type Dependency struct {
	Group     string `json:"group" yaml:"group" toml:"group"`
	Name      string `json:"name" yaml:"name" toml:"name"`
	Version   string `json:"version" yaml:"version" toml:"version"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
	Repo      string `json:"repo,omitempty" yaml:"repo,omitempty" toml:"repo,omitempty"`
	Extension string `json:"extension,omitempty" yaml:"extension,omitempty" toml:"extension,omitempty"`
}

// Kind reports how the dependency is resolved.
func (d Dependency) Kind() DependencyKind {
	switch {
	case d.URL != "":
		return KindURL
	case d.Repo != "":
		return KindRepository
	default:
		return KindPeer
	}
}

// Validate checks the identity fields and that at most one source is declared.
func (d Dependency) Validate() error {
	if d.Group == "" || d.Name == "" || d.Version == "" {
		return fmt.Errorf("%w: group, name and version are required (got %q)", ErrInvalidDependency, d.Coordinates())
	}
	if d.URL != "" && d.Repo != "" {
		return fmt.Errorf("%w: %s declares both url and repo", ErrInvalidDependency, d.Coordinates())
	}
	return nil
}

// Ext returns the artifact extension without a leading dot.
func (d Dependency) Ext() string {
	ext := strings.TrimPrefix(d.Extension, ".")
	if ext == "" {
		return DefaultExtension
	}
	return ext
}

// FileName returns name-version.ext.
func (d Dependency) FileName() string {
	return d.Name + "-" + d.Version + "." + d.Ext()
}

// Coordinates returns group:name:version.
func (d Dependency) Coordinates() string {
	return d.Group + ":" + d.Name + ":" + d.Version
}

// Matches reports whether a descriptor has the same group and name.
// Versions are opaque and ignored.
func (d Dependency) Matches(desc *Descriptor) bool {
	return desc != nil && desc.Group == d.Group && desc.Name == d.Name
}

// PackageURL renders the dependency as a package URL, e.g. pkg:maven/org.example/lib@1.0.
func (d Dependency) PackageURL() string {
	return packageurl.NewPackageURL(packageurl.TypeMaven, d.Group, d.Name, d.Version, nil, "").ToString()
}

func (d Dependency) String() string {
	return d.Coordinates()
}
