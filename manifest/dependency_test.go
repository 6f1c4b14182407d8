package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDependencyKind(t *testing.T) {
	assert.Equal(t, KindURL, Dependency{URL: "https://example.com/a.jar"}.Kind())
	assert.Equal(t, KindRepository, Dependency{Repo: "maven"}.Kind())
	assert.Equal(t, KindPeer, Dependency{Group: "demo", Name: "core"}.Kind())
	assert.Equal(t, "repository", KindRepository.String())
}

func TestDependencyValidate(t *testing.T) {
	tests := []struct {
		name    string
		dep     Dependency
		wantErr bool
	}{
		{"repository", Dependency{Group: "g", Name: "n", Version: "1", Repo: "maven"}, false},
		{"url", Dependency{Group: "g", Name: "n", Version: "1", URL: "https://x/n.jar"}, false},
		{"peer", Dependency{Group: "g", Name: "n", Version: "1"}, false},
		{"missing version", Dependency{Group: "g", Name: "n"}, true},
		{"missing group", Dependency{Name: "n", Version: "1"}, true},
		{"both url and repo", Dependency{Group: "g", Name: "n", Version: "1", URL: "https://x", Repo: "maven"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dep.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDependency)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDependencyArtifactNaming(t *testing.T) {
	dep := Dependency{Group: "org.example", Name: "lib", Version: "2.1"}
	assert.Equal(t, "jar", dep.Ext())
	assert.Equal(t, "lib-2.1.jar", dep.FileName())

	dep.Extension = ".zip"
	assert.Equal(t, "zip", dep.Ext())
	assert.Equal(t, "lib-2.1.zip", dep.FileName())
	assert.Equal(t, "org.example:lib:2.1", dep.String())
}

func TestDependencyPackageURL(t *testing.T) {
	dep := Dependency{Group: "org.example", Name: "lib", Version: "2.1"}
	assert.Equal(t, "pkg:maven/org.example/lib@2.1", dep.PackageURL())
}

func TestDependencyMatches(t *testing.T) {
	dep := Dependency{Group: "demo", Name: "core", Version: "9"}
	assert.True(t, dep.Matches(&Descriptor{Group: "demo", Name: "core", Version: "1"}))
	assert.False(t, dep.Matches(&Descriptor{Group: "demo", Name: "other"}))
	assert.False(t, dep.Matches(nil))
}
