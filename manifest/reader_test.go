package manifest

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonManifest = `{
  "group": "demo",
  "name": "core",
  "version": "1.0",
  "main": "demo.Core",
  "storesSensitiveData": true,
  "repos": [{"name": "internal", "url": "https://repo.example.com/"}],
  "dependencies": [
    {"repo": "maven", "group": "org.example", "name": "lib", "version": "2.1"},
    {"group": "demo", "name": "base", "version": "1.0"}
  ],
  "properties": {"port": "8080"}
}`

const yamlManifest = `
group: demo
name: core
version: "1.0"
main: demo.Core
dependencies:
  - url: https://example.com/lib.zip
    group: org.example
    name: lib
    version: "2.1"
    extension: zip
`

const tomlManifest = `
group = "demo"
name = "core"
version = "1.0"
main = "demo.Core"
runtimeModule = true

[[dependencies]]
repo = "maven"
group = "org.example"
name = "lib"
version = "2.1"

[properties]
motd = "hello"
`

func TestReadJSON(t *testing.T) {
	fsys := fstest.MapFS{"module.json": {Data: []byte(jsonManifest)}}

	desc, err := Read(fsys)
	require.NoError(t, err)
	assert.Equal(t, "demo:core:1.0", desc.Coordinates())
	assert.True(t, desc.StoresSensitiveData)
	require.Len(t, desc.Dependencies, 2)
	assert.Equal(t, KindRepository, desc.Dependencies[0].Kind())
	assert.Equal(t, KindPeer, desc.Dependencies[1].Kind())
	assert.Equal(t, "internal", desc.Repositories[0].Name)
	assert.Equal(t, "8080", desc.Properties["port"])
}

func TestReadYAML(t *testing.T) {
	fsys := fstest.MapFS{"module.yml": {Data: []byte(yamlManifest)}}

	desc, err := Read(fsys)
	require.NoError(t, err)
	require.Len(t, desc.Dependencies, 1)
	assert.Equal(t, KindURL, desc.Dependencies[0].Kind())
	assert.Equal(t, "lib-2.1.zip", desc.Dependencies[0].FileName())
}

func TestReadTOML(t *testing.T) {
	fsys := fstest.MapFS{"module.toml": {Data: []byte(tomlManifest)}}

	desc, err := Read(fsys)
	require.NoError(t, err)
	assert.True(t, desc.RuntimeModule)
	assert.Equal(t, "hello", desc.Properties.String("motd", ""))
	assert.Equal(t, "maven", desc.Dependencies[0].Repo)
}

func TestReadPrefersJSON(t *testing.T) {
	fsys := fstest.MapFS{
		"module.json": {Data: []byte(jsonManifest)},
		"module.yaml": {Data: []byte("group: other")},
	}
	name, err := Find(fsys)
	require.NoError(t, err)
	assert.Equal(t, "module.json", name)
}

func TestReadMissingManifest(t *testing.T) {
	_, err := Read(fstest.MapFS{"README.md": {Data: []byte("hi")}})
	assert.ErrorIs(t, err, ErrManifestNotFound)
}

func TestReadMissingMain(t *testing.T) {
	fsys := fstest.MapFS{"module.json": {Data: []byte(`{"group":"demo","name":"core","version":"1.0"}`)}}

	_, err := Read(fsys)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "main")
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("{not json"), FormatJSON)
	assert.Error(t, err)

	_, err = Parse([]byte("{}"), Format("xml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = FormatFor("module.xml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
