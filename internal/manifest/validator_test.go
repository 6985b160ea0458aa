package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
)

type fakeReader struct {
	entries map[string][]byte
}

func (f fakeReader) ReadEntry(name string) ([]byte, error) {
	if data, ok := f.entries[name]; ok {
		return data, nil
	}
	return nil, errs.New(errs.KindEntryNotFound, "no entry named %s", name)
}

func archiveWith(manifest string) Source {
	return ArchiveSource{Reader: fakeReader{entries: map[string][]byte{
		FileName: []byte(manifest),
	}}}
}

func TestValidateComplete(t *testing.T) {
	m, err := Validate(archiveWith(`{
		"name": "Shortcuts",
		"version": "1.4.2",
		"manifest_version": 3,
		"description": "Keyboard shortcuts",
		"permissions": ["tabs", "storage", "tabs"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Shortcuts", m.Name)
	assert.Equal(t, "1.4.2", m.Version)
	assert.Equal(t, 3, m.ManifestVersion)
	assert.Equal(t, []string{"tabs", "storage"}, m.Permissions)
}

func TestValidateMissingManifest(t *testing.T) {
	src := ArchiveSource{Reader: fakeReader{entries: map[string][]byte{}}}
	_, err := Validate(src)
	assert.Equal(t, errs.KindManifestNotFound, errs.KindOf(err))
}

func TestValidateParseError(t *testing.T) {
	_, err := Validate(archiveWith(`{"name": `))
	assert.Equal(t, errs.KindManifestParseError, errs.KindOf(err))
}

// Field validation order is fixed: a manifest missing everything reports
// the name first.
func TestValidateFieldOrder(t *testing.T) {
	_, err := Validate(archiveWith(`{}`))
	assert.Equal(t, errs.KindNameRequired, errs.KindOf(err))

	_, err = Validate(archiveWith(`{"name":"Foo"}`))
	assert.Equal(t, errs.KindVersionRequired, errs.KindOf(err))

	_, err = Validate(archiveWith(`{"name":"Foo","version":"1.0"}`))
	assert.Equal(t, errs.KindManifestVersionRequired, errs.KindOf(err))
}

func TestValidateBlankName(t *testing.T) {
	_, err := Validate(archiveWith(`{"name":"   ","version":"1.0","manifest_version":2}`))
	assert.Equal(t, errs.KindNameRequired, errs.KindOf(err))
}

func TestValidateManifestVersionNotInteger(t *testing.T) {
	for _, mv := range []string{`"3"`, `2.5`, `null`, `true`} {
		_, err := Validate(archiveWith(`{"name":"Foo","version":"1.0","manifest_version":` + mv + `}`))
		assert.Equal(t, errs.KindManifestVersionRequired, errs.KindOf(err), "manifest_version=%s", mv)
	}
}

func TestValidatePermissionsOptional(t *testing.T) {
	m, err := Validate(archiveWith(`{"name":"Foo","version":"1.0","manifest_version":2}`))
	require.NoError(t, err)
	assert.Empty(t, m.Permissions)

	// Malformed permissions degrade to empty, never fail validation.
	m, err = Validate(archiveWith(`{"name":"Foo","version":"1.0","manifest_version":2,"permissions":"tabs"}`))
	require.NoError(t, err)
	assert.Empty(t, m.Permissions)

	m, err = Validate(archiveWith(`{"name":"Foo","version":"1.0","manifest_version":2,"permissions":["tabs",7,""]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"tabs"}, m.Permissions)
}

func TestValidateStripsMarkup(t *testing.T) {
	m, err := Validate(archiveWith(`{
		"name": "<b>Bold</b> Name",
		"version": "1.0",
		"manifest_version": 2,
		"description": "<script>alert(1)</script>safe"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Bold Name", m.Name)
	assert.Equal(t, "safe", m.Description)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, FileName),
		[]byte(`{"name":"Local","version":"0.1","manifest_version":2}`),
		0o644,
	))

	m, err := Validate(DirSource{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "Local", m.Name)
}

func TestDirSourceMissing(t *testing.T) {
	_, err := Validate(DirSource{Dir: t.TempDir()})
	assert.Equal(t, errs.KindManifestNotFound, errs.KindOf(err))
}
