package archive

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestOpenCorrupt(t *testing.T) {
	_, err := Open([]byte("definitely not a zip"))
	assert.Equal(t, errs.KindCorruptArchive, errs.KindOf(err))
}

func TestListEntries(t *testing.T) {
	payload := buildZip(t, map[string]string{
		"manifest.json": `{"name":"x"}`,
		"bg/worker.js":  "console.log(1)",
	})

	r, err := Open(payload)
	require.NoError(t, err)

	entries := r.ListEntries()
	names := make(map[string]int64)
	for _, e := range entries {
		names[e.Name] = e.Size
	}

	assert.Len(t, entries, 2)
	assert.Equal(t, int64(12), names["manifest.json"])
	assert.Contains(t, names, "bg/worker.js")
}

func TestReadEntry(t *testing.T) {
	payload := buildZip(t, map[string]string{"manifest.json": `{"name":"x"}`})

	r, err := Open(payload)
	require.NoError(t, err)

	data, err := r.ReadEntry("manifest.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, string(data))
}

func TestReadEntryMissing(t *testing.T) {
	payload := buildZip(t, map[string]string{"manifest.json": "{}"})

	r, err := Open(payload)
	require.NoError(t, err)

	_, err = r.ReadEntry("icons/16.png")
	assert.Equal(t, errs.KindEntryNotFound, errs.KindOf(err))
}

// The reader must tolerate a payload that does not start at byte 0 of the
// original file, which is how container payloads arrive.
func TestOpenOffsetSlice(t *testing.T) {
	payload := buildZip(t, map[string]string{"manifest.json": "{}"})
	file := append(make([]byte, 64), payload...)

	r, err := Open(file[64:])
	require.NoError(t, err)
	assert.Len(t, r.ListEntries(), 1)
}
