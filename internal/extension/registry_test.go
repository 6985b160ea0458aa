package extension

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedeck/sitedeck/backend/internal/isolation"
	"github.com/sitedeck/sitedeck/backend/internal/permissions"
	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
	"github.com/sitedeck/sitedeck/backend/internal/shared/paths"
	"github.com/sitedeck/sitedeck/backend/internal/shared/types"
)

const testManifest = `{"name":"Clipper","version":"1.0","manifest_version":3,"permissions":["storage","tabs"]}`

type recordingEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEvents) Publish(eventType string, _ *types.ExtensionRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, eventType)
}

func (e *recordingEvents) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.events...)
}

func newTestRegistry(t *testing.T, policy types.IsolationPolicy) (*Registry, paths.Layout) {
	t.Helper()

	layout := paths.NewLayout(t.TempDir())
	perms, err := permissions.NewStore(layout.GrantsPath(), nil)
	require.NoError(t, err)

	reg, err := NewRegistry(layout, isolation.NewDeriver(policy), perms, nil)
	require.NoError(t, err)
	return reg, layout
}

func writePackage(t *testing.T, files map[string]string) string {
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

	path := filepath.Join(t.TempDir(), "pkg.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestInstallFromArchive(t *testing.T) {
	reg, _ := newTestRegistry(t, types.PolicyPerOrigin)
	pkg := writePackage(t, map[string]string{
		"manifest.json": testManifest,
		"bg/worker.js":  "void 0",
	})

	record, err := reg.Install(context.Background(), pkg, nil, false)
	require.NoError(t, err)

	assert.Equal(t, types.StateInstalled, record.State)
	assert.False(t, record.Enabled)
	assert.Equal(t, types.IsolationStandard, record.IsolationLevel)
	assert.NotEmpty(t, record.PartitionKey)

	// The managed copy exists and carries the package contents.
	data, err := os.ReadFile(filepath.Join(record.InstallPath, "manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, testManifest, string(data))

	_, err = os.Stat(filepath.Join(record.InstallPath, "bg", "worker.js"))
	assert.NoError(t, err)
}

func TestInstallFromDirectory(t *testing.T) {
	reg, _ := newTestRegistry(t, types.PolicyPerOrigin)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(testManifest), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "config"), []byte("x"), 0o644))

	record, err := reg.Install(context.Background(), dir, nil, true)
	require.NoError(t, err)

	assert.Equal(t, types.StateEnabled, record.State)
	assert.True(t, record.Enabled)

	// Ignored entries never reach the managed copy.
	_, err = os.Stat(filepath.Join(record.InstallPath, ".git"))
	assert.True(t, os.IsNotExist(err))
}

func TestInstallSignedContainer(t *testing.T) {
	reg, _ := newTestRegistry(t, types.PolicyPerOrigin)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("manifest.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(testManifest))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	header := make([]byte, 24)
	copy(header, "Cr24")
	binary.LittleEndian.PutUint32(header[4:], 3)
	binary.LittleEndian.PutUint32(header[8:], 4)
	binary.LittleEndian.PutUint32(header[12:], 4)

	path := filepath.Join(t.TempDir(), "pkg.crx")
	require.NoError(t, os.WriteFile(path, append(header, buf.Bytes()...), 0o644))

	record, err := reg.Install(context.Background(), path, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "Clipper", record.Manifest.Name)
}

func TestInstallRejectsDuplicate(t *testing.T) {
	reg, _ := newTestRegistry(t, types.PolicyPerOrigin)
	pkg := writePackage(t, map[string]string{"manifest.json": testManifest})

	_, err := reg.Install(context.Background(), pkg, nil, false)
	require.NoError(t, err)

	_, err = reg.Install(context.Background(), pkg, nil, false)
	assert.Equal(t, errs.KindAlreadyExists, errs.KindOf(err))
}

func TestInstallInvalidLeavesNothingBehind(t *testing.T) {
	reg, layout := newTestRegistry(t, types.PolicyPerOrigin)
	pkg := writePackage(t, map[string]string{"manifest.json": `{"name":"Foo"}`})

	_, err := reg.Install(context.Background(), pkg, nil, false)
	assert.Equal(t, errs.KindVersionRequired, errs.KindOf(err))

	entries, err := os.ReadDir(layout.ExtensionsDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, reg.List())
}

func TestSetEnabled(t *testing.T) {
	reg, _ := newTestRegistry(t, types.PolicyPerOrigin)
	pkg := writePackage(t, map[string]string{"manifest.json": testManifest})

	record, err := reg.Install(context.Background(), pkg, nil, false)
	require.NoError(t, err)

	updated, err := reg.SetEnabled(record.ID, true)
	require.NoError(t, err)
	assert.Equal(t, types.StateEnabled, updated.State)

	updated, err = reg.SetEnabled(record.ID, false)
	require.NoError(t, err)
	assert.Equal(t, types.StateDisabled, updated.State)

	// Disabling tears down nothing persistent.
	_, err = os.Stat(record.InstallPath)
	assert.NoError(t, err)

	_, err = reg.SetEnabled("missing", true)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestRemoveClearsEverything(t *testing.T) {
	reg, layout := newTestRegistry(t, types.PolicyPerOrigin)
	pkg := writePackage(t, map[string]string{"manifest.json": testManifest})

	record, err := reg.Install(context.Background(), pkg, nil, true)
	require.NoError(t, err)

	// Simulate partition data written by the browsing-context host.
	partDir := layout.PartitionDir(record.PartitionKey)
	require.NoError(t, os.MkdirAll(partDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(partDir, "Cookies"), []byte("c"), 0o644))

	_, _, err = reg.UpdatePermissions(record.ID, []string{"tabs"}, true)
	require.NoError(t, err)

	require.NoError(t, reg.Remove(record.ID))

	_, ok := reg.Get(record.ID)
	assert.False(t, ok)

	_, err = os.Stat(record.InstallPath)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(partDir)
	assert.True(t, os.IsNotExist(err), "partition data must be cleared on remove")

	_, err = os.Stat(layout.RecordPath(record.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveSharedPolicyKeepsPartition(t *testing.T) {
	reg, layout := newTestRegistry(t, types.PolicyShared)
	pkg := writePackage(t, map[string]string{"manifest.json": testManifest})

	record, err := reg.Install(context.Background(), pkg, nil, false)
	require.NoError(t, err)
	assert.Equal(t, types.IsolationShared, record.IsolationLevel)

	partDir := layout.PartitionDir(record.PartitionKey)
	require.NoError(t, os.MkdirAll(partDir, 0o755))

	require.NoError(t, reg.Remove(record.ID))

	_, err = os.Stat(partDir)
	assert.NoError(t, err, "shared partition data outlives any single extension")
}

func TestGetWithPermissions(t *testing.T) {
	reg, _ := newTestRegistry(t, types.PolicyPerOrigin)
	pkg := writePackage(t, map[string]string{"manifest.json": testManifest})

	record, err := reg.Install(context.Background(), pkg, nil, false)
	require.NoError(t, err)

	_, effective, err := reg.GetWithPermissions(record.ID)
	require.NoError(t, err)
	assert.True(t, effective["storage"], "low-risk permission defaults to allowed")
	assert.False(t, effective["tabs"], "ask-tier permission stays denied until granted")

	_, effective, err = reg.UpdatePermissions(record.ID, []string{"tabs"}, true)
	require.NoError(t, err)
	assert.True(t, effective["tabs"])
}

func TestRegistryReload(t *testing.T) {
	layout := paths.NewLayout(t.TempDir())
	perms, err := permissions.NewStore(layout.GrantsPath(), nil)
	require.NoError(t, err)

	reg, err := NewRegistry(layout, isolation.NewDeriver(types.PolicyPerOrigin), perms, nil)
	require.NoError(t, err)

	pkg := writePackage(t, map[string]string{"manifest.json": testManifest})
	record, err := reg.Install(context.Background(), pkg, nil, true)
	require.NoError(t, err)

	// A fresh registry over the same layout sees the install.
	reloaded, err := NewRegistry(layout, isolation.NewDeriver(types.PolicyPerOrigin), perms, nil)
	require.NoError(t, err)

	got, ok := reloaded.Get(record.ID)
	require.True(t, ok)
	assert.Equal(t, record.Manifest.Name, got.Manifest.Name)
	assert.True(t, got.Enabled)
}

func TestEventsPublished(t *testing.T) {
	reg, _ := newTestRegistry(t, types.PolicyPerOrigin)
	events := &recordingEvents{}
	reg.WithEvents(events)

	pkg := writePackage(t, map[string]string{"manifest.json": testManifest})
	record, err := reg.Install(context.Background(), pkg, nil, false)
	require.NoError(t, err)

	_, err = reg.SetEnabled(record.ID, true)
	require.NoError(t, err)
	require.NoError(t, reg.Remove(record.ID))

	assert.Equal(t, []string{"extension.installed", "extension.state", "extension.removed"}, events.all())
}

func TestStats(t *testing.T) {
	reg, _ := newTestRegistry(t, types.PolicyPerOrigin)

	pkg1 := writePackage(t, map[string]string{"manifest.json": testManifest})
	pkg2 := writePackage(t, map[string]string{
		"manifest.json": `{"name":"Other","version":"0.1","manifest_version":2}`,
	})

	_, err := reg.Install(context.Background(), pkg1, nil, true)
	require.NoError(t, err)
	_, err = reg.Install(context.Background(), pkg2, nil, false)
	require.NoError(t, err)

	stats := reg.Stats()
	assert.Equal(t, 2, stats.TotalExtensions)
	assert.Equal(t, 1, stats.Enabled)
	assert.Equal(t, 1, stats.Disabled)
	require.NotNil(t, stats.LastUpdated)
}

func TestSeeder(t *testing.T) {
	reg, _ := newTestRegistry(t, types.PolicyPerOrigin)

	bundled := t.TempDir()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("manifest.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(testManifest))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(bundled, "clipper.zip"), buf.Bytes(), 0o644))

	// A junk bundle must not break seeding.
	require.NoError(t, os.WriteFile(filepath.Join(bundled, "broken.crx"), []byte("junk"), 0o644))

	seeder := NewSeeder(reg, bundled, nil)
	require.NoError(t, seeder.Seed(context.Background()))

	records := reg.List()
	require.Len(t, records, 1)
	assert.False(t, records[0].Enabled, "seeded bundles install disabled")

	// Seeding again skips the already-installed bundle.
	require.NoError(t, seeder.Seed(context.Background()))
	assert.Len(t, reg.List(), 1)
}
