// Package manifest locates and validates the descriptor entry that every
// extension package must carry at its root.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/microcosm-cc/bluemonday"

	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
	"github.com/sitedeck/sitedeck/backend/internal/shared/types"
)

// FileName is the required descriptor entry at the package root.
// Exact path only; nested manifests are treated as absent.
const FileName = "manifest.json"

// Source supplies the raw manifest bytes from a package.
type Source interface {
	// ReadManifest returns the root manifest bytes, or a typed
	// ManifestNotFound error when the entry is absent.
	ReadManifest() ([]byte, error)
}

// ArchiveSource reads the manifest from an opened archive.
type ArchiveSource struct {
	Reader interface {
		ReadEntry(name string) ([]byte, error)
	}
}

func (s ArchiveSource) ReadManifest() ([]byte, error) {
	data, err := s.Reader.ReadEntry(FileName)
	if err != nil {
		if errs.Is(err, errs.KindEntryNotFound) {
			return nil, errs.Of(errs.KindManifestNotFound)
		}
		return nil, err
	}
	return data, nil
}

// DirSource reads the manifest from a loose directory package.
type DirSource struct {
	Dir string
}

func (s DirSource) ReadManifest() ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Of(errs.KindManifestNotFound)
		}
		return nil, errs.New(errs.KindManifestNotFound, "cannot read manifest: %v", err)
	}
	return data, nil
}

// rawManifest is the loose shape parsed before field validation.
// manifest_version and permissions stay untyped so malformed values can be
// distinguished from absent ones.
type rawManifest struct {
	Name            string      `json:"name"`
	Version         string      `json:"version"`
	ManifestVersion interface{} `json:"manifest_version"`
	Description     string      `json:"description"`
	Permissions     interface{} `json:"permissions"`
}

// sanitizer strips markup from manifest text destined for the display
// layer; extension authors control these strings.
var sanitizer = bluemonday.StrictPolicy()

// Validate reads and validates the manifest from a source.
//
// Field checks run in fixed order, first failure wins: name, version,
// manifest_version. Description and permissions are optional; permissions
// silently collapse to an empty set when absent or malformed.
func Validate(src Source) (*types.Manifest, error) {
	data, err := src.ReadManifest()
	if err != nil {
		return nil, err
	}

	var raw rawManifest
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errs.New(errs.KindManifestParseError, "invalid manifest: %v", err)
	}

	if strings.TrimSpace(raw.Name) == "" {
		return nil, errs.Of(errs.KindNameRequired)
	}
	if strings.TrimSpace(raw.Version) == "" {
		return nil, errs.Of(errs.KindVersionRequired)
	}

	mv, ok := intValue(raw.ManifestVersion)
	if !ok {
		return nil, errs.Of(errs.KindManifestVersionRequired)
	}

	return &types.Manifest{
		Name:            sanitizer.Sanitize(raw.Name),
		Version:         raw.Version,
		ManifestVersion: mv,
		Description:     sanitizer.Sanitize(raw.Description),
		Permissions:     permissionSet(raw.Permissions),
	}, nil
}

// intValue accepts an integer-valued manifest_version. JSON numbers decode
// as float64; non-integral values are rejected.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

// permissionSet extracts the declared permission strings, deduplicated in
// declaration order. Anything malformed degrades to empty, never an error.
func permissionSet(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return []string{}
	}

	seen := make(map[string]bool, len(list))
	perms := make([]string, 0, len(list))
	for _, item := range list {
		p, ok := item.(string)
		if !ok || p == "" || seen[p] {
			continue
		}
		seen[p] = true
		perms = append(perms, p)
	}
	return perms
}
