package paths

import (
	"fmt"
	"path/filepath"
)

// Storage subdirectories under the configured data root
const (
	// Extensions contains one managed directory per installed extension
	Extensions = "extensions"

	// Partitions contains per-partition persisted data (cookies, storage)
	Partitions = "partitions"

	// State contains registry records and permission overrides
	State = "state"
)

// Layout resolves paths under a single data root.
type Layout struct {
	Root string
}

// NewLayout creates a layout rooted at dataDir.
func NewLayout(dataDir string) Layout {
	return Layout{Root: dataDir}
}

// ExtensionsDir returns the directory holding managed extension copies
func (l Layout) ExtensionsDir() string {
	return filepath.Join(l.Root, Extensions)
}

// ExtensionDir returns the managed directory for one extension
func (l Layout) ExtensionDir(extID string) string {
	return filepath.Join(l.Root, Extensions, extID)
}

// PartitionsDir returns the directory holding partition data
func (l Layout) PartitionsDir() string {
	return filepath.Join(l.Root, Partitions)
}

// PartitionDir returns the persisted data directory for a partition key
func (l Layout) PartitionDir(key string) string {
	return filepath.Join(l.Root, Partitions, key)
}

// StateDir returns the directory holding registry and permission state
func (l Layout) StateDir() string {
	return filepath.Join(l.Root, State)
}

// RecordPath returns the persisted record file for an extension
func (l Layout) RecordPath(extID string) string {
	return filepath.Join(l.Root, State, extID+".json")
}

// GrantsPath returns the persisted permission override file
func (l Layout) GrantsPath() string {
	return filepath.Join(l.Root, State, "permissions.json")
}

// StandardDirectories returns all directories that should exist under the root
func (l Layout) StandardDirectories() []string {
	return []string{
		l.ExtensionsDir(),
		l.PartitionsDir(),
		l.StateDir(),
	}
}

// ValidateExtensionID checks if an extension ID is safe for path construction
func ValidateExtensionID(extID string) error {
	if extID == "" {
		return fmt.Errorf("extension ID cannot be empty")
	}
	if filepath.IsAbs(extID) {
		return fmt.Errorf("extension ID cannot be an absolute path")
	}
	if filepath.Clean(extID) != extID || filepath.Base(extID) != extID {
		return fmt.Errorf("extension ID contains invalid path components")
	}
	return nil
}
