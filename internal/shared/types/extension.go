package types

import "time"

// PackageKind declares how an installable package arrives on disk.
type PackageKind string

const (
	KindDirectory       PackageKind = "directory"
	KindArchive         PackageKind = "archive"
	KindSignedContainer PackageKind = "signed_container"
)

// ExtensionState represents extension lifecycle states
type ExtensionState string

const (
	StateInstalled ExtensionState = "installed"
	StateEnabled   ExtensionState = "enabled"
	StateDisabled  ExtensionState = "disabled"
	StateRemoved   ExtensionState = "removed"
)

// IsolationLevel selects how aggressively an extension is partitioned.
type IsolationLevel string

const (
	IsolationStandard IsolationLevel = "standard"
	IsolationHigh     IsolationLevel = "high"
	IsolationShared   IsolationLevel = "shared"
)

// Manifest is the descriptor declared by an extension package.
// Constructed once per validation and never mutated.
type Manifest struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	ManifestVersion int      `json:"manifest_version"`
	Description     string   `json:"description,omitempty"`
	Permissions     []string `json:"permissions"`
}

// ValidationResult is the outcome of validating a package.
// Either Valid is true and Manifest is set, or ErrorKind/Message describe
// the first failure.
type ValidationResult struct {
	Valid     bool      `json:"valid"`
	Manifest  *Manifest `json:"manifest,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`

	// Warnings carries non-fatal findings (e.g. an unknown container
	// version) that should be surfaced but do not block installation.
	Warnings []string `json:"warnings,omitempty"`
}

// ExtensionRecord describes an installed extension.
// Owned exclusively by the extension registry.
type ExtensionRecord struct {
	ID             string         `json:"id"`
	SourcePath     string         `json:"source_path,omitempty"`
	InstallPath    string         `json:"install_path"`
	Manifest       Manifest       `json:"manifest"`
	State          ExtensionState `json:"state"`
	Enabled        bool           `json:"enabled"`
	IsolationLevel IsolationLevel `json:"isolation_level"`
	PartitionKey   string         `json:"partition_key"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// PermissionGrant is an explicit per-extension permission override.
// Keyed by (extension id, permission); last write wins.
type PermissionGrant struct {
	ExtensionID string    `json:"extension_id"`
	Permission  string    `json:"permission"`
	Allowed     bool      `json:"allowed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RegistryStats contains extension registry statistics
type RegistryStats struct {
	TotalExtensions int        `json:"total_extensions"`
	Enabled         int        `json:"enabled"`
	Disabled        int        `json:"disabled"`
	LastUpdated     *time.Time `json:"last_updated,omitempty"`
}
