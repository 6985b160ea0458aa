package types

// ValidateRequest asks for pre-install validation of a user-selected path
type ValidateRequest struct {
	Path string `json:"path" binding:"required"`
	// Kind overrides input-kind inference when the picker already knows it
	Kind *PackageKind `json:"kind,omitempty"`
}

// InstallRequest installs a previously selectable package
type InstallRequest struct {
	Path   string       `json:"path" binding:"required"`
	Kind   *PackageKind `json:"kind,omitempty"`
	Enable bool         `json:"enable"`
}

// SetEnabledRequest toggles an installed extension
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// PermissionUpdateRequest records user decisions for a set of permissions
type PermissionUpdateRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
	Allowed     bool     `json:"allowed"`
}

// WSEvent is a registry event pushed to the display process
type WSEvent struct {
	Type      string      `json:"type"`
	Extension interface{} `json:"extension,omitempty"`
	Timestamp int64       `json:"timestamp"`
}
