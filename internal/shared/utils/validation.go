package utils

import (
	"fmt"
	"strings"
)

const (
	// MaxPathLength bounds user-supplied package paths
	MaxPathLength = 4096

	// MaxIDLength bounds extension ids arriving from the display layer
	MaxIDLength = 128

	// MaxScopeLength bounds partition scope ids (hostnames, extension ids)
	MaxScopeLength = 256

	// MaxPermissionLength bounds individual permission names
	MaxPermissionLength = 128

	// MaxPermissionsPerRequest bounds batch permission updates
	MaxPermissionsPerRequest = 100
)

// ValidateID checks an extension id from an untrusted request
func ValidateID(id, field string, required bool) error {
	if id == "" {
		if required {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%s exceeds maximum length of %d", field, MaxIDLength)
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return fmt.Errorf("%s contains invalid characters", field)
	}
	return nil
}

// ValidatePath checks a user-selected package path
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	if len(path) > MaxPathLength {
		return fmt.Errorf("path exceeds maximum length of %d", MaxPathLength)
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path contains invalid characters")
	}
	return nil
}

// ValidateScope checks a partition scope id
func ValidateScope(scope string) error {
	if scope == "" {
		return fmt.Errorf("scope is required")
	}
	if len(scope) > MaxScopeLength {
		return fmt.Errorf("scope exceeds maximum length of %d", MaxScopeLength)
	}
	return nil
}

// ValidatePermissions checks a batch of permission names
func ValidatePermissions(permissions []string) error {
	if len(permissions) == 0 {
		return fmt.Errorf("permissions list cannot be empty")
	}
	if len(permissions) > MaxPermissionsPerRequest {
		return fmt.Errorf("too many permissions in one request (max %d)", MaxPermissionsPerRequest)
	}
	for _, p := range permissions {
		if p == "" {
			return fmt.Errorf("permission name cannot be empty")
		}
		if len(p) > MaxPermissionLength {
			return fmt.Errorf("permission %q exceeds maximum length of %d", p, MaxPermissionLength)
		}
	}
	return nil
}
