// Package types provides shared data structures for the SiteDeck backend.
//
// This package defines core types used across all backend components,
// ensuring type safety and consistent data structures.
//
// Core Types:
//   - Manifest: Extension descriptor declared by a package
//   - ValidationResult: Outcome of package validation
//   - ExtensionRecord: Installed extension and its lifecycle state
//   - IsolationContext: Derived storage/cookie partition for a scope
//   - PermissionGrant: Explicit per-extension permission override
//
// Request Types:
//   - ValidateRequest, InstallRequest: Package ingestion
//   - SetEnabledRequest, PermissionUpdateRequest: Extension mutations
//   - WSEvent: Registry event feed messages
//
// State Management:
//   - ExtensionState: Lifecycle enum (installed, enabled, disabled)
//   - RegistryStats: Registry statistics for the display layer
package types
