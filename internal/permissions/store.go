// Package permissions persists per-extension permission decisions and
// resolves them against the risk-tier policy.
//
// Only explicit user overrides are stored; effective permissions are
// computed on demand from the override set plus tier defaults, keeping
// storage proportional to actual decisions rather than to declared
// permission lists.
package permissions

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/sitedeck/sitedeck/backend/internal/shared/types"
)

// Store holds the minimal override set, persisted as one JSON document.
type Store struct {
	mu     sync.RWMutex
	grants map[string]map[string]types.PermissionGrant // extension id → permission → grant
	policy *RiskPolicy
	path   string
}

// NewStore creates a store persisting to the given file, loading any
// existing overrides.
func NewStore(path string, policy *RiskPolicy) (*Store, error) {
	if policy == nil {
		policy = DefaultRiskPolicy()
	}
	s := &Store{
		grants: make(map[string]map[string]types.PermissionGrant),
		policy: policy,
		path:   path,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetGrant records an explicit allow/deny decision. Last write wins.
func (s *Store) SetGrant(extensionID, permission string, allowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPerm, ok := s.grants[extensionID]
	if !ok {
		byPerm = make(map[string]types.PermissionGrant)
		s.grants[extensionID] = byPerm
	}
	byPerm[permission] = types.PermissionGrant{
		ExtensionID: extensionID,
		Permission:  permission,
		Allowed:     allowed,
		UpdatedAt:   time.Now(),
	}

	return s.persistLocked()
}

// GetEffectivePermissions resolves each declared permission: explicit
// override if present, otherwise the risk-tier default.
func (s *Store) GetEffectivePermissions(extensionID string, declared []string) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	effective := make(map[string]bool, len(declared))
	overrides := s.grants[extensionID]
	for _, perm := range declared {
		if grant, ok := overrides[perm]; ok {
			effective[perm] = grant.Allowed
			continue
		}
		effective[perm] = s.policy.DefaultAllowed(perm)
	}
	return effective
}

// Grants returns the stored overrides for one extension.
func (s *Store) Grants(extensionID string) []types.PermissionGrant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPerm := s.grants[extensionID]
	grants := make([]types.PermissionGrant, 0, len(byPerm))
	for _, g := range byPerm {
		grants = append(grants, g)
	}
	return grants
}

// RemoveExtension drops every override for an extension. Called on
// uninstall so a reinstall starts from tier defaults again.
func (s *Store) RemoveExtension(extensionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.grants[extensionID]; !ok {
		return nil
	}
	delete(s.grants, extensionID)
	return s.persistLocked()
}

// Policy exposes the active risk policy.
func (s *Store) Policy() *RiskPolicy {
	return s.policy
}

// load reads the persisted override document if present.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read permission overrides: %w", err)
	}

	var flat []types.PermissionGrant
	if err := sonic.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("failed to parse permission overrides: %w", err)
	}

	for _, g := range flat {
		byPerm, ok := s.grants[g.ExtensionID]
		if !ok {
			byPerm = make(map[string]types.PermissionGrant)
			s.grants[g.ExtensionID] = byPerm
		}
		byPerm[g.Permission] = g
	}
	return nil
}

// persistLocked writes the full override set. Caller holds mu.
func (s *Store) persistLocked() error {
	var flat []types.PermissionGrant
	for _, byPerm := range s.grants {
		for _, g := range byPerm {
			flat = append(flat, g)
		}
	}

	data, err := sonic.Marshal(flat)
	if err != nil {
		return fmt.Errorf("failed to marshal permission overrides: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write permission overrides: %w", err)
	}
	return os.Rename(tmp, s.path)
}
