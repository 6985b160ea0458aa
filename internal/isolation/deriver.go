// Package isolation derives partition keys that scope storage, cookies and
// permissions for extensions and site tabs.
//
// Derivation is a pure function of (kind, scope id, policy). Two different
// scopes must never collide except under the explicit shared policy, where
// all scopes of a kind collapse to one well-known key.
package isolation

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sitedeck/sitedeck/backend/internal/shared/types"
)

// Kind prefixes keep extension and site partitions in disjoint namespaces.
const (
	extensionPrefix = "ext-"
	sitePrefix      = "site-"
)

// Well-known keys used under the shared policy.
const (
	SharedExtensionKey = "ext-shared"
	SharedSiteKey      = "site-shared"
)

// highIsolationSegment namespaces the high-isolation mode so its keys can
// never collide with standard per-origin keys for the same scope.
const highIsolationSegment = "hi-"

// Deriver computes partition keys under the configured policy.
type Deriver struct {
	policy   atomic.Value // types.IsolationPolicy
	revision atomic.Uint64
}

// NewDeriver creates a deriver with the given starting policy.
func NewDeriver(policy types.IsolationPolicy) *Deriver {
	d := &Deriver{}
	d.policy.Store(policy)
	d.revision.Store(1)
	return d
}

// Policy returns the active policy.
func (d *Deriver) Policy() types.IsolationPolicy {
	return d.policy.Load().(types.IsolationPolicy)
}

// Revision returns the current policy revision. Contexts derived under an
// older revision are stale and must be re-derived.
func (d *Deriver) Revision() uint64 {
	return d.revision.Load()
}

// SetPolicy switches the global policy and bumps the revision, invalidating
// every previously derived context.
func (d *Deriver) SetPolicy(policy types.IsolationPolicy) {
	if d.Policy() == policy {
		return
	}
	d.policy.Store(policy)
	d.revision.Add(1)
}

// Derive computes the partition context for a scope.
// The scope id is the extension id for extension scopes and the URL
// hostname for site scopes.
func (d *Deriver) Derive(kind types.ScopeKind, scopeID string) types.IsolationContext {
	policy := d.Policy()
	return types.IsolationContext{
		Key:            DeriveKey(kind, scopeID, policy),
		Kind:           kind,
		ScopeID:        scopeID,
		PolicyRevision: d.revision.Load(),
	}
}

// DeriveKey is the pure derivation: identical inputs always produce the
// identical key.
func DeriveKey(kind types.ScopeKind, scopeID string, policy types.IsolationPolicy) string {
	switch policy {
	case types.PolicyShared:
		if kind == types.ScopeSite {
			return SharedSiteKey
		}
		return SharedExtensionKey
	case types.PolicyPerOriginHighIsolation:
		return prefix(kind) + highIsolationSegment + Sanitize(scopeID)
	default: // PolicyPerOrigin
		return prefix(kind) + Sanitize(scopeID)
	}
}

func prefix(kind types.ScopeKind) string {
	if kind == types.ScopeSite {
		return sitePrefix
	}
	return extensionPrefix
}

// Sanitize strips characters outside [A-Za-z0-9-] so a hostile scope id
// cannot inject partition path components.
func Sanitize(scopeID string) string {
	var b strings.Builder
	b.Grow(len(scopeID))
	for _, r := range scopeID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParsePolicy validates a configured policy string.
func ParsePolicy(s string) (types.IsolationPolicy, error) {
	switch types.IsolationPolicy(s) {
	case types.PolicyShared, types.PolicyPerOrigin, types.PolicyPerOriginHighIsolation:
		return types.IsolationPolicy(s), nil
	}
	return "", fmt.Errorf("unknown isolation policy %q", s)
}
