package types

// ScopeKind distinguishes the two partitionable scope families.
type ScopeKind string

const (
	ScopeExtension ScopeKind = "extension"
	ScopeSite      ScopeKind = "site"
)

// IsolationPolicy is the globally configured partitioning strategy.
type IsolationPolicy string

const (
	// PolicyShared collapses all scopes of a kind into one well-known
	// partition. An explicit, user-controlled trade-off for workflows
	// that need cross-site state.
	PolicyShared IsolationPolicy = "shared"

	// PolicyPerOrigin gives each scope its own partition.
	PolicyPerOrigin IsolationPolicy = "per_origin"

	// PolicyPerOriginHighIsolation additionally namespaces the isolation
	// mode so keys from different modes never collide.
	PolicyPerOriginHighIsolation IsolationPolicy = "per_origin_high"
)

// IsolationContext is a derived sandbox boundary for storage and cookies.
// The key is a deterministic function of (kind, scope id, policy); the
// policy revision lets callers detect keys derived under a stale policy.
type IsolationContext struct {
	Key            string    `json:"key"`
	Kind           ScopeKind `json:"kind"`
	ScopeID        string    `json:"scope_id"`
	PolicyRevision uint64    `json:"policy_revision"`
}
