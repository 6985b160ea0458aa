package permissions

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// RiskTier classifies a permission's default behavior when the user has
// not decided yet.
type RiskTier string

const (
	// TierLow permissions are allowed by default.
	TierLow RiskTier = "low"

	// TierAsk permissions stay denied until explicitly granted.
	TierAsk RiskTier = "ask"
)

// RiskPolicy maps permission names to tiers. Unlisted permissions fall
// back to the default tier.
type RiskPolicy struct {
	DefaultTier RiskTier            `yaml:"default_tier"`
	Tiers       map[string]RiskTier `yaml:"tiers"`
}

// DefaultRiskPolicy returns the compiled-in tier assignments.
func DefaultRiskPolicy() *RiskPolicy {
	return &RiskPolicy{
		DefaultTier: TierAsk,
		Tiers: map[string]RiskTier{
			"storage":       TierLow,
			"alarms":        TierLow,
			"idle":          TierLow,
			"notifications": TierLow,
			"contextMenus":  TierLow,
			"tabs":          TierAsk,
			"cookies":       TierAsk,
			"history":       TierAsk,
			"webRequest":    TierAsk,
			"downloads":     TierAsk,
			"<all_urls>":    TierAsk,
		},
	}
}

// LoadRiskPolicy reads a YAML risk-tier document, falling back to the
// compiled-in defaults when path is empty.
func LoadRiskPolicy(path string) (*RiskPolicy, error) {
	if path == "" {
		return DefaultRiskPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read risk policy: %w", err)
	}

	var policy RiskPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse risk policy: %w", err)
	}
	if policy.DefaultTier == "" {
		policy.DefaultTier = TierAsk
	}
	return &policy, nil
}

// TierOf returns the tier for a permission name.
func (p *RiskPolicy) TierOf(permission string) RiskTier {
	if tier, ok := p.Tiers[permission]; ok {
		return tier
	}
	return p.DefaultTier
}

// DefaultAllowed reports whether a permission is allowed absent an
// explicit user decision.
func (p *RiskPolicy) DefaultAllowed(permission string) bool {
	return p.TierOf(permission) == TierLow
}
