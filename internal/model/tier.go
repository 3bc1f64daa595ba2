package model

import "strings"

// Subscription tiers. Anything unrecognized canonicalizes to the base tier so
// rate quotas and cache keys never depend on free-form client input.
const (
	TierBase    = "base"
	TierPremium = "premium"
)

// CanonicalTier maps a caller-supplied tier label to a known tier.
func CanonicalTier(tier string) string {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "premium", "pro", "plus":
		return TierPremium
	default:
		return TierBase
	}
}
