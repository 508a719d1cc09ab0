package kernelrt

import (
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/rule"
)

// registerDefaultRuleSets publishes the attention tier ladder under the
// ("attention", "tier_ladder") namespace so a caller can introspect or
// override it via rule.LookupSet without reaching into the selector
// package's unexported rule set. The selector itself still evaluates
// its own copy directly; this registry entry is the namespaced,
// externally-visible mirror spec §4.C's rule registry calls for.
func registerDefaultRuleSets(r *rule.Registry) {
	rule.RegisterSet(r, "attention", "tier_ladder", rule.Set[plan.Tier]{
		{Match: map[string]any{"can_subgroup": true}, Value: plan.TierSubgroup},
		{Match: map[string]any{"can_large": true}, Value: plan.TierTiledLarge},
		{Match: map[string]any{"can_small": true}, Value: plan.TierTiledSmall},
		{Match: map[string]any{}, Value: plan.TierStreaming},
	})
}
