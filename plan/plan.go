// Package plan defines the KernelPlan value produced by a selector and
// consumed by the validator and dispatch wrapper (spec §3, §4.G, §4.H).
// A plan is a plain, immutable-by-convention data value: selectors build
// one, the validator stamps Validated true or returns an error, and
// dispatch reads it to resolve a pipeline and compute workgroup counts.
package plan

import "github.com/oxy-rt/kernelrt/tensor"

// Tier names the attention kernel's performance tier ladder (spec
// §4.G.1). Other operator families that don't tier-ladder leave Tier at
// its zero value.
type Tier int

const (
	TierNone Tier = iota
	TierSubgroup
	TierTiledLarge
	TierTiledSmall
	TierStreaming
)

func (t Tier) String() string {
	switch t {
	case TierSubgroup:
		return "subgroup"
	case TierTiledLarge:
		return "tiled_large"
	case TierTiledSmall:
		return "tiled_small"
	case TierStreaming:
		return "streaming"
	default:
		return "none"
	}
}

// Workgroups is the 3-dimensional dispatch size a plan calls for.
type Workgroups struct {
	X, Y, Z uint32
}

// KernelPlan records a selector's decision: which registry variant to
// run, at what dispatch size, and why. Validated is set by the plan
// validator once all of a variant's constraints have been checked
// against the registry and the runtime's capability snapshot;
// dispatch refuses to run an unvalidated plan.
type KernelPlan struct {
	Operation       string
	Variant         string
	Tier            Tier
	Workgroups      Workgroups
	OutputDType     tensor.DType
	Validated       bool
	SelectionReason string
}
