package selector

import (
	"fmt"

	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/tensor"
)

// MoEInput carries the call-site facts the mixture-of-experts gather
// selector decides on.
type MoEInput struct {
	NumExperts     uint32
	TopK           uint32
	TokensPerBatch uint32
}

// SelectMoEGather picks the moe_gather variant. Its pipeline is cached
// under an explicit bind-group-layout id (spec §4.G.7) keyed by
// NumExperts (see MoEBindGroupLayoutID); the pipeline cache builds that
// layout's entries from the variant's registered bindings list, so the
// entry count does not change with NumExperts.
func SelectMoEGather(in MoEInput) plan.KernelPlan {
	return plan.KernelPlan{
		Operation:       "moe",
		Variant:         "moe_gather",
		Workgroups:      plan.Workgroups{X: ceilDiv(in.TokensPerBatch*in.TopK, 64), Y: 1, Z: 1},
		OutputDType:     tensor.F16,
		SelectionReason: "moe_gather dispatch width scales with tokens_per_batch * top_k",
	}
}

// MoEBindGroupLayoutID derives the explicit bind-group-layout cache key
// moe_gather must use, since its layout depends on num_experts rather
// than being fixed per variant.
func MoEBindGroupLayoutID(in MoEInput) string {
	return fmt.Sprintf("moe_gather_experts_%d", in.NumExperts)
}
