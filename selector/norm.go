package selector

import (
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/tensor"
)

// NormKind names which normalization op a caller wants.
type NormKind int

const (
	RMSNorm NormKind = iota
	LayerNorm
	GroupNorm
)

// NormInput carries the call-site facts the normalization selector
// decides on, including the specialization constants spec §4.G.4 names
// explicitly: RMS_NORM_OFFSET, HAS_RESIDUAL, WEIGHT_IS_F16.
type NormInput struct {
	Kind          NormKind
	HasResidual   bool
	WeightIsF16   bool
	RMSNormOffset float64
	NumGroups     uint32
	Rows          uint32
	FeatureLen    uint32
}

// Specialization is the wgsl override-constant set a norm plan carries
// for pipelinecache to merge and canonicalize.
type Specialization map[string]float64

// SelectNorm picks the variant for the requested normalization kind and
// returns the specialization constants the registry's wgsl_overrides
// should be merged with.
func SelectNorm(in NormInput) (plan.KernelPlan, Specialization) {
	variant := normVariant(in.Kind)
	spec := Specialization{}
	if in.HasResidual {
		spec["HAS_RESIDUAL"] = 1
	} else {
		spec["HAS_RESIDUAL"] = 0
	}
	if in.WeightIsF16 {
		spec["WEIGHT_IS_F16"] = 1
	} else {
		spec["WEIGHT_IS_F16"] = 0
	}
	if in.Kind == RMSNorm {
		spec["RMS_NORM_OFFSET"] = in.RMSNormOffset
	}

	return plan.KernelPlan{
		Operation:       "norm",
		Variant:         variant,
		Workgroups:      plan.Workgroups{X: in.Rows, Y: 1, Z: 1},
		OutputDType:     tensor.F16,
		SelectionReason: "normalization kind selects variant; residual/weight-dtype/offset become wgsl specialization constants",
	}, spec
}

func normVariant(kind NormKind) string {
	switch kind {
	case LayerNorm:
		return "layernorm"
	case GroupNorm:
		return "groupnorm"
	default:
		return "rmsnorm"
	}
}
