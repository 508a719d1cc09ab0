package selector

import (
	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/registry"
	"github.com/oxy-rt/kernelrt/tensor"
)

// FFNInput carries the call-site facts the feed-forward selector of
// spec §4.G.4 decides on. Gated distinguishes a SwiGLU-style gated FFN
// (two up-projections) from a plain single up-projection FFN.
// FusedAllowed is a caller/config opt-in required before a Q4K weight
// gets the fused dequant+matmul variant even when the shape otherwise
// qualifies; IntermediateSize drives the use_multi_output refinement,
// and is left zero by callers that don't run a gated FFN.
type FFNInput struct {
	Gated            bool
	Rows             uint32
	HiddenDim        uint32
	IntermediateSize uint32
	WeightDType      tensor.DType
	ActivationDType  tensor.DType
	FusedAllowed     bool

	Snapshot   gpu.Snapshot
	Thresholds registry.Thresholds
}

// SelectFFN names the feed-forward variant from its base gated/plain
// shape plus four independent refinements, each appended in order when
// it applies: a Q4K-fused dequant path when the weight is quantized,
// alignment permits it, and the caller allows it; a batched suffix for
// a multi-row call; an f16 suffix when either operand is half
// precision; and a multi_output suffix that fuses the gate and up
// projections into one dispatch when the intermediate size is small
// enough to make that worthwhile.
func SelectFFN(in FFNInput) plan.KernelPlan {
	variant := "plain"
	if in.Gated {
		variant = "gated"
	}

	isQ4KFused := in.WeightDType == tensor.Q4K && in.FusedAllowed &&
		in.Thresholds.QKKAlignment > 0 && in.HiddenDim%in.Thresholds.QKKAlignment == 0
	if isQ4KFused {
		variant += "_q4k_fused"
	}

	if in.Rows > 1 {
		variant += "_batched"
	}

	hasF16 := in.ActivationDType == tensor.F16 || in.WeightDType == tensor.F16
	if hasF16 {
		variant += "_f16"
	}

	useMultiOutput := in.Gated && in.IntermediateSize > 0 &&
		in.IntermediateSize <= in.Thresholds.MultiOutputThreshold
	if useMultiOutput {
		variant += "_multi_output"
	}

	return plan.KernelPlan{
		Operation:       "ffn",
		Variant:         variant,
		Workgroups:      plan.Workgroups{X: ceilDiv(in.HiddenDim, 16), Y: ceilDiv(in.Rows, 16), Z: 1},
		OutputDType:     tensor.F16,
		SelectionReason: ffnSelectionReason(isQ4KFused, useMultiOutput, in.Gated),
	}
}

func ffnSelectionReason(isQ4KFused, useMultiOutput, gated bool) string {
	switch {
	case isQ4KFused:
		return "q4k-quantized weight with fusion allowed and aligned hidden size uses the fused dequant path"
	case useMultiOutput:
		return "small intermediate size fuses the gate and up projections into one dispatch"
	case gated:
		return "gated flag selects the fused SwiGLU-style variant"
	default:
		return "plain single up-projection feed-forward"
	}
}
