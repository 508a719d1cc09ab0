package selector

import (
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/tensor"
)

// GatherInput carries the call-site facts the embedding-lookup
// selector decides on: whether the input index buffer and the output
// activations are f16, and whether the table's rows are vec4-packed.
type GatherInput struct {
	IndexDTypeIsF16  bool
	OutputDTypeIsF16 bool
	RowIsVec4Packed  bool
	NumIndices       uint32
}

// gatherVariants maps the (f16_in, f16_out, vec4) combination to a
// registry variant name, per spec §4.G.6's lookup table.
var gatherVariants = map[[3]bool]string{
	{false, false, false}: "gather_f32_f32",
	{false, false, true}:  "gather_f32_f32_vec4",
	{false, true, false}:  "gather_f32_f16",
	{false, true, true}:   "gather_f32_f16_vec4",
	{true, false, false}:  "gather_f16_f32",
	{true, false, true}:   "gather_f16_f32_vec4",
	{true, true, false}:   "gather_f16_f16",
	{true, true, true}:    "gather_f16_f16_vec4",
}

// SelectGather looks up the gather variant for in's dtype/packing
// combination.
func SelectGather(in GatherInput) plan.KernelPlan {
	key := [3]bool{in.IndexDTypeIsF16, in.OutputDTypeIsF16, in.RowIsVec4Packed}
	variant := gatherVariants[key]

	outDType := tensor.F32
	if in.OutputDTypeIsF16 {
		outDType = tensor.F16
	}

	return plan.KernelPlan{
		Operation:       "gather",
		Variant:         variant,
		Workgroups:      plan.Workgroups{X: ceilDiv(in.NumIndices, 256), Y: 1, Z: 1},
		OutputDType:     outDType,
		SelectionReason: "dtype/packing combination selects variant via the f16_in/f16_out/vec4 lookup table",
	}
}
