package selector

import (
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/tensor"
)

// ElementwiseKind names a single-pass elementwise operation.
type ElementwiseKind int

const (
	Residual ElementwiseKind = iota
	BiasAdd
	Scale
	Clamp
	Cast
)

// ElementwiseInput carries the call-site facts the elementwise selector
// decides on.
type ElementwiseInput struct {
	Kind         ElementwiseKind
	ElementCount uint32
	OutputDType  tensor.DType
}

var elementwiseVariants = map[ElementwiseKind]string{
	Residual: "residual",
	BiasAdd:  "bias_add",
	Scale:    "scale",
	Clamp:    "clamp",
	Cast:     "cast",
}

// SelectElementwise picks the variant for the requested elementwise
// kind and sizes a flat 1D dispatch to the element count.
func SelectElementwise(in ElementwiseInput) plan.KernelPlan {
	return plan.KernelPlan{
		Operation:       "elementwise",
		Variant:         elementwiseVariants[in.Kind],
		Workgroups:      plan.Workgroups{X: ceilDiv(in.ElementCount, 256), Y: 1, Z: 1},
		OutputDType:     in.OutputDType,
		SelectionReason: "elementwise kind selects variant directly",
	}
}
