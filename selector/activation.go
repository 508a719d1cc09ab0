package selector

import (
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/tensor"
)

// ActivationKind names an elementwise activation function.
type ActivationKind int

const (
	GELU ActivationKind = iota
	SiLU
)

// ActivationInput carries the call-site facts the activation selector
// decides on.
type ActivationInput struct {
	Kind         ActivationKind
	ElementCount uint32
}

// SelectActivation picks the gelu/silu variant and a flat 1D dispatch
// sized to the element count.
func SelectActivation(in ActivationInput) plan.KernelPlan {
	variant := "gelu"
	if in.Kind == SiLU {
		variant = "silu"
	}
	return plan.KernelPlan{
		Operation:       "activation",
		Variant:         variant,
		Workgroups:      plan.Workgroups{X: ceilDiv(in.ElementCount, 256), Y: 1, Z: 1},
		OutputDType:     tensor.F16,
		SelectionReason: "activation kind selects variant directly",
	}
}
