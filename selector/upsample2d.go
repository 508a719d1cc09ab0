package selector

import (
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/tensor"
)

// UpsampleKind names the interpolation mode for a 2D upsample.
type UpsampleKind int

const (
	Nearest UpsampleKind = iota
	Bilinear
)

// Upsample2DInput carries the call-site facts the upsample selector
// decides on.
type Upsample2DInput struct {
	Kind      UpsampleKind
	OutHeight uint32
	OutWidth  uint32
	Channels  uint32
}

// SelectUpsample2D picks between the nearest and bilinear variants.
func SelectUpsample2D(in Upsample2DInput) plan.KernelPlan {
	variant := "nearest"
	if in.Kind == Bilinear {
		variant = "bilinear"
	}
	return plan.KernelPlan{
		Operation:   "upsample2d",
		Variant:     variant,
		OutputDType: tensor.F16,
		Workgroups: plan.Workgroups{
			X: ceilDiv(in.OutWidth, 16),
			Y: ceilDiv(in.OutHeight, 16),
			Z: in.Channels,
		},
		SelectionReason: "interpolation kind selects variant directly",
	}
}
