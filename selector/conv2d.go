package selector

import (
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/tensor"
)

// Conv2DInput carries the call-site facts the 2D convolution selector
// decides on.
type Conv2DInput struct {
	KernelSize  uint32
	OutHeight   uint32
	OutWidth    uint32
	OutChannels uint32
}

// SelectConv2D picks between the 1x1 pointwise fast path and the
// general kxk convolution kernel.
func SelectConv2D(in Conv2DInput) plan.KernelPlan {
	variant := "kxk"
	if in.KernelSize == 1 {
		variant = "pointwise"
	}
	return plan.KernelPlan{
		Operation:   "conv2d",
		Variant:     variant,
		OutputDType: tensor.F16,
		Workgroups: plan.Workgroups{
			X: ceilDiv(in.OutWidth, 16),
			Y: ceilDiv(in.OutHeight, 16),
			Z: in.OutChannels,
		},
		SelectionReason: "kernel_size == 1 selects the pointwise fast path",
	}
}
