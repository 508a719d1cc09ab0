package ops

import (
	"github.com/oxy-rt/kernelrt/dispatch"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/selector"
	"github.com/oxy-rt/kernelrt/tensor"
	"github.com/oxy-rt/kernelrt/validate"
)

// Conv2DCall carries the tensors and scalar facts one 2D convolution
// dispatch needs.
type Conv2DCall struct {
	Input, Kernel, Output tensor.Tensor
	KernelSize            uint32
}

func (h *Handlers) conv2DArgs(call Conv2DCall) callArgs {
	outHeight, outWidth, outChannels := uint32(0), uint32(0), uint32(0)
	if len(call.Output.Shape) >= 3 {
		outChannels = call.Output.Shape[0]
		outHeight = call.Output.Shape[1]
		outWidth = call.Output.Shape[2]
	}

	p := selector.SelectConv2D(selector.Conv2DInput{
		KernelSize:  call.KernelSize,
		OutHeight:   outHeight,
		OutWidth:    outWidth,
		OutChannels: outChannels,
	})

	return callArgs{
		Plan:          p,
		ValidateInput: validate.Input{Snapshot: h.Device.Get()},
		Bindings: []dispatch.Binding{
			{Index: 0, Buffer: call.Input.Buffer},
			{Index: 1, Buffer: call.Kernel.Buffer},
			{Index: 2, Buffer: call.Output.Buffer},
		},
		Label: "conv2d/" + p.Variant,
	}
}

// RunConv2D selects, validates, and immediately dispatches a 2D
// convolution call.
func (h *Handlers) RunConv2D(call Conv2DCall) error {
	return h.execute(nil, h.conv2DArgs(call))
}

// RecordConv2D appends a 2D convolution dispatch to rec's batch.
func (h *Handlers) RecordConv2D(rec *recorder.Recorder, call Conv2DCall) error {
	return h.execute(rec, h.conv2DArgs(call))
}
