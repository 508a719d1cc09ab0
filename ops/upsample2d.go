package ops

import (
	"github.com/oxy-rt/kernelrt/dispatch"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/selector"
	"github.com/oxy-rt/kernelrt/tensor"
	"github.com/oxy-rt/kernelrt/validate"
)

// Upsample2DCall carries the tensors and scalar facts one 2D upsample
// dispatch needs.
type Upsample2DCall struct {
	Input, Output tensor.Tensor
	Kind          selector.UpsampleKind
}

func (h *Handlers) upsample2DArgs(call Upsample2DCall) callArgs {
	outHeight, outWidth, channels := uint32(0), uint32(0), uint32(0)
	if len(call.Output.Shape) >= 3 {
		channels = call.Output.Shape[0]
		outHeight = call.Output.Shape[1]
		outWidth = call.Output.Shape[2]
	}

	p := selector.SelectUpsample2D(selector.Upsample2DInput{
		Kind:      call.Kind,
		OutHeight: outHeight,
		OutWidth:  outWidth,
		Channels:  channels,
	})

	return callArgs{
		Plan:          p,
		ValidateInput: validate.Input{Snapshot: h.Device.Get()},
		Bindings: []dispatch.Binding{
			{Index: 0, Buffer: call.Input.Buffer},
			{Index: 1, Buffer: call.Output.Buffer},
		},
		Label: "upsample2d/" + p.Variant,
	}
}

// RunUpsample2D selects, validates, and immediately dispatches a 2D
// upsample call.
func (h *Handlers) RunUpsample2D(call Upsample2DCall) error {
	return h.execute(nil, h.upsample2DArgs(call))
}

// RecordUpsample2D appends a 2D upsample dispatch to rec's batch.
func (h *Handlers) RecordUpsample2D(rec *recorder.Recorder, call Upsample2DCall) error {
	return h.execute(rec, h.upsample2DArgs(call))
}
