package ops

import (
	"github.com/oxy-rt/kernelrt/dispatch"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/selector"
	"github.com/oxy-rt/kernelrt/tensor"
	"github.com/oxy-rt/kernelrt/validate"
)

// FFNCall carries the tensors and scalar facts one feed-forward
// dispatch needs. IntermediateSize only matters for a Gated call; a
// plain FFN leaves it zero. FusedAllowed opts into the Q4K fused
// dequant path when the weight shape otherwise qualifies for it.
type FFNCall struct {
	Input, Weights, Output tensor.Tensor
	Gated                  bool
	IntermediateSize       uint32
	FusedAllowed           bool
}

func (h *Handlers) ffnArgs(call FFNCall) callArgs {
	rows, hiddenDim := uint32(1), uint32(0)
	if len(call.Input.Shape) >= 1 {
		rows = call.Input.Shape[0]
	}
	if len(call.Weights.Shape) >= 2 {
		hiddenDim = call.Weights.Shape[1]
	}

	p := selector.SelectFFN(selector.FFNInput{
		Gated:            call.Gated,
		Rows:             rows,
		HiddenDim:        hiddenDim,
		IntermediateSize: call.IntermediateSize,
		WeightDType:      call.Weights.DType,
		ActivationDType:  call.Input.DType,
		FusedAllowed:     call.FusedAllowed,
		Snapshot:         h.Device.Get(),
		Thresholds:       h.Registry.Thresholds(),
	})

	return callArgs{
		Plan:          p,
		ValidateInput: validate.Input{Snapshot: h.Device.Get()},
		Bindings: []dispatch.Binding{
			{Index: 0, Buffer: call.Input.Buffer},
			{Index: 1, Buffer: call.Weights.Buffer},
			{Index: 2, Buffer: call.Output.Buffer},
		},
		Label: "ffn/" + p.Variant,
	}
}

// RunFFN selects, validates, and immediately dispatches a feed-forward call.
func (h *Handlers) RunFFN(call FFNCall) error {
	return h.execute(nil, h.ffnArgs(call))
}

// RecordFFN appends a feed-forward dispatch to rec's batch.
func (h *Handlers) RecordFFN(rec *recorder.Recorder, call FFNCall) error {
	return h.execute(rec, h.ffnArgs(call))
}
