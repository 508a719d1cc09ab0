package ops

import (
	"github.com/oxy-rt/kernelrt/dispatch"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/selector"
	"github.com/oxy-rt/kernelrt/tensor"
	"github.com/oxy-rt/kernelrt/validate"
)

// MoECall carries the tensors and scalar facts one mixture-of-experts
// gather dispatch needs. ExpertWeights holds one weight buffer per
// expert, which is why moe_gather's bind group layout is keyed on
// len(ExpertWeights) rather than fixed per variant.
type MoECall struct {
	RouterIndices, Output tensor.Tensor
	ExpertWeights         []tensor.WeightBuffer
	TopK                  uint32
	TokensPerBatch        uint32
}

func (h *Handlers) moeArgs(call MoECall) callArgs {
	in := selector.MoEInput{
		NumExperts:     uint32(len(call.ExpertWeights)),
		TopK:           call.TopK,
		TokensPerBatch: call.TokensPerBatch,
	}
	p := selector.SelectMoEGather(in)

	bindings := make([]dispatch.Binding, 0, len(call.ExpertWeights)+2)
	bindings = append(bindings,
		dispatch.Binding{Index: 0, Buffer: call.RouterIndices.Buffer},
		dispatch.Binding{Index: 1, Buffer: call.Output.Buffer},
	)
	for i, w := range call.ExpertWeights {
		bindings = append(bindings, dispatch.Binding{Index: uint32(2 + i), Buffer: w.Buffer})
	}

	return callArgs{
		Plan:          p,
		ValidateInput: validate.Input{Snapshot: h.Device.Get()},
		Bindings:      bindings,
		ExplicitBGLID: selector.MoEBindGroupLayoutID(in),
		Label:         "moe/" + p.Variant,
	}
}

// RunMoEGather selects, validates, and immediately dispatches a
// mixture-of-experts gather call.
func (h *Handlers) RunMoEGather(call MoECall) error {
	return h.execute(nil, h.moeArgs(call))
}

// RecordMoEGather appends a mixture-of-experts gather dispatch to rec's batch.
func (h *Handlers) RecordMoEGather(rec *recorder.Recorder, call MoECall) error {
	return h.execute(rec, h.moeArgs(call))
}
