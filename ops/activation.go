package ops

import (
	"github.com/oxy-rt/kernelrt/dispatch"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/selector"
	"github.com/oxy-rt/kernelrt/tensor"
	"github.com/oxy-rt/kernelrt/validate"
)

// ActivationCall carries the tensors and scalar facts one activation
// dispatch needs.
type ActivationCall struct {
	Input, Output tensor.Tensor
	Kind          selector.ActivationKind
}

func (h *Handlers) activationArgs(call ActivationCall) callArgs {
	count := uint32(0)
	for _, d := range call.Input.Shape {
		if count == 0 {
			count = d
		} else {
			count *= d
		}
	}

	p := selector.SelectActivation(selector.ActivationInput{Kind: call.Kind, ElementCount: count})

	return callArgs{
		Plan:          p,
		ValidateInput: validate.Input{Snapshot: h.Device.Get()},
		Bindings: []dispatch.Binding{
			{Index: 0, Buffer: call.Input.Buffer},
			{Index: 1, Buffer: call.Output.Buffer},
		},
		Label: "activation/" + p.Variant,
	}
}

// RunActivation selects, validates, and immediately dispatches an
// activation call.
func (h *Handlers) RunActivation(call ActivationCall) error {
	return h.execute(nil, h.activationArgs(call))
}

// RecordActivation appends an activation dispatch to rec's batch.
func (h *Handlers) RecordActivation(rec *recorder.Recorder, call ActivationCall) error {
	return h.execute(rec, h.activationArgs(call))
}
