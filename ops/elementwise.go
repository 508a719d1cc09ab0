package ops

import (
	"github.com/oxy-rt/kernelrt/dispatch"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/selector"
	"github.com/oxy-rt/kernelrt/tensor"
	"github.com/oxy-rt/kernelrt/validate"
)

// ElementwiseCall carries the tensors and scalar facts one elementwise
// dispatch needs. Second is nil for unary kinds (Scale, Clamp, Cast).
type ElementwiseCall struct {
	First, Output tensor.Tensor
	Second        *tensor.Tensor
	Kind          selector.ElementwiseKind
}

func (h *Handlers) elementwiseArgs(call ElementwiseCall) callArgs {
	count := uint32(0)
	for _, d := range call.First.Shape {
		if count == 0 {
			count = d
		} else {
			count *= d
		}
	}

	p := selector.SelectElementwise(selector.ElementwiseInput{
		Kind:         call.Kind,
		ElementCount: count,
		OutputDType:  call.Output.DType,
	})

	bindings := []dispatch.Binding{
		{Index: 0, Buffer: call.First.Buffer},
		{Index: 1, Buffer: call.Output.Buffer},
	}
	if call.Second != nil {
		bindings = append(bindings, dispatch.Binding{Index: 2, Buffer: call.Second.Buffer})
	}

	return callArgs{
		Plan:          p,
		ValidateInput: validate.Input{Snapshot: h.Device.Get()},
		Bindings:      bindings,
		Label:         "elementwise/" + p.Variant,
	}
}

// RunElementwise selects, validates, and immediately dispatches an
// elementwise call.
func (h *Handlers) RunElementwise(call ElementwiseCall) error {
	return h.execute(nil, h.elementwiseArgs(call))
}

// RecordElementwise appends an elementwise dispatch to rec's batch.
func (h *Handlers) RecordElementwise(rec *recorder.Recorder, call ElementwiseCall) error {
	return h.execute(rec, h.elementwiseArgs(call))
}
