package ops

import (
	"github.com/oxy-rt/kernelrt/dispatch"
	"github.com/oxy-rt/kernelrt/pipelinecache"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/selector"
	"github.com/oxy-rt/kernelrt/tensor"
	"github.com/oxy-rt/kernelrt/validate"
)

// NormCall carries the tensors and scalar facts one normalization
// dispatch needs. Residual is nil when the call has no residual input.
type NormCall struct {
	Input, Weight, Output tensor.Tensor
	Residual              *tensor.Tensor
	Kind                  selector.NormKind
	RMSNormOffset         float64
	NumGroups             uint32
}

func (h *Handlers) normArgs(call NormCall) callArgs {
	rows, featureLen := uint32(1), uint32(0)
	if len(call.Input.Shape) >= 1 {
		rows = call.Input.Shape[0]
	}
	if len(call.Input.Shape) >= 2 {
		featureLen = call.Input.Shape[1]
	}

	p, spec := selector.SelectNorm(selector.NormInput{
		Kind:          call.Kind,
		HasResidual:   call.Residual != nil,
		WeightIsF16:   call.Weight.DType == tensor.F16,
		RMSNormOffset: call.RMSNormOffset,
		NumGroups:     call.NumGroups,
		Rows:          rows,
		FeatureLen:    featureLen,
	})

	bindings := []dispatch.Binding{
		{Index: 0, Buffer: call.Input.Buffer},
		{Index: 1, Buffer: call.Weight.Buffer},
		{Index: 2, Buffer: call.Output.Buffer},
	}
	if call.Residual != nil {
		bindings = append(bindings, dispatch.Binding{Index: 3, Buffer: call.Residual.Buffer})
	}

	out := make(pipelinecache.Specialization, len(spec))
	for k, v := range spec {
		out[k] = v
	}

	return callArgs{
		Plan:           p,
		ValidateInput:  validate.Input{Snapshot: h.Device.Get()},
		Bindings:       bindings,
		Specialization: out,
		Label:          "norm/" + p.Variant,
	}
}

// RunNorm selects, validates, and immediately dispatches a normalization call.
func (h *Handlers) RunNorm(call NormCall) error {
	return h.execute(nil, h.normArgs(call))
}

// RecordNorm appends a normalization dispatch to rec's batch.
func (h *Handlers) RecordNorm(rec *recorder.Recorder, call NormCall) error {
	return h.execute(rec, h.normArgs(call))
}
