package ops

import (
	"github.com/oxy-rt/kernelrt/dispatch"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/selector"
	"github.com/oxy-rt/kernelrt/tensor"
	"github.com/oxy-rt/kernelrt/validate"
)

// GatherCall carries the tensors and scalar facts one embedding-lookup
// dispatch needs.
type GatherCall struct {
	Indices, Table, Output tensor.Tensor
	RowIsVec4Packed        bool
}

func (h *Handlers) gatherArgs(call GatherCall) callArgs {
	numIndices := uint32(0)
	if len(call.Indices.Shape) > 0 {
		numIndices = call.Indices.Shape[0]
	}

	p := selector.SelectGather(selector.GatherInput{
		IndexDTypeIsF16:  call.Indices.DType == tensor.F16,
		OutputDTypeIsF16: call.Output.DType == tensor.F16,
		RowIsVec4Packed:  call.RowIsVec4Packed,
		NumIndices:       numIndices,
	})

	return callArgs{
		Plan:          p,
		ValidateInput: validate.Input{Snapshot: h.Device.Get()},
		Bindings: []dispatch.Binding{
			{Index: 0, Buffer: call.Indices.Buffer},
			{Index: 1, Buffer: call.Table.Buffer},
			{Index: 2, Buffer: call.Output.Buffer},
		},
		Label: "gather/" + p.Variant,
	}
}

// RunGather selects, validates, and immediately dispatches an
// embedding-lookup call.
func (h *Handlers) RunGather(call GatherCall) error {
	return h.execute(nil, h.gatherArgs(call))
}

// RecordGather appends an embedding-lookup dispatch to rec's batch.
func (h *Handlers) RecordGather(rec *recorder.Recorder, call GatherCall) error {
	return h.execute(rec, h.gatherArgs(call))
}
