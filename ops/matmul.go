package ops

import (
	"unsafe"

	"github.com/oxy-rt/kernelrt/common"
	"github.com/oxy-rt/kernelrt/dispatch"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/selector"
	"github.com/oxy-rt/kernelrt/tensor"
	"github.com/oxy-rt/kernelrt/validate"
)

// matmulUniforms is the uniform scratch buffer layout matmul
// dispatches write their row/col scalars into.
type matmulUniforms struct {
	M uint32
	N uint32
	K uint32
}

// MatmulCall carries the tensors and scalar facts one matmul dispatch
// needs. Input.Shape is read as [M, K]; Weights.Shape is read as
// [K, N], or [N, K] when TransposeB is set. Override, if non-empty,
// forces a specific variant through selector.SelectMatmul's override
// path. A nil RequestedOutputDType leaves the output dtype to the
// chosen variant's default.
type MatmulCall struct {
	Input, Weights, Output tensor.Tensor
	TransposeB             bool
	RequestedOutputDType   *tensor.DType
	Override               string
}

func (h *Handlers) matmulArgs(call MatmulCall) (callArgs, error) {
	m, k := uint32(1), uint32(0)
	if len(call.Input.Shape) >= 2 {
		m = call.Input.Shape[0]
		k = call.Input.Shape[1]
	} else if len(call.Input.Shape) == 1 {
		k = call.Input.Shape[0]
	}

	n := uint32(0)
	if len(call.Weights.Shape) >= 2 {
		if call.TransposeB {
			n = call.Weights.Shape[0]
		} else {
			n = call.Weights.Shape[1]
		}
	}

	p, err := selector.SelectMatmul(selector.MatmulInput{
		Override:             call.Override,
		M:                    m,
		N:                    n,
		K:                    k,
		ADType:               call.Input.DType,
		BDType:               call.Weights.DType,
		TransposeB:           call.TransposeB,
		RequestedOutputDType: call.RequestedOutputDType,
		Snapshot:             h.Device.Get(),
		Thresholds:           h.Registry.Thresholds(),
		Registry:             h.Registry,
	})
	if err != nil {
		return callArgs{}, err
	}

	uniforms := matmulUniforms{M: m, N: n, K: k}
	writer := func(buf []byte) {
		copy(buf, common.StructToBytes(&uniforms))
	}

	return callArgs{
		Plan: p,
		ValidateInput: validate.Input{
			Snapshot: h.Device.Get(),
		},
		Bindings: []dispatch.Binding{
			{Index: 0, Buffer: call.Input.Buffer},
			{Index: 1, Buffer: call.Weights.Buffer},
			{Index: 2, Buffer: call.Output.Buffer},
		},
		UniformSize:   uint32(unsafe.Sizeof(uniforms)),
		UniformWriter: writer,
		Label:         "matmul/" + p.Variant,
	}, nil
}

// RunMatmul selects, validates, and immediately dispatches a matmul call.
func (h *Handlers) RunMatmul(call MatmulCall) error {
	args, err := h.matmulArgs(call)
	if err != nil {
		return err
	}
	return h.execute(nil, args)
}

// RecordMatmul appends a matmul dispatch to rec's batch.
func (h *Handlers) RecordMatmul(rec *recorder.Recorder, call MatmulCall) error {
	args, err := h.matmulArgs(call)
	if err != nil {
		return err
	}
	return h.execute(rec, args)
}
