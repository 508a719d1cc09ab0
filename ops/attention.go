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

// attentionUniforms is the uniform scratch buffer layout attention
// dispatches write their kv_len/head_dim scalars into.
type attentionUniforms struct {
	KVLen   uint32
	HeadDim uint32
}

// AttentionCall carries the tensors and scalar facts one attention
// dispatch needs, independent of whether it runs immediately or is
// recorded into a batch. Query.Shape is expected in
// [batch, num_heads, seq_len, head_dim] order; SeqLen and NumHeads are
// derived from it when present.
type AttentionCall struct {
	Query, Key, Value, Output tensor.Tensor
	UseF16KV                  bool
	RequestStreaming          bool
	KVLen                     uint32
	SharedMemBudget           uint32
	LayerIdx                  uint32
	IsPaged                   bool
	Override                  string
}

func (h *Handlers) attentionArgs(call AttentionCall) (callArgs, error) {
	headDim, seqLen, numHeads := uint32(0), uint32(1), uint32(1)
	if len(call.Query.Shape) > 0 {
		headDim = call.Query.Shape[len(call.Query.Shape)-1]
	}
	if len(call.Query.Shape) >= 4 {
		numHeads = call.Query.Shape[1]
		seqLen = call.Query.Shape[2]
	}

	sharedMemBudget := call.SharedMemBudget
	if sharedMemBudget == 0 {
		sharedMemBudget = h.Device.Get().MaxComputeWorkgroupStorageSize
	}

	p, err := selector.SelectAttention(selector.AttentionInput{
		SeqLen:           seqLen,
		KVLen:            call.KVLen,
		HeadDim:          headDim,
		NumHeads:         numHeads,
		UseF16Q:          call.Query.DType == tensor.F16,
		UseF16KV:         call.UseF16KV,
		SharedMemBudget:  sharedMemBudget,
		LayerIdx:         call.LayerIdx,
		IsPaged:          call.IsPaged,
		Override:         call.Override,
		RequestStreaming: call.RequestStreaming,
		Strict:           h.Strict,
		Snapshot:         h.Device.Get(),
		Thresholds:       h.Registry.Thresholds(),
		Telemetry:        h.Telemetry,
	})
	if err != nil {
		return callArgs{}, err
	}

	uniforms := attentionUniforms{KVLen: call.KVLen, HeadDim: headDim}
	writer := func(buf []byte) {
		copy(buf, common.StructToBytes(&uniforms))
	}

	return callArgs{
		Plan: p,
		ValidateInput: validate.Input{
			IsDecode: seqLen == 1,
			UseF16Q:  call.Query.DType == tensor.F16,
			UseF16KV: call.UseF16KV,
			HeadDim:  headDim,
			KVLen:    call.KVLen,
			Snapshot: h.Device.Get(),
		},
		Bindings: []dispatch.Binding{
			{Index: 0, Buffer: call.Query.Buffer},
			{Index: 1, Buffer: call.Key.Buffer},
			{Index: 2, Buffer: call.Value.Buffer},
			{Index: 3, Buffer: call.Output.Buffer},
		},
		UniformSize:   uint32(unsafe.Sizeof(uniforms)),
		UniformWriter: writer,
		Label:         "attention/" + p.Variant,
	}, nil
}

// RunAttention selects, validates, and immediately dispatches an
// attention call.
func (h *Handlers) RunAttention(call AttentionCall) error {
	args, err := h.attentionArgs(call)
	if err != nil {
		return err
	}
	return h.execute(nil, args)
}

// RecordAttention appends an attention dispatch to rec's batch instead
// of submitting it immediately.
func (h *Handlers) RecordAttention(rec *recorder.Recorder, call AttentionCall) error {
	args, err := h.attentionArgs(call)
	if err != nil {
		return err
	}
	return h.execute(rec, args)
}
