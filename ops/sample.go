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

// sampleUniforms is the uniform scratch buffer layout sampling
// dispatches write their vocab_size/top_k scalars into.
type sampleUniforms struct {
	VocabSize uint32
	TopK      uint32
}

// SampleCall carries the tensors and scalar facts one sampling
// dispatch needs. Scratch holds the per-workgroup partial results a
// multi-pass pipeline folds between passes; it is unused, and may be
// the zero value, when the pipeline degrades to a single pass.
type SampleCall struct {
	Logits, Output, Scratch tensor.Tensor
	Temperature             float32
	TopK                    uint32
}

// sampleArgs builds one callArgs per pass of the pipeline
// selector.SelectSample chooses, in dispatch order: the first pass
// reads Logits and writes Scratch, every pass after reads Scratch and
// writes back to it, and the last pass writes Output instead.
func (h *Handlers) sampleArgs(call SampleCall) []callArgs {
	vocabSize := uint32(0)
	if len(call.Logits.Shape) > 0 {
		vocabSize = call.Logits.Shape[len(call.Logits.Shape)-1]
	}

	plans := selector.SelectSample(selector.SampleInput{
		Temperature: call.Temperature,
		TopK:        call.TopK,
		VocabSize:   vocabSize,
		LogitsDType: call.Logits.DType,
		Thresholds:  h.Registry.Thresholds(),
	})

	uniforms := sampleUniforms{VocabSize: vocabSize, TopK: call.TopK}
	writer := func(buf []byte) {
		copy(buf, common.StructToBytes(&uniforms))
	}

	args := make([]callArgs, len(plans))
	for i, p := range plans {
		in := call.Logits
		if i > 0 {
			in = call.Scratch
		}
		out := call.Scratch
		if i == len(plans)-1 {
			out = call.Output
		}

		args[i] = callArgs{
			Plan:          p,
			ValidateInput: validate.Input{Snapshot: h.Device.Get()},
			Bindings: []dispatch.Binding{
				{Index: 0, Buffer: in.Buffer},
				{Index: 1, Buffer: out.Buffer},
			},
			UniformSize:   uint32(unsafe.Sizeof(uniforms)),
			UniformWriter: writer,
			Label:         "sample/" + p.Variant,
		}
	}
	return args
}

// RunSample selects, validates, and immediately dispatches every pass
// of a sampling call's pipeline in order.
func (h *Handlers) RunSample(call SampleCall) error {
	for _, args := range h.sampleArgs(call) {
		if err := h.execute(nil, args); err != nil {
			return err
		}
	}
	return nil
}

// RecordSample appends every pass of a sampling call's pipeline to
// rec's batch, in dispatch order.
func (h *Handlers) RecordSample(rec *recorder.Recorder, call SampleCall) error {
	for _, args := range h.sampleArgs(call) {
		if err := h.execute(rec, args); err != nil {
			return err
		}
	}
	return nil
}
