package selector

import (
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/registry"
	"github.com/oxy-rt/kernelrt/tensor"
)

// SampleInput carries the call-site facts the sampling selector of
// spec §4.G.3 decides on. A temperature below the configured greedy
// threshold (or at or below zero), or a TopK of at most 1, degrades
// top-k sampling to a deterministic argmax,
// since top-k sampling with no randomization temperature is equivalent
// to, and cheaper than, argmax.
type SampleInput struct {
	Temperature float32
	TopK        uint32
	VocabSize   uint32
	LogitsDType tensor.DType

	Thresholds registry.Thresholds
}

// SelectSample builds the ordered sequence of passes spec §4.G.3's
// sampling pipeline dispatches. The first pass spreads across however
// many workgroups the vocabulary size needs, one thread group per
// default_sample_workgroup_size logits; every pass after it is a single
// tree-reduction workgroup folding the prior pass's partial results
// into one draw.
func SelectSample(in SampleInput) []plan.KernelPlan {
	suffix := sampleDTypeSuffix(in.LogitsDType)
	firstPassWorkgroups := sampleNumWorkgroups(in.VocabSize, in.Thresholds.DefaultSampleWorkgroupSize)

	if degradesToArgmax(in) {
		return sampleArgmaxPipeline(firstPassWorkgroups, suffix)
	}
	return sampleTopKPipeline(firstPassWorkgroups, suffix)
}

func degradesToArgmax(in SampleInput) bool {
	return in.TopK <= 1 || in.Temperature <= 0 || in.Temperature < in.Thresholds.GreedyThreshold
}

func sampleDTypeSuffix(dtype tensor.DType) string {
	if dtype == tensor.F16 {
		return "_f16"
	}
	return ""
}

// sampleArgmaxPipeline degrades top-k sampling to a deterministic
// argmax: a single pass suffices when the vocabulary fits in one
// workgroup, otherwise a second pass reduces the per-workgroup winners.
func sampleArgmaxPipeline(firstPassWorkgroups uint32, suffix string) []plan.KernelPlan {
	first := plan.KernelPlan{
		Operation:       "sample",
		Variant:         "argmax" + suffix,
		Workgroups:      plan.Workgroups{X: firstPassWorkgroups, Y: 1, Z: 1},
		OutputDType:     tensor.U32,
		SelectionReason: "temperature below the greedy threshold or top_k <= 1 degrades to deterministic argmax",
	}
	if firstPassWorkgroups <= 1 {
		return []plan.KernelPlan{first}
	}
	reduce := plan.KernelPlan{
		Operation:       "sample",
		Variant:         "argmax_reduce" + suffix,
		Workgroups:      plan.Workgroups{X: 1, Y: 1, Z: 1},
		OutputDType:     tensor.U32,
		SelectionReason: "multiple argmax workgroups fold into a single tree-reduction pass",
	}
	return []plan.KernelPlan{first, reduce}
}

// sampleTopKPipeline runs the full three-phase top-k pipeline
// regardless of vocabulary size: phase1 collects per-workgroup
// candidates, phase2 merges them into one ranked set, and phase3 draws
// the sampled token from that set.
func sampleTopKPipeline(firstPassWorkgroups uint32, suffix string) []plan.KernelPlan {
	phase1 := plan.KernelPlan{
		Operation:       "sample",
		Variant:         "top_k_phase1" + suffix,
		Workgroups:      plan.Workgroups{X: firstPassWorkgroups, Y: 1, Z: 1},
		OutputDType:     tensor.U32,
		SelectionReason: "temperature at or above the greedy threshold with top_k > 1 selects the top-k sampling pipeline",
	}
	phase2 := plan.KernelPlan{
		Operation:       "sample",
		Variant:         "top_k_phase2" + suffix,
		Workgroups:      plan.Workgroups{X: 1, Y: 1, Z: 1},
		OutputDType:     tensor.U32,
		SelectionReason: "merges per-workgroup top-k candidates into a single ranked set",
	}
	phase3 := plan.KernelPlan{
		Operation:       "sample",
		Variant:         "top_k_phase3" + suffix,
		Workgroups:      plan.Workgroups{X: 1, Y: 1, Z: 1},
		OutputDType:     tensor.U32,
		SelectionReason: "draws the final sampled token from the merged top-k set",
	}
	return []plan.KernelPlan{phase1, phase2, phase3}
}

// sampleNumWorkgroups caps the one-thread-per-logit first pass at
// default_sample_workgroup_size workgroups: a vocabulary small enough
// to need fewer than that many gets exactly as many as it needs.
func sampleNumWorkgroups(vocabSize, defaultWGSize uint32) uint32 {
	if defaultWGSize == 0 {
		return 1
	}
	needed := ceilDiv(vocabSize, defaultWGSize)
	if needed == 0 {
		return 1
	}
	if needed < defaultWGSize {
		return needed
	}
	return defaultWGSize
}
