// Package selector implements the per-operator-family variant selection
// logic of spec §4.G: pure functions that take call-site facts (dtypes,
// shapes, capability snapshot, phase) and produce a plan.KernelPlan
// naming the variant to run and why. Selectors never touch the GPU —
// they only decide, leaving compilation and dispatch to pipelinecache
// and dispatch.
package selector

import (
	"fmt"
	"strings"

	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/kernelerr"
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/registry"
	"github.com/oxy-rt/kernelrt/rule"
	"github.com/oxy-rt/kernelrt/telemetry"
	"github.com/oxy-rt/kernelrt/tensor"
)

// AttentionInput carries the call-site facts the attention tier ladder
// of spec §4.G.1 decides on. IsDecode is derived from SeqLen == 1
// rather than supplied directly, so a caller never has to keep the two
// in sync.
//
// Override names a path-override variant configured for this layer and
// phase; when set, it skips the tier ladder entirely (spec §4.G.1 step
// 3) and its tier is inferred from the variant name, used only to pick
// a workgroup-count formula below.
//
// RequestStreaming lets a caller force the streaming tier explicitly;
// since streaming is decode-only, requesting it during a prefill call
// is a config mismatch (spec §9 Open Question 2): in strict mode
// SelectAttention returns a kernelerr.Config error, and in non-strict
// mode it warns once and falls through to the normal tier ladder
// instead of honoring the request.
type AttentionInput struct {
	SeqLen          uint32
	KVLen           uint32
	HeadDim         uint32
	NumHeads        uint32
	UseF16Q         bool
	UseF16KV        bool
	SharedMemBudget uint32
	LayerIdx        uint32
	IsPaged         bool

	Override         string
	RequestStreaming bool
	Strict           bool

	Snapshot   gpu.Snapshot
	Thresholds registry.Thresholds
	Telemetry  *telemetry.State
}

// attentionTierRules encodes the tier ladder in first-match-wins order
// (spec §4.G.1 step 4): subgroup hardware wins outright over the tiled
// tiers; a head_dim/shared-memory budget that clears the large tier's
// requirement wins over the small tier's looser one; any remaining
// decode call falls to streaming, and a prefill call with no tiled tier
// available also defaults to streaming, without an error or a warning.
func attentionTierRules() rule.Set[plan.Tier] {
	return rule.Set[plan.Tier]{
		{Match: map[string]any{"can_subgroup": true}, Value: plan.TierSubgroup},
		{Match: map[string]any{"can_large": true}, Value: plan.TierTiledLarge},
		{Match: map[string]any{"can_small": true}, Value: plan.TierTiledSmall},
		{Match: map[string]any{}, Value: plan.TierStreaming},
	}
}

// attentionVariantRules encodes the variant-selection table of spec
// §4.G.1 step 5 in first-match-wins order: a decode-chunked f16-KV path
// is preferred over the tier-default naming when viable, then a
// plain-dtype decode subgroup path; the empty match falls through to
// attentionDefaultVariant.
func attentionVariantRules() rule.Set[string] {
	return rule.Set[string]{
		{Match: map[string]any{"can_use_chunked": true}, Value: "decode_chunked_f16kv"},
		{Match: map[string]any{"can_use_decode_subgroup": true}, Value: "decode_subgroup"},
		{Match: map[string]any{}, Value: ""},
	}
}

// SelectAttention runs the attention tier ladder and variant-rule table
// and returns a plan naming the chosen tier and variant.
func SelectAttention(in AttentionInput) (plan.KernelPlan, error) {
	if in.Override != "" {
		return attentionOverride(in), nil
	}

	isDecode := in.SeqLen == 1

	if in.RequestStreaming && !isDecode {
		if in.Strict {
			return plan.KernelPlan{}, kernelerr.Config("attention", "streaming", "streaming tier is decode-only; requested during a prefill call")
		}
		if in.Telemetry != nil {
			in.Telemetry.WarnOnce("attention-streaming-prefill", "streaming tier requested for a prefill call; falling back to the normal tier ladder")
		}
	}

	useFullF16 := in.UseF16KV && in.UseF16Q

	canSubgroup := in.Snapshot.HasSubgroups && isDecode &&
		in.HeadDim <= in.Thresholds.SubgroupMaxHeadDim &&
		in.SharedMemBudget >= in.Thresholds.SubgroupShared
	canLarge := in.HeadDim <= in.Thresholds.LargeMaxHeadDim &&
		in.SharedMemBudget >= pickSharedMin(in.UseF16KV, in.Thresholds.LargeSharedF16, in.Thresholds.LargeSharedF32)
	canSmall := in.HeadDim <= in.Thresholds.SmallMaxHeadDim &&
		in.SharedMemBudget >= pickSharedMin(in.UseF16KV, in.Thresholds.SmallSharedF16, in.Thresholds.SmallSharedF32)
	canUseChunked := isDecode && in.UseF16KV &&
		in.HeadDim >= in.Thresholds.MinHeadDimForChunked &&
		in.KVLen <= in.Thresholds.ChunkedMaxKVLen
	canUseDecodeSubgroup := isDecode && !in.UseF16KV && !in.UseF16Q &&
		in.HeadDim <= in.Thresholds.SubgroupMaxHeadDim &&
		in.KVLen <= in.Thresholds.DecodeSubgroupMaxKVLen

	tierCtx := rule.Context{
		"can_subgroup": canSubgroup,
		"can_large":    canLarge,
		"can_small":    canSmall,
	}
	tier, _ := rule.SelectByRules(attentionTierRules(), tierCtx)
	if in.RequestStreaming && isDecode {
		tier = plan.TierStreaming
	}

	variantCtx := rule.Context{
		"can_use_chunked":         canUseChunked,
		"can_use_decode_subgroup": canUseDecodeSubgroup,
	}
	variant, _ := rule.SelectByRules(attentionVariantRules(), variantCtx)
	if variant == "" {
		variant = attentionDefaultVariant(isDecode, useFullF16, in.UseF16KV)
	}

	wg := attentionWorkgroups(tier, in.SeqLen, in.NumHeads, in.Thresholds)

	return plan.KernelPlan{
		Operation:       "attention",
		Variant:         variant,
		Tier:            tier,
		Workgroups:      wg,
		OutputDType:     tensor.F16,
		SelectionReason: attentionVariantReason(variant),
	}, nil
}

func pickSharedMin(useF16KV bool, f16, f32 uint32) uint32 {
	if useF16KV {
		return f16
	}
	return f32
}

// attentionOverride builds a plan directly from a caller-specified path
// override, skipping the tier ladder. Its tier is inferred from the
// variant name purely to pick a workgroup-count formula; the plan
// validator checks the override against its own registered
// requirements independent of that inference.
func attentionOverride(in AttentionInput) plan.KernelPlan {
	tier := inferAttentionTier(in.Override)
	wg := attentionWorkgroups(tier, in.SeqLen, in.NumHeads, in.Thresholds)
	return plan.KernelPlan{
		Operation:       "attention",
		Variant:         in.Override,
		Tier:            tier,
		Workgroups:      wg,
		OutputDType:     tensor.F16,
		SelectionReason: "caller-specified path override for this layer and phase",
	}
}

func inferAttentionTier(variant string) plan.Tier {
	switch {
	case strings.Contains(variant, "subgroup"):
		return plan.TierSubgroup
	case strings.Contains(variant, "large"):
		return plan.TierTiledLarge
	case strings.Contains(variant, "small"):
		return plan.TierTiledSmall
	default:
		return plan.TierStreaming
	}
}

// attentionDefaultVariant names the tier-independent fallback variant
// once neither the chunked nor the decode-subgroup path applies: the
// call's phase (decode|prefill) plus the dtype-naming suffix the plan
// validator's three-bucket convention (spec §4.H) expects.
func attentionDefaultVariant(isDecode, useFullF16, useF16KV bool) string {
	phase := "prefill"
	if isDecode {
		phase = "decode"
	}
	switch {
	case useFullF16:
		return phase + "_f16"
	case useF16KV:
		return phase + "_f16kv"
	default:
		return phase
	}
}

func attentionVariantReason(variant string) string {
	switch variant {
	case "decode_chunked_f16kv":
		return "decode call with f16 KV cache, head_dim and kv_len within chunked bounds"
	case "decode_subgroup":
		return "decode call with plain f32 dtypes fits the subgroup decode path"
	default:
		return "phase and dtype select the tier's default variant naming"
	}
}

// attentionWorkgroups computes the dispatch size for the chosen tier
// per spec §4.G.1 step 6.
func attentionWorkgroups(tier plan.Tier, seqLen, numHeads uint32, th registry.Thresholds) plan.Workgroups {
	switch tier {
	case plan.TierSubgroup:
		return plan.Workgroups{X: numHeads, Y: 1, Z: 1}
	case plan.TierTiledLarge:
		return plan.Workgroups{X: ceilDiv(seqLen, th.LargeBlock) * numHeads, Y: 1, Z: 1}
	case plan.TierTiledSmall:
		return plan.Workgroups{X: ceilDiv(seqLen, th.SmallBlock) * numHeads, Y: 1, Z: 1}
	default:
		return plan.Workgroups{X: seqLen * numHeads, Y: 1, Z: 1}
	}
}

// Labeled formats an operation/variant pair as a human-readable
// dispatch label.
func Labeled(operation, variant string) string {
	return fmt.Sprintf("%s/%s", operation, variant)
}
