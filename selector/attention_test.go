package selector

import (
	"testing"

	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/kernelerr"
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/registry"
	"github.com/oxy-rt/kernelrt/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attentionThresholds() registry.Thresholds {
	return registry.Thresholds{
		SubgroupMaxHeadDim:     128,
		SubgroupShared:         4096,
		MinHeadDimForChunked:   64,
		ChunkedMaxKVLen:        4096,
		DecodeSubgroupMaxKVLen: 2048,
		LargeMaxHeadDim:        128,
		LargeSharedF16:         16384,
		LargeSharedF32:         16384,
		LargeBlock:             64,
		SmallMaxHeadDim:        256,
		SmallSharedF16:         8192,
		SmallSharedF32:         16384,
		SmallBlock:             16,
	}
}

// Scenario 1 (spec §8): attention decode, seq_len=1, kv_len=2048,
// head_dim=128, num_heads=32, q_dtype=f32, kv_dtype=f16,
// caps={has_f16:true, has_subgroups:true, shared_mem=32768}. Expected:
// tier=subgroup, variant decode_chunked_f16kv, workgroups=32.
func TestSelectAttentionScenario1DecodeChunkedOverSubgroup(t *testing.T) {
	p, err := SelectAttention(AttentionInput{
		SeqLen: 1, KVLen: 2048, HeadDim: 128, NumHeads: 32,
		UseF16Q: false, UseF16KV: true, SharedMemBudget: 32768,
		Snapshot:   gpu.Snapshot{HasF16: true, HasSubgroups: true},
		Thresholds: attentionThresholds(),
	})
	require.NoError(t, err)
	assert.Equal(t, plan.TierSubgroup, p.Tier)
	assert.Equal(t, "decode_chunked_f16kv", p.Variant)
	assert.Equal(t, plan.Workgroups{X: 32, Y: 1, Z: 1}, p.Workgroups)
}

// Scenario 2 (spec §8): attention prefill, seq_len=512, kv_len=512,
// head_dim=64, num_heads=8, both dtypes=f32, shared_mem=16384.
// Expected: tier=tiled_large, variant prefill, workgroups=⌈512/LARGE⌉*8.
func TestSelectAttentionScenario2PrefillTiledLarge(t *testing.T) {
	th := attentionThresholds()
	p, err := SelectAttention(AttentionInput{
		SeqLen: 512, KVLen: 512, HeadDim: 64, NumHeads: 8,
		SharedMemBudget: 16384,
		Thresholds:      th,
	})
	require.NoError(t, err)
	assert.Equal(t, plan.TierTiledLarge, p.Tier)
	assert.Equal(t, "prefill", p.Variant)
	assert.Equal(t, ceilDiv(512, th.LargeBlock)*8, p.Workgroups.X)
}

func TestSelectAttentionSubgroupMaxHeadDimBoundary(t *testing.T) {
	th := attentionThresholds()
	atBoundary, err := SelectAttention(AttentionInput{
		SeqLen: 1, HeadDim: th.SubgroupMaxHeadDim, NumHeads: 1,
		SharedMemBudget: th.SubgroupShared,
		Snapshot:        gpu.Snapshot{HasSubgroups: true}, Thresholds: th,
	})
	require.NoError(t, err)
	assert.Equal(t, plan.TierSubgroup, atBoundary.Tier)

	overBoundary, err := SelectAttention(AttentionInput{
		SeqLen: 1, HeadDim: th.SubgroupMaxHeadDim + 1, NumHeads: 1,
		SharedMemBudget: th.SubgroupShared,
		Snapshot:        gpu.Snapshot{HasSubgroups: true}, Thresholds: th,
	})
	require.NoError(t, err)
	assert.NotEqual(t, plan.TierSubgroup, overBoundary.Tier)
}

func TestSelectAttentionChunkedMaxKVLenBoundary(t *testing.T) {
	th := attentionThresholds()
	atBoundary, err := SelectAttention(AttentionInput{
		SeqLen: 1, UseF16KV: true, HeadDim: 64, KVLen: th.ChunkedMaxKVLen,
		NumHeads: 1, Thresholds: th,
	})
	require.NoError(t, err)
	assert.Equal(t, "decode_chunked_f16kv", atBoundary.Variant)

	overBoundary, err := SelectAttention(AttentionInput{
		SeqLen: 1, UseF16KV: true, HeadDim: 64, KVLen: th.ChunkedMaxKVLen + 1,
		NumHeads: 1, Thresholds: th,
	})
	require.NoError(t, err)
	assert.Equal(t, "decode_f16kv", overBoundary.Variant)
}

func TestSelectAttentionDecodeWithoutF16KVUsesDecodeSubgroupWhenEligible(t *testing.T) {
	th := attentionThresholds()
	p, err := SelectAttention(AttentionInput{
		SeqLen: 1, UseF16KV: false, HeadDim: 64, KVLen: 100,
		NumHeads: 4, Thresholds: th,
	})
	require.NoError(t, err)
	assert.Equal(t, "decode_subgroup", p.Variant)
}

func TestSelectAttentionDecodeFallsBackToStreamingWhenNoTierFits(t *testing.T) {
	p, err := SelectAttention(AttentionInput{
		SeqLen: 1, UseF16KV: false, HeadDim: 9000, KVLen: 100,
		NumHeads: 4, Thresholds: registry.Thresholds{},
	})
	require.NoError(t, err)
	assert.Equal(t, plan.TierStreaming, p.Tier)
	assert.Equal(t, "decode", p.Variant)
	assert.Equal(t, plan.Workgroups{X: 1 * 4, Y: 1, Z: 1}, p.Workgroups)
}

func TestSelectAttentionPrefillFallsBackToStreamingWhenNoTierFits(t *testing.T) {
	p, err := SelectAttention(AttentionInput{
		SeqLen: 2, HeadDim: 9000, NumHeads: 8,
		Thresholds: registry.Thresholds{},
	})
	require.NoError(t, err)
	assert.Equal(t, plan.TierStreaming, p.Tier)
	assert.Equal(t, "prefill", p.Variant)
	assert.Equal(t, plan.Workgroups{X: 2 * 8, Y: 1, Z: 1}, p.Workgroups)
}

func TestSelectAttentionFullF16NamesF16Variant(t *testing.T) {
	p, err := SelectAttention(AttentionInput{
		SeqLen: 3, HeadDim: 9000, NumHeads: 1,
		UseF16Q: true, UseF16KV: true,
		Thresholds: registry.Thresholds{},
	})
	require.NoError(t, err)
	assert.Equal(t, "prefill_f16", p.Variant)
}

func TestSelectAttentionReasonIsNonEmpty(t *testing.T) {
	p, err := SelectAttention(AttentionInput{Thresholds: attentionThresholds(), NumHeads: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, p.SelectionReason)
}

func TestSelectAttentionStreamingRequestDuringPrefillIsFatalInStrictMode(t *testing.T) {
	_, err := SelectAttention(AttentionInput{
		SeqLen: 2, RequestStreaming: true, Strict: true,
		Thresholds: attentionThresholds(),
	})
	require.Error(t, err)
	var kerr *kernelerr.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, kernelerr.KindConfig, kerr.Kind)
}

func TestSelectAttentionStreamingRequestDuringPrefillWarnsAndFallsBackInNonStrictMode(t *testing.T) {
	state := telemetry.NewState()
	p, err := SelectAttention(AttentionInput{
		SeqLen: 512, RequestStreaming: true, Strict: false,
		HeadDim: 64, NumHeads: 8, SharedMemBudget: 16384,
		Thresholds: attentionThresholds(),
		Telemetry:  state,
	})

	require.NoError(t, err)
	assert.Equal(t, plan.TierTiledLarge, p.Tier)
}

func TestSelectAttentionStreamingRequestDuringDecodeIsHonored(t *testing.T) {
	p, err := SelectAttention(AttentionInput{
		SeqLen: 1, RequestStreaming: true,
		HeadDim: 64, UseF16KV: true, KVLen: 100,
		Thresholds: attentionThresholds(),
	})
	require.NoError(t, err)
	assert.Equal(t, plan.TierStreaming, p.Tier)
}

func TestSelectAttentionOverrideSkipsTierLadderAndInfersTier(t *testing.T) {
	p, err := SelectAttention(AttentionInput{
		Override: "decode_subgroup_custom",
		SeqLen:   1, NumHeads: 16,
		Thresholds: attentionThresholds(),
	})
	require.NoError(t, err)
	assert.Equal(t, "decode_subgroup_custom", p.Variant)
	assert.Equal(t, plan.TierSubgroup, p.Tier)
	assert.Equal(t, plan.Workgroups{X: 16, Y: 1, Z: 1}, p.Workgroups)
}
