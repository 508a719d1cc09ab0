package validate

import (
	"testing"

	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/kernelerr"
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureRegistry() *registry.Registry {
	return registry.New(registry.RawConfig{
		Operations: map[string]registry.OperationConfig{
			"attention": {
				Variants: map[string]registry.VariantConfig{
					"decode_chunked_f16kv": {
						Requires:    []string{"shader-f16"},
						OutputDType: "f16",
						VariantMetadata: map[string]any{
							"min_head_dim_for_chunked": 64,
							"max_kv_len":               4096,
							"tier":                     "tiled_large",
						},
					},
					"subgroup": {
						Requires:    []string{"subgroups"},
						OutputDType: "f16",
						VariantMetadata: map[string]any{
							"tier": "subgroup",
						},
					},
					"decode_f16": {
						Requires:    []string{"shader-f16"},
						OutputDType: "f16",
						VariantMetadata: map[string]any{
							"tier": "subgroup",
						},
					},
				},
			},
		},
		Thresholds: registry.Thresholds{
			TierSharedMemoryMinBytes: map[string]uint32{
				"subgroup":    0,
				"tiled_large": 16384,
			},
		},
	})
}

func TestValidateAcceptsWellFormedDecodePlan(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "decode_chunked_f16kv"}
	in := Input{
		IsDecode: true,
		UseF16KV: true,
		HeadDim:  64,
		KVLen:    4096,
		Snapshot: gpu.Snapshot{HasF16: true, MaxComputeWorkgroupStorageSize: 16384},
	}
	out, err := c.Validate(p, in)
	require.NoError(t, err)
	assert.True(t, out.Validated)
}

func TestValidateRejectsMissingFeature(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "subgroup"}
	in := Input{Snapshot: gpu.Snapshot{HasSubgroups: false}}
	_, err := c.Validate(p, in)
	require.Error(t, err)
	var kerr *kernelerr.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, kernelerr.KindCapability, kerr.Kind)
}

func TestValidateRejectsF16KVNamingMismatch(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "decode_chunked_f16kv"}
	in := Input{
		IsDecode: true,
		UseF16KV: false,
		HeadDim:  64,
		Snapshot: gpu.Snapshot{HasF16: true},
	}
	_, err := c.Validate(p, in)
	require.Error(t, err)
	assert.True(t, err.(*kernelerr.Error).Is(kernelerr.KindDtypeMismatch))
}

func TestValidateRejectsDecodeVariantOnPrefillCall(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "decode_chunked_f16kv"}
	in := Input{IsDecode: false, UseF16KV: true, HeadDim: 64, Snapshot: gpu.Snapshot{HasF16: true}}
	_, err := c.Validate(p, in)
	require.Error(t, err)
	assert.True(t, err.(*kernelerr.Error).Is(kernelerr.KindConfig))
}

func TestValidateRejectsHeadDimBelowChunkedMinimum(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "decode_chunked_f16kv"}
	in := Input{IsDecode: true, UseF16KV: true, HeadDim: 32, KVLen: 100, Snapshot: gpu.Snapshot{HasF16: true}}
	_, err := c.Validate(p, in)
	require.Error(t, err)
	assert.True(t, err.(*kernelerr.Error).Is(kernelerr.KindShape))
}

func TestValidateAcceptsHeadDimAtExactChunkedBoundary(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "decode_chunked_f16kv"}
	in := Input{
		IsDecode: true, UseF16KV: true, HeadDim: 64, KVLen: 4096,
		Snapshot: gpu.Snapshot{HasF16: true, MaxComputeWorkgroupStorageSize: 16384},
	}
	out, err := c.Validate(p, in)
	require.NoError(t, err)
	assert.True(t, out.Validated)
}

func TestValidateRejectsKVLenAboveMax(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "decode_chunked_f16kv"}
	in := Input{IsDecode: true, UseF16KV: true, HeadDim: 64, KVLen: 4097, Snapshot: gpu.Snapshot{HasF16: true}}
	_, err := c.Validate(p, in)
	require.Error(t, err)
	assert.True(t, err.(*kernelerr.Error).Is(kernelerr.KindShape))
}

func TestValidateRejectsInsufficientSharedMemoryForTier(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "decode_chunked_f16kv"}
	in := Input{
		IsDecode: true, UseF16KV: true, HeadDim: 64, KVLen: 100,
		Snapshot: gpu.Snapshot{HasF16: true, MaxComputeWorkgroupStorageSize: 8192},
	}
	_, err := c.Validate(p, in)
	require.Error(t, err)
	assert.True(t, err.(*kernelerr.Error).Is(kernelerr.KindCapability))
}

func TestValidateAcceptsFullF16Variant(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "decode_f16"}
	in := Input{
		IsDecode: true, UseF16Q: true, UseF16KV: true,
		Snapshot: gpu.Snapshot{HasF16: true},
	}
	out, err := c.Validate(p, in)
	require.NoError(t, err)
	assert.True(t, out.Validated)
}

func TestValidateRejectsFullF16VariantWithF32Query(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "decode_f16"}
	in := Input{
		IsDecode: true, UseF16Q: false, UseF16KV: true,
		Snapshot: gpu.Snapshot{HasF16: true},
	}
	_, err := c.Validate(p, in)
	require.Error(t, err)
	assert.True(t, err.(*kernelerr.Error).Is(kernelerr.KindDtypeMismatch))
}

func TestValidateRejectsPlainVariantWithF16Query(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "subgroup"}
	in := Input{
		IsDecode: true, UseF16Q: true,
		Snapshot: gpu.Snapshot{HasF16: true, HasSubgroups: true},
	}
	_, err := c.Validate(p, in)
	require.Error(t, err)
	assert.True(t, err.(*kernelerr.Error).Is(kernelerr.KindDtypeMismatch))
}

func TestValidateUnknownVariantSurfacesConfigError(t *testing.T) {
	c := New(fixtureRegistry())
	p := plan.KernelPlan{Operation: "attention", Variant: "nonexistent"}
	_, err := c.Validate(p, Input{})
	require.Error(t, err)
	assert.True(t, err.(*kernelerr.Error).Is(kernelerr.KindConfig))
}
