package pipelinecache

import (
	"testing"

	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/kernelerr"
	"github.com/oxy-rt/kernelrt/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeIsOrderIndependent(t *testing.T) {
	a := Specialization{"RMS_NORM_OFFSET": 1, "HAS_RESIDUAL": 0}
	b := Specialization{"HAS_RESIDUAL": 0, "RMS_NORM_OFFSET": 1}
	assert.Equal(t, canonicalize(a), canonicalize(b))
}

func TestMergeCallerOverrideWins(t *testing.T) {
	base := registry.VariantConfig{WGSLOverrides: map[string]any{"TILE_M": 4.0}}
	out := merge(base, Specialization{"TILE_M": 8})
	assert.Equal(t, 8.0, out["TILE_M"])
}

func TestMergeKeepsBaseWhenNoOverride(t *testing.T) {
	base := registry.VariantConfig{WGSLOverrides: map[string]any{"TILE_M": 4.0}}
	out := merge(base, nil)
	assert.Equal(t, 4.0, out["TILE_M"])
}

func TestBuildKeyIncludesEpochAndCanonicalSpecialization(t *testing.T) {
	dev := gpu.NewDevice(gpu.Snapshot{})
	c := New(dev, nil, nil)
	cfg := registry.VariantConfig{WGSLOverrides: map[string]any{"A": 1.0}}
	k1 := c.BuildKey("matmul", "q4k", cfg, nil, "")
	dev.Reset(gpu.Snapshot{})
	k2 := c.BuildKey("matmul", "q4k", cfg, nil, "")
	assert.NotEqual(t, k1.Epoch, k2.Epoch)
	assert.Equal(t, k1.Specialization, k2.Specialization)
}

func TestCheckWorkgroupIsPowerOfTwoRejectsNonPowerOfTwo(t *testing.T) {
	err := checkWorkgroupIsPowerOfTwo("attention", "subgroup", [3]uint32{96, 1, 1})
	require.Error(t, err)
	var kerr *kernelerr.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, kernelerr.KindConfig, kerr.Kind)
}

func TestCheckWorkgroupIsPowerOfTwoAcceptsValidSizes(t *testing.T) {
	assert.NoError(t, checkWorkgroupIsPowerOfTwo("attention", "subgroup", [3]uint32{64, 1, 1}))
}

func TestCheckRequiredFeaturesRejectsMissingCapability(t *testing.T) {
	err := checkRequiredFeatures("attention", "subgroup", []string{"subgroups"}, gpu.Snapshot{HasSubgroups: false})
	require.Error(t, err)
	var kerr *kernelerr.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, kernelerr.KindCapability, kerr.Kind)
}

func TestCheckRequiredFeaturesAcceptsPresentCapability(t *testing.T) {
	err := checkRequiredFeatures("attention", "subgroup", []string{"subgroups", "shader-f16"}, gpu.Snapshot{HasSubgroups: true, HasF16: true})
	assert.NoError(t, err)
}

func TestGetCachedPipelineMissReturnsFalse(t *testing.T) {
	dev := gpu.NewDevice(gpu.Snapshot{})
	c := New(dev, nil, nil)
	_, ok := c.GetCachedPipeline(Key{Operation: "attention", Variant: "subgroup"})
	assert.False(t, ok)
}
