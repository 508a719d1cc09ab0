package registry

import (
	"testing"

	"github.com/oxy-rt/kernelrt/kernelerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const fixtureYAML = `
operations:
  attention:
    variants:
      subgroup:
        wgsl_source_ref: attention_subgroup.wgsl
        entry_point: main
        workgroup: [64, 1, 1]
        requires: [subgroups]
        bindings:
          - {name: q, type: storage_buffer}
          - {name: k, type: storage_buffer}
        uniforms:
          - {name: seq_len, type: u32}
        output_dtype: f16
        variant_metadata:
          min_head_dim_for_chunked: 64
      streaming:
        wgsl_source_ref: attention_streaming.wgsl
        entry_point: main
        workgroup: [32, 1, 1]
        output_dtype: f32
thresholds:
  multicol_threshold: 8
  subgroup_max_head_dim: 128
  min_head_dim_for_chunked: 64
  chunked_max_kv_len: 4096
  max_workgroups_per_dimension: 65535
  tier_shared_memory_min_bytes:
    subgroup: 0
    tiled_large: 16384
`

func loadFixture(t *testing.T) *Registry {
	t.Helper()
	var raw RawConfig
	require.NoError(t, yaml.Unmarshal([]byte(fixtureYAML), &raw))
	return New(raw)
}

func TestLookupReturnsConfiguredVariant(t *testing.T) {
	r := loadFixture(t)
	cfg, err := r.Lookup("attention", "subgroup")
	require.NoError(t, err)
	assert.Equal(t, "attention_subgroup.wgsl", cfg.WGSLSourceRef)
	assert.Equal(t, [3]uint32{64, 1, 1}, cfg.Workgroup)
	assert.Equal(t, []string{"subgroups"}, cfg.Requires)
}

func TestLookupUnknownVariantIsConfigError(t *testing.T) {
	r := loadFixture(t)
	_, err := r.Lookup("attention", "nonexistent")
	require.Error(t, err)
	var kerr *kernelerr.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, kernelerr.KindConfig, kerr.Kind)
}

func TestLookupUnknownOperationIsConfigError(t *testing.T) {
	r := loadFixture(t)
	_, err := r.Lookup("nonexistent_op", "subgroup")
	require.Error(t, err)
	assert.True(t, err.(*kernelerr.Error).Is(kernelerr.KindConfig))
}

func TestThresholdsDecoded(t *testing.T) {
	r := loadFixture(t)
	th := r.Thresholds()
	assert.Equal(t, uint32(8), th.MulticolThreshold)
	assert.Equal(t, uint32(4096), th.ChunkedMaxKVLen)
	assert.Equal(t, uint32(16384), th.TierSharedMemoryMinBytes["tiled_large"])
}

func TestSetValidatorIsConsultedByValidate(t *testing.T) {
	r := loadFixture(t)
	r.SetValidator("attention", "subgroup", func(cfg VariantConfig) error {
		if cfg.OutputDType != "f16" {
			return kernelerr.Config("attention", "subgroup", "expected f16 output")
		}
		return nil
	})

	cfg, err := r.Lookup("attention", "subgroup")
	require.NoError(t, err)
	assert.NoError(t, r.Validate("attention", "subgroup", cfg))

	cfg.OutputDType = "f32"
	assert.Error(t, r.Validate("attention", "subgroup", cfg))
}

func TestValidateWithoutRegisteredValidatorIsNoop(t *testing.T) {
	r := loadFixture(t)
	cfg, err := r.Lookup("attention", "streaming")
	require.NoError(t, err)
	assert.NoError(t, r.Validate("attention", "streaming", cfg))
}
