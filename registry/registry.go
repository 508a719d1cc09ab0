// Package registry implements the Kernel Configuration Registry of spec
// §4.A: an in-memory, immutable-after-load table mapping
// (operation, variant) to the shader source, entry point, workgroup
// size, required features, binding schema, and specialization constants
// a selector needs to hand off to the pipeline cache.
//
// The registry never reads a config file itself — file loading and
// schema validation are explicitly out of scope (spec Non-goals). It
// only decodes an already-parsed RawConfig value, which callers build
// however they like (yaml.Unmarshal against a fixture, a hand-built
// struct literal in tests, or a loader living outside this module).
package registry

import "github.com/oxy-rt/kernelrt/kernelerr"

// BindingSpec names one entry in a variant's bind group, in the order
// the shader expects them.
type BindingSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// UniformField names one field of a variant's uniform scratch buffer, in
// declaration order. It carries no byte offset; the caller's
// uniformcache.Writer lays the fields out.
type UniformField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// VariantConfig is the immutable configuration for one (operation,
// variant) pair, as registered at runtime construction.
type VariantConfig struct {
	WGSLSourceRef   string         `yaml:"wgsl_source_ref"`
	EntryPoint      string         `yaml:"entry_point"`
	Workgroup       [3]uint32      `yaml:"workgroup"`
	Requires        []string       `yaml:"requires"`
	Bindings        []BindingSpec  `yaml:"bindings"`
	Uniforms        []UniformField `yaml:"uniforms"`
	WGSLOverrides   map[string]any `yaml:"wgsl_overrides"`
	OutputDType     string         `yaml:"output_dtype"`
	VariantMetadata map[string]any `yaml:"variant_metadata"`
}

// OperationConfig is the set of variants registered for one operator
// family (e.g. "attention", "matmul").
type OperationConfig struct {
	Variants map[string]VariantConfig `yaml:"variants"`
}

// Thresholds holds the operator-family-spanning numeric constants that
// drive tier-ladder and decision-tree boundaries (spec §4.G, §8): the
// multicol dispatch-width cutoff, per-tier head-dim/shared-memory
// minimums, the chunked-decode KV-length ceiling, the tiled-attention
// block sizes, and the sample/FFN variant-rule cutoffs.
type Thresholds struct {
	MulticolThreshold         uint32            `yaml:"multicol_threshold"`
	SubgroupMaxHeadDim        uint32            `yaml:"subgroup_max_head_dim"`
	MinHeadDimForChunked      uint32            `yaml:"min_head_dim_for_chunked"`
	ChunkedMaxKVLen           uint32            `yaml:"chunked_max_kv_len"`
	MaxWorkgroupsPerDimension uint32            `yaml:"max_workgroups_per_dimension"`
	TierSharedMemoryMinBytes  map[string]uint32 `yaml:"tier_shared_memory_min_bytes"`

	// LargeMaxHeadDim/SmallMaxHeadDim and the paired shared-memory
	// minimums drive the tiled_large/tiled_small capability booleans of
	// spec §4.G.1 step 2. The f16/f32 pair lets a smaller KV cache dtype
	// fit a tighter shared-memory budget than a full-precision one.
	LargeMaxHeadDim uint32 `yaml:"large_max_head_dim"`
	SmallMaxHeadDim uint32 `yaml:"small_max_head_dim"`
	LargeSharedF16  uint32 `yaml:"large_shared_f16"`
	LargeSharedF32  uint32 `yaml:"large_shared_f32"`
	SmallSharedF16  uint32 `yaml:"small_shared_f16"`
	SmallSharedF32  uint32 `yaml:"small_shared_f32"`
	SubgroupShared  uint32 `yaml:"subgroup_shared"`

	// DecodeSubgroupMaxKVLen bounds the decode-time, non-f16 subgroup
	// attention path (can_use_decode_subgroup); unlike ChunkedMaxKVLen
	// it applies to the plain-dtype decode_subgroup variant, not the
	// f16kv chunked one.
	DecodeSubgroupMaxKVLen uint32 `yaml:"decode_subgroup_max_kv_len"`

	// LargeBlock/SmallBlock are the tile widths the tiled_large/
	// tiled_small workgroup-count formulas divide seq_len by.
	LargeBlock uint32 `yaml:"large_block"`
	SmallBlock uint32 `yaml:"small_block"`

	// FusedQ4KDisabled force-disables the fused Q4K matmul path
	// regardless of capability, falling through to GEMV/generic.
	FusedQ4KDisabled bool `yaml:"fused_q4k_disabled"`

	// GreedyThreshold is the temperature floor below which the sample
	// selector degrades top-K sampling to deterministic argmax.
	GreedyThreshold float32 `yaml:"greedy_threshold"`
	// DefaultSampleWorkgroupSize is default_wg_size in spec §4.G.3's
	// num_workgroups formula for the first sample pass.
	DefaultSampleWorkgroupSize uint32 `yaml:"default_sample_workgroup_size"`

	// MultiOutputThreshold is the intermediate_size ceiling below which
	// the FFN selector fuses gate+up projections into one dispatch
	// (use_multi_output, spec §4.G.4).
	MultiOutputThreshold uint32 `yaml:"multi_output_threshold"`
	// QKKAlignment is the block size FFN's hidden_size must be a
	// multiple of for the Q4K-fused path to be eligible.
	QKKAlignment uint32 `yaml:"qk_k_alignment"`
}

// RawConfig is the full decoded configuration document: one
// OperationConfig per operator family plus the shared Thresholds. It
// mirrors the registry's wire shape exactly and is never constructed by
// this package — only consumed via New.
type RawConfig struct {
	Operations map[string]OperationConfig `yaml:"operations"`
	Thresholds Thresholds                 `yaml:"thresholds"`
}

// Validator is a late-bound constraint check over a variant's config,
// registered via SetValidator and consumed by the plan validator (spec
// §4.H). It lets a component outside this package (validate.Checker)
// attach operation-specific rules without the registry importing it.
type Validator func(cfg VariantConfig) error

// Registry is the read-only, queryable view of a RawConfig plus any
// validators set_validator has attached. It is safe for concurrent
// reads; Registry itself is never mutated after construction except via
// SetValidator, which callers are expected to invoke only during
// runtime setup.
type Registry struct {
	raw        RawConfig
	validators map[string]Validator
}

// New builds a Registry from an already-decoded configuration document.
func New(raw RawConfig) *Registry {
	return &Registry{raw: raw, validators: make(map[string]Validator)}
}

func variantKey(operation, variant string) string {
	return operation + "::" + variant
}

// Lookup returns the immutable configuration for (operation, variant).
// A miss on either the operation or the variant surfaces as a
// kernelerr.Config "unknown variant" error, per spec §4.A.
func (r *Registry) Lookup(operation, variant string) (VariantConfig, error) {
	op, ok := r.raw.Operations[operation]
	if !ok {
		return VariantConfig{}, kernelerr.Config(operation, variant, "unknown operation")
	}
	cfg, ok := op.Variants[variant]
	if !ok {
		return VariantConfig{}, kernelerr.Config(operation, variant, "unknown variant")
	}
	return cfg, nil
}

// Thresholds returns the shared numeric constants loaded with this
// registry.
func (r *Registry) Thresholds() Thresholds {
	return r.raw.Thresholds
}

// SetValidator attaches a late-bound constraint validator for
// (operation, variant), overwriting any previously registered one. The
// plan validator calls Validate to run it.
func (r *Registry) SetValidator(operation, variant string, v Validator) {
	r.validators[variantKey(operation, variant)] = v
}

// Validate runs the validator registered for (operation, variant)
// against cfg, if one was set. It returns nil when no validator was
// registered — absence of a custom validator is not itself an error.
func (r *Registry) Validate(operation, variant string, cfg VariantConfig) error {
	v, ok := r.validators[variantKey(operation, variant)]
	if !ok {
		return nil
	}
	return v(cfg)
}
