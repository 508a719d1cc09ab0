// Package validate implements the Plan Validator of spec §4.H: the last
// checkpoint before a KernelPlan reaches dispatch. It confirms the
// selected variant actually exists, that the device satisfies its
// required features, that the variant's dtype naming convention matches
// the caller's inputs, that a phase-qualified variant is only run in
// its matching phase, and that the variant's metadata constraints
// (minimum head dim, maximum KV length, shared-memory budget) are
// satisfied. A plan that fails any check is never marked Validated and
// dispatch refuses to run it.
package validate

import (
	"strings"

	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/kernelerr"
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/registry"
)

// Input carries the call-site facts the validator checks a plan
// against — the same inputs a selector used to build the plan in the
// first place, so the validator can catch a selector bug or a
// tampered-with plan independently.
type Input struct {
	IsDecode bool
	UseF16Q  bool
	UseF16KV bool
	HeadDim  uint32
	KVLen    uint32
	Snapshot gpu.Snapshot
}

// Checker runs the plan validator against a registry's variant configs
// and thresholds.
type Checker struct {
	reg *registry.Registry
}

// New builds a Checker bound to reg.
func New(reg *registry.Registry) *Checker {
	return &Checker{reg: reg}
}

// Validate runs every check of spec §4.H against p and in, in order,
// stopping at the first failure. On success it returns p with
// Validated set true.
func (c *Checker) Validate(p plan.KernelPlan, in Input) (plan.KernelPlan, error) {
	cfg, err := c.reg.Lookup(p.Operation, p.Variant)
	if err != nil {
		return p, err
	}

	if err := checkRequiredFeatures(p.Operation, p.Variant, cfg.Requires, in.Snapshot); err != nil {
		return p, err
	}
	if err := checkDTypeNaming(p.Operation, p.Variant, in.UseF16Q, in.UseF16KV); err != nil {
		return p, err
	}
	if err := checkPhase(p.Operation, p.Variant, in.IsDecode); err != nil {
		return p, err
	}
	if err := checkVariantMetadata(p.Operation, p.Variant, cfg, in, c.reg.Thresholds()); err != nil {
		return p, err
	}
	if err := c.reg.Validate(p.Operation, p.Variant, cfg); err != nil {
		return p, err
	}

	p.Validated = true
	return p, nil
}

func checkRequiredFeatures(operation, variant string, requires []string, snap gpu.Snapshot) error {
	for _, f := range requires {
		switch f {
		case "shader-f16":
			if !snap.HasF16 {
				return kernelerr.Capability(operation, variant, "device lacks required feature shader-f16")
			}
		case "subgroups":
			if !snap.HasSubgroups {
				return kernelerr.Capability(operation, variant, "device lacks required feature subgroups")
			}
		}
	}
	return nil
}

// checkDTypeNaming enforces the three-bucket variant naming convention
// of spec §4.H: a variant name ending _f16 requires Q, K, and V all
// f16; one ending _f16kv (but not _f16) requires f16 KV with a f32 Q;
// a plain variant name (neither suffix) requires all f32.
func checkDTypeNaming(operation, variant string, useF16Q, useF16KV bool) error {
	switch {
	case strings.HasSuffix(variant, "_f16kv"):
		if !useF16KV || useF16Q {
			return kernelerr.DtypeMismatch(operation, variant, "variant name implies f16 KV cache with a f32 query, but inputs don't match")
		}
	case strings.HasSuffix(variant, "_f16"):
		if !useF16Q || !useF16KV {
			return kernelerr.DtypeMismatch(operation, variant, "variant name implies Q, K, and V all f16, but inputs don't match")
		}
	default:
		if useF16Q || useF16KV {
			return kernelerr.DtypeMismatch(operation, variant, "caller requested a f16 dtype but variant is a plain f32 variant")
		}
	}
	return nil
}

// checkPhase enforces spec §4.H's decode*/prefill* naming convention: a
// variant prefixed "decode" only runs when the call is a decode step,
// and one prefixed "prefill" only runs when it is not.
func checkPhase(operation, variant string, isDecode bool) error {
	switch {
	case strings.HasPrefix(variant, "decode") && !isDecode:
		return kernelerr.Config(operation, variant, "decode-phase variant selected for a non-decode call")
	case strings.HasPrefix(variant, "prefill") && isDecode:
		return kernelerr.Config(operation, variant, "prefill-phase variant selected for a decode call")
	}
	return nil
}

func asU32(v any) (uint32, bool) {
	switch n := v.(type) {
	case int:
		return uint32(n), true
	case int64:
		return uint32(n), true
	case float64:
		return uint32(n), true
	case uint32:
		return n, true
	default:
		return 0, false
	}
}

// checkVariantMetadata enforces the variant_metadata constraints of
// spec §4.G/§4.H: head_dim must meet the variant's declared minimum for
// chunked execution, kv_len must not exceed the variant's max, and the
// variant's tier must fit within the device's available shared memory.
func checkVariantMetadata(operation, variant string, cfg registry.VariantConfig, in Input, th registry.Thresholds) error {
	if min, ok := asU32(cfg.VariantMetadata["min_head_dim_for_chunked"]); ok && in.HeadDim < min {
		return kernelerr.Shape(operation, variant, "head_dim below variant's min_head_dim_for_chunked")
	}
	if maxKV, ok := asU32(cfg.VariantMetadata["max_kv_len"]); ok && in.KVLen > maxKV {
		return kernelerr.Shape(operation, variant, "kv_len exceeds variant's max_kv_len")
	}
	if tier, ok := cfg.VariantMetadata["tier"].(string); ok {
		if min, ok := th.TierSharedMemoryMinBytes[tier]; ok && in.Snapshot.MaxComputeWorkgroupStorageSize < min {
			return kernelerr.Capability(operation, variant, "device shared memory below tier's minimum requirement")
		}
	}
	return nil
}
