package selector

import (
	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/kernelerr"
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/registry"
	"github.com/oxy-rt/kernelrt/tensor"
)

// gemvOnSubgroupAllowlist is the fixed set of override paths known at
// build time to be safe to run as a GEMV dispatch on subgroup-capable
// hardware (spec §9 Open Question 3). It is intentionally a small,
// non-extensible constant rather than a registry: no caller outside
// this file needs to grow it.
var gemvOnSubgroupAllowlist = []string{"gemv_subgroup_fast"}

func allowsGEMVOnSubgroup(override string) bool {
	for _, a := range gemvOnSubgroupAllowlist {
		if a == override {
			return true
		}
	}
	return false
}

// MatmulInput carries the call-site facts the matmul/GEMV decision tree
// of spec §4.G.2 decides on. ADType is the activation dtype; BDType is
// the weight dtype, which may be the quantized Q4K format. A nil
// RequestedOutputDType means the caller left the output dtype
// unspecified and accepts the variant's default.
//
// Registry lets the selector look up a chosen variant's dispatch-shape
// metadata (cols_per_wg, tile_m, workgroup size) once it has settled on
// a name, since that per-variant metadata — not a general threshold —
// is what fixes the final dispatch count.
type MatmulInput struct {
	Override             string
	M, N, K              uint32
	ADType               tensor.DType
	BDType               tensor.DType
	TransposeB           bool
	RequestedOutputDType *tensor.DType

	Snapshot   gpu.Snapshot
	Thresholds registry.Thresholds
	Registry   *registry.Registry
}

// SelectMatmul walks the matmul/GEMV decision tree of spec §4.G.2
// (first applicable step wins): an explicit override wins if
// compatible, then a Q4K-quantized weight on subgroup hardware gets the
// fused kernel, then a single-row f16-weight call gets the GEMV fast
// path, and everything else falls through to the generic dense matmul.
func SelectMatmul(in MatmulInput) (plan.KernelPlan, error) {
	if in.Override != "" {
		return matmulOverride(in)
	}
	if in.BDType == tensor.Q4K && in.Snapshot.HasSubgroups && !in.Thresholds.FusedQ4KDisabled {
		return matmulQ4K(in), nil
	}
	if in.M == 1 && in.BDType == tensor.F16 && in.Snapshot.HasF16 {
		return matmulGEMV(in), nil
	}
	return matmulGeneric(in), nil
}

// dtypeSuffix implements the (a_dtype, wants_f16_output) sub-rule table
// shared by the Q4K and GEMV branches: f16 activations always win the
// "_f16a" suffix; otherwise an explicit request for f16 output wins
// "_f16o"; a f32 activation with no such request gets the plain,
// unsuffixed default.
func dtypeSuffix(aDType tensor.DType, requestedOutput *tensor.DType) string {
	if aDType == tensor.F16 {
		return "_f16a"
	}
	if requestedOutput != nil && *requestedOutput == tensor.F16 {
		return "_f16o"
	}
	return ""
}

func matmulOverride(in MatmulInput) (plan.KernelPlan, error) {
	if allowsGEMVOnSubgroup(in.Override) {
		if !in.Snapshot.HasSubgroups {
			return plan.KernelPlan{}, kernelerr.Override("matmul", in.Override, "override requires subgroup support, which this device lacks")
		}
		if in.M != 1 || in.BDType != tensor.F16 {
			return plan.KernelPlan{}, kernelerr.Override("matmul", in.Override, "override is only valid for a single-row, f16-weight GEMV")
		}
	}
	return plan.KernelPlan{
		Operation:       "matmul",
		Variant:         in.Override,
		OutputDType:     tensor.F16,
		Workgroups:      plan.Workgroups{X: matmulMetaU32(in, in.Override, "cols_per_wg", 1), Y: 1, Z: 1},
		SelectionReason: "caller-specified override",
	}, nil
}

// matmulQ4K selects the fused dequant+matmul kernel for a Q4K-quantized
// weight: multicol for a single activation row, batched across rows
// otherwise, with the (a_dtype, wants_f16_output) suffix appended.
func matmulQ4K(in MatmulInput) plan.KernelPlan {
	sub := "batched"
	if in.M == 1 {
		sub = "multicol"
	}
	variant := "q4_fused_" + sub + dtypeSuffix(in.ADType, in.RequestedOutputDType)

	var wg plan.Workgroups
	if sub == "multicol" {
		colsPerWG := matmulMetaU32(in, variant, "cols_per_wg", 32)
		wg = plan.Workgroups{X: ceilDiv(in.N, colsPerWG), Y: 1, Z: 1}
	} else {
		tileM := matmulMetaU32(in, variant, "tile_m", 1)
		wg = plan.Workgroups{X: in.N, Y: ceilDiv(in.M, tileM), Z: 1}
	}

	return plan.KernelPlan{
		Operation:       "matmul",
		Variant:         variant,
		Workgroups:      wg,
		OutputDType:     tensor.F16,
		SelectionReason: "q4k-quantized weight on subgroup hardware uses the fused dequant+matmul kernel",
	}
}

// matmulGEMV builds the single-row GEMV variant name and dispatch size:
// subgroup vs. plain by device capability, multicol vs. single-column
// by N against multicol_threshold, and the shared dtype suffix.
func matmulGEMV(in MatmulInput) plan.KernelPlan {
	variant := "gemv"
	if in.Snapshot.HasSubgroups {
		variant += "_subgroup"
	}
	if in.N > in.Thresholds.MulticolThreshold {
		variant += "_multicol"
	}
	variant += dtypeSuffix(in.ADType, in.RequestedOutputDType)

	colsPerWG := matmulMetaU32(in, variant, "cols_per_wg", 64)
	return plan.KernelPlan{
		Operation:       "matmul",
		Variant:         variant,
		Workgroups:      plan.Workgroups{X: ceilDiv(in.N, colsPerWG), Y: 1, Z: 1},
		OutputDType:     tensor.F16,
		SelectionReason: "single-row matmul with a f16 weight uses the GEMV fast path",
	}
}

// matmulGeneric picks among the three dense-matmul precision variants
// and computes a tiled dispatch size from the variant's own registered
// workgroup size, widening each thread's column coverage by 4 for a
// vec4-packed f16 variant.
func matmulGeneric(in MatmulInput) plan.KernelPlan {
	variant := "generic_f32"
	switch {
	case in.ADType == tensor.F16 && in.BDType == tensor.F16:
		variant = "generic_f16"
	case in.BDType == tensor.F16 && in.ADType == tensor.F32:
		variant = "generic_mixed"
	}

	wgX := matmulMetaU32(in, variant, "workgroup_x", 16)
	wgY := matmulMetaU32(in, variant, "workgroup_y", 16)
	colsPerThread := uint32(1)
	if matmulMetaBool(in, variant, "f16_vec4") {
		colsPerThread = 4
	}

	return plan.KernelPlan{
		Operation:       "matmul",
		Variant:         variant,
		Workgroups:      plan.Workgroups{X: ceilDiv(in.M, wgX), Y: ceilDiv(in.N, wgY*colsPerThread), Z: 1},
		OutputDType:     tensor.F16,
		SelectionReason: "dense matmul without a quantized weight selects a precision-matched generic kernel",
	}
}

func matmulCfg(in MatmulInput, variant string) (registry.VariantConfig, bool) {
	if in.Registry == nil {
		return registry.VariantConfig{}, false
	}
	cfg, err := in.Registry.Lookup("matmul", variant)
	if err != nil {
		return registry.VariantConfig{}, false
	}
	return cfg, true
}

func matmulMetaU32(in MatmulInput, variant, key string, fallback uint32) uint32 {
	cfg, ok := matmulCfg(in, variant)
	if !ok {
		return fallback
	}
	if v, ok := asU32(cfg.VariantMetadata[key]); ok {
		return v
	}
	return fallback
}

func matmulMetaBool(in MatmulInput, variant, key string) bool {
	cfg, ok := matmulCfg(in, variant)
	if !ok {
		return false
	}
	b, _ := cfg.VariantMetadata[key].(bool)
	return b
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

func ceilDiv(n, d uint32) uint32 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}
