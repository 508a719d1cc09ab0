// Package tensor defines the opaque tensor and weight-buffer contracts
// the kernel runtime consumes from its collaborators (spec §6). The
// runtime never allocates or frees the underlying buffer; it only reads
// dtype, shape, and layout to drive selection and binding.
package tensor

import "github.com/cogentcore/webgpu/wgpu"

// DType enumerates the tensor element types the runtime reasons about.
type DType int

const (
	F16 DType = iota
	F32
	BF16
	Q4K
	I32
	U32
)

// String returns the lowercase wire name used in variant suffixes
// (e.g. "_f16", "_f16kv") and log output.
func (d DType) String() string {
	switch d {
	case F16:
		return "f16"
	case F32:
		return "f32"
	case BF16:
		return "bf16"
	case Q4K:
		return "q4k"
	case I32:
		return "i32"
	case U32:
		return "u32"
	default:
		return "unknown"
	}
}

// Layout identifies how a weight matrix's elements are laid out in memory.
type Layout int

const (
	RowMajor Layout = iota
	ColumnMajor
)

// Tensor is the opaque tensor handle consumed by every operator entry
// point: a GPU buffer plus the dtype/shape metadata needed to select and
// validate a kernel plan. The runtime borrows Buffer for the duration of
// a call and never retains it past return, except via recorder-deferred
// release of caller-marked temporaries (spec §5).
type Tensor struct {
	Buffer *wgpu.Buffer
	DType  DType
	Shape  []uint32
	Label  string
}

// WeightBuffer is the opaque weight handle consumed by matmul-family
// operators.
type WeightBuffer struct {
	Buffer *wgpu.Buffer
	DType  DType
	Layout Layout
	Label  string
}
