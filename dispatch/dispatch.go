// Package dispatch implements the Dispatch/Record Wrapper of spec
// §4.I: the single choke point where a validated KernelPlan becomes an
// actual GPU compute dispatch. It resolves the pipeline, allocates the
// uniform scratch buffer, builds the bind group, and either submits
// immediately (run_<op>) or appends to a caller-owned Recorder
// (record_<op>), per the state machine:
//
//	Enter -> ResolvePipeline -> AllocUniforms -> BuildBindGroup ->
//	  (Immediate: OpenEncoder -> Dispatch -> Submit -> ReleaseScratch
//	 | Recording: AppendPass -> HandOffScratch) -> Return
package dispatch

import (
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-rt/kernelrt/kernelerr"
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/uniformcache"
)

// Binding is one ordered entry of a dispatch's bind group.
type Binding struct {
	Index  uint32
	Buffer *wgpu.Buffer
}

// Request carries everything Execute needs to run one kernel dispatch.
// Recorder is nil for an immediately-submitted call and non-nil for a
// batched one; the Indirect flag skips the workgroup-overflow check
// since an indirect dispatch's size is computed on the GPU and is not
// known at record time.
type Request struct {
	Device                    *wgpu.Device
	Queue                     *wgpu.Queue
	Recorder                  *recorder.Recorder
	Pipeline                  *wgpu.ComputePipeline
	BindGroupLayout           *wgpu.BindGroupLayout
	Bindings                  []Binding
	UniformSizeBytes          uint32
	UniformWriter             uniformcache.Writer
	Workgroups                plan.Workgroups
	Indirect                  bool
	MaxWorkgroupsPerDimension uint32
	Operation                 string
	Variant                   string
	Label                     string
}

// Execute runs a validated plan's dispatch per the state machine above.
// The caller must have already run the plan through validate.Checker;
// Execute itself only enforces the workgroup-overflow limit, since that
// depends on the concrete dispatch size rather than static plan
// metadata.
func Execute(req Request) error {
	if !req.Indirect {
		if err := checkDispatchLimit(req); err != nil {
			return err
		}
	}

	var uniformBuf *wgpu.Buffer
	if req.UniformSizeBytes > 0 {
		var releaser uniformcache.Releaser
		if req.Recorder != nil {
			releaser = req.Recorder
		}
		buf, err := uniformcache.Alloc(req.Device, req.Queue, req.Label+" uniforms", req.UniformSizeBytes, req.UniformWriter, releaser)
		if err != nil {
			return kernelerr.Compilation(req.Operation, req.Variant, req.Label+" uniforms", err)
		}
		uniformBuf = buf
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(req.Bindings)+1)
	for _, b := range req.Bindings {
		entries = append(entries, wgpu.BindGroupEntry{Binding: b.Index, Buffer: b.Buffer})
	}
	if uniformBuf != nil {
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(len(req.Bindings)), Buffer: uniformBuf})
	}

	bindGroup, err := req.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   req.Label,
		Layout:  req.BindGroupLayout,
		Entries: entries,
	})
	if err != nil {
		return kernelerr.Compilation(req.Operation, req.Variant, req.Label+" bind group", err)
	}

	if req.Recorder != nil {
		pass := req.Recorder.BeginComputePass(req.Label)
		pass.SetPipeline(req.Pipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		pass.DispatchWorkgroups(req.Workgroups.X, req.Workgroups.Y, req.Workgroups.Z)
		pass.End()
		bindGroup.Release()
		return nil
	}

	enc, err := req.Device.CreateCommandEncoder(nil)
	if err != nil {
		bindGroup.Release()
		if uniformBuf != nil {
			uniformBuf.Release()
		}
		return err
	}
	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(req.Pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(req.Workgroups.X, req.Workgroups.Y, req.Workgroups.Z)
	pass.End()

	cmd, err := enc.Finish(nil)
	if err != nil {
		enc.Release()
		bindGroup.Release()
		if uniformBuf != nil {
			uniformBuf.Release()
		}
		return err
	}
	req.Queue.Submit(cmd)
	cmd.Release()
	enc.Release()
	bindGroup.Release()
	if uniformBuf != nil {
		uniformBuf.Release()
	}
	return nil
}

func checkDispatchLimit(req Request) error {
	max := req.MaxWorkgroupsPerDimension
	if max == 0 {
		return nil
	}
	over := req.Workgroups.X > max || req.Workgroups.Y > max || req.Workgroups.Z > max
	if !over {
		return nil
	}
	sx, sy := suggestSplit(req.Workgroups.X, max)
	return kernelerr.DispatchLimit(req.Operation, req.Variant,
		fmt.Sprintf("workgroup count %d exceeds device max %d on one dimension; consider splitting dimension X into a %dx%d 2D dispatch",
			req.Workgroups.X, max, sx, sy))
}

// suggestSplit proposes a near-square 2D factorization of an
// overflowing 1D workgroup count n so a caller can re-issue the
// dispatch across two dimensions, each within max.
func suggestSplit(n, max uint32) (x, y uint32) {
	if n == 0 {
		return 0, 0
	}
	x = uint32(math.Ceil(math.Sqrt(float64(n))))
	if x == 0 {
		x = 1
	}
	y = (n + x - 1) / x
	for x > max && x > 1 {
		x--
		y = (n + x - 1) / x
	}
	return x, y
}
