// Package ops wires every operator family together: selector picks a
// plan, validate.Checker checks it against the registry and capability
// snapshot, pipelinecache resolves (compiling if needed) the concrete
// pipeline and bind group layout, and dispatch.Execute actually runs
// it. Each operator family gets a run_<op> entry point (immediate,
// Recorder nil) and a record_<op> entry point (appends to a caller's
// Recorder), per spec §6.
package ops

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-rt/kernelrt/common"
	"github.com/oxy-rt/kernelrt/dispatch"
	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/pipelinecache"
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/recorder"
	"github.com/oxy-rt/kernelrt/registry"
	"github.com/oxy-rt/kernelrt/telemetry"
	"github.com/oxy-rt/kernelrt/uniformcache"
	"github.com/oxy-rt/kernelrt/validate"
)

// Handlers bundles every collaborator an operator entry point needs. A
// kernelrt.Runtime constructs exactly one Handlers and shares it across
// every run_<op>/record_<op> call.
type Handlers struct {
	Registry   *registry.Registry
	Device     *gpu.Device
	WGPUDevice *wgpu.Device
	Queue      *wgpu.Queue
	Validator  *validate.Checker
	Pipelines  *pipelinecache.Cache
	Telemetry  *telemetry.State
	Strict     bool
}

// callArgs is everything shared between the run_<op> and record_<op>
// paths once a selector has produced a plan: the plan itself, the
// validator inputs it should be checked against, the ordered storage
// bindings, and the uniform scratch buffer contents.
type callArgs struct {
	Plan           plan.KernelPlan
	ValidateInput  validate.Input
	Bindings       []dispatch.Binding
	UniformSize    uint32
	UniformWriter  uniformcache.Writer
	Specialization pipelinecache.Specialization
	ExplicitBGLID  string
	Label          string
}

// execute is the shared core every run_<op>/record_<op> wrapper calls:
// validate, resolve (sync or async) a pipeline, and dispatch.
func (h *Handlers) execute(rec *recorder.Recorder, args callArgs) error {
	validated, err := h.Validator.Validate(args.Plan, args.ValidateInput)
	if err != nil {
		return err
	}
	h.Telemetry.LogSelectionOnce(validated.Operation, validated.Variant, validated.SelectionReason)

	cfg, err := h.Registry.Lookup(validated.Operation, validated.Variant)
	if err != nil {
		return err
	}

	key := h.Pipelines.BuildKey(validated.Operation, validated.Variant, cfg, args.Specialization, args.ExplicitBGLID)
	pipeline, ok := h.Pipelines.GetCachedPipeline(key)
	if !ok {
		future := h.Pipelines.GetOrCreatePipelineAsync(h.WGPUDevice, validated.Operation, validated.Variant, cfg, h.Device.Get(), key)
		pipeline, err = future.Wait()
		if err != nil {
			return err
		}
	}
	bgl, _ := h.Pipelines.GetBindGroupLayout(validated.Operation, validated.Variant, args.ExplicitBGLID)

	return dispatch.Execute(dispatch.Request{
		Device:                    h.WGPUDevice,
		Queue:                     h.Queue,
		Recorder:                  rec,
		Pipeline:                  pipeline,
		BindGroupLayout:           bgl,
		Bindings:                  args.Bindings,
		UniformSizeBytes:          args.UniformSize,
		UniformWriter:             args.UniformWriter,
		Workgroups:                validated.Workgroups,
		MaxWorkgroupsPerDimension: h.Device.Get().MaxComputeWorkgroupsPerDimension,
		Operation:                 validated.Operation,
		Variant:                   validated.Variant,
		Label:                     common.Coalesce(args.Label, validated.Operation+"/"+validated.Variant),
	})
}
