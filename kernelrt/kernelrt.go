// Package kernelrt is the top-level entry point of the kernel runtime
// (spec §6): it owns the device capability snapshot, the variant
// registry, every epoch-keyed cache, the rule registry, and the shared
// worker pool, and it wires all of them into a single ops.Handlers that
// callers use to run or record operator dispatches.
package kernelrt

import (
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-rt/kernelrt/asynctask"
	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/ops"
	"github.com/oxy-rt/kernelrt/pipelinecache"
	"github.com/oxy-rt/kernelrt/readback"
	"github.com/oxy-rt/kernelrt/registry"
	"github.com/oxy-rt/kernelrt/rule"
	"github.com/oxy-rt/kernelrt/shadercache"
	"github.com/oxy-rt/kernelrt/telemetry"
	"github.com/oxy-rt/kernelrt/validate"
)

// Config carries everything Runtime needs to wire itself together.
// Source resolves a registry source id to WGSL text and Workers/
// QueueSize/IdleTimeout size the worker pool the pipeline cache builds
// pipelines on.
type Config struct {
	WGPUDevice  *wgpu.Device
	Queue       *wgpu.Queue
	Snapshot    gpu.Snapshot
	Raw         registry.RawConfig
	Source      shadercache.Source
	Workers     int
	QueueSize   int
	IdleTimeout time.Duration
	Strict      bool
}

// Runtime bundles the device, registry, caches, rule registry, and
// telemetry state, and constructs the ops.Handlers every caller
// actually dispatches through.
type Runtime struct {
	Device    *gpu.Device
	Registry  *registry.Registry
	Shaders   *shadercache.Cache
	Pipelines *pipelinecache.Cache
	Tasks     *asynctask.Pool
	Readback  *readback.Guard
	Rules     *rule.Registry
	Telemetry *telemetry.State
	Handlers  *ops.Handlers

	deviceLostHooks []func(gpu.Snapshot)
}

// New constructs a Runtime from cfg. One worker pool runs every
// pipeline build, including the shader compilation it triggers;
// readback is serialized by readback.Guard and does not use the pool.
func New(cfg Config) *Runtime {
	device := gpu.NewDevice(cfg.Snapshot)
	reg := registry.New(cfg.Raw)
	pool := asynctask.NewPool(cfg.Workers, cfg.QueueSize, cfg.IdleTimeout)
	shaders := shadercache.New(device, cfg.Source)
	pipelines := pipelinecache.New(device, pool, shaders.GetOrCompile)
	telemetryState := telemetry.NewState()
	rules := rule.NewRegistry()
	registerDefaultRuleSets(rules)

	rt := &Runtime{
		Device:    device,
		Registry:  reg,
		Shaders:   shaders,
		Pipelines: pipelines,
		Tasks:     pool,
		Readback:  readback.NewGuard(),
		Rules:     rules,
		Telemetry: telemetryState,
	}
	rt.Handlers = &ops.Handlers{
		Registry:   reg,
		Device:     device,
		WGPUDevice: cfg.WGPUDevice,
		Queue:      cfg.Queue,
		Validator:  validate.New(reg),
		Pipelines:  pipelines,
		Telemetry:  telemetryState,
		Strict:     cfg.Strict,
	}
	return rt
}

// OnDeviceLost registers a callback invoked, in registration order,
// every time HandleDeviceLost runs — used by collaborators outside this
// package (e.g. a caller's own resource pools) that need to react to a
// device reset without kernelrt importing them back (spec §4
// Supplemented Features, "registered as a callback list so
// kernelrt.Runtime.HandleDeviceLost can invalidate all caches without
// import cycles").
func (rt *Runtime) OnDeviceLost(hook func(gpu.Snapshot)) {
	rt.deviceLostHooks = append(rt.deviceLostHooks, hook)
}

// HandleDeviceLost installs newSnapshot, bumps the device epoch, clears
// every epoch-keyed cache, resets telemetry's dedup state, and runs
// every registered device-lost hook. Every cache clear must happen
// before any hook runs, so no hook can observe a stale pipeline keyed
// against the old epoch.
func (rt *Runtime) HandleDeviceLost(newSnapshot gpu.Snapshot) {
	rt.Device.Reset(newSnapshot)
	rt.Shaders.Clear()
	rt.Pipelines.Clear()
	rt.Telemetry.Reset()
	for _, hook := range rt.deviceLostHooks {
		hook(newSnapshot)
	}
}
