// Package pipelinecache implements the Pipeline & Layout Cache of spec
// §4.E: bind-group-layout and pipeline-layout caches, a synchronous
// get_cached_pipeline lookup, and an async get_or_create_pipeline_async
// path backed by asynctask's worker pool. Specialization constants from
// the registry's wgsl_overrides are merged with caller-supplied
// overrides (caller wins) and canonicalized into the cache key.
package pipelinecache

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-rt/kernelrt/asynctask"
	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/kernelerr"
	"github.com/oxy-rt/kernelrt/registry"
)

// Specialization is a caller-supplied set of wgsl override-constant
// values, keyed by constant name.
type Specialization map[string]float64

// merge layers override on top of base, with override winning on key
// collision (spec §4.E: "caller overrides take precedence over the
// variant's wgsl_override_constants").
func merge(base registry.VariantConfig, override Specialization) Specialization {
	out := make(Specialization, len(base.WGSLOverrides)+len(override))
	for k, v := range base.WGSLOverrides {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case int:
			out[k] = float64(n)
		}
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// canonicalize produces a deterministic string form of a specialization
// map so it can participate in a cache key.
func canonicalize(spec Specialization) string {
	if len(spec) == 0 {
		return ""
	}
	names := make([]string, 0, len(spec))
	for k := range spec {
		names = append(names, k)
	}
	sort.Strings(names)
	var b []byte
	for _, n := range names {
		b = append(b, n...)
		b = append(b, '=')
		b = strconv.AppendFloat(b, spec[n], 'g', -1, 64)
		b = append(b, ';')
	}
	return string(b)
}

// Key is the full pipeline cache key of spec §4.E: (device epoch,
// operation, variant, canonicalized specialization map, explicit bind
// group layout id or "" for none).
type Key struct {
	Epoch             uint64
	Operation         string
	Variant           string
	Specialization    string
	BindGroupLayoutID string
}

// Cache holds compiled pipelines, pipeline layouts, and bind group
// layouts. Pipeline keys carry the device epoch, so a Reset makes every
// cached pipeline unreachable; layouts are keyed by layout id only and
// are dropped by Clear.
type Cache struct {
	device *gpu.Device
	pool   *asynctask.Pool
	source shaderSource

	mu        sync.Mutex
	pipelines map[Key]*wgpu.ComputePipeline
	bgls      map[string]*wgpu.BindGroupLayout
	layouts   map[string]*wgpu.PipelineLayout
}

type shaderSource func(wgpuDevice *wgpu.Device, operation, variant, sourceID, label string) (*wgpu.ShaderModule, error)

// New builds an empty Cache. source resolves a registry source id to a
// compiled shader module (typically shadercache.Cache.GetOrCompile).
func New(device *gpu.Device, pool *asynctask.Pool, source shaderSource) *Cache {
	return &Cache{
		device:    device,
		pool:      pool,
		source:    source,
		pipelines: make(map[Key]*wgpu.ComputePipeline),
		bgls:      make(map[string]*wgpu.BindGroupLayout),
		layouts:   make(map[string]*wgpu.PipelineLayout),
	}
}

// BuildKey constructs the cache key for a given lookup, merging and
// canonicalizing the specialization map.
func (c *Cache) BuildKey(operation, variant string, cfg registry.VariantConfig, override Specialization, explicitBGLID string) Key {
	return Key{
		Epoch:             c.device.Epoch(),
		Operation:         operation,
		Variant:           variant,
		Specialization:    canonicalize(merge(cfg, override)),
		BindGroupLayoutID: explicitBGLID,
	}
}

// checkWorkgroupIsPowerOfTwo enforces spec §4.E's invariant that every
// dimension of a variant's workgroup size is a power of two.
func checkWorkgroupIsPowerOfTwo(operation, variant string, wg [3]uint32) error {
	for i, v := range wg {
		if v == 0 || v&(v-1) != 0 {
			return kernelerr.Config(operation, variant,
				fmt.Sprintf("workgroup dimension %d (%d) must be a power of two", i, v))
		}
	}
	return nil
}

// checkRequiredFeatures confirms every feature a variant requires is
// present in the device's current capability snapshot.
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
		default:
			return kernelerr.Capability(operation, variant, "unknown required feature "+f)
		}
	}
	return nil
}

// GetCachedPipeline returns an already-compiled pipeline for key,
// without compiling. ok is false on a cache miss — callers fall back to
// GetOrCreatePipelineAsync.
func (c *Cache) GetCachedPipeline(key Key) (*wgpu.ComputePipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pipelines[key]
	return p, ok
}

// pipelineBuildInput carries everything needed to compile a pipeline, so
// the heavy lifting can run on the async worker pool.
type pipelineBuildInput struct {
	wgpuDevice *wgpu.Device
	operation  string
	variant    string
	cfg        registry.VariantConfig
	snap       gpu.Snapshot
	key        Key
}

func (c *Cache) build(in pipelineBuildInput) (*wgpu.ComputePipeline, error) {
	if err := checkWorkgroupIsPowerOfTwo(in.operation, in.variant, in.cfg.Workgroup); err != nil {
		return nil, err
	}
	if err := checkRequiredFeatures(in.operation, in.variant, in.cfg.Requires, in.snap); err != nil {
		return nil, err
	}

	module, err := c.source(in.wgpuDevice, in.operation, in.variant, in.cfg.WGSLSourceRef, in.operation+"/"+in.variant)
	if err != nil {
		return nil, err
	}

	layoutID := in.key.BindGroupLayoutID
	if layoutID == "" {
		layoutID = in.operation + "::" + in.variant
	}

	c.mu.Lock()
	layout, ok := c.layouts[layoutID]
	c.mu.Unlock()
	if !ok {
		bgl, err := c.getOrCreateBindGroupLayout(in.wgpuDevice, layoutID, in.cfg)
		if err != nil {
			return nil, err
		}
		l, err := in.wgpuDevice.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
			Label:            layoutID,
			BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
		})
		if err != nil {
			return nil, kernelerr.Compilation(in.operation, in.variant, layoutID, err)
		}
		c.mu.Lock()
		c.layouts[layoutID] = l
		layout = l
		c.mu.Unlock()
	}

	created, err := in.wgpuDevice.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  in.operation + "/" + in.variant + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: in.cfg.EntryPoint,
		},
	})
	if err != nil {
		return nil, kernelerr.Compilation(in.operation, in.variant, in.cfg.EntryPoint, err)
	}

	c.mu.Lock()
	if existing, ok := c.pipelines[in.key]; ok {
		c.mu.Unlock()
		created.Release()
		return existing, nil
	}
	c.pipelines[in.key] = created
	c.mu.Unlock()
	return created, nil
}

func (c *Cache) getOrCreateBindGroupLayout(wgpuDevice *wgpu.Device, layoutID string, cfg registry.VariantConfig) (*wgpu.BindGroupLayout, error) {
	c.mu.Lock()
	if bgl, ok := c.bgls[layoutID]; ok {
		c.mu.Unlock()
		return bgl, nil
	}
	c.mu.Unlock()

	entries := make([]wgpu.BindGroupLayoutEntry, len(cfg.Bindings))
	for i, b := range cfg.Bindings {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageCompute,
		}
		switch b.Type {
		case "uniform_buffer":
			entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
		default:
			entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}
		}
		entries[i] = entry
	}
	bgl, err := wgpuDevice.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   layoutID,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.bgls[layoutID]; ok {
		bgl.Release()
		return existing, nil
	}
	c.bgls[layoutID] = bgl
	return bgl, nil
}

// GetOrCreatePipelineAsync compiles and caches a pipeline on the async
// worker pool, returning a future the caller can block on at the point
// dispatch actually needs the result (spec §5, §9).
func (c *Cache) GetOrCreatePipelineAsync(wgpuDevice *wgpu.Device, operation, variant string, cfg registry.VariantConfig, snap gpu.Snapshot, key Key) *asynctask.Future[*wgpu.ComputePipeline] {
	if p, ok := c.GetCachedPipeline(key); ok {
		return asynctask.Resolved(p)
	}
	return asynctask.Submit(c.pool, func() (*wgpu.ComputePipeline, error) {
		return c.build(pipelineBuildInput{
			wgpuDevice: wgpuDevice,
			operation:  operation,
			variant:    variant,
			cfg:        cfg,
			snap:       snap,
			key:        key,
		})
	})
}

// GetBindGroupLayout returns the bind group layout a prior build() call
// created for (operation, variant, explicitBGLID), if any. Dispatch
// calls this after resolving a pipeline so it can build the bind group
// against the same layout the pipeline was created with.
func (c *Cache) GetBindGroupLayout(operation, variant, explicitBGLID string) (*wgpu.BindGroupLayout, bool) {
	layoutID := explicitBGLID
	if layoutID == "" {
		layoutID = operation + "::" + variant
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bgl, ok := c.bgls[layoutID]
	return bgl, ok
}

// Clear releases every cached pipeline, layout, and bind group layout.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pipelines {
		p.Release()
	}
	for _, l := range c.layouts {
		l.Release()
	}
	for _, b := range c.bgls {
		b.Release()
	}
	c.pipelines = make(map[Key]*wgpu.ComputePipeline)
	c.layouts = make(map[string]*wgpu.PipelineLayout)
	c.bgls = make(map[string]*wgpu.BindGroupLayout)
}
