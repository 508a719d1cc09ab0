// Package shadercache implements the Shader Cache of spec §4.D: shader
// modules are compiled once per (device epoch, source id) and reused
// for the lifetime of that epoch. A device-lost reset bumps the epoch,
// which invalidates every entry without an explicit walk-and-release.
package shadercache

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/kernelerr"
)

// Source resolves a registry source id to WGSL text. Callers own how
// shader source is stored (embedded files, a loader, a test fixture);
// the cache only needs the resolved string.
type Source func(sourceID string) (string, error)

type key struct {
	epoch    uint64
	sourceID string
}

// Cache holds compiled shader modules keyed by (device epoch, source
// id), following the same mutex-guarded map shape as the teacher's
// pipeline cache in engine/renderer/renderer.go.
type Cache struct {
	device *gpu.Device
	source Source

	mu      sync.Mutex
	modules map[key]*wgpu.ShaderModule
}

// New builds a Cache that resolves WGSL source via source and compiles
// against the capability-tracked device.
func New(device *gpu.Device, source Source) *Cache {
	return &Cache{device: device, source: source, modules: make(map[key]*wgpu.ShaderModule)}
}

// GetOrCompile returns the compiled module for sourceID at the device's
// current epoch, compiling and caching it on first use. Compiler errors
// are surfaced verbatim, wrapped in a kernelerr.Compilation so callers
// retain the operation/variant/label context spec §7 requires.
func (c *Cache) GetOrCompile(wgpuDevice *wgpu.Device, operation, variant, sourceID, label string) (*wgpu.ShaderModule, error) {
	k := key{epoch: c.device.Epoch(), sourceID: sourceID}

	c.mu.Lock()
	if m, ok := c.modules[k]; ok {
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	code, err := c.source(sourceID)
	if err != nil {
		return nil, kernelerr.Compilation(operation, variant, label, err)
	}

	module, err := wgpuDevice.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, kernelerr.Compilation(operation, variant, label, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.modules[k]; ok {
		module.Release()
		return existing, nil
	}
	c.modules[k] = module
	return module, nil
}

// Clear releases every cached module and empties the cache. It does not
// touch the device epoch; callers invalidating due to device loss should
// reset the gpu.Device first so new compiles land under the new epoch.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.modules {
		m.Release()
	}
	c.modules = make(map[key]*wgpu.ShaderModule)
}
