// Package gpu holds the device capability snapshot and the Device
// wrapper that carries it together with the cache epoch; the caches and
// dispatch path use wgpu types directly. It never performs device acquisition
// itself; collaborators acquire the device and hand the runtime a
// populated Snapshot.
package gpu

import "sync/atomic"

// Snapshot is the immutable device capability descriptor described in
// spec §3. A Snapshot value is never mutated in place; Device.Reset
// installs a new Snapshot and bumps the epoch.
type Snapshot struct {
	// HasF16 reports whether the device supports the ShaderF16 feature.
	HasF16 bool
	// HasSubgroups reports whether the device supports subgroup operations.
	HasSubgroups bool
	// MaxComputeWorkgroupStorageSize is the max bytes of workgroup-shared
	// memory available to a single compute pipeline invocation.
	MaxComputeWorkgroupStorageSize uint32
	// MaxComputeWorkgroupsPerDimension is the max workgroup count allowed
	// on any single dispatch dimension.
	MaxComputeWorkgroupsPerDimension uint32
	// MaxStorageBufferBindingSize is the max size in bytes of a single
	// storage buffer binding.
	MaxStorageBufferBindingSize uint64
	// SubgroupSizeHint is the device's reported subgroup size, if known.
	SubgroupSizeHint *uint32
}

// Device owns the current Snapshot and the monotonically increasing
// device epoch that every cache in this module keys its entries against.
// Device is safe for concurrent reads; Reset must not race with Get/Epoch
// under the single-writer assumption documented in spec §5.
type Device struct {
	epoch    atomic.Uint64
	snapshot atomic.Pointer[Snapshot]
}

// NewDevice constructs a Device at epoch 0 with the given initial snapshot.
func NewDevice(snap Snapshot) *Device {
	d := &Device{}
	d.snapshot.Store(&snap)
	return d
}

// Get returns the current capability snapshot.
func (d *Device) Get() Snapshot {
	return *d.snapshot.Load()
}

// Epoch returns the current device epoch. Caches compare this value
// against the epoch they were populated under to detect device loss.
func (d *Device) Epoch() uint64 {
	return d.epoch.Load()
}

// Reset installs a new snapshot and bumps the epoch, as used for
// device-lost recovery (spec §4.B, §5). Callers are expected to follow
// Reset with a transactional clear of every cache keyed by epoch before
// serving the next call.
func (d *Device) Reset(snap Snapshot) uint64 {
	d.snapshot.Store(&snap)
	return d.epoch.Add(1)
}
