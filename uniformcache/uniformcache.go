// Package uniformcache implements the Uniform Buffer Cache of spec
// §4.F: scratch uniform buffers, one created per Alloc call, used to
// pass per-call constants (sequence length, KV length, scale factors) into a kernel.
// Buffers are released immediately after use in the synchronous path,
// or handed to a recorder for deferred release when the dispatch is
// part of a batch (spec §4.I).
package uniformcache

import (
	"encoding/binary"

	"github.com/cogentcore/webgpu/wgpu"
)

const alignment = 16

// Writer encodes a uniform buffer's field values, little-endian, in the
// order the registry's variant config declares them.
type Writer func(buf []byte)

// alignUp rounds size up to the next multiple of alignment, matching
// WebGPU's minimum uniform buffer offset/size alignment.
func alignUp(size uint32) uint32 {
	if rem := size % alignment; rem != 0 {
		size += alignment - rem
	}
	return size
}

// Releaser abstracts a Recorder's TrackTemporaryBuffer, so this package
// doesn't need to import recorder and create an import cycle.
type Releaser interface {
	TrackTemporaryBuffer(buf *wgpu.Buffer)
}

// Alloc creates a uniform scratch buffer, writes writer's bytes into it
// via the queue, and arranges for its release: immediately (rec == nil
// case handled by the caller invoking buf.Release itself once the
// dispatch that used it has been submitted) or deferred to rec if a
// Recorder was supplied for batched recording.
//
// sizeBytes is the uniform struct's unaligned size; Alloc rounds it up
// to a multiple of 16 bytes before allocating.
func Alloc(device *wgpu.Device, queue *wgpu.Queue, label string, sizeBytes uint32, writer Writer, rec Releaser) (*wgpu.Buffer, error) {
	aligned := alignUp(sizeBytes)
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(aligned),
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}

	data := make([]byte, aligned)
	if writer != nil {
		writer(data)
	}
	queue.WriteBuffer(buf, 0, data)

	if rec != nil {
		rec.TrackTemporaryBuffer(buf)
	}
	return buf, nil
}

// PutU32 writes a little-endian uint32 at offset, a convenience for
// Writer implementations assembling a uniform struct field by field.
func PutU32(dst []byte, offset uint32, v uint32) {
	binary.LittleEndian.PutUint32(dst[offset:offset+4], v)
}

// PutF32Bits writes a little-endian IEEE-754 float32 bit pattern at
// offset.
func PutF32Bits(dst []byte, offset uint32, bits uint32) {
	binary.LittleEndian.PutUint32(dst[offset:offset+4], bits)
}
