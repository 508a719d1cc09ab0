// Package recorder implements the command-recording collaborator of
// spec §4.I/§6: a thin wrapper over a wgpu command encoder that lets the
// dispatch wrapper either submit a kernel immediately or append it to a
// batch the caller submits later. The shape mirrors the immediate/batch
// split already present in Carmen-Shannon-oxy-go's
// wgpu_renderer_backend.go (BeginComputeFrame/DispatchCompute/
// EndComputeFrame), generalized to a standalone, caller-owned value
// instead of a renderer-owned singleton.
package recorder

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Recorder accumulates compute dispatches onto a single command encoder
// for later, single submission. Operator entry points either pass a
// Recorder through record_<op> to batch a multi-kernel pass, or pass nil
// through run_<op> for an immediately-submitted single dispatch (spec
// §4.I).
type Recorder struct {
	device  *wgpu.Device
	mu      sync.Mutex
	encoder *wgpu.CommandEncoder
	temps   []*wgpu.Buffer
}

// New opens a command encoder on device and returns a Recorder ready to
// accept dispatches.
func New(device *wgpu.Device) (*Recorder, error) {
	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	return &Recorder{device: device, encoder: encoder}, nil
}

// Device returns the device this recorder's encoder was opened on.
func (r *Recorder) Device() *wgpu.Device {
	return r.device
}

// Encoder returns the underlying command encoder, for collaborators
// that need to open a pass directly.
func (r *Recorder) Encoder() *wgpu.CommandEncoder {
	return r.encoder
}

// BeginComputePass opens a labeled compute pass on this recorder's
// encoder. Callers are responsible for calling End on the returned pass
// once the dispatch has been recorded.
func (r *Recorder) BeginComputePass(label string) *wgpu.ComputePassEncoder {
	var desc *wgpu.ComputePassDescriptor
	if label != "" {
		desc = &wgpu.ComputePassDescriptor{Label: label}
	}
	return r.encoder.BeginComputePass(desc)
}

// TrackTemporaryBuffer registers a scratch buffer (typically a uniform
// buffer from uniformcache) for release once this recorder's batch has
// been submitted, instead of immediately after the dispatch that used
// it. This is the recorder-deferred release path of spec §4.F.
func (r *Recorder) TrackTemporaryBuffer(buf *wgpu.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.temps = append(r.temps, buf)
}

// Submit finishes recording, submits the accumulated command buffer to
// queue, and releases every tracked temporary buffer plus the encoder
// itself. The Recorder must not be reused after Submit.
func (r *Recorder) Submit(queue *wgpu.Queue) error {
	r.mu.Lock()
	temps := r.temps
	r.temps = nil
	r.mu.Unlock()

	cmd, err := r.encoder.Finish(nil)
	if err != nil {
		r.encoder.Release()
		return err
	}
	queue.Submit(cmd)
	cmd.Release()
	r.encoder.Release()

	for _, t := range temps {
		t.Release()
	}
	return nil
}
