package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/protocellsim/internal/layout"
)

// PickRing drives the same Idle -> Requested -> Mapped -> Read cycle as
// StatsRing, narrowed to a single pick query's fixed-size result record
// instead of a per-tick histogram.
type PickRing struct {
	dev   *wgpu.Device
	state RingState
}

// NewPickRing returns an idle ring bound to device.
func NewPickRing(device *wgpu.Device) *PickRing {
	return &PickRing{dev: device, state: RingIdle}
}

// State reports the ring's current phase.
func (r *PickRing) State() RingState { return r.state }

// RequestReadback copies the pick kernel's output into staging and
// issues a non-blocking MapAsync. A call while a request is already in
// flight is a no-op: only one pick query may be outstanding at a time.
func (r *PickRing) RequestReadback(encoder *wgpu.CommandEncoder, resultBuf, stagingBuf *wgpu.Buffer) {
	if r.state != RingIdle {
		return
	}
	encoder.CopyBufferToBuffer(resultBuf, 0, stagingBuf, 0, resultBuf.GetSize())
	r.state = RingRequested

	stagingBuf.MapAsync(wgpu.MapModeRead, 0, stagingBuf.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		if status == wgpu.BufferMapAsyncStatusSuccess {
			r.state = RingMapped
		} else {
			r.state = RingIdle
		}
	})
}

// Poll advances the map callback without blocking.
func (r *PickRing) Poll() {
	r.dev.Poll(false, nil)
}

// TryTakeResult returns the decoded pick result and true once the
// mapped snapshot is ready, returning the ring to Idle.
func (r *PickRing) TryTakeResult(stagingBuf *wgpu.Buffer) (layout.PickResult, bool) {
	if r.state != RingMapped {
		return layout.PickResult{}, false
	}
	data := stagingBuf.GetMappedRange(0, uint(stagingBuf.GetSize()))
	result := layout.DecodePickResult(data)
	stagingBuf.Unmap()
	r.state = RingIdle
	return result, true
}
