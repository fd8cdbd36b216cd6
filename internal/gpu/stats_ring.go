package gpu

import (
	"encoding/binary"

	"github.com/cogentcore/webgpu/wgpu"
)

// RingState is the stats readback state machine's current phase, named
// explicitly for the async, non-blocking stats path: a tick requests a
// copy-to-staging and a map, polls without blocking, and only
// transitions to Mapped once the driver's callback has fired.
type RingState int

const (
	RingIdle RingState = iota
	RingRequested
	RingMapped
)

// Stats is one tick's decoded simulation stats_reduction output.
type Stats struct {
	Tick          uint64
	Population    uint32
	TotalEnergy   uint32
	MaxEnergy     uint32
	SpeciesCounts map[uint16]uint32
}

// StatsRing drives the Idle -> Requested -> Mapped -> Read cycle for
// the stats staging buffer, grounded directly on voxelrt's Hi-Z
// readback state machine (manager_hiz.go's HiZMapped flag / MapAsync /
// Device.Poll(false, nil) / GetMappedRange / Unmap sequence) adapted
// from a single float texture mip to the simulation's population/
// energy/species histogram record.
type StatsRing struct {
	dev   *wgpu.Device
	state RingState
	tick  uint64
}

// NewStatsRing returns an idle ring bound to device.
func NewStatsRing(device *wgpu.Device) *StatsRing {
	return &StatsRing{dev: device, state: RingIdle}
}

// State reports the ring's current phase.
func (r *StatsRing) State() RingState { return r.state }

// RequestReadback copies stats -> staging and issues a non-blocking
// MapAsync, recording the tick number the snapshot corresponds to. A
// call while a previous request is still in flight is a no-op: only
// one stats snapshot may be in flight at a time, matching the HiZ
// ring's single in-flight readback discipline.
func (r *StatsRing) RequestReadback(encoder *wgpu.CommandEncoder, statsBuf, stagingBuf *wgpu.Buffer, tick uint64) {
	if r.state != RingIdle {
		return
	}
	encoder.CopyBufferToBuffer(statsBuf, 0, stagingBuf, 0, statsBuf.GetSize())
	r.tick = tick
	r.state = RingRequested

	stagingBuf.MapAsync(wgpu.MapModeRead, 0, stagingBuf.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		if status == wgpu.BufferMapAsyncStatusSuccess {
			r.state = RingMapped
		} else {
			// Allocation or device-lost failure: drop back to Idle so
			// the next tick can retry rather than wedging the ring.
			r.state = RingIdle
		}
	})
}

// Poll advances the map callback without blocking the caller, mirroring
// voxelrt's per-frame Device.Poll(false, nil) call.
func (r *StatsRing) Poll() {
	r.dev.Poll(false, nil)
}

// TryTakeStats returns the decoded stats and true if a mapped snapshot
// is ready, unmapping the staging buffer and returning the ring to
// Idle. Returns a zero Stats and false when nothing is ready yet.
func (r *StatsRing) TryTakeStats(stagingBuf *wgpu.Buffer, histogramSlots int) (Stats, bool) {
	if r.state != RingMapped {
		return Stats{}, false
	}

	size := stagingBuf.GetSize()
	data := stagingBuf.GetMappedRange(0, uint(size))

	out := Stats{Tick: r.tick, SpeciesCounts: make(map[uint16]uint32, histogramSlots)}
	out.Population = binary.LittleEndian.Uint32(data[0:4])
	out.TotalEnergy = binary.LittleEndian.Uint32(data[4:8])
	out.MaxEnergy = binary.LittleEndian.Uint32(data[8:12])
	// Each histogram slot is two full u32 words (species id, count),
	// matching stats_reduction.wgsl's array<atomic<u32>> addressing —
	// not two packed u16s, since WGSL atomics only operate on u32 lanes.
	const headerBytes = 12
	const slotBytes = 8
	for i := 0; i < histogramSlots; i++ {
		off := headerBytes + i*slotBytes
		if off+slotBytes > len(data) {
			break
		}
		species := uint16(binary.LittleEndian.Uint32(data[off : off+4]))
		count := binary.LittleEndian.Uint32(data[off+4 : off+8])
		if count > 0 {
			out.SpeciesCounts[species] += count
		}
	}

	stagingBuf.Unmap()
	r.state = RingIdle
	return out, true
}
