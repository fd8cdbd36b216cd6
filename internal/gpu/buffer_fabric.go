package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/protocellsim/internal/layout"
	"github.com/gekko3d/protocellsim/internal/logging"
)

const (
	headroomVoxels  = 4 * 1024 * 1024
	headroomTables  = 64 * 1024
	safeBufferLimit = 1024 * 1024 * 1024 // 1GB warning threshold
)

// VoxelRecordSize and IntentRecordSize mirror the wire layouts produced
// by internal/layout: a voxel is 8 little-endian u32 words (32 bytes),
// an intent is a single packed u32 (4 bytes).
const (
	VoxelRecordSize  = 32
	IntentRecordSize = 4
)

// BufferFabric owns every GPU-resident buffer and texture the tick
// scheduler touches: double-buffered voxel/temperature storage, the
// command/intent/params buffers, the stats buffer pair, and the pick
// buffers. It has fields for a 3D texture mirror of the read voxel
// buffer, but does not allocate or fill that texture. Adapted from voxelrt/rt/gpu's GpuBufferManager, narrowed
// from a scene-rendering buffer set to a simulation buffer set.
type BufferFabric struct {
	Device *wgpu.Device
	Log    logging.Logger

	Tier     Tier
	GridSize int
	Sparse   bool

	// Double-buffered voxel and temperature state. Index by parity
	// (0 or 1); Read/Write flip each tick.
	VoxelBuf [2]*wgpu.Buffer
	TempBuf  [2]*wgpu.Buffer

	IntentBuf  *wgpu.Buffer
	CommandBuf *wgpu.Buffer
	ParamsBuf  *wgpu.Buffer

	StatsBuf   *wgpu.Buffer
	StagingBuf *wgpu.Buffer

	// Pick query buffers: PickParamsBuf uploads the ray, PickResultBuf
	// is the pick kernel's write target, PickStagingBuf is its
	// CPU-mappable twin, the same three-buffer shape stats uses.
	PickParamsBuf  *wgpu.Buffer
	PickResultBuf  *wgpu.Buffer
	PickStagingBuf *wgpu.Buffer

	// BrickTableBuf is the sparse-tier bucket table mirror of
	// internal/volume.BrickTable.EncodeGPUBucketTable, nil in dense
	// tiers.
	BrickTableBuf *wgpu.Buffer

	// VoxelPayloadTex/VoxelPayloadView are the slots for a 3D texture
	// mirror of the read voxel buffer, the simulation-domain counterpart
	// of voxelrt's VoxelPayloadTex atlas. NewBufferFabric does not
	// allocate them and no kernel writes them, so they stay nil unless a
	// caller sets them; Release frees them when non-nil.
	VoxelPayloadTex  *wgpu.Texture
	VoxelPayloadView *wgpu.TextureView

	parity int
}

// NewBufferFabric allocates the fixed-size buffers for a tier (voxel,
// temperature, intent, command, params) up front; StatsBuf/StagingBuf
// and the sparse brick table are sized by EnsureStatsBuffers/
// EnsureBrickTable since they depend on runtime-reported histogram
// width and allocated brick count respectively.
func NewBufferFabric(device *wgpu.Device, tier Tier, log logging.Logger) (*BufferFabric, error) {
	if log == nil {
		log = logging.Nop()
	}
	gridSize, sparse := tier.GridSize()
	f := &BufferFabric{
		Device:   device,
		Log:      log,
		Tier:     tier,
		GridSize: gridSize,
		Sparse:   sparse,
	}

	cellCount := gridSize * gridSize * gridSize
	if sparse {
		// Sparse tiers size by brick slot count, not full grid volume;
		// start with headroom for a modest working set and let
		// ensureBuffer grow geometrically as bricks allocate.
		cellCount = 4096 * volumeBrickVoxelCount
	}

	for i := 0; i < 2; i++ {
		if err := f.ensureBuffer(fmtLabel("VoxelBuf", i), &f.VoxelBuf[i], nil,
			wgpu.BufferUsageStorage, cellCount*VoxelRecordSize+headroomVoxels); err != nil {
			return nil, err
		}
		if err := f.ensureBuffer(fmtLabel("TempBuf", i), &f.TempBuf[i], nil,
			wgpu.BufferUsageStorage, cellCount*4+headroomVoxels); err != nil {
			return nil, err
		}
	}

	if err := f.ensureBuffer("IntentBuf", &f.IntentBuf, nil,
		wgpu.BufferUsageStorage, cellCount*IntentRecordSize+headroomVoxels); err != nil {
		return nil, err
	}
	if err := f.ensureBuffer("CommandBuf", &f.CommandBuf, nil,
		wgpu.BufferUsageStorage, (layout.MaxCommandsPerTick+1)*layout.CommandRecordSize); err != nil {
		return nil, err
	}
	if err := f.ensureBuffer("ParamsBuf", &f.ParamsBuf, nil,
		wgpu.BufferUsageUniform, layout.ParamCount*4); err != nil {
		return nil, err
	}
	if err := f.ensureBuffer("PickParamsBuf", &f.PickParamsBuf, nil,
		wgpu.BufferUsageUniform, layout.PickRequestRecordSize); err != nil {
		return nil, err
	}
	if err := f.ensureBuffer("PickResultBuf", &f.PickResultBuf, nil,
		wgpu.BufferUsageStorage, layout.PickResultRecordSize); err != nil {
		return nil, err
	}
	if f.PickStagingBuf == nil {
		buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            "PickStagingBuf",
			Size:             uint64(layout.PickResultRecordSize),
			Usage:            wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
			MappedAtCreation: false,
		})
		if err != nil {
			return nil, &ErrUnsupportedPlatform{Reason: "pick staging buffer allocation failed: " + err.Error()}
		}
		f.PickStagingBuf = buf
	}

	return f, nil
}

const volumeBrickVoxelCount = 8 * 8 * 8

func fmtLabel(base string, parity int) string {
	if parity == 0 {
		return base + "0"
	}
	return base + "1"
}

// ReadParity and WriteParity identify which of VoxelBuf/TempBuf is the
// current read (previous tick's resolved state) and write (this tick's
// in-progress state) buffer.
func (f *BufferFabric) ReadParity() int  { return f.parity }
func (f *BufferFabric) WriteParity() int { return 1 - f.parity }

// FlipParity swaps read/write roles at the end of a tick, per the
// double-buffering discipline.
func (f *BufferFabric) FlipParity() { f.parity = 1 - f.parity }

// EnsureStatsBuffers (re)allocates the stats storage buffer (written by
// stats_reduction's atomic flush) and its CPU-mappable staging twin,
// sized for the histogram slot count the engine is configured with.
func (f *BufferFabric) EnsureStatsBuffers(histogramSlots int) error {
	size := statsRecordSize(histogramSlots)
	if err := f.ensureBuffer("StatsBuf", &f.StatsBuf, nil, wgpu.BufferUsageStorage, size); err != nil {
		return err
	}
	if f.StagingBuf == nil || f.StagingBuf.GetSize() < uint64(size) {
		desc := &wgpu.BufferDescriptor{
			Label:            "StatsStagingBuf",
			Size:             uint64(size),
			Usage:            wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
			MappedAtCreation: false,
		}
		buf, err := f.Device.CreateBuffer(desc)
		if err != nil {
			return &ErrUnsupportedPlatform{Reason: "stats staging buffer allocation failed: " + err.Error()}
		}
		if f.StagingBuf != nil {
			f.StagingBuf.Release()
		}
		f.StagingBuf = buf
	}
	return nil
}

// statsRecordSize is population(u32) + total energy(u32) + max
// energy(u32) + species histogram (histogramSlots * (species id u32 +
// count u32)), matching stats_reduction.wgsl's atomic<u32> addressing.
func statsRecordSize(histogramSlots int) int {
	return 12 + histogramSlots*8
}

// EnsureBrickTable (re)allocates BrickTableBuf from an encoded bucket
// table, growing geometrically as EncodeGPUBucketTable's grid doubles.
// No-op in dense tiers.
func (f *BufferFabric) EnsureBrickTable(data []byte) error {
	if !f.Sparse {
		return nil
	}
	return f.ensureBuffer("BrickTableBuf", &f.BrickTableBuf, data, wgpu.BufferUsageStorage, headroomTables)
}

// ensureBuffer grows *buf geometrically (1.5x) when the requested size
// exceeds its current capacity, preserving existing contents via a
// device-side copy when data is nil (a resize, not an overwrite).
// Adapted verbatim in spirit from voxelrt's
// GpuBufferManager.ensureBuffer.
func (f *BufferFabric) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, minSize int) error {
	needed := uint64(minSize)
	if len(data) > int(needed) {
		needed = uint64(len(data))
	}
	if needed%4 != 0 {
		needed += 4 - (needed % 4)
	}

	usage = usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	current := *buf

	if current == nil || current.GetSize() < needed {
		newSize := needed
		if current != nil {
			growth := uint64(float64(current.GetSize()) * 1.5)
			if growth > newSize {
				newSize = growth
			}
		}
		if newSize > safeBufferLimit {
			f.Log.Warnf("buffer %s requested size %d exceeds safety limit %d", name, newSize, safeBufferLimit)
		}

		newBuf, err := f.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            name,
			Size:             newSize,
			Usage:            usage,
			MappedAtCreation: false,
		})
		if err != nil {
			return &ErrUnsupportedPlatform{Reason: "buffer " + name + " allocation failed: " + err.Error()}
		}

		if current != nil && data == nil {
			encoder, err := f.Device.CreateCommandEncoder(nil)
			if err != nil {
				return &ErrUnsupportedPlatform{Reason: "command encoder creation failed: " + err.Error()}
			}
			encoder.CopyBufferToBuffer(current, 0, newBuf, 0, current.GetSize())
			cmdBuf, err := encoder.Finish(nil)
			if err != nil {
				return &ErrUnsupportedPlatform{Reason: "command buffer finish failed: " + err.Error()}
			}
			f.Device.GetQueue().Submit(cmdBuf)
		}

		if current != nil {
			current.Release()
		}
		*buf = newBuf

		if len(data) > 0 {
			f.Device.GetQueue().WriteBuffer(*buf, 0, data)
		}
		return nil
	}

	if len(data) > 0 {
		f.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return nil
}

// Release frees every owned GPU resource. Safe to call on a partially
// initialized fabric.
func (f *BufferFabric) Release() {
	for i := 0; i < 2; i++ {
		releaseBuffer(f.VoxelBuf[i])
		releaseBuffer(f.TempBuf[i])
	}
	releaseBuffer(f.IntentBuf)
	releaseBuffer(f.CommandBuf)
	releaseBuffer(f.ParamsBuf)
	releaseBuffer(f.StatsBuf)
	releaseBuffer(f.StagingBuf)
	releaseBuffer(f.BrickTableBuf)
	releaseBuffer(f.PickParamsBuf)
	releaseBuffer(f.PickResultBuf)
	releaseBuffer(f.PickStagingBuf)
	if f.VoxelPayloadView != nil {
		f.VoxelPayloadView.Release()
	}
	if f.VoxelPayloadTex != nil {
		f.VoxelPayloadTex.Release()
	}
}

func releaseBuffer(b *wgpu.Buffer) {
	if b != nil {
		b.Release()
	}
}
