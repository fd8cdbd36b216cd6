// Package gpu owns the device-side storage fabric for the simulation:
// double-buffered voxel/temperature buffers, the command/intent/params
// buffers, the async stats readback ring, and capability-tier detection.
// Grounded on voxelrt/rt/gpu.GpuBufferManager.
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Tier selects the logical grid size and addressing mode a device is
// asked to run, per the capability table: Sparse/Dense-High/Dense-Mid/
// Dense-Low.
type Tier int

const (
	TierSparse Tier = iota
	TierDenseHigh
	TierDenseMid
	TierDenseLow
)

func (t Tier) String() string {
	switch t {
	case TierSparse:
		return "Sparse"
	case TierDenseHigh:
		return "Dense-High"
	case TierDenseMid:
		return "Dense-Mid"
	case TierDenseLow:
		return "Dense-Low"
	default:
		return "Unknown"
	}
}

// GridSize returns the logical edge length of the grid this tier runs,
// and whether it addresses voxels through the sparse brick table.
func (t Tier) GridSize() (size int, sparse bool) {
	switch t {
	case TierSparse:
		return 256, true
	case TierDenseHigh:
		return 128, false
	case TierDenseMid:
		return 96, false
	case TierDenseLow:
		return 64, false
	default:
		return 64, false
	}
}

// denseHighBudgetBytes is the minimum discrete-GPU storage budget (in
// bytes) a device needs to run the Dense-High (128^3) tier rather than
// stepping down to Dense-Mid.
const denseHighBudgetBytes = 256 * 1024 * 1024

// ErrUnsupportedPlatform is the terminal startup error raised when no
// tier can be allocated at all (adapter request, device request, or
// pipeline compilation failure).
type ErrUnsupportedPlatform struct {
	Reason string
}

func (e *ErrUnsupportedPlatform) Error() string {
	return fmt.Sprintf("protocellsim: unsupported platform: %s", e.Reason)
}

// DetectTier classifies an adapter into a capability tier by inspecting
// its reported limits and adapter type (discrete GPU or not), the
// same way voxelrt's createGpuState requests a
// PowerPreferenceHighPerformance adapter and inspects its capabilities
// before committing to a rendering configuration.
func DetectTier(adapter *wgpu.Adapter) Tier {
	props := adapter.GetProperties()
	limits := adapter.GetLimits()

	discrete := props.AdapterType == wgpu.AdapterTypeDiscreteGPU
	if !discrete {
		return TierDenseLow
	}

	budget := uint64(limits.Limits.MaxBufferSize)
	if budget == 0 {
		// Some backends report zero for unset limits; fall back to the
		// storage-buffer-binding-size limit as a proxy for headroom.
		budget = uint64(limits.Limits.MaxStorageBufferBindingSize)
	}

	if budget >= denseHighBudgetBytes*2 {
		return TierSparse
	}
	if budget >= denseHighBudgetBytes {
		return TierDenseHigh
	}
	return TierDenseMid
}

// StepDownTier returns the next tier down after an allocation failure
// at t, per the allocation-retry fallback. The Dense-Low floor never
// steps down further; callers should treat repeated failure there as
// ErrUnsupportedPlatform.
func StepDownTier(t Tier) (next Tier, ok bool) {
	switch t {
	case TierSparse:
		return TierDenseHigh, true
	case TierDenseHigh:
		return TierDenseMid, true
	case TierDenseMid:
		return TierDenseLow, true
	default:
		return TierDenseLow, false
	}
}
