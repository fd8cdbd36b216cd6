// Package volume implements the sparse-tier brick/bucket table: 8^3
// bricks, with a bucket table mapping brick coordinates to pool slots
// (0xFFFFFFFF = unallocated) that every kernel indirects through.
// Grounded on voxelrt/rt/volume.XBrickMap's sector/brick occupancy
// scheme and its SlotAllocator free-list in voxelrt/rt/gpu/manager.go,
// adapted from "renderable voxel payload" bookkeeping to "simulated
// voxel pool slot" bookkeeping.
package volume

import "github.com/go-gl/mathgl/mgl32"

// BrickDim is the edge length of one brick in voxels.
const BrickDim = 8

// BrickVoxelCount is the number of voxels in one brick (8^3).
const BrickVoxelCount = BrickDim * BrickDim * BrickDim

// Unallocated marks a bucket-table slot with no backing pool allocation,
// per the sparse addressing scheme.
const Unallocated uint32 = 0xFFFFFFFF

// BrickCoord is a brick-space coordinate: voxel coordinate / BrickDim,
// floored.
type BrickCoord struct{ X, Y, Z int32 }

// ToBrickCoord converts a voxel coordinate to its containing brick
// coordinate.
func ToBrickCoord(x, y, z int32) BrickCoord {
	return BrickCoord{floorDiv(x, BrickDim), floorDiv(y, BrickDim), floorDiv(z, BrickDim)}
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// SlotAllocator hands out monotonically increasing indices, recycling
// freed ones, exactly as voxelrt's gpu.SlotAllocator does for its
// GPU memory pools.
type SlotAllocator struct {
	Tail uint32
	Free []uint32
}

// Alloc returns a free slot index, reusing a released one if available.
func (a *SlotAllocator) Alloc() uint32 {
	if len(a.Free) > 0 {
		idx := a.Free[len(a.Free)-1]
		a.Free = a.Free[:len(a.Free)-1]
		return idx
	}
	idx := a.Tail
	a.Tail++
	return idx
}

// FreeSlot releases idx for reuse by a future Alloc call.
func (a *SlotAllocator) FreeSlot(idx uint32) {
	a.Free = append(a.Free, idx)
}

// BrickTable maps brick coordinates to pool slot indices with a Go map;
// EncodeGPUBucketTable renders it as an open-addressed hash grid,
// mirroring voxelrt's updateSectorGrid. It is
// the host-side mirror of the GPU-bound bucket table every sparse-mode
// kernel indirects through (kernel contract binding "brick_table_r" in
// the wire budget).
type BrickTable struct {
	coordToSlot map[BrickCoord]uint32
	alloc       SlotAllocator
}

// NewBrickTable returns an empty brick table.
func NewBrickTable() *BrickTable {
	return &BrickTable{coordToSlot: make(map[BrickCoord]uint32)}
}

// Lookup returns the pool slot for coord, or Unallocated if none exists.
func (t *BrickTable) Lookup(coord BrickCoord) uint32 {
	if slot, ok := t.coordToSlot[coord]; ok {
		return slot
	}
	return Unallocated
}

// EnsureAllocated returns the pool slot for coord, allocating a new one
// on first access. The second return value reports whether a new slot
// was allocated.
func (t *BrickTable) EnsureAllocated(coord BrickCoord) (slot uint32, allocated bool) {
	if slot, ok := t.coordToSlot[coord]; ok {
		return slot, false
	}
	slot = t.alloc.Alloc()
	t.coordToSlot[coord] = slot
	return slot, true
}

// Release frees the brick at coord, if allocated.
func (t *BrickTable) Release(coord BrickCoord) {
	if slot, ok := t.coordToSlot[coord]; ok {
		t.alloc.FreeSlot(slot)
		delete(t.coordToSlot, coord)
	}
}

// AllocatedCount returns the number of currently allocated bricks.
func (t *BrickTable) AllocatedCount() int {
	return len(t.coordToSlot)
}

// ComputeAABB returns the voxel-space bounding box spanning every
// allocated brick, mirroring XBrickMap.ComputeAABB's sector/brick-origin
// walk in xbrickmap.go. An empty table reports a zero-sized box at the
// origin rather than xbrickmap.go's sentinel +/-1e20 bounds, since this
// table has no "structure dirty" cache to invalidate.
func (t *BrickTable) ComputeAABB() (min, max mgl32.Vec3) {
	if len(t.coordToSlot) == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}

	const dim = float32(BrickDim)
	first := true
	for coord := range t.coordToSlot {
		lo := mgl32.Vec3{float32(coord.X) * dim, float32(coord.Y) * dim, float32(coord.Z) * dim}
		hi := lo.Add(mgl32.Vec3{dim, dim, dim})
		if first {
			min, max = lo, hi
			first = false
			continue
		}
		min = mgl32.Vec3{minF32(min.X(), lo.X()), minF32(min.Y(), lo.Y()), minF32(min.Z(), lo.Z())}
		max = mgl32.Vec3{maxF32(max.X(), hi.X()), maxF32(max.Y(), hi.Y()), maxF32(max.Z(), hi.Z())}
	}
	return min, max
}

// Resample returns a new brick table with every allocated brick
// remapped to the coordinate its voxel-space origin lands on after
// scaling by factor, nearest-brick rounding, matching the scale-up/
// scale-down contract XBrickMap.Resample's test fixture in
// resample_test.go exercises (a 4-brick block scaled by 2.0 spans
// roughly twice the voxel extent). Two source bricks that land on the
// same destination coordinate collapse into one; this is the expected
// behavior when downsampling.
func (t *BrickTable) Resample(factor float32) *BrickTable {
	out := NewBrickTable()
	const dim = float32(BrickDim)
	for coord := range t.coordToSlot {
		ox := (float32(coord.X) * dim) * factor
		oy := (float32(coord.Y) * dim) * factor
		oz := (float32(coord.Z) * dim) * factor
		dst := ToBrickCoord(roundToInt32(ox), roundToInt32(oy), roundToInt32(oz))
		out.EnsureAllocated(dst)
	}
	return out
}

func minF32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func roundToInt32(v float32) int32 {
	if v >= 0 {
		return int32(v + 0.5)
	}
	return int32(v - 0.5)
}

// bucketEntrySize is the GPU bucket-table record size: brick coord
// (3xi32) + slot index (u32) = 16 bytes, matching voxelrt's
// 32-byte-aligned sector grid record style but trimmed to this table's
// narrower payload.
const bucketEntrySize = 16

// EncodeGPUBucketTable renders the brick table into the open-addressed
// hash-grid byte buffer the bind group for every sparse-mode kernel
// expects: gridSize buckets of bucketEntrySize bytes, probed linearly,
// empty buckets holding Unallocated in their slot-index field.
func (t *BrickTable) EncodeGPUBucketTable() (data []byte, gridSize int) {
	n := len(t.coordToSlot)
	gridSize = 1024
	for gridSize < n*2 {
		gridSize <<= 1
	}

	data = make([]byte, gridSize*bucketEntrySize)
	for i := 0; i < gridSize; i++ {
		putU32(data, i*bucketEntrySize+12, Unallocated)
	}

	hash := func(c BrickCoord) uint32 {
		h := uint32(c.X)*73856093 ^ uint32(c.Y)*19349663 ^ uint32(c.Z)*83492791
		return h % uint32(gridSize)
	}

	for coord, slot := range t.coordToSlot {
		h := hash(coord)
		for probe := uint32(0); probe < uint32(gridSize); probe++ {
			idx := (h + probe) % uint32(gridSize)
			off := int(idx) * bucketEntrySize
			if getU32(data, off+12) == Unallocated {
				putU32(data, off+0, uint32(coord.X))
				putU32(data, off+4, uint32(coord.Y))
				putU32(data, off+8, uint32(coord.Z))
				putU32(data, off+12, slot)
				break
			}
		}
	}
	return data, gridSize
}

func putU32(buf []byte, off int, v uint32) {
	buf[off+0] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

func getU32(buf []byte, off int) uint32 {
	return uint32(buf[off+0]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}
