// Package cpuref is a pure-Go, bit-exact reference implementation of
// the five simulation kernels. It exists purely as a test oracle: a
// go test binary cannot execute the WGSL compute kernels on a real
// GPU, so this package implements the identical case enumeration in
// Go, and the WGSL kernels are required to match it by construction
// since both read the same constants from internal/layout and
// internal/prng. It is never the runtime path.
package cpuref

import (
	"math"

	"github.com/gekko3d/protocellsim/internal/layout"
)

// Grid is a dense gridSize^3 voxel/temperature state, the cpuref
// counterpart of BufferFabric's storage buffers.
type Grid struct {
	Size    int
	Voxels  []layout.Voxel
	Temps   []float32
}

// NewGrid returns an all-Empty grid of the given edge length with
// ambient temperature everywhere.
func NewGrid(size int, ambientTemp float32) *Grid {
	n := size * size * size
	g := &Grid{Size: size, Voxels: make([]layout.Voxel, n), Temps: make([]float32, n)}
	for i := range g.Temps {
		g.Temps[i] = ambientTemp
	}
	return g
}

// Clone returns a deep copy, used by callers that need to diff
// before/after states or run the same tick twice for determinism
// checks.
func (g *Grid) Clone() *Grid {
	out := &Grid{Size: g.Size, Voxels: make([]layout.Voxel, len(g.Voxels)), Temps: make([]float32, len(g.Temps))}
	copy(out.Voxels, g.Voxels)
	copy(out.Temps, g.Temps)
	return out
}

// Index flattens a 3D coordinate into a voxel/temperature slice index,
// matching the GPU kernels' (z*grid+y)*grid+x ordering.
func (g *Grid) Index(x, y, z int) int {
	return (z*g.Size+y)*g.Size + x
}

// Index3 is the inverse of Index: it recovers (x,y,z) from a flat
// index, used when a resolve winner is known only by its source index.
func (g *Grid) Index3(idx int) (x, y, z int) {
	size := g.Size
	x = idx % size
	y = (idx / size) % size
	z = idx / (size * size)
	return
}

// InBounds reports whether (x,y,z) is a valid coordinate for this grid.
func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.Size && y < g.Size && z < g.Size
}

// NeighborOffsets lists the six face-adjacent offsets in the fixed
// order every kernel and the host must agree on (+X,-X,+Y,-Y,+Z,-Z),
// the same order as internal/layout.AllNeighborDirs.
var NeighborOffsets = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// Checksum is a simple order-sensitive accumulator used by the
// determinism tests to compare two grids cheaply without allocating a
// second full copy for comparison.
func (g *Grid) Checksum() uint64 {
	var sum uint64
	for i, v := range g.Voxels {
		w := layout.PackVoxel(v)
		for _, word := range w {
			sum = sum*1000000007 + uint64(word)
		}
		sum = sum*1000000007 + uint64(i)
	}
	for _, t := range g.Temps {
		sum = sum*1000000007 + uint64(math.Float32bits(t))
	}
	return sum
}
