package cpuref

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gekko3d/protocellsim/internal/layout"
)

func randomGrid(size int, seed int64) *Grid {
	g := NewGrid(size, 0.5)
	r := rand.New(rand.NewSource(seed))
	for i := range g.Temps {
		g.Temps[i] = r.Float32()
	}
	types := []layout.VoxelType{layout.Empty, layout.Wall, layout.Nutrient, layout.EnergySource, layout.Protocell, layout.Waste, layout.HeatSource, layout.ColdSource}
	for i := range g.Voxels {
		vt := types[r.Intn(len(types))]
		v := layout.Voxel{Type: vt}
		switch vt {
		case layout.Protocell:
			v.Energy = uint16(r.Intn(256))
			v.SpeciesID = uint16(r.Intn(65535) + 1)
			for b := range v.Genome {
				v.Genome[b] = byte(r.Intn(256))
			}
		case layout.Nutrient:
			v.Extra = uint64(r.Intn(20))
		case layout.Waste:
			v.Age = uint16(r.Intn(64))
		}
		g.Voxels[i] = v
	}
	return g
}

func TestInvariant_ProtocellTypeImpliesNonzeroSpeciesID(t *testing.T) {
	g := randomGrid(8, 1)
	params := layout.DefaultSimParams(g.Size)
	Tick(g, params, nil, 1)

	for i, v := range g.Voxels {
		if v.Type == layout.Protocell {
			require.NotZero(t, v.SpeciesID, "protocell at index %d must carry a nonzero species id", i)
		}
	}
}

func TestInvariant_EnergyNeverExceedsConfiguredMax(t *testing.T) {
	g := randomGrid(8, 2)
	params := layout.ClampParams(layout.DefaultSimParams(g.Size))
	Tick(g, params, nil, 1)

	for i, v := range g.Voxels {
		require.LessOrEqual(t, v.Energy, uint16(params.MaxEnergy), "voxel %d exceeded MaxEnergy", i)
	}
}

func TestInvariant_TemperatureStaysInUnitRange(t *testing.T) {
	g := randomGrid(8, 3)
	params := layout.DefaultSimParams(g.Size)
	for tick := uint32(0); tick < 10; tick++ {
		Tick(g, params, nil, tick)
	}
	for i, tv := range g.Temps {
		require.GreaterOrEqual(t, tv, float32(0), "temperature %d below 0", i)
		require.LessOrEqual(t, tv, float32(1), "temperature %d above 1", i)
	}
}

func TestInvariant_TickIsDeterministicGivenIdenticalInitialState(t *testing.T) {
	params := layout.DefaultSimParams(8)

	g1 := randomGrid(8, 99)
	g2 := randomGrid(8, 99)

	for tick := uint32(0); tick < 5; tick++ {
		Tick(g1, params, nil, tick)
		Tick(g2, params, nil, tick)
	}

	require.Equal(t, g1.Checksum(), g2.Checksum())
}

func TestGrid_Index3IsInverseOfIndex(t *testing.T) {
	g := NewGrid(8, 0.5)
	for x := 0; x < g.Size; x++ {
		for y := 0; y < g.Size; y++ {
			for z := 0; z < g.Size; z++ {
				idx := g.Index(x, y, z)
				gx, gy, gz := g.Index3(idx)
				require.Equal(t, x, gx)
				require.Equal(t, y, gy)
				require.Equal(t, z, gz)
			}
		}
	}
}

func TestGrid_CloneIsIndependentCopy(t *testing.T) {
	g := randomGrid(4, 5)
	clone := g.Clone()
	require.Equal(t, g.Checksum(), clone.Checksum())

	clone.Voxels[0].Energy = clone.Voxels[0].Energy + 1
	clone.Temps[0] = clone.Temps[0] + 1
	require.NotEqual(t, g.Voxels[0].Energy, clone.Voxels[0].Energy)
	require.NotEqual(t, g.Temps[0], clone.Temps[0])
}

func TestReduceStats_CountsOnlyProtocells(t *testing.T) {
	g := NewGrid(4, 0.5)
	g.Voxels[0] = layout.Voxel{Type: layout.Protocell, Energy: 10, SpeciesID: 1}
	g.Voxels[1] = layout.Voxel{Type: layout.Protocell, Energy: 20, SpeciesID: 1}
	g.Voxels[2] = layout.Voxel{Type: layout.Nutrient, Extra: 5}
	g.Voxels[3] = layout.Voxel{Type: layout.Waste}

	stats := ReduceStats(g.Voxels)
	require.Equal(t, uint32(2), stats.Population)
	require.Equal(t, uint32(30), stats.TotalEnergy)
	require.Equal(t, uint32(20), stats.MaxEnergy)
	require.Equal(t, uint32(2), stats.Histogram[1])
}
