package cpuref

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gekko3d/protocellsim/internal/layout"
)

// calmGenome disables replication, movement, and predation so a
// protocell's fate is driven purely by the metabolism block.
func calmGenome() [16]byte {
	var g [16]byte
	g[layout.GeneReplicationThresh] = 255
	return g
}

func TestScenario_MetabolismDrain(t *testing.T) {
	g := NewGrid(8, 0.5)
	idx := g.Index(4, 4, 4)
	g.Voxels[idx] = layout.Voxel{Type: layout.Protocell, Energy: 100, SpeciesID: 1, Genome: calmGenome()}

	params := layout.DefaultSimParams(g.Size)
	params.MetabolicCostBase = 10

	Tick(g, params, nil, 1)

	v := g.Voxels[idx]
	require.Equal(t, layout.Protocell, v.Type)
	require.Equal(t, uint16(90), v.Energy)
}

func TestScenario_SaturatingDeathDoesNotWrapEnergy(t *testing.T) {
	g := NewGrid(8, 0.5)
	idx := g.Index(4, 4, 4)
	g.Voxels[idx] = layout.Voxel{Type: layout.Protocell, Energy: 5, SpeciesID: 1, Genome: calmGenome()}

	params := layout.DefaultSimParams(g.Size)
	params.MetabolicCostBase = 20

	Tick(g, params, nil, 1)

	v := g.Voxels[idx]
	require.Equal(t, layout.Waste, v.Type)
	require.Equal(t, uint16(0), v.Energy)
}

func TestScenario_SingleStepReplicationProducesExactlyTwoProtocells(t *testing.T) {
	g := NewGrid(8, 0.5)
	x, y, z := 4, 4, 4
	idx := g.Index(x, y, z)

	for _, o := range NeighborOffsets {
		g.Voxels[g.Index(x+o[0], y+o[1], z+o[2])] = layout.Voxel{Type: layout.Wall}
	}
	emptyIdx := g.Index(x+1, y, z)
	g.Voxels[emptyIdx] = layout.Voxel{Type: layout.Empty}

	var genome [16]byte
	genome[layout.GeneReplicationThresh] = 0
	genome[layout.GeneMutationRate] = 0
	genome[layout.GeneEnergySplitRatio] = 128
	parent := layout.Voxel{Type: layout.Protocell, Energy: 1000, SpeciesID: layout.FoldSpeciesHash(genome), Genome: genome}
	g.Voxels[idx] = parent

	params := layout.DefaultSimParams(g.Size)
	params.MetabolicCostBase = 0

	Tick(g, params, nil, 1)

	protocellCount := 0
	for _, v := range g.Voxels {
		if v.Type == layout.Protocell {
			protocellCount++
		}
	}
	offspring := g.Voxels[emptyIdx]
	require.Equal(t, 2, protocellCount, "replication must produce exactly parent + one offspring")
	require.Equal(t, uint16(0), offspring.Age)
	require.Equal(t, parent.SpeciesID, offspring.SpeciesID, "zero mutation rate must preserve species identity")
}

func TestScenario_ConflictResolutionPicksExactlyOneWinnerDeterministically(t *testing.T) {
	build := func() *Grid {
		g := NewGrid(8, 0.5)
		for x := 0; x < g.Size; x++ {
			for y := 0; y < g.Size; y++ {
				for z := 0; z < g.Size; z++ {
					g.Voxels[g.Index(x, y, z)] = layout.Voxel{Type: layout.Wall}
				}
			}
		}
		var genome [16]byte
		genome[layout.GeneReplicationThresh] = 0
		g.Voxels[g.Index(3, 3, 3)] = layout.Voxel{Type: layout.Protocell, Energy: 200, SpeciesID: 1, Genome: genome}
		g.Voxels[g.Index(3, 3, 5)] = layout.Voxel{Type: layout.Protocell, Energy: 100, SpeciesID: 2, Genome: genome}
		g.Voxels[g.Index(3, 3, 4)] = layout.Voxel{Type: layout.Empty}
		return g
	}

	params := layout.DefaultSimParams(8)
	params.MetabolicCostBase = 0

	run := func() layout.Voxel {
		g := build()
		Tick(g, params, nil, 9)
		return g.Voxels[g.Index(3, 3, 4)]
	}

	first := run()
	require.Equal(t, layout.Protocell, first.Type, "exactly one contender must win the contested empty cell")

	for i := 0; i < 5; i++ {
		again := run()
		require.Equal(t, first.SpeciesID, again.SpeciesID, "winner must be deterministic across repeated runs with identical seeds")
	}
}

func TestScenario_ToxinIsSelectiveByResistance(t *testing.T) {
	const size = 20
	g := NewGrid(size, 0.5)
	genome := func(resistance byte) [16]byte {
		var gn [16]byte
		gn[layout.GeneToxinResistance] = resistance
		gn[layout.GeneReplicationThresh] = 255
		return gn
	}

	var placed []int
	for i := 0; i < 10; i++ {
		idx := g.Index(i*2, 0, 0)
		resistance := byte(0)
		if i >= 5 {
			resistance = 255
		}
		g.Voxels[idx] = layout.Voxel{Type: layout.Protocell, Energy: 50, SpeciesID: uint16(i + 1), Genome: genome(resistance)}
		placed = append(placed, idx)
	}

	cmds := []layout.Command{{
		Type:   layout.CommandApplyToxin,
		X:      0, Y: 0, Z: 0,
		Radius: int32(size),
		Param0: 128,
	}}

	params := layout.DefaultSimParams(g.Size)
	params.MetabolicCostBase = 0

	Tick(g, params, cmds, 1)

	var waste, protocell int
	for _, idx := range placed {
		switch g.Voxels[idx].Type {
		case layout.Waste:
			waste++
		case layout.Protocell:
			protocell++
		}
	}
	require.Equal(t, 5, waste)
	require.Equal(t, 5, protocell)
}

func TestScenario_DiffusionStaysBoundedAndVarianceNonIncreasing(t *testing.T) {
	const size = 32
	g := NewGrid(size, 0.5)
	r := rand.New(rand.NewSource(42))
	for i := range g.Temps {
		g.Temps[i] = r.Float32()
	}

	variance := func(temps []float32) float64 {
		var mean float64
		for _, t := range temps {
			mean += float64(t)
		}
		mean /= float64(len(temps))
		var sumSq float64
		for _, t := range temps {
			d := float64(t) - mean
			sumSq += d * d
		}
		return sumSq / float64(len(temps))
	}

	prevVariance := variance(g.Temps)
	temps := g.Temps
	for tick := 0; tick < 1000; tick++ {
		temps = Diffuse(g, temps, 0.25)
		g.Temps = temps
		for _, tv := range temps {
			require.False(t, math.IsNaN(float64(tv)))
			require.GreaterOrEqual(t, tv, float32(0))
			require.LessOrEqual(t, tv, float32(1))
		}
		v := variance(temps)
		require.LessOrEqual(t, v, prevVariance+1e-9, "diffusion must not increase global temperature variance at tick %d", tick)
		prevVariance = v
	}
}

func TestScenario_DeterminismAtWorkgroupBoundaries(t *testing.T) {
	const size = 32
	build := func() *Grid {
		g := NewGrid(size, 0.5)
		r := rand.New(rand.NewSource(7))
		for i := 0; i < 50; i++ {
			x, y, z := r.Intn(size), r.Intn(size), r.Intn(size)
			idx := g.Index(x, y, z)
			if g.Voxels[idx].Type != layout.Empty {
				continue
			}
			if i%2 == 0 {
				var genome [16]byte
				genome[layout.GeneReplicationThresh] = 255
				g.Voxels[idx] = layout.Voxel{Type: layout.Protocell, Energy: 100, SpeciesID: uint16(i + 1), Genome: genome}
			} else {
				g.Voxels[idx] = layout.Voxel{Type: layout.Nutrient, Extra: NutrientInitialConcentration}
			}
		}
		return g
	}

	params := layout.DefaultSimParams(size)

	run := func() uint64 {
		g := build()
		for tick := uint32(0); tick < 100; tick++ {
			Tick(g, params, nil, tick)
		}
		return g.Checksum()
	}

	want := run()
	for i := 0; i < 3; i++ {
		require.Equal(t, want, run(), "identical seeds must produce bit-identical checksums across repeated runs")
	}
}
