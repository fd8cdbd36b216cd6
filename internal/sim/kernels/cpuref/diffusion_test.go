package cpuref

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gekko3d/protocellsim/internal/layout"
)

func TestDiffuse_WallIsInsulatingAndUnchanged(t *testing.T) {
	g := NewGrid(4, 0.5)
	idx := g.Index(1, 1, 1)
	g.Voxels[idx] = layout.Voxel{Type: layout.Wall}
	g.Temps[idx] = 0.77

	out := Diffuse(g, g.Temps, 0.25)
	require.Equal(t, float32(0.77), out[idx])
}

func TestDiffuse_HeatSourceAndColdSourceAreFixed(t *testing.T) {
	g := NewGrid(4, 0.5)
	hot := g.Index(0, 0, 0)
	cold := g.Index(1, 0, 0)
	g.Voxels[hot] = layout.Voxel{Type: layout.HeatSource}
	g.Voxels[cold] = layout.Voxel{Type: layout.ColdSource}

	out := Diffuse(g, g.Temps, 0.25)
	require.Equal(t, float32(1.0), out[hot])
	require.Equal(t, float32(0.0), out[cold])
}

func TestDiffuse_UniformFieldStaysUniform(t *testing.T) {
	g := NewGrid(6, 0.4)
	out := Diffuse(g, g.Temps, 0.25)
	for i, tv := range out {
		require.InDelta(t, 0.4, tv, 1e-6, "index %d drifted from a uniform field", i)
	}
}

func TestDiffuse_MovesTowardNeighborMean(t *testing.T) {
	g := NewGrid(4, 0.0)
	center := g.Index(2, 2, 2)
	g.Temps[center] = 1.0

	out := Diffuse(g, g.Temps, 0.25)
	require.Less(t, out[center], float32(1.0), "a hot cell surrounded by cold neighbors must cool toward the mean")
	require.Greater(t, out[center], float32(0.0))
}
