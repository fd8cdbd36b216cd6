package cpuref

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gekko3d/protocellsim/internal/layout"
)

func TestApplyCommands_PlaceVoxelOverwritesType(t *testing.T) {
	g := NewGrid(4, 0.5)
	cmd := layout.Command{Type: layout.CommandPlaceVoxel, X: 1, Y: 1, Z: 1, Radius: 0, Param0: uint32(layout.Wall)}
	ApplyCommands(g, []layout.Command{cmd}, 0)
	require.Equal(t, layout.Wall, g.Voxels[g.Index(1, 1, 1)].Type)
}

func TestApplyCommands_RemoveVoxelClearsToEmpty(t *testing.T) {
	g := NewGrid(4, 0.5)
	idx := g.Index(1, 1, 1)
	g.Voxels[idx] = layout.Voxel{Type: layout.Wall}
	ApplyCommands(g, []layout.Command{{Type: layout.CommandRemoveVoxel, X: 1, Y: 1, Z: 1, Radius: 0}}, 0)
	require.Equal(t, layout.Empty, g.Voxels[idx].Type)
}

func TestApplyCommands_SeedProtocellsOnlyFillsEmptyCells(t *testing.T) {
	g := NewGrid(4, 0.5)
	occupied := g.Index(0, 0, 0)
	g.Voxels[occupied] = layout.Voxel{Type: layout.Wall}

	cmd := layout.Command{Type: layout.CommandSeedProtocells, X: 0, Y: 0, Z: 0, Radius: 1, Param0: 200}
	ApplyCommands(g, []layout.Command{cmd}, 5)

	require.Equal(t, layout.Wall, g.Voxels[occupied].Type, "occupied cells must not be overwritten by seeding")

	empty := g.Index(1, 0, 0)
	v := g.Voxels[empty]
	require.Equal(t, layout.Protocell, v.Type)
	require.Equal(t, uint16(200), v.Energy)
	require.NotZero(t, v.SpeciesID)
}

func TestApplyCommands_SeedProtocellsClampsEnergyToMax16(t *testing.T) {
	g := NewGrid(2, 0.5)
	cmd := layout.Command{Type: layout.CommandSeedProtocells, X: 0, Y: 0, Z: 0, Radius: 2, Param0: 0x10000}
	ApplyCommands(g, []layout.Command{cmd}, 1)
	require.Equal(t, uint16(layout.MaxEnergy16), g.Voxels[0].Energy)
}

func TestApplyCommands_ToxinConvertsOnlyBelowThreshold(t *testing.T) {
	g := NewGrid(2, 0.5)
	var susceptible, resistant [16]byte
	susceptible[layout.GeneToxinResistance] = 0
	resistant[layout.GeneToxinResistance] = 255
	g.Voxels[0] = layout.Voxel{Type: layout.Protocell, Energy: 30, SpeciesID: 1, Genome: susceptible}
	g.Voxels[1] = layout.Voxel{Type: layout.Protocell, Energy: 30, SpeciesID: 2, Genome: resistant}

	cmd := layout.Command{Type: layout.CommandApplyToxin, X: 0, Y: 0, Z: 0, Radius: 2, Param0: 128}
	ApplyCommands(g, []layout.Command{cmd}, 0)

	require.Equal(t, layout.Waste, g.Voxels[0].Type)
	require.Equal(t, uint16(0), g.Voxels[0].Energy)
	require.Equal(t, layout.Protocell, g.Voxels[1].Type)
}

func TestApplyCommands_OutsideRadiusIsUntouched(t *testing.T) {
	g := NewGrid(8, 0.5)
	idx := g.Index(7, 7, 7)
	g.Voxels[idx] = layout.Voxel{Type: layout.Empty}
	cmd := layout.Command{Type: layout.CommandPlaceVoxel, X: 0, Y: 0, Z: 0, Radius: 1, Param0: uint32(layout.Wall)}
	ApplyCommands(g, []layout.Command{cmd}, 0)
	require.Equal(t, layout.Empty, g.Voxels[idx].Type)
}

func TestApplyCommands_UnknownTypeIsNoOp(t *testing.T) {
	g := NewGrid(2, 0.5)
	before := g.Voxels[0]
	ApplyCommands(g, []layout.Command{{Type: layout.CommandType(99), X: 0, Y: 0, Z: 0, Radius: 2}}, 0)
	require.Equal(t, before, g.Voxels[0])
}
