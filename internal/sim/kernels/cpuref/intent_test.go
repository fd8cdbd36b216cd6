package cpuref

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gekko3d/protocellsim/internal/layout"
)

// declareAt is a small helper: place v at (x,y,z) in a fresh grid with
// five Wall neighbors plus one configurable neighbor type, then run
// declareOne through DeclareOneForTest.
func declareAt(t *testing.T, v layout.Voxel, neighborType layout.VoxelType) (uint32, int) {
	t.Helper()
	g := NewGrid(8, 0.5)
	x, y, z := 4, 4, 4
	for _, o := range NeighborOffsets {
		g.Voxels[g.Index(x+o[0], y+o[1], z+o[2])] = layout.Voxel{Type: layout.Wall}
	}
	if neighborType != layout.Wall {
		g.Voxels[g.Index(x+1, y, z)] = layout.Voxel{Type: neighborType}
	}
	idx := g.Index(x, y, z)
	g.Voxels[idx] = v
	params := layout.DefaultSimParams(g.Size)
	return DeclareOneForTest(g, v, params, x, y, z, idx, uint32(idx), uint32(g.Size), 7)
}

func TestDeclareOne_ConsumesExactlyFiveAdvances_DieBranch(t *testing.T) {
	v := layout.Voxel{Type: layout.Protocell, Energy: 0, SpeciesID: 1}
	intent, advances := declareAt(t, v, layout.Wall)
	require.Equal(t, 5, advances)
	action, dir, _ := layout.DecodeIntent(intent)
	require.Equal(t, layout.ActionDie, action)
	require.Equal(t, layout.DirSelf, dir)
}

func TestDeclareOne_ConsumesExactlyFiveAdvances_IdleBranch(t *testing.T) {
	var genome [16]byte // all genes zero: no predation or movement; six Wall neighbors leave nowhere to replicate
	v := layout.Voxel{Type: layout.Protocell, Energy: 50, SpeciesID: 1, Genome: genome}
	_, advances := declareAt(t, v, layout.Wall)
	require.Equal(t, 5, advances)
}

func TestDeclareOne_ConsumesExactlyFiveAdvances_MovementBranch(t *testing.T) {
	var genome [16]byte
	genome[layout.GeneMovementBias] = 255
	genome[layout.GeneChemotaxisStrength] = 255
	genome[layout.GeneReplicationThresh] = 255 // 50 is below the replication bar, so Replicate cannot outrank Move
	v := layout.Voxel{Type: layout.Protocell, Energy: 50, SpeciesID: 1, Genome: genome}
	intent, advances := declareAt(t, v, layout.Empty)
	require.Equal(t, 5, advances)
	action, _, _ := layout.DecodeIntent(intent)
	require.Equal(t, layout.ActionMove, action)
}

func TestDeclareOne_ConsumesExactlyFiveAdvances_ReplicationBranch(t *testing.T) {
	var genome [16]byte
	genome[layout.GeneReplicationThresh] = 0
	v := layout.Voxel{Type: layout.Protocell, Energy: 1000, SpeciesID: 1, Genome: genome}
	intent, advances := declareAt(t, v, layout.Empty)
	require.Equal(t, 5, advances)
	action, _, _ := layout.DecodeIntent(intent)
	require.Equal(t, layout.ActionReplicate, action)
}

func TestDeclareOne_ConsumesExactlyFiveAdvances_PredationBranch(t *testing.T) {
	g := NewGrid(8, 0.5)
	x, y, z := 4, 4, 4
	for _, o := range NeighborOffsets {
		g.Voxels[g.Index(x+o[0], y+o[1], z+o[2])] = layout.Voxel{Type: layout.Wall}
	}
	g.Voxels[g.Index(x+1, y, z)] = layout.Voxel{Type: layout.Protocell, Energy: 1, SpeciesID: 2}

	var genome [16]byte
	genome[layout.GenePredationCapability] = 255
	genome[layout.GenePredationAggression] = 255
	v := layout.Voxel{Type: layout.Protocell, Energy: 50, SpeciesID: 1, Genome: genome}
	idx := g.Index(x, y, z)
	g.Voxels[idx] = v
	params := layout.DefaultSimParams(g.Size)

	intent, advances := DeclareOneForTest(g, v, params, x, y, z, idx, uint32(idx), uint32(g.Size), 7)
	require.Equal(t, 5, advances)
	action, _, _ := layout.DecodeIntent(intent)
	require.Equal(t, layout.ActionPredate, action)
}

func TestDeclareIntents_NonProtocellsNeverTouchThePRNG(t *testing.T) {
	g := NewGrid(4, 0.5)
	params := layout.DefaultSimParams(g.Size)
	intents := DeclareIntents(g, params, 3)
	for idx, w := range intents {
		require.Equal(t, layout.EncodeIntent(layout.ActionNone, layout.DirSelf, 0), w, "idx %d", idx)
	}
}
