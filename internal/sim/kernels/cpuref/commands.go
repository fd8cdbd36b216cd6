package cpuref

import (
	"github.com/gekko3d/protocellsim/internal/layout"
	"github.com/gekko3d/protocellsim/internal/prng"
)

// ApplyCommands mutates g in place, exactly as the GPU kernel mutates
// the read voxel buffer in place: commands are visible to every later
// kernel in the same tick because nothing reads the voxel buffer
// before this pass runs.
func ApplyCommands(g *Grid, commands []layout.Command, tick uint32) {
	gridSize := uint32(g.Size)
	for x := 0; x < g.Size; x++ {
		for y := 0; y < g.Size; y++ {
			for z := 0; z < g.Size; z++ {
				idx := g.Index(x, y, z)
				for _, cmd := range commands {
					dx := int32(x) - cmd.X
					dy := int32(y) - cmd.Y
					dz := int32(z) - cmd.Z
					if layout.ChebyshevDistance(dx, dy, dz) > cmd.Radius {
						continue
					}
					applyOneCommand(g, idx, cmd, gridSize, tick)
				}
			}
		}
	}
}

func applyOneCommand(g *Grid, idx int, cmd layout.Command, gridSize, tick uint32) {
	switch cmd.Type {
	case layout.CommandPlaceVoxel:
		g.Voxels[idx] = layout.Voxel{Type: layout.VoxelType(cmd.Param0 & 0xFF)}
	case layout.CommandRemoveVoxel:
		g.Voxels[idx] = layout.Voxel{Type: layout.Empty}
	case layout.CommandSeedProtocells:
		if g.Voxels[idx].Type == layout.Empty {
			stream := prng.NewStream(uint32(idx), tick, gridSize, prng.SaltApplyCommands)
			var genome [16]byte
			for w := 0; w < 4; w++ {
				word := stream.Next()
				genome[w*4] = byte(word)
				genome[w*4+1] = byte(word >> 8)
				genome[w*4+2] = byte(word >> 16)
				genome[w*4+3] = byte(word >> 24)
			}
			energy := uint16(cmd.Param0)
			if cmd.Param0 > layout.MaxEnergy16 {
				energy = layout.MaxEnergy16
			}
			g.Voxels[idx] = layout.Voxel{
				Type:      layout.Protocell,
				Energy:    energy,
				SpeciesID: layout.FoldSpeciesHash(genome),
				Genome:    genome,
			}
		}
	case layout.CommandApplyToxin:
		v := &g.Voxels[idx]
		if v.Type == layout.Protocell {
			threshold := cmd.Param0
			if uint32(layout.GeneByte(v.Genome, layout.GeneToxinResistance)) < threshold {
				v.Type = layout.Waste
				v.Energy = 0
				v.Age = 0
				// species_id (marker) is preserved across the Waste transition.
			}
		}
	default:
		// Unknown command types are no-ops.
	}
}
