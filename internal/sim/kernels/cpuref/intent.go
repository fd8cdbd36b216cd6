package cpuref

import (
	"github.com/gekko3d/protocellsim/internal/layout"
	"github.com/gekko3d/protocellsim/internal/prng"
)

// DeclareIntents computes one intent word per voxel. Every protocell
// consumes exactly 5 PRNG advances regardless of branch taken (spec
// requirement for determinism); non-protocells emit ActionNone without
// touching the PRNG at all, since they have no voxel to declare intent
// for and therefore no schedule to keep exact.
func DeclareIntents(g *Grid, params layout.SimParams, tick uint32) []uint32 {
	out := make([]uint32, len(g.Voxels))
	gridSize := uint32(g.Size)

	for x := 0; x < g.Size; x++ {
		for y := 0; y < g.Size; y++ {
			for z := 0; z < g.Size; z++ {
				idx := g.Index(x, y, z)
				v := g.Voxels[idx]
				if v.Type != layout.Protocell {
					out[idx] = layout.EncodeIntent(layout.ActionNone, layout.DirSelf, 0)
					continue
				}
				intent, _ := declareOne(g, v, params, x, y, z, idx, uint32(idx), gridSize, tick)
				out[idx] = intent
			}
		}
	}
	return out
}

// DeclareOneForTest exposes declareOne's PRNG advance count so tests
// can assert the fixed 5-advance budget is spent exactly, regardless
// of which branch (die, predate, replicate, move, idle) is taken.
func DeclareOneForTest(g *Grid, v layout.Voxel, params layout.SimParams, x, y, z, idx int, voxelIndex, gridSize, tick uint32) (intent uint32, advances int) {
	return declareOne(g, v, params, x, y, z, idx, voxelIndex, gridSize, tick)
}

func declareOne(g *Grid, v layout.Voxel, params layout.SimParams, x, y, z, idx int, voxelIndex, gridSize, tick uint32) (uint32, int) {
	stream := prng.NewStream(voxelIndex, tick, gridSize, prng.SaltIntentDeclaration)

	dieRoll := stream.Next() // advance 1: bid source, also the "die" slot

	if v.Energy == 0 {
		stream.Skip(4) // advances 2-5 consumed regardless of branch
		return layout.EncodeIntent(layout.ActionDie, layout.DirSelf, 0), stream.Advances()
	}

	// advance 2: predation scan
	stream.Next()
	predateDir, preyEnergy := -1, uint16(0xFFFF)
	predCap := layout.GeneByte(v.Genome, layout.GenePredationCapability)
	aggression := layout.GeneByte(v.Genome, layout.GenePredationAggression)
	if predCap > 0 {
		for i, o := range NeighborOffsets {
			nx, ny, nz := x+o[0], y+o[1], z+o[2]
			if !g.InBounds(nx, ny, nz) {
				continue
			}
			n := g.Voxels[g.Index(nx, ny, nz)]
			if n.Type == layout.Protocell && n.Energy < uint16(aggression) && n.Energy < preyEnergy {
				preyEnergy = n.Energy
				predateDir = i
			}
		}
	}

	// advance 3: replication scan
	stream.Next()
	replicateDir := -1
	replThresh := layout.GeneByte(v.Genome, layout.GeneReplicationThresh)
	if float64(v.Energy) > float64(params.ReplicationEnergyMin)*float64(replThresh)/255.0 {
		for i, o := range NeighborOffsets {
			nx, ny, nz := x+o[0], y+o[1], z+o[2]
			if !g.InBounds(nx, ny, nz) {
				continue
			}
			if g.Voxels[g.Index(nx, ny, nz)].Type == layout.Empty {
				replicateDir = i
				break
			}
		}
	}

	// advance 4: movement decision
	moveDecision := stream.Next()
	moveDir := -1
	movementBias := layout.GeneByte(v.Genome, layout.GeneMovementBias)
	chemotaxis := layout.GeneByte(v.Genome, layout.GeneChemotaxisStrength)
	if moveDecision%256 < uint32(movementBias) {
		foodDir, anyEmptyDir := -1, -1
		for i, o := range NeighborOffsets {
			nx, ny, nz := x+o[0], y+o[1], z+o[2]
			if !g.InBounds(nx, ny, nz) {
				continue
			}
			if g.Voxels[g.Index(nx, ny, nz)].Type != layout.Empty {
				continue
			}
			if anyEmptyDir < 0 {
				anyEmptyDir = i
			}
			bx, by, bz := nx+o[0], ny+o[1], nz+o[2]
			if g.InBounds(bx, by, bz) && foodDir < 0 {
				bt := g.Voxels[g.Index(bx, by, bz)].Type
				if bt == layout.Nutrient || bt == layout.EnergySource {
					foodDir = i
				}
			}
		}
		// advance 5: movement direction
		dirRoll := stream.Next()
		if foodDir >= 0 && dirRoll%255 < uint32(chemotaxis) {
			moveDir = foodDir
		} else if anyEmptyDir >= 0 {
			moveDir = anyEmptyDir
		}
	} else {
		stream.Next() // advance 5 consumed regardless
	}

	bid := dieRoll % (uint32(v.Energy) + 1)

	switch {
	case predateDir >= 0:
		return layout.EncodeIntent(layout.ActionPredate, layout.AllNeighborDirs[predateDir], bid), stream.Advances()
	case replicateDir >= 0:
		return layout.EncodeIntent(layout.ActionReplicate, layout.AllNeighborDirs[replicateDir], bid), stream.Advances()
	case moveDir >= 0:
		return layout.EncodeIntent(layout.ActionMove, layout.AllNeighborDirs[moveDir], bid), stream.Advances()
	default:
		return layout.EncodeIntent(layout.ActionIdle, layout.DirSelf, 0), stream.Advances()
	}
}
