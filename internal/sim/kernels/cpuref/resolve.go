package cpuref

import (
	"github.com/gekko3d/protocellsim/internal/layout"
	"github.com/gekko3d/protocellsim/internal/prng"
)

// NutrientInitialConcentration is the starting depletion budget of a
// freshly created Nutrient voxel, stored in its Extra field's low bits.
// Not pinned down by any wire contract; recorded here as an implementation
// decision since the behavior was otherwise left open.
const NutrientInitialConcentration = 10

// winner is the redundant deterministic bid-comparison result a
// target cell and a source cell both independently compute: highest
// bid wins, ties broken by higher source voxel index.
type winner struct {
	found  bool
	dir    int // index into NeighborOffsets, from target toward the winning source
	srcIdx int
	action layout.Action
}

// findWinner scans the six neighbors of (tx,ty,tz) for the
// highest-bid intent among those in allowed whose direction points
// back at the target cell.
func findWinner(g *Grid, intents []uint32, tx, ty, tz int, allowed map[layout.Action]bool) winner {
	var best winner
	var bestBid uint32
	for i, o := range NeighborOffsets {
		nx, ny, nz := tx+o[0], ty+o[1], tz+o[2]
		if !g.InBounds(nx, ny, nz) {
			continue
		}
		nidx := g.Index(nx, ny, nz)
		action, dir, bid := layout.DecodeIntent(intents[nidx])
		if !allowed[action] {
			continue
		}
		if int(dir) != oppositeIndex(i) {
			continue
		}
		if !best.found || bid > bestBid || (bid == bestBid && nidx > best.srcIdx) {
			best = winner{found: true, dir: i, srcIdx: nidx, action: action}
			bestBid = bid
		}
	}
	return best
}

// oppositeIndex maps a NeighborOffsets index to the index of its
// opposite face (+X<->-X, +Y<->-Y, +Z<->-Z).
func oppositeIndex(i int) int {
	return []int{1, 0, 3, 2, 5, 4}[i]
}

var moveOrReplicate = map[layout.Action]bool{layout.ActionMove: true, layout.ActionReplicate: true}
var predateOnly = map[layout.Action]bool{layout.ActionPredate: true}

// Resolve computes the next voxel state for every cell, reading from g
// (post command-application) plus the declared intents and the
// just-diffused temperature buffer, and returns the new voxel slice.
// g is not mutated.
func Resolve(g *Grid, intents []uint32, newTemps []float32, params layout.SimParams, tick uint32) []layout.Voxel {
	out := make([]layout.Voxel, len(g.Voxels))
	gridSize := uint32(g.Size)
	maxEnergy := uint16(params.MaxEnergy)

	for x := 0; x < g.Size; x++ {
		for y := 0; y < g.Size; y++ {
			for z := 0; z < g.Size; z++ {
				idx := g.Index(x, y, z)
				out[idx] = resolveOne(g, intents, newTemps, params, x, y, z, idx, gridSize, tick, maxEnergy)
			}
		}
	}
	return out
}

func resolveOne(g *Grid, intents []uint32, newTemps []float32, params layout.SimParams, x, y, z, idx int, gridSize, tick uint32, maxEnergy uint16) layout.Voxel {
	v := g.Voxels[idx]

	switch v.Type {
	case layout.Empty:
		return resolveEmpty(g, intents, newTemps, params, x, y, z, idx, gridSize, tick, maxEnergy)
	case layout.Protocell:
		return resolveProtocell(g, intents, newTemps, params, x, y, z, idx, gridSize, tick, maxEnergy)
	case layout.Nutrient:
		return resolveNutrient(g, x, y, z, idx)
	case layout.Waste:
		return resolveWaste(g, params, idx, gridSize, tick)
	default: // Wall, EnergySource, HeatSource, ColdSource
		return v
	}
}

func resolveEmpty(g *Grid, intents []uint32, newTemps []float32, params layout.SimParams, x, y, z, idx int, gridSize, tick uint32, maxEnergy uint16) layout.Voxel {
	win := findWinner(g, intents, x, y, z, moveOrReplicate)
	if !win.found {
		stream := prng.NewStream(uint32(idx), tick, gridSize, prng.SaltResolveAndExecute)
		if stream.Float01() < params.NutrientSpawnRate {
			return layout.Voxel{Type: layout.Nutrient, Extra: NutrientInitialConcentration}
		}
		return layout.Voxel{Type: layout.Empty}
	}

	switch win.action {
	case layout.ActionMove:
		sx, sy, sz := g.Index3(win.srcIdx)
		predated := findWinner(g, intents, sx, sy, sz, predateOnly)
		if predated.found {
			return layout.Voxel{Type: layout.Empty}
		}
		mover := g.Voxels[win.srcIdx]
		tmod := tempModifier(newTemps[idx], params.TempSensitivity)

		var gain uint16
		for _, o := range NeighborOffsets {
			nx, ny, nz := x+o[0], y+o[1], z+o[2]
			if g.InBounds(nx, ny, nz) && g.Voxels[g.Index(nx, ny, nz)].Type == layout.EnergySource {
				gain = layout.SaturatingAddU16(gain, uint16(params.EnergyFromSource), layout.MaxEnergy16)
			}
		}
		energy := layout.SaturatingAddU16(mover.Energy, gain, maxEnergy)
		energy = layout.SaturatingSubU16(energy, uint16(params.MovementEnergyCost))
		cost := uint16(params.MetabolicCostBase * tmod)
		energy = layout.SaturatingSubU16(energy, cost)

		age := layout.SaturatingIncU16(mover.Age, layout.MaxAge16)
		if energy == 0 {
			return layout.Voxel{Type: layout.Waste, SpeciesID: mover.SpeciesID}
		}
		return layout.Voxel{Type: layout.Protocell, Energy: energy, Age: age, SpeciesID: mover.SpeciesID, Genome: mover.Genome}

	case layout.ActionReplicate:
		parent := g.Voxels[win.srcIdx]
		mutationRate := layout.GeneByte(parent.Genome, layout.GeneMutationRate)
		tmod := tempModifier(newTemps[idx], params.TempSensitivity)
		effectiveRate := uint32(float32(mutationRate) * tmod)
		if effectiveRate > 255 {
			effectiveRate = 255
		}

		stream := prng.NewStream(uint32(idx), tick, gridSize, prng.SaltResolveAndExecute)
		mutated := parent.Genome
		for i := 0; i < 16; i++ {
			roll := stream.Next()
			if (roll & 0xFF) < effectiveRate {
				mutated[i] = byte(roll >> 8)
			}
		}
		species := layout.FoldSpeciesHash(mutated)
		splitRatio := layout.GeneByte(parent.Genome, layout.GeneEnergySplitRatio)
		offspringEnergy := uint16(uint32(parent.Energy) * uint32(255-splitRatio) / 255)
		return layout.Voxel{Type: layout.Protocell, Energy: offspringEnergy, SpeciesID: species, Genome: mutated}
	}

	return layout.Voxel{Type: layout.Empty}
}

func resolveProtocell(g *Grid, intents []uint32, newTemps []float32, params layout.SimParams, x, y, z, idx int, gridSize, tick uint32, maxEnergy uint16) layout.Voxel {
	v := g.Voxels[idx]

	// Always consumed, unconditionally, for the fixed per-voxel PRNG
	// schedule the determinism property requires.
	prng.NewStream(uint32(idx), tick, gridSize, prng.SaltResolveAndExecute).Skip(16)

	if predator := findWinner(g, intents, x, y, z, predateOnly); predator.found {
		return layout.Voxel{Type: layout.Waste, SpeciesID: v.SpeciesID}
	}

	action, dir, _ := layout.DecodeIntent(intents[idx])
	workEnergy := v.Energy

	switch action {
	case layout.ActionDie:
		return layout.Voxel{Type: layout.Waste, SpeciesID: v.SpeciesID}

	case layout.ActionPredate:
		dx, dy, dz := dir.Offset()
		tx, ty, tz := x+dx, y+dy, z+dz
		if g.InBounds(tx, ty, tz) {
			contest := findWinner(g, intents, tx, ty, tz, predateOnly)
			if contest.found && contest.srcIdx == idx {
				preyEnergy := g.Voxels[g.Index(tx, ty, tz)].Energy
				gained := uint16(params.PredationEnergyFraction * float32(preyEnergy))
				workEnergy = layout.SaturatingAddU16(v.Energy, gained, maxEnergy)
			}
		}

	case layout.ActionReplicate:
		dx, dy, dz := dir.Offset()
		tx, ty, tz := x+dx, y+dy, z+dz
		if g.InBounds(tx, ty, tz) {
			contest := findWinner(g, intents, tx, ty, tz, moveOrReplicate)
			if contest.found && contest.srcIdx == idx && contest.action == layout.ActionReplicate {
				splitRatio := layout.GeneByte(v.Genome, layout.GeneEnergySplitRatio)
				workEnergy = uint16(uint32(v.Energy) * uint32(splitRatio) / 255)
			}
		}

	case layout.ActionMove:
		dx, dy, dz := dir.Offset()
		tx, ty, tz := x+dx, y+dy, z+dz
		if g.InBounds(tx, ty, tz) {
			contest := findWinner(g, intents, tx, ty, tz, moveOrReplicate)
			if contest.found && contest.srcIdx == idx && contest.action == layout.ActionMove {
				return layout.Voxel{Type: layout.Empty}
			}
		}
	}

	var gain uint16
	photosynth := layout.GeneByte(v.Genome, layout.GenePhotosyntheticRate)
	metabEff := layout.GeneByte(v.Genome, layout.GeneMetabolicEfficiency)
	for _, o := range NeighborOffsets {
		nx, ny, nz := x+o[0], y+o[1], z+o[2]
		if !g.InBounds(nx, ny, nz) {
			continue
		}
		switch g.Voxels[g.Index(nx, ny, nz)].Type {
		case layout.EnergySource:
			gain = layout.SaturatingAddU16(gain, uint16(float32(photosynth)*params.EnergyFromSource/255), layout.MaxEnergy16)
		case layout.Nutrient:
			gain = layout.SaturatingAddU16(gain, uint16(float32(metabEff)*params.EnergyFromNutrient/255), layout.MaxEnergy16)
		}
	}

	newEnergy := layout.SaturatingAddU16(workEnergy, gain, maxEnergy)
	metabRate := layout.GeneByte(v.Genome, layout.GeneMetabolicRate)
	tmod := tempModifier(newTemps[idx], params.TempSensitivity)
	cost := uint16(params.MetabolicCostBase * float32(255+uint32(metabRate)) / 255 * tmod)
	newEnergy = layout.SaturatingSubU16(newEnergy, cost)

	age := layout.SaturatingIncU16(v.Age, layout.MaxAge16)
	if newEnergy == 0 {
		return layout.Voxel{Type: layout.Waste, SpeciesID: v.SpeciesID}
	}
	return layout.Voxel{Type: layout.Protocell, Energy: newEnergy, Age: age, SpeciesID: v.SpeciesID, Genome: v.Genome}
}

func resolveNutrient(g *Grid, x, y, z, idx int) layout.Voxel {
	v := g.Voxels[idx]
	var predators uint16
	for _, o := range NeighborOffsets {
		nx, ny, nz := x+o[0], y+o[1], z+o[2]
		if g.InBounds(nx, ny, nz) && g.Voxels[g.Index(nx, ny, nz)].Type == layout.Protocell {
			predators++
		}
	}
	concentration := layout.SaturatingSubU16(uint16(v.Extra), predators)
	age := layout.SaturatingIncU16(v.Age, layout.MaxAge16)
	if concentration == 0 {
		return layout.Voxel{Type: layout.Empty}
	}
	return layout.Voxel{Type: layout.Nutrient, Age: age, Extra: uint64(concentration)}
}

func resolveWaste(g *Grid, params layout.SimParams, idx int, gridSize, tick uint32) layout.Voxel {
	v := g.Voxels[idx]
	age := layout.SaturatingIncU16(v.Age, layout.MaxAge16)
	if uint32(age) >= uint32(params.WasteDecayTicks) {
		stream := prng.NewStream(uint32(idx), tick, gridSize, prng.SaltResolveAndExecute)
		if stream.Float01() < params.NutrientRecycleRate {
			return layout.Voxel{Type: layout.Nutrient, Extra: NutrientInitialConcentration}
		}
		return layout.Voxel{Type: layout.Empty}
	}
	return layout.Voxel{Type: layout.Waste, Age: age, SpeciesID: v.SpeciesID}
}

func tempModifier(localTemp, tempSensitivity float32) float32 {
	return 1.0 + tempSensitivity*(localTemp-0.5)
}
