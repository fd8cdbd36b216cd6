package cpuref

import "github.com/gekko3d/protocellsim/internal/layout"

// Tick runs one full simulation step against g in place, mirroring the
// five-dispatch GPU schedule exactly: commands mutate the voxel state
// in place first (so every later kernel sees them), then diffusion,
// intent declaration, and resolve each read the prior stage's output.
// Returns the tick's stats, the same shape the async stats readback
// would eventually surface.
func Tick(g *Grid, params layout.SimParams, commands []layout.Command, tickCount uint32) Stats {
	ApplyCommands(g, commands, tickCount)

	newTemps := Diffuse(g, g.Temps, params.DiffusionRate)

	intents := DeclareIntents(g, params, tickCount)

	newVoxels := Resolve(g, intents, newTemps, params, tickCount)

	g.Voxels = newVoxels
	g.Temps = newTemps

	return ReduceStats(g.Voxels)
}
