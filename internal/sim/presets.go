package sim

import "github.com/gekko3d/protocellsim/internal/layout"

// Preset names the three starting scenes this package builds: each is loaded
// as a single command burst through Tick, not a bespoke init path.
type Preset int

const (
	PresetPetriDish Preset = iota
	PresetGradient
	PresetArena
)

// BuildPreset returns the command burst that produces one of the three
// named starting scenes for a gridSize^3 grid, grounded on the
// scene.go's entity spawn command lists, generalized (scene.go's entity spawn
// bursts) generalized from ECS spawn commands to simulation commands.
func BuildPreset(preset Preset, gridSize int) []layout.Command {
	switch preset {
	case PresetPetriDish:
		return petriDish(gridSize)
	case PresetGradient:
		return gradient(gridSize)
	case PresetArena:
		return arena(gridSize)
	default:
		return nil
	}
}

// petriDish seeds a protocell cluster at the grid's center surrounded
// by a ring of nutrients, the calmest starting condition: one colony,
// ample food, no hostile temperature gradient.
func petriDish(gridSize int) []layout.Command {
	center := int32(gridSize / 2)
	return []layout.Command{
		{Type: layout.CommandSeedProtocells, X: center, Y: center, Z: center, Radius: int32(gridSize) / 8, Param0: 180},
		{Type: layout.CommandPlaceVoxel, X: center, Y: center, Z: center, Radius: int32(gridSize) / 4, Param0: uint32(layout.Nutrient)},
	}
}

// gradient places opposing heat and cold poles along the X axis with a
// scattering of protocells between them, the scenario that exercises
// temperature-driven chemotaxis and diffusion stability.
func gradient(gridSize int) []layout.Command {
	g := int32(gridSize)
	mid := g / 2
	return []layout.Command{
		{Type: layout.CommandPlaceVoxel, X: 1, Y: mid, Z: mid, Radius: 2, Param0: uint32(layout.HeatSource)},
		{Type: layout.CommandPlaceVoxel, X: g - 2, Y: mid, Z: mid, Radius: 2, Param0: uint32(layout.ColdSource)},
		{Type: layout.CommandSeedProtocells, X: mid, Y: mid, Z: mid, Radius: g / 3, Param0: 120},
	}
}

// arena marks 26 boundary points of the grid (the 8 corners, 12 edge
// midpoints and 6 face centers) as wall pillars and places an energy
// source gridSize/8 voxels (at least 1) in from each corner on every
// axis, the scenario that tests predation and conflict resolution under
// resource scarcity at the center. The command brush is a uniform
// cube, not an anisotropic slab, so a literal solid shell is not
// expressible within the 64-command-per-tick budget; a sparse frame of
// radius-1 (3x3x3, clipped at the grid edge) pillars is the closest
// approximation the wire format allows.
func arena(gridSize int) []layout.Command {
	g := int32(gridSize)
	lo, hi := int32(0), g-1
	cmds := []layout.Command{
		{Type: layout.CommandSeedProtocells, X: g / 2, Y: g / 2, Z: g / 2, Radius: g / 3, Param0: 150},
	}

	axisPoints := []int32{lo, g / 2, hi}
	for _, x := range axisPoints {
		for _, y := range axisPoints {
			for _, z := range axisPoints {
				onBoundary := x == lo || x == hi || y == lo || y == hi || z == lo || z == hi
				isCenter := x == g/2 && y == g/2 && z == g/2
				if !onBoundary || isCenter {
					continue
				}
				cmds = append(cmds, layout.Command{
					Type: layout.CommandPlaceVoxel, X: x, Y: y, Z: z, Radius: 1,
					Param0: uint32(layout.Wall),
				})
			}
		}
	}

	inward := g / 8
	if inward < 1 {
		inward = 1
	}
	for _, cx := range []int32{lo + inward, hi - inward} {
		for _, cy := range []int32{lo + inward, hi - inward} {
			for _, cz := range []int32{lo + inward, hi - inward} {
				cmds = append(cmds, layout.Command{
					Type: layout.CommandPlaceVoxel, X: cx, Y: cy, Z: cz, Radius: 1,
					Param0: uint32(layout.EnergySource),
				})
			}
		}
	}

	return cmds
}
