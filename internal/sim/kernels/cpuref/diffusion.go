package cpuref

import "github.com/gekko3d/protocellsim/internal/layout"

// Diffuse computes one tick's temperature update from readTemps into a
// freshly allocated slice, reading voxel types from g (already past
// command application) to decide insulation/Dirichlet behavior.
func Diffuse(g *Grid, readTemps []float32, diffusionRate float32) []float32 {
	out := make([]float32, len(readTemps))
	for x := 0; x < g.Size; x++ {
		for y := 0; y < g.Size; y++ {
			for z := 0; z < g.Size; z++ {
				idx := g.Index(x, y, z)
				out[idx] = diffuseOne(g, readTemps, x, y, z, idx, diffusionRate)
			}
		}
	}
	return out
}

func diffuseOne(g *Grid, readTemps []float32, x, y, z, idx int, diffusionRate float32) float32 {
	switch g.Voxels[idx].Type {
	case layout.Wall:
		return readTemps[idx]
	case layout.HeatSource:
		return 1.0
	case layout.ColdSource:
		return 0.0
	}

	var sum float32
	var count float32
	for _, o := range NeighborOffsets {
		nx, ny, nz := x+o[0], y+o[1], z+o[2]
		if !g.InBounds(nx, ny, nz) {
			continue
		}
		nidx := g.Index(nx, ny, nz)
		if g.Voxels[nidx].Type == layout.Wall {
			continue
		}
		sum += readTemps[nidx]
		count++
	}

	tOld := readTemps[idx]
	tNew := tOld
	if count > 0 {
		mean := sum / count
		tNew = tOld + diffusionRate*(mean-tOld)
	}
	return clamp01f(tNew)
}

func clamp01f(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
