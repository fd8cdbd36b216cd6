package cpuref

import "github.com/gekko3d/protocellsim/internal/layout"

// Stats is the cpuref counterpart of gpu.Stats: population, summed
// energy, max energy, and an exact per-species histogram (the GPU
// kernel's slot-hashed histogram can merge colliding species; this map
// does not).
type Stats struct {
	Population  uint32
	TotalEnergy uint32
	MaxEnergy   uint32
	Histogram   map[uint16]uint32
}

// ReduceStats scans the resolved voxel slice and accumulates
// population/energy/species counts. Unlike the GPU kernel's
// workgroup-local-then-atomic-flush two-phase reduction, the
// single-threaded reference can just accumulate directly; the result
// is required to match, not the reduction strategy used to get there.
func ReduceStats(voxels []layout.Voxel) Stats {
	s := Stats{Histogram: make(map[uint16]uint32)}
	for _, v := range voxels {
		if v.Type != layout.Protocell {
			continue
		}
		s.Population++
		s.TotalEnergy += uint32(v.Energy)
		if uint32(v.Energy) > s.MaxEnergy {
			s.MaxEnergy = uint32(v.Energy)
		}
		s.Histogram[v.SpeciesID]++
	}
	return s
}
