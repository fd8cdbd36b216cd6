package layout

import (
	"encoding/binary"
	"math"
)

// SimParams is the flat record of simulation tunables delivered to every
// kernel as an aligned uniform block. Field order here is the
// field order on the wire; ParamCount * 4 bytes is the uniform size.
type SimParams struct {
	GridSize              float32
	TickCount             float32
	Dt                     float32
	NutrientSpawnRate      float32
	WasteDecayTicks        float32
	NutrientRecycleRate    float32
	MovementEnergyCost     float32
	BaseAmbientTemp        float32
	MetabolicCostBase      float32
	ReplicationEnergyMin   float32
	EnergyFromNutrient     float32
	EnergyFromSource       float32
	DiffusionRate          float32
	TempSensitivity        float32
	PredationEnergyFraction float32
	MaxEnergy              float32
	OverlayMode            float32
	SparseMode             float32
	BrickGridDim           float32
	MaxBricks              float32
}

// ParamCount is the number of f32 fields in SimParams, and therefore the
// number of 4-byte words SerializeParams emits.
const ParamCount = 20

// DefaultSimParams returns a SimParams populated with values that keep
// every rate-like field within its authoring-time clamp range and
// produce a stable, visibly-alive ecosystem at 128^3.
func DefaultSimParams(gridSize int) SimParams {
	return SimParams{
		GridSize:                float32(gridSize),
		TickCount:               0,
		Dt:                      1.0 / 30.0,
		NutrientSpawnRate:       0.02,
		WasteDecayTicks:         60,
		NutrientRecycleRate:     0.5,
		MovementEnergyCost:      1,
		BaseAmbientTemp:         0.5,
		MetabolicCostBase:       1,
		ReplicationEnergyMin:    100,
		EnergyFromNutrient:      20,
		EnergyFromSource:        30,
		DiffusionRate:           0.15,
		TempSensitivity:         0.5,
		PredationEnergyFraction: 0.6,
		MaxEnergy:               255,
		OverlayMode:             0,
		SparseMode:              0,
		BrickGridDim:            0,
		MaxBricks:               0,
	}
}

// ClampParams enforces the authoring-time ranges this simulation calls
// out explicitly (diffusion in [0,0.25], rates in [0,1]). Clamping is a
// correctness mechanism applied on every SetParam, not an error path.
func ClampParams(p SimParams) SimParams {
	p.DiffusionRate = clamp01(p.DiffusionRate, 0, 0.25)
	p.NutrientSpawnRate = clamp01(p.NutrientSpawnRate, 0, 1)
	p.NutrientRecycleRate = clamp01(p.NutrientRecycleRate, 0, 1)
	p.TempSensitivity = clamp01(p.TempSensitivity, 0, 1)
	p.PredationEnergyFraction = clamp01(p.PredationEnergyFraction, 0, 1)
	if p.MaxEnergy > MaxEnergy16 {
		p.MaxEnergy = MaxEnergy16
	}
	if p.MaxEnergy < 0 {
		p.MaxEnergy = 0
	}
	return p
}

func clamp01(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SerializeParams produces the uniform-block byte encoding of p.
// serialize(params) must produce identical bytes on
// repeated calls, which holds trivially here since the function is pure.
func SerializeParams(p SimParams) []byte {
	fields := [ParamCount]float32{
		p.GridSize, p.TickCount, p.Dt, p.NutrientSpawnRate,
		p.WasteDecayTicks, p.NutrientRecycleRate, p.MovementEnergyCost,
		p.BaseAmbientTemp, p.MetabolicCostBase, p.ReplicationEnergyMin,
		p.EnergyFromNutrient, p.EnergyFromSource, p.DiffusionRate,
		p.TempSensitivity, p.PredationEnergyFraction, p.MaxEnergy,
		p.OverlayMode, p.SparseMode, p.BrickGridDim, p.MaxBricks,
	}
	out := make([]byte, ParamCount*4)
	for i, f := range fields {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}
