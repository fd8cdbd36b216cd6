package sim

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/protocellsim/internal/gpu"
	"github.com/gekko3d/protocellsim/internal/logging"
)

// Bootstrap classifies adapter into a capability tier and brings up an
// Engine at that tier, stepping down one tier at a time on allocation
// failure until Init succeeds or the Dense-Low floor itself fails,
// which surfaces as gpu.ErrUnsupportedPlatform — the terminal startup
// error the allocation-retry fallback (b) in the error handling design
// bottoms out at.
func Bootstrap(device *wgpu.Device, adapter *wgpu.Adapter, opts ...EngineOption) (*Engine, error) {
	tier := gpu.DetectTier(adapter)

	log := logging.Logger(logging.Nop())
	probe := &Engine{log: log}
	for _, opt := range opts {
		opt(probe)
	}
	log = probe.log

	for {
		engine, err := Init(device, tier, opts...)
		if err == nil {
			return engine, nil
		}

		next, ok := gpu.StepDownTier(tier)
		if !ok {
			return nil, err
		}

		log.Warnf("tier %s allocation failed (%v), stepping down to %s", tier, err, next)
		tier = next
	}
}
