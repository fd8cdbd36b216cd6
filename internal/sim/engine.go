package sim

import (
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/protocellsim/internal/gpu"
	"github.com/gekko3d/protocellsim/internal/layout"
	"github.com/gekko3d/protocellsim/internal/logging"
	"github.com/gekko3d/protocellsim/internal/profiler"
	"github.com/gekko3d/protocellsim/internal/sim/kernels"
)

// HistogramSlots is the global species-histogram width the stats kernel
// flushes and top_species[12] reports, matching GLOBAL_HISTOGRAM_SLOTS
// in stats_reduction.wgsl.
const HistogramSlots = 12

// Stats is the host-facing decoded stats snapshot, the
// try_take_stats(engine) -> Option<{population, total_energy,
// max_energy, top_species[12]}> contract.
type Stats struct {
	Tick        uint64
	Population  uint32
	TotalEnergy uint32
	MaxEnergy   uint32
	TopSpecies  []SpeciesCount
}

// SpeciesCount is one entry of the sorted top-species list.
type SpeciesCount struct {
	SpeciesID uint16
	Count     uint32
}

// VoxelSnapshot is the decoded form of a completed pick query: the
// world-grid coordinates and voxel contents the ray hit, if any.
type VoxelSnapshot struct {
	X, Y, Z int32
	Voxel   layout.Voxel
}

// Engine is the only package a rendering/UI/host-shell consumer
// imports: it owns the device-resident buffer fabric, the compiled
// kernels, the stats and pick readback rings, and the per-tick
// bookkeeping (tick count, sim params; parity lives in the fabric).
type Engine struct {
	ID string

	device *wgpu.Device
	log    logging.Logger
	prof   *profiler.Profiler

	Scheduler *Scheduler

	fabric    *gpu.BufferFabric
	pipelines *kernels.Pipelines
	stats     *gpu.StatsRing
	pick      *gpu.PickRing

	params    layout.SimParams
	tickCount uint64

	camera cameraState
}

type cameraState struct {
	set    bool
	eye    mgl32.Vec3
	target mgl32.Vec3
	fovY   float32
}

// EngineOption configures optional Engine dependencies at Init time.
type EngineOption func(*Engine)

// WithLogger overrides the default no-op logger.
func WithLogger(log logging.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithProfiler overrides the default profiler instance.
func WithProfiler(p *profiler.Profiler) EngineOption {
	return func(e *Engine) { e.prof = p }
}

// Init allocates the buffer fabric for tier, compiles the kernels, and
// returns a ready-to-tick Engine. Init takes no grid size: the grid
// size is fixed by tier (the capability table).
func Init(device *wgpu.Device, tier gpu.Tier, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		ID:        uuid.NewString(),
		device:    device,
		log:       logging.Nop(),
		prof:      profiler.New(),
		Scheduler: NewScheduler(30),
	}
	for _, opt := range opts {
		opt(e)
	}

	fabric, err := gpu.NewBufferFabric(device, tier, e.log)
	if err != nil {
		return nil, err
	}
	e.fabric = fabric
	e.params = layout.DefaultSimParams(fabric.GridSize)

	if err := fabric.EnsureStatsBuffers(HistogramSlots); err != nil {
		return nil, err
	}

	pipelines, err := kernels.New(device)
	if err != nil {
		return nil, err
	}
	e.pipelines = pipelines

	if err := pipelines.RebuildBindGroups(fabric); err != nil {
		return nil, err
	}

	e.stats = gpu.NewStatsRing(device)
	e.pick = gpu.NewPickRing(device)

	e.log.Infof("engine %s initialized: tier=%s grid=%d", e.ID, fabric.Tier, fabric.GridSize)
	return e, nil
}

// GridSize reports the active grid edge length.
func (e *Engine) GridSize() int { return e.fabric.GridSize }

// Tick runs exactly one simulation tick's ten-step dispatch sequence:
// upload commands, upload params, clear intents and stats, apply_commands,
// temperature_diffusion, intent_declaration, resolve_and_execute,
// stats_reduction, flip parity, kick the async stats readback.
func (e *Engine) Tick(commands []layout.Command) error {
	e.prof.BeginScope("tick_total")
	defer e.prof.EndScope("tick_total")

	queue := e.device.GetQueue()

	e.prof.BeginScope("upload")
	queue.WriteBuffer(e.fabric.CommandBuf, 0, layout.EncodeCommandBuffer(commands))
	e.params.TickCount = float32(e.tickCount)
	queue.WriteBuffer(e.fabric.ParamsBuf, 0, layout.SerializeParams(e.params))
	zeroIntents := make([]byte, int(e.fabric.IntentBuf.GetSize()))
	queue.WriteBuffer(e.fabric.IntentBuf, 0, zeroIntents)
	zeroStats := make([]byte, int(e.fabric.StatsBuf.GetSize()))
	queue.WriteBuffer(e.fabric.StatsBuf, 0, zeroStats)
	e.prof.EndScope("upload")

	// Bind groups reference fixed physical buffers per role (read/
	// write); since VoxelBuf/TempBuf only ever have two physical
	// buffers that swap roles, rebuilding each tick after the previous
	// tick's FlipParity is cheaper than keeping two bind-group sets
	// live and is the correctness-first choice documented in DESIGN.md.
	if err := e.pipelines.RebuildBindGroups(e.fabric); err != nil {
		return fmt.Errorf("rebuild bind groups: %w", err)
	}

	encoder, err := e.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}

	e.prof.BeginScope("dispatch")
	e.pipelines.Dispatch(encoder, e.fabric.GridSize)
	e.prof.EndScope("dispatch")

	e.stats.RequestReadback(encoder, e.fabric.StatsBuf, e.fabric.StagingBuf, e.tickCount)

	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("encoder finish: %w", err)
	}
	queue.Submit(cmdBuf)

	e.fabric.FlipParity()
	e.tickCount++
	e.prof.SetCount("tick", int(e.tickCount))

	return nil
}

// Advance feeds dtSeconds to the Scheduler, running Tick once per
// simulation step the accumulator has accrued (up to
// MaxTicksPerFrame), delivering commands only on the first tick of the
// batch since they arrive once per host frame, not once per simulation
// step.
func (e *Engine) Advance(dtSeconds float64, commands []layout.Command) (int, error) {
	var tickErr error
	first := true
	ran := e.Scheduler.Advance(dtSeconds, func() {
		if tickErr != nil {
			return
		}
		var cmds []layout.Command
		if first {
			cmds = commands
			first = false
		}
		tickErr = e.Tick(cmds)
	})
	return ran, tickErr
}

// CurrentReadVoxels returns the buffer handle the renderer should bind
// as the current resolved voxel state.
func (e *Engine) CurrentReadVoxels() *wgpu.Buffer {
	return e.fabric.VoxelBuf[e.fabric.ReadParity()]
}

// CurrentReadTemperatures returns the buffer handle for the current
// resolved temperature field. temperature_diffusion always writes this
// tick's new field into TempBuf[WriteParity()] before FlipParity runs,
// so after the tick completes that data is reachable at ReadParity(),
// the same post-flip indirection CurrentReadVoxels uses.
func (e *Engine) CurrentReadTemperatures() *wgpu.Buffer {
	return e.fabric.TempBuf[e.fabric.ReadParity()]
}

// TryTakeStats polls the stats ring and, if a snapshot has finished
// mapping, decodes and returns it. The species histogram is sorted by
// count descending and truncated to HistogramSlots entries, matching
// top_species[12].
func (e *Engine) TryTakeStats() (Stats, bool) {
	e.stats.Poll()
	raw, ok := e.stats.TryTakeStats(e.fabric.StagingBuf, HistogramSlots)
	if !ok {
		return Stats{}, false
	}

	top := make([]SpeciesCount, 0, len(raw.SpeciesCounts))
	for id, count := range raw.SpeciesCounts {
		top = append(top, SpeciesCount{SpeciesID: id, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].SpeciesID < top[j].SpeciesID
	})
	if len(top) > HistogramSlots {
		top = top[:HistogramSlots]
	}

	return Stats{
		Tick:        raw.Tick,
		Population:  raw.Population,
		TotalEnergy: raw.TotalEnergy,
		MaxEnergy:   raw.MaxEnergy,
		TopSpecies:  top,
	}, true
}

// SetParam updates one named tunable, clamped through
// layout.ClampParams before it reaches the next tick's uniform upload.
// Unknown names are logged and otherwise ignored, matching a tolerant
// config-reload behavior.
func (e *Engine) SetParam(name string, value float32) {
	if !setParamField(&e.params, name, value) {
		e.log.Warnf("SetParam: unknown parameter %q", name)
		return
	}
	e.params = layout.ClampParams(e.params)
}

func setParamField(p *layout.SimParams, name string, value float32) bool {
	switch name {
	case "dt":
		p.Dt = value
	case "nutrient_spawn_rate":
		p.NutrientSpawnRate = value
	case "waste_decay_ticks":
		p.WasteDecayTicks = value
	case "nutrient_recycle_rate":
		p.NutrientRecycleRate = value
	case "movement_energy_cost":
		p.MovementEnergyCost = value
	case "base_ambient_temp":
		p.BaseAmbientTemp = value
	case "metabolic_cost_base":
		p.MetabolicCostBase = value
	case "replication_energy_min":
		p.ReplicationEnergyMin = value
	case "energy_from_nutrient":
		p.EnergyFromNutrient = value
	case "energy_from_source":
		p.EnergyFromSource = value
	case "diffusion_rate":
		p.DiffusionRate = value
	case "temp_sensitivity":
		p.TempSensitivity = value
	case "predation_energy_fraction":
		p.PredationEnergyFraction = value
	case "max_energy":
		p.MaxEnergy = value
	case "overlay_mode":
		p.OverlayMode = value
	default:
		return false
	}
	return true
}

// SetCamera records the eye/target/fov a subsequent RequestPick builds
// its ray from, mirroring a standard camera's GetViewMatrix/GetForward
// inputs without pulling in the full CameraState (no scene graph here).
func (e *Engine) SetCamera(eye, target mgl32.Vec3, fovYDegrees float32) {
	e.camera = cameraState{set: true, eye: eye, target: target, fovY: fovYDegrees}
}

// RequestPick unprojects the screen-space (x,y) coordinate through the
// last SetCamera state into a world-space ray and dispatches the pick
// kernel against the current read voxel buffer. Returns an error if no
// camera has been set yet. Results arrive asynchronously; poll with
// TakePickResult.
func (e *Engine) RequestPick(x, y float32, screenW, screenH int) error {
	if !e.camera.set {
		return fmt.Errorf("protocellsim: RequestPick called before SetCamera")
	}
	if e.pick.State() != gpu.RingIdle {
		return nil
	}

	origin, dir := screenRay(e.camera, x, y, screenW, screenH)

	req := layout.PickRequest{
		OriginX: origin.X(), OriginY: origin.Y(), OriginZ: origin.Z(),
		DirX: dir.X(), DirY: dir.Y(), DirZ: dir.Z(),
		TMax:     float32(e.fabric.GridSize) * 2,
		GridSize: float32(e.fabric.GridSize),
	}
	e.device.GetQueue().WriteBuffer(e.fabric.PickParamsBuf, 0, layout.EncodePickRequest(req))

	if err := e.pipelines.RebuildBindGroups(e.fabric); err != nil {
		return fmt.Errorf("rebuild bind groups for pick: %w", err)
	}

	encoder, err := e.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("pick command encoder: %w", err)
	}
	e.pipelines.DispatchPick(encoder)
	e.pick.RequestReadback(encoder, e.fabric.PickResultBuf, e.fabric.PickStagingBuf)

	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("pick encoder finish: %w", err)
	}
	e.device.GetQueue().Submit(cmdBuf)
	return nil
}

// TakePickResult polls the pick ring and, if the query has finished
// mapping, returns the hit voxel (Option<VoxelSnapshot>, false if
// nothing is ready yet or the ray hit nothing).
func (e *Engine) TakePickResult() (VoxelSnapshot, bool) {
	e.pick.Poll()
	result, ok := e.pick.TryTakeResult(e.fabric.PickStagingBuf)
	if !ok || !result.Hit {
		return VoxelSnapshot{}, false
	}
	return VoxelSnapshot{X: result.X, Y: result.Y, Z: result.Z, Voxel: result.Voxel}, true
}

// screenRay unprojects a screen-space pixel through cam's perspective
// projection into a world-space ray origin/direction, the Go-side
// counterpart of a standard Project (inverted) using
// mgl32.LookAtV/Perspective.
func screenRay(cam cameraState, x, y float32, screenW, screenH int) (origin, dir mgl32.Vec3) {
	aspect := float32(screenW) / float32(screenH)
	if aspect == 0 {
		aspect = 1
	}
	view := mgl32.LookAtV(cam.eye, cam.target, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(cam.fovY), aspect, 0.1, 1000.0)
	invVP := proj.Mul4(view).Inv()

	ndcX := (x/float32(screenW))*2 - 1
	ndcY := 1 - (y/float32(screenH))*2

	near := unproject(invVP, ndcX, ndcY, -1)
	far := unproject(invVP, ndcX, ndcY, 1)

	dir = far.Sub(near).Normalize()
	return near, dir
}

func unproject(invVP mgl32.Mat4, ndcX, ndcY, ndcZ float32) mgl32.Vec3 {
	clip := mgl32.Vec4{ndcX, ndcY, ndcZ, 1}
	world := invVP.Mul4x1(clip)
	if world.W() == 0 {
		return mgl32.Vec3{}
	}
	return world.Vec3().Mul(1 / world.W())
}

// Release frees every GPU resource the engine owns.
func (e *Engine) Release() {
	if e.pipelines != nil {
		e.pipelines.Release()
	}
	if e.fabric != nil {
		e.fabric.Release()
	}
}
