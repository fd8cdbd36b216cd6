// Command protocellsim drives the protocell simulation engine headless
// (benchmark/scripted) or in a glfw window, and carries the -selftest
// harness, which runs a metabolism scenario on the cpuref oracle
// without touching the GPU.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/protocellsim/internal/layout"
	"github.com/gekko3d/protocellsim/internal/logging"
	"github.com/gekko3d/protocellsim/internal/present"
	"github.com/gekko3d/protocellsim/internal/sim"
	"github.com/gekko3d/protocellsim/internal/sim/kernels/cpuref"
)

var (
	window    = flag.Bool("window", false, "Open a glfw window and run interactively instead of headless.")
	benchmark = flag.Bool("benchmark", false, "Run headless for -ticks ticks and report timing, then exit.")
	selftest  = flag.Bool("selftest", false, "Run the cpuref behavioral scenarios and exit (no GPU required).")

	preset   = flag.String("preset", "petridish", "Starting scene: petridish, gradient, or arena.")
	ticks    = flag.Int("ticks", 600, "Number of ticks to run in -benchmark mode.")
	tickRate = flag.Float64("tickrate", 30, "Simulation ticks per second in interactive mode.")
	debug    = flag.Bool("debug", false, "Enable debug-level logging.")

	dumpPNG   = flag.String("dump-png", "", "After the run, write a debug PNG of the mid-height slice to this path.")
	dumpSlice = flag.Int("dump-slice", -1, "Z layer to dump with -dump-png (default: grid mid-height).")
	pngScale  = flag.Int("dump-png-scale", 4, "Nearest-neighbor upscale factor for -dump-png.")

	windowWidth  = flag.Int("width", 1280, "Window width in -window mode.")
	windowHeight = flag.Int("height", 720, "Window height in -window mode.")
)

func presetFromFlag(name string) (sim.Preset, error) {
	switch name {
	case "petridish":
		return sim.PresetPetriDish, nil
	case "gradient":
		return sim.PresetGradient, nil
	case "arena":
		return sim.PresetArena, nil
	default:
		return 0, fmt.Errorf("unknown -preset %q (want petridish, gradient, or arena)", name)
	}
}

func main() {
	flag.Parse()

	if *selftest {
		runSelftest()
		return
	}

	p, err := presetFromFlag(*preset)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New("protocellsim", *debug)

	if *window {
		if err := runWindowed(p, log); err != nil {
			log.Errorf("windowed run failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := runHeadless(p, log); err != nil {
		log.Errorf("headless run failed: %v", err)
		os.Exit(1)
	}
}

// runSelftest drives the pure-Go cpuref kernels through their behavioral
// scenarios as a quick correctness smoke test that needs no adapter,
// the same reason voxelrt keeps its compute kernels mirrored
// by a CPU oracle rather than only ever exercising them on a GPU.
func runSelftest() {
	g := cpuref.NewGrid(8, 0.5)
	idx := g.Index(4, 4, 4)
	var genome [16]byte
	genome[layout.GeneReplicationThresh] = 255
	g.Voxels[idx] = layout.Voxel{Type: layout.Protocell, Energy: 100, SpeciesID: 1, Genome: genome}

	params := layout.DefaultSimParams(g.Size)
	params.MetabolicCostBase = 10

	stats := cpuref.Tick(g, params, nil, 1)

	v := g.Voxels[idx]
	if v.Type != layout.Protocell || v.Energy != 90 {
		fmt.Fprintf(os.Stderr, "selftest FAILED: expected surviving protocell at energy 90, got type=%v energy=%d\n", v.Type, v.Energy)
		os.Exit(1)
	}
	if stats.Population != 1 {
		fmt.Fprintf(os.Stderr, "selftest FAILED: expected population 1, got %d\n", stats.Population)
		os.Exit(1)
	}
	fmt.Println("selftest OK: cpuref metabolism/stats scenario matches expected behavior")
}

// acquireDevice follows voxelrt's headless adapter/device request
// (gpu_operations.go's createGpuState, minus the surface): no window, no
// CompatibleSurface constraint, power preference left to the default.
func acquireDevice() (*wgpu.Adapter, *wgpu.Device, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "protocellsim headless device"})
	if err != nil {
		return nil, nil, fmt.Errorf("request device: %w", err)
	}
	return adapter, device, nil
}

func runHeadless(p sim.Preset, log logging.Logger) error {
	adapter, device, err := acquireDevice()
	if err != nil {
		return err
	}

	engine, err := sim.Bootstrap(device, adapter, sim.WithLogger(log))
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer engine.Release()

	commands := sim.BuildPreset(p, engine.GridSize())

	n := *ticks
	if *benchmark {
		log.Infof("benchmark: running %d ticks on a %d^3 grid", n, engine.GridSize())
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		var tickCommands []layout.Command
		if i == 0 {
			tickCommands = commands
		}
		if err := engine.Tick(tickCommands); err != nil {
			return fmt.Errorf("tick %d: %w", i, err)
		}
	}
	elapsed := time.Since(start)

	if *benchmark {
		fmt.Printf("ran %d ticks in %s (%.1f ticks/sec)\n", n, elapsed, float64(n)/elapsed.Seconds())
	}

	if *dumpPNG != "" {
		if err := writeDebugPNG(engine, device); err != nil {
			return fmt.Errorf("dump-png: %w", err)
		}
	}
	return nil
}

// writeDebugPNG reads back the current voxel buffer and writes one XY
// slice as a PNG, for eyeballing a headless run without a renderer.
func writeDebugPNG(engine *sim.Engine, device *wgpu.Device) error {
	buf := engine.CurrentReadVoxels()
	size := uint(buf.GetSize())

	staging, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "dump-png staging",
		Size:  uint64(size),
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return err
	}
	defer staging.Release()

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	encoder.CopyBufferToBuffer(buf, 0, staging, 0, uint64(size))
	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	device.GetQueue().Submit(cmdBuf)

	mapped := make(chan wgpu.BufferMapAsyncStatus, 1)
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		mapped <- status
	})
	for {
		device.Poll(false, nil)
		select {
		case status := <-mapped:
			if status != wgpu.BufferMapAsyncStatusSuccess {
				return fmt.Errorf("map staging buffer: status %v", status)
			}
			data := staging.GetMappedRange(0, size)
			gridSize := engine.GridSize()
			voxels := decodeVoxels(data, gridSize*gridSize*gridSize)
			staging.Unmap()

			z := *dumpSlice
			if z < 0 {
				z = gridSize / 2
			}
			png, err := present.EncodeSlicePNG(voxels, gridSize, z, *pngScale)
			if err != nil {
				return err
			}
			return os.WriteFile(*dumpPNG, png, 0o644)
		default:
		}
	}
}

// decodeVoxels unpacks a raw VoxelBuf readback into count Voxel values,
// each 8 little-endian u32 words wide, matching layout.PackVoxel's wire
// shape.
func decodeVoxels(data []byte, count int) []layout.Voxel {
	out := make([]layout.Voxel, count)
	for i := 0; i < count; i++ {
		var words [8]uint32
		base := i * 32
		for w := 0; w < 8; w++ {
			words[w] = binary.LittleEndian.Uint32(data[base+w*4 : base+w*4+4])
		}
		out[i] = layout.UnpackVoxel(words)
	}
	return out
}

// runWindowed opens a glfw window and wgpu surface the way voxelrt
// engine does (gpu_operations.go's createWindowState/createGpuState),
// then drives the scheduler against real frame deltas.
func runWindowed(p sim.Preset, log logging.Logger) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(*windowWidth, *windowHeight, "protocellsim", nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer win.Destroy()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "protocellsim window device"})
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}

	engine, err := sim.Bootstrap(device, adapter, sim.WithLogger(log))
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer engine.Release()
	engine.Scheduler.SetTickRate(*tickRate)

	commands := sim.BuildPreset(p, engine.GridSize())
	first := true

	last := time.Now()
	for !win.ShouldClose() {
		glfw.PollEvents()

		now := time.Now()
		dt := now.Sub(last).Seconds()
		last = now

		var cmds []layout.Command
		if first {
			cmds = commands
			first = false
		}
		if _, err := engine.Advance(dt, cmds); err != nil {
			return fmt.Errorf("advance: %w", err)
		}

		if stats, ok := engine.TryTakeStats(); ok {
			log.Debugf("tick %d: population=%d total_energy=%d", stats.Tick, stats.Population, stats.TotalEnergy)
		}
	}
	return nil
}
