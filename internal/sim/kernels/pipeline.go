// Package kernels compiles the six embedded WGSL kernels (the five tick
// kernels plus pick) into real
// wgpu.ComputePipelines and builds the per-pass bind groups from a
// gpu.BufferFabric's named buffers, the Go-side half of the simulation
// kernels. The kernel bodies themselves live in internal/shaders; this
// package only wires them to a device, the same split voxelrt/rt/gpu keeps
// between its shaders package and GpuBufferManager's pipeline/bind-group
// plumbing (voxelrt/rt/gpu/manager_compression.go).
package kernels

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/protocellsim/internal/gpu"
	"github.com/gekko3d/protocellsim/internal/shaders"
)

// WorkgroupSize is the fixed (4,4,4) = 64-thread workgroup every kernel
// declares, matching internal/shaders' @workgroup_size(4,4,4) decorations.
const WorkgroupSize = 4

// Pipelines holds the six compiled compute pipelines (the five tick
// kernels plus pick) and their bind groups for one BufferFabric. Bind
// groups are rebuilt whenever RebuildBindGroups is called, which
// Engine.Tick and Engine.RequestPick do on every call (a parity flip or
// an ensureBuffer reallocation invalidates previously bound groups).
type Pipelines struct {
	device *wgpu.Device

	ApplyCommands        *wgpu.ComputePipeline
	TemperatureDiffusion *wgpu.ComputePipeline
	IntentDeclaration    *wgpu.ComputePipeline
	ResolveAndExecute    *wgpu.ComputePipeline
	StatsReduction       *wgpu.ComputePipeline
	Pick                 *wgpu.ComputePipeline

	bgApplyCommands        *wgpu.BindGroup
	bgTemperatureDiffusion *wgpu.BindGroup
	bgIntentDeclaration    *wgpu.BindGroup
	bgResolveAndExecute    *wgpu.BindGroup
	bgStatsReduction       *wgpu.BindGroup
	bgPick                 *wgpu.BindGroup
}

// New compiles all six kernels (the five tick kernels plus pick) against device. Compilation failure at
// startup is the ErrUnsupportedPlatform path the bootstrap error-handling design
// names for a pipeline that cannot be created.
func New(device *wgpu.Device) (*Pipelines, error) {
	p := &Pipelines{device: device}

	sources := []struct {
		label      string
		code       string
		entry      string
		target     **wgpu.ComputePipeline
	}{
		{"ApplyCommands", shaders.ApplyCommandsWGSL, "main", &p.ApplyCommands},
		{"TemperatureDiffusion", shaders.TemperatureDiffusionWGSL, "main", &p.TemperatureDiffusion},
		{"IntentDeclaration", shaders.IntentDeclarationWGSL, "main", &p.IntentDeclaration},
		{"ResolveAndExecute", shaders.ResolveAndExecuteWGSL, "main", &p.ResolveAndExecute},
		{"StatsReduction", shaders.StatsReductionWGSL, "main", &p.StatsReduction},
		{"Pick", shaders.PickWGSL, "main", &p.Pick},
	}

	for _, s := range sources {
		pipeline, err := compile(device, s.label, s.code, s.entry)
		if err != nil {
			return nil, &gpu.ErrUnsupportedPlatform{Reason: fmt.Sprintf("kernel %s: %v", s.label, err)}
		}
		*s.target = pipeline
	}

	return p, nil
}

func compile(device *wgpu.Device, label, code, entry string) (*wgpu.ComputePipeline, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label + "Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("shader module: %w", err)
	}
	defer module.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label + "Pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compute pipeline: %w", err)
	}
	return pipeline, nil
}

// RebuildBindGroups re-derives every kernel's bind group from the
// fabric's current buffers. Must be called after NewBufferFabric and
// again after any ensureBuffer reallocation swaps a buffer out from
// under a previously built bind group.
func (p *Pipelines) RebuildBindGroups(f *gpu.BufferFabric) error {
	read, write := f.ReadParity(), f.WriteParity()
	brickTable := f.BrickTableBuf
	if brickTable == nil {
		// Dense tiers never allocate a brick table; bind group entries
		// still need a valid buffer reference, so bind the command
		// buffer as an unused placeholder the dense kernels never index.
		brickTable = f.CommandBuf
	}

	var err error

	// apply_commands mutates the current (read-parity) buffer in place,
	// exactly as cpuref.ApplyCommands mutates its Grid in place before
	// any other kernel observes it: every later read in this tick sees
	// the post-command state via VoxelBuf[read].
	p.bgApplyCommands, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.ApplyCommands.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: f.VoxelBuf[read], Size: wgpu.WholeSize},
			{Binding: 1, Buffer: f.CommandBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: f.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: brickTable, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("apply_commands bind group: %w", err)
	}

	p.bgTemperatureDiffusion, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.TemperatureDiffusion.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: f.TempBuf[read], Size: wgpu.WholeSize},
			{Binding: 1, Buffer: f.TempBuf[write], Size: wgpu.WholeSize},
			{Binding: 2, Buffer: f.VoxelBuf[read], Size: wgpu.WholeSize},
			{Binding: 3, Buffer: f.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: brickTable, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("temperature_diffusion bind group: %w", err)
	}

	p.bgIntentDeclaration, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.IntentDeclaration.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: f.VoxelBuf[read], Size: wgpu.WholeSize},
			{Binding: 1, Buffer: f.IntentBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: f.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: f.TempBuf[write], Size: wgpu.WholeSize},
			{Binding: 4, Buffer: brickTable, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("intent_declaration bind group: %w", err)
	}

	// resolve_and_execute reads the post-command, post-diffusion state
	// (VoxelBuf[read]/TempBuf[write]) plus intents, and writes the next
	// tick's resolved state into VoxelBuf[write] — the only kernel that
	// produces a genuinely new voxel buffer rather than mutating in
	// place, matching cpuref.Resolve's non-mutating return value.
	p.bgResolveAndExecute, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.ResolveAndExecute.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: f.VoxelBuf[read], Size: wgpu.WholeSize},
			{Binding: 1, Buffer: f.VoxelBuf[write], Size: wgpu.WholeSize},
			{Binding: 2, Buffer: f.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: f.IntentBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: f.TempBuf[write], Size: wgpu.WholeSize},
			{Binding: 5, Buffer: brickTable, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("resolve_and_execute bind group: %w", err)
	}

	if f.StatsBuf != nil {
		p.bgStatsReduction, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: p.StatsReduction.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: f.VoxelBuf[write], Size: wgpu.WholeSize},
				{Binding: 1, Buffer: f.StatsBuf, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: f.ParamsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("stats_reduction bind group: %w", err)
		}
	}

	p.bgPick, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.Pick.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: f.VoxelBuf[read], Size: wgpu.WholeSize},
			{Binding: 1, Buffer: f.PickParamsBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: f.PickResultBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("pick bind group: %w", err)
	}

	return nil
}

// DispatchPick encodes a single pick query as its own compute pass,
// separate from the five-pass Dispatch a tick runs: a pick is a
// point-in-time query against the current read buffer, not part of the
// tick's own read/write parity flip.
func (p *Pipelines) DispatchPick(encoder *wgpu.CommandEncoder) {
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "pick"})
	pass.SetPipeline(p.Pick)
	pass.SetBindGroup(0, p.bgPick, nil)
	pass.DispatchWorkgroups(1, 1, 1)
	pass.End()
}

// workgroupCount3D returns the number of (4,4,4) workgroups needed to
// cover a gridSize^3 dispatch in every axis.
func workgroupCount3D(gridSize int) uint32 {
	return uint32((gridSize + WorkgroupSize - 1) / WorkgroupSize)
}

// Dispatch encodes all five compute passes into encoder, in the fixed
// order the five-kernel tick schedule requires: apply_commands must run before every
// later kernel observes its mutations, diffusion and intent
// declaration both read the post-command voxel state independently,
// resolve_and_execute reads both of their outputs, and stats_reduction
// reads resolve's result only after the tick is otherwise complete.
func (p *Pipelines) Dispatch(encoder *wgpu.CommandEncoder, gridSize int) {
	n := workgroupCount3D(gridSize)

	dispatch := func(pipeline *wgpu.ComputePipeline, bindGroup *wgpu.BindGroup, label string) {
		pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		pass.DispatchWorkgroups(n, n, n)
		pass.End()
	}

	dispatch(p.ApplyCommands, p.bgApplyCommands, "apply_commands")
	dispatch(p.TemperatureDiffusion, p.bgTemperatureDiffusion, "temperature_diffusion")
	dispatch(p.IntentDeclaration, p.bgIntentDeclaration, "intent_declaration")
	dispatch(p.ResolveAndExecute, p.bgResolveAndExecute, "resolve_and_execute")
	if p.bgStatsReduction != nil {
		dispatch(p.StatsReduction, p.bgStatsReduction, "stats_reduction")
	}
}

// Release frees the compiled pipelines. Bind groups are owned by wgpu
// and released implicitly with the device.
func (p *Pipelines) Release() {
	releasePipeline(p.ApplyCommands)
	releasePipeline(p.TemperatureDiffusion)
	releasePipeline(p.IntentDeclaration)
	releasePipeline(p.ResolveAndExecute)
	releasePipeline(p.StatsReduction)
	releasePipeline(p.Pick)
}

func releasePipeline(p *wgpu.ComputePipeline) {
	if p != nil {
		p.Release()
	}
}
