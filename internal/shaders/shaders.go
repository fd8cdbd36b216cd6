// Package shaders embeds the five WGSL compute kernels that make up one
// simulation tick plus the on-demand pick kernel, exactly as the engine
// embeds its rendering WGSL sources in voxelrt/rt/shaders/shaders.go.
package shaders

import (
	_ "embed"
)

//go:embed apply_commands.wgsl
var ApplyCommandsWGSL string

//go:embed temperature_diffusion.wgsl
var TemperatureDiffusionWGSL string

//go:embed intent_declaration.wgsl
var IntentDeclarationWGSL string

//go:embed resolve_and_execute.wgsl
var ResolveAndExecuteWGSL string

//go:embed stats_reduction.wgsl
var StatsReductionWGSL string

//go:embed pick.wgsl
var PickWGSL string
