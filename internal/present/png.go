// Package present turns simulation debug data (a voxel slice, a pick
// result) into PNG images for the CLI's -dump-png flag, the encode
// side of the same x/image dependency voxelrt/rt/core/text_renderer.go
// uses for its text-atlas asset pipeline.
package present

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/gekko3d/protocellsim/internal/layout"
)

// voxelColor maps a voxel type to a fixed debug color. Energy is
// folded into brightness so a dim and a bright protocell are visibly
// distinct in the same Snapshot.
func voxelColor(v layout.Voxel) color.RGBA {
	switch v.Type {
	case layout.Empty:
		return color.RGBA{16, 16, 20, 255}
	case layout.Wall:
		return color.RGBA{120, 120, 120, 255}
	case layout.Nutrient:
		return color.RGBA{60, 180, 60, 255}
	case layout.EnergySource:
		return color.RGBA{230, 200, 40, 255}
	case layout.Protocell:
		b := uint8(40 + (v.Energy>>8)*4)
		if v.Energy > 0xFF*4 {
			b = 255
		}
		return color.RGBA{220, 60, 60, b}
	case layout.Waste:
		return color.RGBA{90, 70, 40, 255}
	case layout.HeatSource:
		return color.RGBA{230, 90, 20, 255}
	case layout.ColdSource:
		return color.RGBA{60, 140, 230, 255}
	default:
		return color.RGBA{255, 0, 255, 255}
	}
}

// EncodeSlicePNG renders the z-th XY slice of a gridSize^3 voxel
// array to a PNG, upscaled by factor (nearest-neighbor, so single
// voxels stay crisp at debug zoom levels rather than blurring).
func EncodeSlicePNG(voxels []layout.Voxel, gridSize, z, factor int) ([]byte, error) {
	if factor < 1 {
		factor = 1
	}
	src := image.NewRGBA(image.Rect(0, 0, gridSize, gridSize))
	for y := 0; y < gridSize; y++ {
		for x := 0; x < gridSize; x++ {
			idx := (z*gridSize+y)*gridSize + x
			src.Set(x, y, voxelColor(voxels[idx]))
		}
	}

	dst := src
	if factor > 1 {
		dst = image.NewRGBA(image.Rect(0, 0, gridSize*factor, gridSize*factor))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodePickSnapshotPNG renders the same slice as EncodeSlicePNG but
// overlays a marker at the hit voxel, for visually confirming a
// RequestPick/TakePickResult round trip during manual debugging.
func EncodePickSnapshotPNG(voxels []layout.Voxel, gridSize int, snap Snapshot, factor int) ([]byte, error) {
	if factor < 1 {
		factor = 1
	}
	src := image.NewRGBA(image.Rect(0, 0, gridSize, gridSize))
	for y := 0; y < gridSize; y++ {
		for x := 0; x < gridSize; x++ {
			idx := (snap.Z*gridSize+y)*gridSize + x
			src.Set(x, y, voxelColor(voxels[idx]))
		}
	}
	if snap.X >= 0 && snap.X < gridSize && snap.Y >= 0 && snap.Y < gridSize {
		src.Set(snap.X, snap.Y, color.RGBA{255, 255, 255, 255})
	}

	dst := src
	if factor > 1 {
		dst = image.NewRGBA(image.Rect(0, 0, gridSize*factor, gridSize*factor))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Snapshot is the minimal (x,y,z) coordinate EncodePickSnapshotPNG
// needs, decoupled from sim.VoxelSnapshot so that present does not
// import sim; cmd/protocellsim imports both.
type Snapshot struct {
	X, Y, Z int
}

// NewSnapshot constructs the coordinate triple EncodePickSnapshotPNG
// takes from any x,y,z-bearing pick result.
func NewSnapshot(x, y, z int) Snapshot {
	return Snapshot{X: x, Y: y, Z: z}
}
