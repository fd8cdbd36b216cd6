package layout

import (
	"encoding/binary"
	"math"
)

// PickRequestRecordSize is the wire size of one pick query: ray origin
// (3xf32), ray direction (3xf32), max distance (f32), grid size (f32).
const PickRequestRecordSize = 32

// PickRequest is a camera-space ray the pick kernel marches through the
// current read voxel buffer.
type PickRequest struct {
	OriginX, OriginY, OriginZ float32
	DirX, DirY, DirZ          float32
	TMax                      float32
	GridSize                  float32
}

// EncodePickRequest serializes r into its uniform-block wire record.
func EncodePickRequest(r PickRequest) []byte {
	buf := make([]byte, PickRequestRecordSize)
	fields := [8]float32{r.OriginX, r.OriginY, r.OriginZ, r.DirX, r.DirY, r.DirZ, r.TMax, r.GridSize}
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// voxelWireWords is the 8 x u32 words one packed voxel occupies, the
// same layout PackVoxel/UnpackVoxel round-trip.
const voxelWireWords = 8

// PickResultRecordSize is hit(u32) + voxel index(u32) + grid coords
// (3xi32) + the 8-word voxel record the hit voxel carries.
const PickResultRecordSize = 4 + 4 + 12 + voxelWireWords*4

// PickResult is the host-decoded form of one pick kernel output.
type PickResult struct {
	Hit        bool
	VoxelIndex uint32
	X, Y, Z    int32
	Voxel      Voxel
}

// DecodePickResult is the inverse of the pick kernel's write contract:
// [hit:u32, voxel_index:u32, x:i32, y:i32, z:i32, voxel:8xu32].
func DecodePickResult(buf []byte) PickResult {
	var out PickResult
	out.Hit = binary.LittleEndian.Uint32(buf[0:4]) != 0
	out.VoxelIndex = binary.LittleEndian.Uint32(buf[4:8])
	out.X = int32(binary.LittleEndian.Uint32(buf[8:12]))
	out.Y = int32(binary.LittleEndian.Uint32(buf[12:16]))
	out.Z = int32(binary.LittleEndian.Uint32(buf[16:20]))
	var words [voxelWireWords]uint32
	for i := range words {
		off := 20 + i*4
		words[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
	out.Voxel = UnpackVoxel(words)
	return out
}
