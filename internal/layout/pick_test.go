package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodePickRequest_FieldOrderAndSize(t *testing.T) {
	req := PickRequest{
		OriginX: 1, OriginY: 2, OriginZ: 3,
		DirX: 0, DirY: 0, DirZ: -1,
		TMax:     256,
		GridSize: 128,
	}
	buf := EncodePickRequest(req)
	require.Len(t, buf, PickRequestRecordSize)
}

func TestDecodePickResult_MissRoundtrips(t *testing.T) {
	buf := make([]byte, PickResultRecordSize)
	result := DecodePickResult(buf)
	require.False(t, result.Hit)
	require.Equal(t, uint32(0), result.VoxelIndex)
}

func TestDecodePickResult_HitCarriesVoxelContents(t *testing.T) {
	v := Voxel{Type: Protocell, Energy: 500, SpeciesID: 7}
	words := PackVoxel(v)

	buf := make([]byte, PickResultRecordSize)
	putU32 := func(off int, val uint32) {
		buf[off] = byte(val)
		buf[off+1] = byte(val >> 8)
		buf[off+2] = byte(val >> 16)
		buf[off+3] = byte(val >> 24)
	}
	putU32(0, 1) // hit
	putU32(4, 42)
	putU32(8, uint32(int32(5)))
	putU32(12, uint32(int32(6)))
	putU32(16, uint32(int32(7)))
	for i, w := range words {
		putU32(20+i*4, w)
	}

	result := DecodePickResult(buf)
	require.True(t, result.Hit)
	require.Equal(t, uint32(42), result.VoxelIndex)
	require.Equal(t, int32(5), result.X)
	require.Equal(t, int32(6), result.Y)
	require.Equal(t, int32(7), result.Z)
	require.Equal(t, v, result.Voxel)
}
