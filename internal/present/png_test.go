package present

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gekko3d/protocellsim/internal/layout"
)

func flatGrid(size int, fill layout.Voxel) []layout.Voxel {
	out := make([]layout.Voxel, size*size*size)
	for i := range out {
		out[i] = fill
	}
	return out
}

func TestEncodeSlicePNG_ProducesDecodablePNGAtRequestedScale(t *testing.T) {
	voxels := flatGrid(8, layout.Voxel{Type: layout.Nutrient})
	data, err := EncodeSlicePNG(voxels, 8, 3, 4)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 32, img.Bounds().Dx())
	require.Equal(t, 32, img.Bounds().Dy())
}

func TestEncodeSlicePNG_FactorOneStaysAtGridResolution(t *testing.T) {
	voxels := flatGrid(4, layout.Voxel{Type: layout.Empty})
	data, err := EncodeSlicePNG(voxels, 4, 0, 1)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 4, img.Bounds().Dx())
}

func TestEncodePickSnapshotPNG_MarksHitVoxel(t *testing.T) {
	voxels := flatGrid(8, layout.Voxel{Type: layout.Empty})
	data, err := EncodePickSnapshotPNG(voxels, 8, NewSnapshot(2, 3, 0), 1)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := img.At(2, 3).RGBA()
	require.Equal(t, uint32(0xFFFF), r)
	require.Equal(t, uint32(0xFFFF), g)
	require.Equal(t, uint32(0xFFFF), b)
}
