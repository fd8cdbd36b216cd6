package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCommand_Roundtrip(t *testing.T) {
	c := Command{Type: CommandApplyToxin, X: -5, Y: 10, Z: 300, Radius: 4, Param0: 128, Param1: 7}
	rec := EncodeCommand(c)
	require.Len(t, rec, CommandRecordSize)
	require.Equal(t, c, DecodeCommand(rec))
}

func TestEncodeCommandBuffer_CountPrefixAndCap(t *testing.T) {
	cmds := make([]Command, 100)
	for i := range cmds {
		cmds[i] = Command{Type: CommandPlaceVoxel, X: int32(i)}
	}
	buf := EncodeCommandBuffer(cmds)
	decoded := DecodeCommandBuffer(buf)
	require.Len(t, decoded, MaxCommandsPerTick)
	for i, c := range decoded {
		require.Equal(t, int32(i), c.X)
	}
}

func TestDecodeCommandBuffer_EmptyAndShort(t *testing.T) {
	require.Nil(t, DecodeCommandBuffer(nil))
	require.Nil(t, DecodeCommandBuffer([]byte{1, 2}))

	buf := EncodeCommandBuffer(nil)
	require.Empty(t, DecodeCommandBuffer(buf))
}

func TestChebyshevDistance(t *testing.T) {
	require.Equal(t, int32(3), ChebyshevDistance(3, -1, 2))
	require.Equal(t, int32(0), ChebyshevDistance(0, 0, 0))
	require.Equal(t, int32(5), ChebyshevDistance(-5, 5, -5))
}

func TestUnknownCommandType_DecodesWithoutPanic(t *testing.T) {
	rec := EncodeCommand(Command{Type: CommandType(999)})
	c := DecodeCommand(rec)
	require.Equal(t, CommandType(999), c.Type)
}
