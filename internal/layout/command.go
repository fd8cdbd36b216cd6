package layout

import "encoding/binary"

// CommandType enumerates the player tool operations the command buffer carries.
// Unknown types are no-ops by construction: DecodeCommand never panics
// on an unrecognized type word, it just yields a CommandType the kernel
// switch falls through on.
type CommandType uint32

const (
	CommandPlaceVoxel CommandType = iota
	CommandRemoveVoxel
	CommandSeedProtocells
	CommandApplyToxin
)

// CommandRecordSize is the fixed wire size of one command: type, x, y,
// z, radius, param0, param1, then 36 bytes of padding.
const CommandRecordSize = 64

// MaxCommandsPerTick bounds the number of commands the scheduler will
// upload and the kernel will process in a single tick.
const MaxCommandsPerTick = 64

// Command is the host-side decoded form of one 64-byte command record.
type Command struct {
	Type   CommandType
	X, Y, Z int32
	Radius  int32
	Param0  uint32
	Param1  uint32
}

// EncodeCommand serializes c into its 64-byte wire record:
// [type:u32, x:u32, y:u32, z:u32, radius:u32, param0:u32, param1:u32, pad:36 bytes].
func EncodeCommand(c Command) [CommandRecordSize]byte {
	var buf [CommandRecordSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(c.Type))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(c.X))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(c.Y))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(c.Z))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(c.Radius))
	binary.LittleEndian.PutUint32(buf[20:24], c.Param0)
	binary.LittleEndian.PutUint32(buf[24:28], c.Param1)
	return buf
}

// DecodeCommand is the inverse of EncodeCommand.
func DecodeCommand(buf [CommandRecordSize]byte) Command {
	return Command{
		Type:   CommandType(binary.LittleEndian.Uint32(buf[0:4])),
		X:      int32(binary.LittleEndian.Uint32(buf[4:8])),
		Y:      int32(binary.LittleEndian.Uint32(buf[8:12])),
		Z:      int32(binary.LittleEndian.Uint32(buf[12:16])),
		Radius: int32(binary.LittleEndian.Uint32(buf[16:20])),
		Param0: binary.LittleEndian.Uint32(buf[20:24]),
		Param1: binary.LittleEndian.Uint32(buf[24:28]),
	}
}

// EncodeCommandBuffer produces the wire-stable player command buffer: a
// 4-byte count prefix followed by up to MaxCommandsPerTick 64-byte
// records. Commands beyond the cap are dropped, matching the
// "up to 64 per tick" rule; the caller should queue overflow for the
// next tick instead of relying on this function to do so.
func EncodeCommandBuffer(cmds []Command) []byte {
	n := len(cmds)
	if n > MaxCommandsPerTick {
		n = MaxCommandsPerTick
	}
	out := make([]byte, 4+n*CommandRecordSize)
	binary.LittleEndian.PutUint32(out[0:4], uint32(n))
	for i := 0; i < n; i++ {
		rec := EncodeCommand(cmds[i])
		copy(out[4+i*CommandRecordSize:], rec[:])
	}
	return out
}

// DecodeCommandBuffer is the inverse of EncodeCommandBuffer.
func DecodeCommandBuffer(buf []byte) []Command {
	if len(buf) < 4 {
		return nil
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	if count > MaxCommandsPerTick {
		count = MaxCommandsPerTick
	}
	out := make([]Command, 0, count)
	for i := uint32(0); i < count; i++ {
		off := 4 + int(i)*CommandRecordSize
		if off+CommandRecordSize > len(buf) {
			break
		}
		var rec [CommandRecordSize]byte
		copy(rec[:], buf[off:off+CommandRecordSize])
		out = append(out, DecodeCommand(rec))
	}
	return out
}

// ChebyshevDistance returns max(|dx|,|dy|,|dz|), the cubic-brush metric
// command application uses to decide which voxels fall within a
// command's radius.
func ChebyshevDistance(dx, dy, dz int32) int32 {
	d := abs32(dx)
	if v := abs32(dy); v > d {
		d = v
	}
	if v := abs32(dz); v > d {
		d = v
	}
	return d
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
