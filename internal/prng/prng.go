// Package prng implements the PCG-RXS-M-XS-32 hash and the per-voxel
// seeding rule this simulation requires for bit-exact determinism: every PRNG
// draw is recomputed from (voxel_index, tick_count, grid_size,
// dispatch_salt) rather than carried as persistent state, so thread
// execution order can never influence output.
package prng

// Dispatch salts distinguish the independent PRNG streams two kernels
// draw at the same voxel in the same tick.
const (
	SaltTemperatureDiffusion uint32 = 0
	SaltIntentDeclaration    uint32 = 1
	SaltResolveAndExecute    uint32 = 2
	SaltApplyCommands        uint32 = 3
	SaltStatsReduction       uint32 = 4
)

// Hash is the PCG-RXS-M-XS-32 output function: advance then permute. All
// multiplication is 32-bit wrapping arithmetic, matching Go's default
// uint32 overflow behavior.
func Hash(x uint32) uint32 {
	x = x*747796405 + 2891336453
	word := ((x >> ((x >> 28) + 4)) ^ x) * 277803737
	return (word >> 22) ^ word
}

// Seed composes the per-voxel, per-tick, per-dispatch seed per spec
// the mandatory per-voxel seed formula.
func Seed(voxelIndex, tickCount, gridSize, dispatchSalt uint32) uint32 {
	mixed := voxelIndex ^
		(tickCount * 0x9E3779B9) ^
		(gridSize * 0x85EBCA6B) ^
		dispatchSalt
	return Hash(mixed)
}

// Stream is a stateful convenience wrapper around repeated Hash calls
// for one voxel's dispatch: each Next() call is one PRNG advance. It
// exists purely to make call sites that must consume an exact number of
// advances (5 in intent declaration, 16 in resolve-and-execute) legible
// and hard to get wrong; it carries no state across ticks or dispatches,
// only across the advances within a single kernel invocation for a
// single voxel, which is exactly the recomputed-per-thread model spec
// calls for.
type Stream struct {
	state    uint32
	advances int
}

// NewStream seeds a stream for one voxel's dispatch.
func NewStream(voxelIndex, tickCount, gridSize, dispatchSalt uint32) *Stream {
	return &Stream{state: Seed(voxelIndex, tickCount, gridSize, dispatchSalt)}
}

// Next advances the stream and returns the new output. The first call
// returns Hash(seed); this matches "consuming N advances" meaning N
// calls to Next, with the seed itself never handed out directly.
func (s *Stream) Next() uint32 {
	s.state = Hash(s.state)
	s.advances++
	return s.state
}

// Advances reports how many times Next has been called (directly or
// via Skip), so callers with a fixed per-kernel PRNG budget can assert
// they spent exactly what the budget requires regardless of which
// branch they took.
func (s *Stream) Advances() int {
	return s.advances
}

// Mod returns Next() % n. n must be > 0.
func (s *Stream) Mod(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return s.Next() % n
}

// Float01 returns a value in [0, 1) derived from one advance, used for
// probability rolls (nutrient spawn, waste recycle, mutation acceptance).
func (s *Stream) Float01() float32 {
	return float32(s.Next()) / float32(1<<32)
}

// Skip discards n advances without using their output, used to keep the
// fixed 5-advance / 16-advance budgets exact when a branch doesn't need
// every draw it is charged for.
func (s *Stream) Skip(n int) {
	for i := 0; i < n; i++ {
		s.Next()
	}
}
