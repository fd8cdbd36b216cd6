package prng

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash_Deterministic(t *testing.T) {
	require.Equal(t, Hash(12345), Hash(12345))
	require.NotEqual(t, Hash(1), Hash(2))
}

func TestSeed_DispatchSaltSeparatesStreams(t *testing.T) {
	a := Seed(7, 100, 128, SaltIntentDeclaration)
	b := Seed(7, 100, 128, SaltResolveAndExecute)
	require.NotEqual(t, a, b, "two kernels at the same voxel/tick must diverge by salt alone")
}

func TestSeed_GridSizeSeparatesCoordinateSpaces(t *testing.T) {
	a := Seed(7, 100, 8, SaltIntentDeclaration)
	b := Seed(7, 100, 32, SaltIntentDeclaration)
	require.NotEqual(t, a, b, "test grids and production grids must not collide")
}

func TestSeed_TickSeparatesTemporalStreams(t *testing.T) {
	a := Seed(7, 1, 128, SaltIntentDeclaration)
	b := Seed(7, 2, 128, SaltIntentDeclaration)
	require.NotEqual(t, a, b)
}

func TestStream_DeterministicSequence(t *testing.T) {
	s1 := NewStream(3, 10, 128, SaltResolveAndExecute)
	s2 := NewStream(3, 10, 128, SaltResolveAndExecute)
	for i := 0; i < 16; i++ {
		require.Equal(t, s1.Next(), s2.Next())
	}
}

func TestStream_SkipConsumesAdvancesWithoutDivergingReplay(t *testing.T) {
	s1 := NewStream(3, 10, 128, SaltIntentDeclaration)
	s1.Skip(5)
	want := s1.Next()

	s2 := NewStream(3, 10, 128, SaltIntentDeclaration)
	for i := 0; i < 5; i++ {
		s2.Next()
	}
	got := s2.Next()
	require.Equal(t, want, got)
}

func TestStream_AdvancesCountsNextAndSkip(t *testing.T) {
	s := NewStream(3, 10, 128, SaltIntentDeclaration)
	require.Equal(t, 0, s.Advances())
	s.Next()
	s.Next()
	require.Equal(t, 2, s.Advances())
	s.Skip(3)
	require.Equal(t, 5, s.Advances())
}

func TestStream_ModIsBounded(t *testing.T) {
	s := NewStream(1, 1, 128, SaltResolveAndExecute)
	for i := 0; i < 1000; i++ {
		v := s.Mod(7)
		require.Less(t, v, uint32(7))
	}
}
