package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTier_GridSizeMatchesCapabilityTable(t *testing.T) {
	cases := []struct {
		tier       Tier
		wantSize   int
		wantSparse bool
	}{
		{TierSparse, 256, true},
		{TierDenseHigh, 128, false},
		{TierDenseMid, 96, false},
		{TierDenseLow, 64, false},
	}
	for _, c := range cases {
		size, sparse := c.tier.GridSize()
		require.Equal(t, c.wantSize, size, c.tier.String())
		require.Equal(t, c.wantSparse, sparse, c.tier.String())
	}
}

func TestStepDownTier_WalksDownToDenseLowThenStops(t *testing.T) {
	tier := TierSparse
	seen := []Tier{tier}
	for i := 0; i < 10; i++ {
		next, ok := StepDownTier(tier)
		if !ok {
			break
		}
		seen = append(seen, next)
		tier = next
	}
	require.Equal(t, []Tier{TierSparse, TierDenseHigh, TierDenseMid, TierDenseLow}, seen)

	_, ok := StepDownTier(TierDenseLow)
	require.False(t, ok, "Dense-Low is the floor tier")
}

func TestErrUnsupportedPlatform_CarriesReason(t *testing.T) {
	err := &ErrUnsupportedPlatform{Reason: "no adapter"}
	require.Contains(t, err.Error(), "no adapter")
}

func TestStatsRecordSize_GrowsWithHistogramSlots(t *testing.T) {
	// 12-byte header (population, total energy, max energy) plus two
	// full u32 words (species id, count) per histogram slot, matching
	// stats_reduction.wgsl's atomic<u32> addressing.
	require.Equal(t, 12+8*0, statsRecordSize(0))
	require.Equal(t, 12+8*16, statsRecordSize(16))
}
