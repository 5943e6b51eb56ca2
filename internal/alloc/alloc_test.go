package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateAdvancesWatermark(t *testing.T) {
	a := New(0x1000, 4096, 0)
	p, err := a.Allocate(64, 8)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1000), p)
	require.Equal(t, uint64(64), a.Used())
}

func TestAllocateExhaustion(t *testing.T) {
	a := New(0, 128, 0)
	_, err := a.Allocate(200, 1)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, uint64(0), a.Used())
}

func TestFreeAtTopOfStackReclaimsImmediately(t *testing.T) {
	a := New(0, 4096, 0)
	p, err := a.Allocate(64, 1)
	require.NoError(t, err)
	a.Free(p, 64, 1)
	require.Equal(t, uint64(0), a.Used())
}

// S4 — Allocator cascade: allocate A, B, C in order; free B, then C,
// then A; after all three, used() == 0 and the side table is empty.
func TestAllocatorCascade(t *testing.T) {
	a := New(0, 4096, 0)
	pA, err := a.Allocate(64, 1)
	require.NoError(t, err)
	pB, err := a.Allocate(64, 1)
	require.NoError(t, err)
	pC, err := a.Allocate(64, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(192), a.Used())

	a.Free(pB, 64, 1) // not top of stack, deferred to side table
	require.Equal(t, uint64(192), a.Used())

	a.Free(pC, 64, 1) // top of stack: retracts past C, then cascades into B
	require.Equal(t, uint64(64), a.Used())

	a.Free(pA, 64, 1) // alloc_count reaches 0: full reset
	require.Equal(t, uint64(0), a.Used())
	require.Empty(t, a.sideTable)
}

// Quantified invariant 1, first half: used() <= capacity() after
// allocating until the window is exhausted.
func TestUsedNeverExceedsCapacity(t *testing.T) {
	a := New(0, 256, 0)
	for i := 0; i < 10; i++ {
		if _, err := a.Allocate(32, 1); err != nil {
			break
		}
	}
	require.LessOrEqual(t, a.Used(), a.Capacity())
}

// Round-trip property 8: allocate then immediately free of the same
// (size, align) returns the allocator to its prior used() when at the
// top of stack at allocation time.
func TestAllocateFreeRoundTrip(t *testing.T) {
	a := New(0, 4096, 0)
	before := a.Used()
	p, err := a.Allocate(128, 16)
	require.NoError(t, err)
	a.Free(p, 128, 16)
	require.Equal(t, before, a.Used())
}

func TestSideTableLeaksBeyondCapacity(t *testing.T) {
	a := newUnclamped(0, 1<<20, 4) // force a tiny side table to exercise leaking
	ptrs := make([]uint64, 0, 8)
	for i := 0; i < 8; i++ {
		p, err := a.Allocate(16, 1)
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	// Free everything except the very last (top-of-stack) block out of
	// order, so all the non-top frees land in the 4-entry side table
	// and the rest leak.
	for i := 0; i < 7; i++ {
		a.Free(ptrs[i], 16, 1)
	}
	require.LessOrEqual(t, len(a.sideTable), 4)
	a.Free(ptrs[7], 16, 1)
	require.Equal(t, int64(0), a.allocCount)
	require.Equal(t, uint64(0), a.Used())
}

func TestOverFreeSaturatesAllocCount(t *testing.T) {
	a := New(0, 256, 0)
	a.Free(0, 8, 1)
	require.Equal(t, int64(0), a.allocCount)
}
