package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddRegionRejectsOverlap(t *testing.T) {
	as := NewAddressSpace()
	require.NoError(t, as.AddRegion(NewZeroRegion(0x1000, 16)))
	err := as.AddRegion(NewZeroRegion(0x1008, 16))
	require.ErrorIs(t, err, ErrOverlap)
}

func TestAddRegionAllowsAdjacent(t *testing.T) {
	as := NewAddressSpace()
	require.NoError(t, as.AddRegion(NewZeroRegion(0x1000, 16)))
	require.NoError(t, as.AddRegion(NewZeroRegion(0x1010, 16)))
}

func TestResolveUnmappedFaults(t *testing.T) {
	as := NewAddressSpace()
	_, _, ok := as.Resolve(0xdead)
	require.False(t, ok)

	_, err := as.LoadU32(0xdead)
	require.ErrorIs(t, err, ErrUnmapped)
}

// Round-trip property 6: a store of width w at A followed by a load of
// the same width at A returns the stored value, for w in {1,2,4,8}.
func TestStoreLoadRoundTrip(t *testing.T) {
	as := NewAddressSpace()
	require.NoError(t, as.AddRegion(NewZeroRegion(0x2000, 64)))

	require.NoError(t, as.StoreU8(0x2000, 0xAB))
	v8, err := as.LoadU8(0x2000)
	require.NoError(t, err)
	require.Equal(t, uint8(0xAB), v8)

	require.NoError(t, as.StoreU16(0x2008, 0xBEEF))
	v16, err := as.LoadU16(0x2008)
	require.NoError(t, err)
	require.Equal(t, uint16(0xBEEF), v16)

	require.NoError(t, as.StoreU32(0x2010, 0xDEADBEEF))
	v32, err := as.LoadU32(0x2010)
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v32)

	require.NoError(t, as.StoreU64(0x2020, 0x0123456789ABCDEF))
	v64, err := as.LoadU64(0x2020)
	require.NoError(t, err)
	require.Equal(t, uint64(0x0123456789ABCDEF), v64)
}

func TestStraddlingAccessFaults(t *testing.T) {
	as := NewAddressSpace()
	require.NoError(t, as.AddRegion(NewZeroRegion(0x3000, 4)))
	_, err := as.LoadU32(0x3002) // last 2 bytes fall past the region end
	require.ErrorIs(t, err, ErrStraddle)
}

func TestInstructionFetchIsHalfwordLoad(t *testing.T) {
	as := NewAddressSpace()
	require.NoError(t, as.AddRegion(NewZeroRegion(0x4000, 4)))
	require.NoError(t, as.StoreU32(0x4000, 0x00010203))

	lo, err := as.LoadInstHalfword(0x4000)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0203), lo)

	hi, err := as.LoadInstHalfword(0x4002)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0001), hi)
}
