package riscv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeADDI(t *testing.T) {
	word := encodeI(opcodeOPIMM, 0, 5, 6, -1)
	d, err := Decode(word, 4)
	require.NoError(t, err)
	require.Equal(t, OpADDI, d.Op)
	require.Equal(t, uint32(5), d.Rd)
	require.Equal(t, uint32(6), d.Rs1)
	require.Equal(t, int64(-1), d.Imm)
}

// Boundary 10, decode side: a JAL immediate whose top bit is set
// decodes to a negative (backward) offset.
func TestDecodeJALBackwardImmediate(t *testing.T) {
	word := encodeJ(opcodeJAL, 1, -8)
	d, err := Decode(word, 4)
	require.NoError(t, err)
	require.Equal(t, OpJAL, d.Op)
	require.Equal(t, int64(-8), d.Imm)
}

func TestDecodeUnknownOpcodeFaults(t *testing.T) {
	_, err := Decode(0b1111111, 4) // opcode bits all set, not a defined base opcode
	require.ErrorIs(t, err, ErrDecodeFault)
}

func TestDecodeUnknownFunct3Faults(t *testing.T) {
	word := encodeB(opcodeBRANCH, 0b010, 1, 2, 16) // funct3=010 undefined for BRANCH
	_, err := Decode(word, 4)
	require.ErrorIs(t, err, ErrDecodeFault)
}

func TestExpandCNop(t *testing.T) {
	// C.NOP: quadrant 01, funct3 000, rd=0, imm=0
	half := uint16(0b000_0_00000_00000_01)
	word, err := ExpandCompressed(half)
	require.NoError(t, err)
	d, err := Decode(word, 2)
	require.NoError(t, err)
	require.Equal(t, OpADDI, d.Op)
	require.Equal(t, uint32(0), d.Rd)
	require.Equal(t, int64(0), d.Imm)
}

func TestExpandCLI(t *testing.T) {
	// C.LI x11, 1 (verified against standard encoding 0x4585)
	word, err := ExpandCompressed(0x4585)
	require.NoError(t, err)
	d, err := Decode(word, 2)
	require.NoError(t, err)
	require.Equal(t, OpADDI, d.Op)
	require.Equal(t, uint32(11), d.Rd)
	require.Equal(t, uint32(0), d.Rs1)
	require.Equal(t, int64(1), d.Imm)
}

func TestExpandCJR(t *testing.T) {
	word, err := ExpandCompressed(0x8082)
	require.NoError(t, err)
	d, err := Decode(word, 2)
	require.NoError(t, err)
	require.Equal(t, OpJALR, d.Op)
	require.Equal(t, uint32(0), d.Rd)
	require.Equal(t, uint32(1), d.Rs1)
	require.Equal(t, int64(0), d.Imm)
}

func TestSignExtendWidths(t *testing.T) {
	require.Equal(t, int64(-1), signExtend(0xFFF, 12))
	require.Equal(t, int64(2047), signExtend(0x7FF, 12))
	require.Equal(t, int64(-1), signExtend64(^uint64(0), 64))
}
