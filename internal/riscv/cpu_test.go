package riscv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rv64kernel/internal/memory"
	"rv64kernel/internal/riscv"
)

func newSpace(t *testing.T, base, size uint64) *memory.AddressSpace {
	t.Helper()
	as := memory.NewAddressSpace()
	require.NoError(t, as.AddRegion(memory.NewZeroRegion(base, size)))
	return as
}

// Quantified invariant 3: x0 always reads 0, regardless of writes.
func TestRegisterZeroHardwired(t *testing.T) {
	as := newSpace(t, 0, 16)
	cpu := riscv.New(as, 0, nil)
	cpu.SetReg(0, 0xDEADBEEF)
	require.Equal(t, uint64(0), cpu.Reg(0))
}

func TestRegisterReadAfterWrite(t *testing.T) {
	as := newSpace(t, 0, 16)
	cpu := riscv.New(as, 0, nil)
	cpu.SetReg(5, 0x1234)
	require.Equal(t, uint64(0x1234), cpu.Reg(5))
}

// S1 — Add-and-exit.
func TestScenarioAddAndExit(t *testing.T) {
	as := newSpace(t, 0, 64)

	// addi x10, x0, 42
	require.NoError(t, as.StoreU32(0, 0x02A00513))
	// addi x17, x0, 0
	require.NoError(t, as.StoreU32(4, 0x00000893))
	// ecall
	require.NoError(t, as.StoreU32(8, 0x00000073))

	var exited bool
	var code int32
	cpu := riscv.New(as, 0, func(c *riscv.CPU) {
		if c.Reg(17) == 0 {
			exited = true
			code = int32(c.Reg(10))
			c.Halt(code)
		}
	})

	for cpu.State() == riscv.StateRunning {
		cpu.Tick()
	}

	require.True(t, exited)
	require.Equal(t, int32(42), code)
	require.Equal(t, uint64(42), cpu.Reg(10))
}

// S2 — Compressed rewrite: C.LI x11, 1 then C.JR x1 with x1 = 0x1000
// lands the PC at 0x1000 with x11 == 1.
func TestScenarioCompressedRewrite(t *testing.T) {
	as := newSpace(t, 0, 0x2000)
	require.NoError(t, as.StoreU16(0, 0x4585)) // C.LI x11, 1
	require.NoError(t, as.StoreU16(2, 0x8082)) // C.JR x1

	cpu := riscv.New(as, 0, nil)
	cpu.SetReg(1, 0x1000)

	require.True(t, cpu.Tick())
	require.Equal(t, uint64(1), cpu.Reg(11))
	require.Equal(t, uint64(2), cpu.PC())

	cpu.Tick()
	require.Equal(t, uint64(0x1000), cpu.PC())
}

// Boundary 9: SLLI shift 63 of 1 produces the top bit; SRAI of that by
// 63 produces all-ones.
func TestBoundarySLLISRAIShift63(t *testing.T) {
	as := newSpace(t, 0, 64)
	// slli x10, x10, 63
	require.NoError(t, as.StoreU32(0, 0x03F51513))
	// srai x11, x10, 63
	require.NoError(t, as.StoreU32(4, 0x43F55593))

	cpu := riscv.New(as, 0, nil)
	cpu.SetReg(10, 1)
	require.True(t, cpu.Tick())
	require.Equal(t, uint64(0x8000000000000000), cpu.Reg(10))
	require.True(t, cpu.Tick())
	require.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), cpu.Reg(11))
}

// Boundary 11: a load from an unmapped address halts the CPU with no
// register mutation.
func TestBoundaryUnmappedLoadHalts(t *testing.T) {
	as := newSpace(t, 0, 8)
	// lw x10, 0(x11) with x11 pointing far outside the mapped region
	require.NoError(t, as.StoreU32(0, 0x0005A503))

	cpu := riscv.New(as, 0, nil)
	cpu.SetReg(11, 0xFFFF000)
	cpu.SetReg(10, 0x99)

	cpu.Tick()
	require.Equal(t, riscv.StateHalted, cpu.State())
	require.Equal(t, uint64(0x99), cpu.Reg(10))
}

// M-extension: division by zero follows the RISC-V convention.
func TestDivisionByZero(t *testing.T) {
	as := newSpace(t, 0, 64)
	// divu x10, x11, x12
	require.NoError(t, as.StoreU32(0, 0x02C5D533))
	cpu := riscv.New(as, 0, nil)
	cpu.SetReg(11, 7)
	cpu.SetReg(12, 0)
	cpu.Tick()
	require.Equal(t, ^uint64(0), cpu.Reg(10))
}

// rWord hand-assembles an R-type word (funct7/rs2/rs1/funct3/rd/opcode),
// the same field layout Decode expects, for the M-extension high-multiply
// ops exercised below (none of which appear as a single clean hex literal
// worth hand-transcribing the way the simpler ops above do).
func rWord(funct7, rs2, rs1, funct3, rd uint32) uint32 {
	const opcodeOP = 0b0110011
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcodeOP
}

const mExtFunct7 = 0b0000001

func runMulHigh(t *testing.T, funct3 uint32, a, b int64) uint64 {
	t.Helper()
	as := newSpace(t, 0, 16)
	require.NoError(t, as.StoreU32(0, rWord(mExtFunct7, 12, 11, funct3, 10)))
	cpu := riscv.New(as, 0, nil)
	cpu.SetReg(11, uint64(a))
	cpu.SetReg(12, uint64(b))
	require.True(t, cpu.Tick())
	return cpu.Reg(10)
}

// MULH: high 64 bits of the signed x signed 128-bit product.
func TestMulHSignedSameSign(t *testing.T) {
	require.Equal(t, uint64(0), runMulHigh(t, 0b001, 6, 7))   // positive x positive
	require.Equal(t, uint64(0), runMulHigh(t, 0b001, -2, -3)) // negative x negative, product positive
}

func TestMulHSignedZeroOperand(t *testing.T) {
	require.Equal(t, uint64(0), runMulHigh(t, 0b001, 0, 123))
}

// Mixed sign with the unsigned product's low 64 bits nonzero: the
// two's-complement negation borrows out of the low limb, so the high
// limb's carry-in is 0. -1 * 1 = -1, whose 128-bit two's-complement
// representation is all ones.
func TestMulHSignedMixedSignNonzeroLow(t *testing.T) {
	require.Equal(t, ^uint64(0), runMulHigh(t, 0b001, -1, 1))
}

// Mixed sign with the unsigned product's low 64 bits exactly zero: the
// negation borrow must propagate into the high limb. -2^32 * 2^32 =
// -2^64, whose 128-bit two's-complement high 64 bits are all ones with
// a zero low limb.
func TestMulHSignedMixedSignZeroLow(t *testing.T) {
	require.Equal(t, ^uint64(0), runMulHigh(t, 0b001, -(int64(1)<<32), int64(1)<<32))
}

// MULHSU: high 64 bits of a signed x unsigned 128-bit product.
func TestMulHSUPositive(t *testing.T) {
	require.Equal(t, uint64(0), runMulHigh(t, 0b010, 5, 7))
}

func TestMulHSUZeroOperand(t *testing.T) {
	require.Equal(t, uint64(0), runMulHigh(t, 0b010, 0, 100))
	require.Equal(t, uint64(0), runMulHigh(t, 0b010, 100, 0))
}

func TestMulHSUNegativeNonzeroLow(t *testing.T) {
	require.Equal(t, ^uint64(0), runMulHigh(t, 0b010, -1, 1))
}

func TestMulHSUNegativeZeroLow(t *testing.T) {
	require.Equal(t, ^uint64(0), runMulHigh(t, 0b010, -(int64(1)<<32), int64(1)<<32))
}

// MULHU: high 64 bits of an unsigned x unsigned product, no negation
// path at all.
func TestMulHUZeroOperand(t *testing.T) {
	require.Equal(t, uint64(0), runMulHigh(t, 0b011, 0, 100))
}

func TestMulHUSmallOperands(t *testing.T) {
	require.Equal(t, uint64(0), runMulHigh(t, 0b011, 5, 7))
}

func TestMulHULargeOperands(t *testing.T) {
	require.Equal(t, uint64(1), runMulHigh(t, 0b011, int64(1)<<32, int64(1)<<32))
}
