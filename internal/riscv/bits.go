package riscv

// Bit-extraction helpers over a 32-bit instruction word. Ranges are
// inclusive, 0-indexed from the LSB, matching the encoding diagrams in
// the RISC-V specification manual (e.g. "imm[11:5]" means hi=11, lo=5).
// This is the same shift-then-mask technique as a byte-oriented bit
// mask helper, generalized from single bytes to a 32-bit word since
// instruction fields are scattered across the whole word, not one byte.

// field extracts bits [hi:lo] of word, right-justified.
func field(word uint32, hi, lo int) uint32 {
	width := hi - lo + 1
	mask := uint32(1)<<width - 1
	return (word >> lo) & mask
}

// bit extracts a single bit of word.
func bit(word uint32, pos int) uint32 {
	return (word >> pos) & 1
}

// signExtend sign-extends the low `width` bits of v (a right-justified
// value, not necessarily already sign-correct in Go's uint32) to a
// 64-bit signed value. width is the immediate's architecturally defined
// bit-width, never the storage width of the field it was assembled
// from — e.g. a 21-bit J-type immediate is sign-extended from 21 bits
// even though it is built out of four non-contiguous field chunks.
func signExtend(v uint32, width int) int64 {
	shift := 32 - width
	return int64(int32(v<<shift)) >> shift
}

func signExtend64(v uint64, width int) int64 {
	shift := 64 - width
	return int64(v<<shift) >> shift
}
