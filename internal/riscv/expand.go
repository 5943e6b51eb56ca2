package riscv

// ExpandCompressed rewrites a 16-bit compressed (RVC) instruction into
// its 32-bit base-ISA equivalent word. The returned word is exactly
// what Decode would expect to see as a base encoding; execution never
// branches on compressed vs. base after this step.
//
// Compressed 3-bit register fields denote architectural registers
// x8-x15 (register + 8). Quadrant is bits[1:0]; funct3 is bits[15:13].
// Each compressed family below is named for its RVC encoding table
// entry (CR, CI, CSS, CIW, CL, CS, CA, CB, CJ) per the RISC-V
// specification's compressed-instruction chapter; implementations
// should verify this table against that chapter's bit diagrams.
func ExpandCompressed(half uint16) (uint32, error) {
	w := uint32(half)
	quadrant := w & 0b11
	funct3 := (w >> 13) & 0b111

	switch quadrant {
	case 0b00:
		return expandQuadrant0(w, funct3)
	case 0b01:
		return expandQuadrant1(w, funct3)
	case 0b10:
		return expandQuadrant2(w, funct3)
	default:
		return 0, ErrDecodeFault
	}
}

func creg(w uint32, lo int) uint32 { return 8 + field(w, lo+2, lo) }

// expandQuadrant0 covers CIW (C.ADDI4SPN) and CL/CS (C.LW/C.LD/C.SW/C.SD).
func expandQuadrant0(w, funct3 uint32) (uint32, error) {
	switch funct3 {
	case 0b000: // C.ADDI4SPN: addi rd', x2, nzuimm
		rd := creg(w, 2)
		imm := bit(w, 12)<<5 | bit(w, 11)<<4 | bit(w, 10)<<9 | bit(w, 9)<<8 |
			bit(w, 8)<<7 | bit(w, 7)<<6 | bit(w, 6)<<2 | bit(w, 5)<<3
		if imm == 0 {
			return 0, ErrDecodeFault // reserved encoding
		}
		return encodeI(opcodeOPIMM, 0, rd, 2, int64(imm)), nil

	case 0b010: // C.LW: lw rd', offset(rs1')
		rd := creg(w, 2)
		rs1 := creg(w, 7)
		off := bit(w, 5)<<6 | field(w, 12, 10)<<3 | bit(w, 6)<<2
		return encodeI(opcodeLOAD, 0b010, rd, rs1, int64(off)), nil

	case 0b011: // C.LD: ld rd', offset(rs1')
		rd := creg(w, 2)
		rs1 := creg(w, 7)
		off := field(w, 6, 5)<<6 | field(w, 12, 10)<<3
		return encodeI(opcodeLOAD, 0b011, rd, rs1, int64(off)), nil

	case 0b110: // C.SW: sw rs2', offset(rs1')
		rs1 := creg(w, 7)
		rs2 := creg(w, 2)
		off := bit(w, 5)<<6 | field(w, 12, 10)<<3 | bit(w, 6)<<2
		return encodeS(opcodeSTORE, 0b010, rs1, rs2, int64(off)), nil

	case 0b111: // C.SD: sd rs2', offset(rs1')
		rs1 := creg(w, 7)
		rs2 := creg(w, 2)
		off := field(w, 6, 5)<<6 | field(w, 12, 10)<<3
		return encodeS(opcodeSTORE, 0b011, rs1, rs2, int64(off)), nil

	default:
		return 0, ErrDecodeFault // C.FLD/C.FSD: no floating-point extension
	}
}

// expandQuadrant1 covers CI/CJ/CB/CA: C.ADDI/C.NOP, C.ADDIW, C.LI,
// C.ADDI16SP/C.LUI, C.SRLI/C.SRAI/C.ANDI/C.SUB/C.XOR/C.OR/C.AND/
// C.SUBW/C.ADDW, C.J, C.BEQZ, C.BNEZ.
func expandQuadrant1(w, funct3 uint32) (uint32, error) {
	ciImm6 := func() int64 {
		v := bit(w, 12)<<5 | field(w, 6, 2)
		return signExtend(v, 6)
	}

	switch funct3 {
	case 0b000: // C.ADDI / C.NOP (rd==0, imm==0)
		rd := field(w, 11, 7)
		return encodeI(opcodeOPIMM, 0, rd, rd, ciImm6()), nil

	case 0b001: // C.ADDIW
		rd := field(w, 11, 7)
		if rd == 0 {
			return 0, ErrDecodeFault // reserved
		}
		return encodeI(opcodeOPIMM32, 0, rd, rd, ciImm6()), nil

	case 0b010: // C.LI: addi rd, x0, imm
		rd := field(w, 11, 7)
		return encodeI(opcodeOPIMM, 0, rd, 0, ciImm6()), nil

	case 0b011:
		rd := field(w, 11, 7)
		if rd == 2 { // C.ADDI16SP: addi x2, x2, nzimm (multiple of 16)
			v := bit(w, 12)<<9 | bit(w, 6)<<4 | bit(w, 5)<<6 | field(w, 4, 3)<<7 | bit(w, 2)<<5
			imm := signExtend(v, 10)
			if imm == 0 {
				return 0, ErrDecodeFault
			}
			return encodeI(opcodeOPIMM, 0, 2, 2, imm), nil
		}
		// C.LUI: lui rd, nzimm (non-zero, rd != 0, rd != 2)
		if rd == 0 {
			return 0, ErrDecodeFault
		}
		v := bit(w, 12)<<17 | field(w, 6, 2)<<12
		imm := signExtend(v, 18)
		if imm == 0 {
			return 0, ErrDecodeFault
		}
		return encodeU(opcodeLUI, rd, imm), nil

	case 0b100:
		rdp := creg(w, 7)
		funct2 := field(w, 11, 10)
		switch funct2 {
		case 0b00: // C.SRLI
			shamt := bit(w, 12)<<5 | field(w, 6, 2)
			return encodeIShift(opcodeOPIMM, 0b101, rdp, rdp, shamt, false), nil
		case 0b01: // C.SRAI
			shamt := bit(w, 12)<<5 | field(w, 6, 2)
			return encodeIShift(opcodeOPIMM, 0b101, rdp, rdp, shamt, true), nil
		case 0b10: // C.ANDI
			v := bit(w, 12)<<5 | field(w, 6, 2)
			return encodeI(opcodeOPIMM, 0b111, rdp, rdp, signExtend(v, 6)), nil
		default: // CA format: C.SUB/C.XOR/C.OR/C.AND/C.SUBW/C.ADDW
			rs2p := creg(w, 2)
			funct2b := field(w, 6, 5)
			if bit(w, 12) == 0 {
				switch funct2b {
				case 0b00:
					return encodeR(opcodeOP, 0b000, 0b0100000, rdp, rdp, rs2p), nil // SUB
				case 0b01:
					return encodeR(opcodeOP, 0b100, 0, rdp, rdp, rs2p), nil // XOR
				case 0b10:
					return encodeR(opcodeOP, 0b110, 0, rdp, rdp, rs2p), nil // OR
				default:
					return encodeR(opcodeOP, 0b111, 0, rdp, rdp, rs2p), nil // AND
				}
			}
			switch funct2b {
			case 0b00:
				return encodeR(opcodeOP32, 0b000, 0b0100000, rdp, rdp, rs2p), nil // SUBW
			case 0b01:
				return encodeR(opcodeOP32, 0b000, 0, rdp, rdp, rs2p), nil // ADDW
			default:
				return 0, ErrDecodeFault // reserved
			}
		}

	case 0b101: // C.J: jal x0, imm
		imm := cjImm(w)
		return encodeJ(opcodeJAL, 0, imm), nil

	case 0b110: // C.BEQZ: beq rs1', x0, imm
		rs1 := creg(w, 7)
		imm := cbImm(w)
		return encodeB(opcodeBRANCH, 0b000, rs1, 0, imm), nil

	case 0b111: // C.BNEZ: bne rs1', x0, imm
		rs1 := creg(w, 7)
		imm := cbImm(w)
		return encodeB(opcodeBRANCH, 0b001, rs1, 0, imm), nil

	default:
		return 0, ErrDecodeFault
	}
}

// expandQuadrant2 covers CI (C.SLLI/C.LWSP/C.LDSP), CR
// (C.JR/C.MV/C.JALR/C.EBREAK/C.ADD), and CSS (C.SWSP/C.SDSP).
func expandQuadrant2(w, funct3 uint32) (uint32, error) {
	switch funct3 {
	case 0b000: // C.SLLI
		rd := field(w, 11, 7)
		if rd == 0 {
			return 0, ErrDecodeFault
		}
		shamt := bit(w, 12)<<5 | field(w, 6, 2)
		return encodeIShift(opcodeOPIMM, 0b001, rd, rd, shamt, false), nil

	case 0b010: // C.LWSP: lw rd, offset(x2)
		rd := field(w, 11, 7)
		if rd == 0 {
			return 0, ErrDecodeFault
		}
		off := field(w, 3, 2)<<6 | bit(w, 12)<<5 | field(w, 6, 4)<<2
		return encodeI(opcodeLOAD, 0b010, rd, 2, int64(off)), nil

	case 0b011: // C.LDSP: ld rd, offset(x2)
		rd := field(w, 11, 7)
		if rd == 0 {
			return 0, ErrDecodeFault
		}
		off := field(w, 4, 2)<<6 | bit(w, 12)<<5 | field(w, 6, 5)<<3
		return encodeI(opcodeLOAD, 0b011, rd, 2, int64(off)), nil

	case 0b100:
		rd := field(w, 11, 7)
		rs2 := field(w, 6, 2)
		if bit(w, 12) == 0 {
			if rs2 == 0 { // C.JR: jalr x0, 0(rs1)
				if rd == 0 {
					return 0, ErrDecodeFault
				}
				return encodeI(opcodeJALR, 0, 0, rd, 0), nil
			}
			// C.MV: add rd, x0, rs2
			return encodeR(opcodeOP, 0, 0, rd, 0, rs2), nil
		}
		if rs2 == 0 {
			if rd == 0 { // C.EBREAK
				return encodeSystem(opcodeSYSTEM, 1), nil
			}
			// C.JALR: jalr x1, 0(rd-as-rs1)
			return encodeI(opcodeJALR, 0, 1, rd, 0), nil
		}
		// C.ADD: add rd, rd, rs2
		return encodeR(opcodeOP, 0, 0, rd, rd, rs2), nil

	case 0b110: // C.SWSP: sw rs2, offset(x2)
		rs2 := field(w, 6, 2)
		off := field(w, 8, 7)<<6 | field(w, 12, 9)<<2
		return encodeS(opcodeSTORE, 0b010, 2, rs2, int64(off)), nil

	case 0b111: // C.SDSP: sd rs2, offset(x2)
		rs2 := field(w, 6, 2)
		off := field(w, 9, 7)<<6 | field(w, 12, 10)<<3
		return encodeS(opcodeSTORE, 0b011, 2, rs2, int64(off)), nil

	default:
		return 0, ErrDecodeFault
	}
}

func cjImm(w uint32) int64 {
	v := bit(w, 12)<<11 | bit(w, 11)<<4 | field(w, 10, 9)<<8 | bit(w, 8)<<10 |
		bit(w, 7)<<6 | bit(w, 6)<<7 | field(w, 5, 3)<<1 | bit(w, 2)<<5
	return signExtend(v, 12)
}

func cbImm(w uint32) int64 {
	v := bit(w, 12)<<8 | field(w, 11, 10)<<3 | field(w, 6, 5)<<6 | field(w, 4, 3)<<1 | bit(w, 2)<<5
	return signExtend(v, 9)
}
