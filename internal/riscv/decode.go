package riscv

import "errors"

// ErrDecodeFault is returned for any encoding this decoder cannot
// assemble into a Decoded instruction: an unrecognized opcode, an
// unrecognized funct3/funct7 combination within a known opcode, or (from
// ExpandCompressed) a compressed quadrant/funct combination with no
// defined base-ISA equivalent.
//
// The specification documents the source's asymmetry of "no-op unknown
// base opcodes, halt on unknown compressed encodings" as an open
// question and permits either uniformly-fatal behavior or the
// asymmetric original. This implementation is uniformly fatal: any
// encoding Decode or ExpandCompressed cannot assemble returns
// ErrDecodeFault, and the CPU halts. See DESIGN.md.
var ErrDecodeFault = errors.New("riscv: unrecognized instruction encoding")

const (
	opcodeLOAD   = 0b0000011
	opcodeMISC   = 0b0001111 // FENCE
	opcodeOPIMM  = 0b0010011
	opcodeAUIPC  = 0b0010111
	opcodeOPIMM32 = 0b0011011
	opcodeSTORE  = 0b0100011
	opcodeOP     = 0b0110011
	opcodeLUI    = 0b0110111
	opcodeOP32   = 0b0111011
	opcodeBRANCH = 0b1100011
	opcodeJALR   = 0b1100111
	opcodeJAL    = 0b1101111
	opcodeSYSTEM = 0b1110011
)

// Decode assembles a base (32-bit) RISC-V instruction word into a
// Decoded record. instSize is threaded through from the caller (2 if
// this word came from ExpandCompressed, 4 otherwise) rather than
// inferred here, since a compressed-expanded word is architecturally
// indistinguishable from its base equivalent once assembled.
func Decode(word uint32, instSize uint32) (Decoded, error) {
	opcode := field(word, 6, 0)
	rd := field(word, 11, 7)
	funct3 := field(word, 14, 12)
	rs1 := field(word, 19, 15)
	rs2 := field(word, 24, 20)
	funct7 := field(word, 31, 25)

	d := Decoded{Rd: rd, Rs1: rs1, Rs2: rs2, InstSize: instSize}

	switch opcode {
	case opcodeLUI:
		d.Op = OpLUI
		d.Imm = uImm(word)
		return d, nil

	case opcodeAUIPC:
		d.Op = OpAUIPC
		d.Imm = uImm(word)
		return d, nil

	case opcodeJAL:
		d.Op = OpJAL
		d.Imm = jImm(word)
		return d, nil

	case opcodeJALR:
		if funct3 != 0 {
			return Decoded{}, ErrDecodeFault
		}
		d.Op = OpJALR
		d.Imm = iImm(word)
		return d, nil

	case opcodeBRANCH:
		d.Imm = bImm(word)
		switch funct3 {
		case 0b000:
			d.Op = OpBEQ
		case 0b001:
			d.Op = OpBNE
		case 0b100:
			d.Op = OpBLT
		case 0b101:
			d.Op = OpBGE
		case 0b110:
			d.Op = OpBLTU
		case 0b111:
			d.Op = OpBGEU
		default:
			return Decoded{}, ErrDecodeFault
		}
		return d, nil

	case opcodeLOAD:
		d.Imm = iImm(word)
		switch funct3 {
		case 0b000:
			d.Op = OpLB
		case 0b001:
			d.Op = OpLH
		case 0b010:
			d.Op = OpLW
		case 0b011:
			d.Op = OpLD
		case 0b100:
			d.Op = OpLBU
		case 0b101:
			d.Op = OpLHU
		case 0b110:
			d.Op = OpLWU
		default:
			return Decoded{}, ErrDecodeFault
		}
		return d, nil

	case opcodeSTORE:
		d.Imm = sImm(word)
		switch funct3 {
		case 0b000:
			d.Op = OpSB
		case 0b001:
			d.Op = OpSH
		case 0b010:
			d.Op = OpSW
		case 0b011:
			d.Op = OpSD
		default:
			return Decoded{}, ErrDecodeFault
		}
		return d, nil

	case opcodeOPIMM:
		d.Imm = iImm(word)
		switch funct3 {
		case 0b000:
			d.Op = OpADDI
		case 0b010:
			d.Op = OpSLTI
		case 0b011:
			d.Op = OpSLTIU
		case 0b100:
			d.Op = OpXORI
		case 0b110:
			d.Op = OpORI
		case 0b111:
			d.Op = OpANDI
		case 0b001:
			d.Op = OpSLLI
			d.Imm = int64(field(word, 25, 20)) // shamt, 6 bits for RV64
		case 0b101:
			shamt := field(word, 25, 20)
			if bit(word, 30) == 1 {
				d.Op = OpSRAI
			} else {
				d.Op = OpSRLI
			}
			d.Imm = int64(shamt)
		default:
			return Decoded{}, ErrDecodeFault
		}
		return d, nil

	case opcodeOPIMM32:
		imm := iImm(word)
		switch funct3 {
		case 0b000:
			d.Op = OpADDIW
			d.Imm = imm
		case 0b001:
			d.Op = OpSLLIW
			d.Imm = int64(field(word, 24, 20))
		case 0b101:
			d.Imm = int64(field(word, 24, 20))
			if bit(word, 30) == 1 {
				d.Op = OpSRAIW
			} else {
				d.Op = OpSRLIW
			}
		default:
			return Decoded{}, ErrDecodeFault
		}
		return d, nil

	case opcodeOP:
		isM := funct7 == 0b0000001
		switch {
		case isM:
			switch funct3 {
			case 0b000:
				d.Op = OpMUL
			case 0b001:
				d.Op = OpMULH
			case 0b010:
				d.Op = OpMULHSU
			case 0b011:
				d.Op = OpMULHU
			case 0b100:
				d.Op = OpDIV
			case 0b101:
				d.Op = OpDIVU
			case 0b110:
				d.Op = OpREM
			case 0b111:
				d.Op = OpREMU
			default:
				return Decoded{}, ErrDecodeFault
			}
			return d, nil
		default:
			switch funct3 {
			case 0b000:
				if funct7 == 0b0100000 {
					d.Op = OpSUB
				} else if funct7 == 0 {
					d.Op = OpADD
				} else {
					return Decoded{}, ErrDecodeFault
				}
			case 0b001:
				d.Op = OpSLL
			case 0b010:
				d.Op = OpSLT
			case 0b011:
				d.Op = OpSLTU
			case 0b100:
				d.Op = OpXOR
			case 0b101:
				if funct7 == 0b0100000 {
					d.Op = OpSRA
				} else if funct7 == 0 {
					d.Op = OpSRL
				} else {
					return Decoded{}, ErrDecodeFault
				}
			case 0b110:
				d.Op = OpOR
			case 0b111:
				d.Op = OpAND
			default:
				return Decoded{}, ErrDecodeFault
			}
			return d, nil
		}

	case opcodeOP32:
		isM := funct7 == 0b0000001
		if isM {
			switch funct3 {
			case 0b000:
				d.Op = OpMULW
			case 0b100:
				d.Op = OpDIVW
			case 0b101:
				d.Op = OpDIVUW
			case 0b110:
				d.Op = OpREMW
			case 0b111:
				d.Op = OpREMUW
			default:
				return Decoded{}, ErrDecodeFault
			}
			return d, nil
		}
		switch funct3 {
		case 0b000:
			if funct7 == 0b0100000 {
				d.Op = OpSUBW
			} else if funct7 == 0 {
				d.Op = OpADDW
			} else {
				return Decoded{}, ErrDecodeFault
			}
		case 0b001:
			d.Op = OpSLLW
		case 0b101:
			if funct7 == 0b0100000 {
				d.Op = OpSRAW
			} else if funct7 == 0 {
				d.Op = OpSRLW
			} else {
				return Decoded{}, ErrDecodeFault
			}
		default:
			return Decoded{}, ErrDecodeFault
		}
		return d, nil

	case opcodeSYSTEM:
		if funct3 != 0 {
			return Decoded{}, ErrDecodeFault
		}
		imm := field(word, 31, 20)
		switch imm {
		case 0:
			d.Op = OpECALL
		case 1:
			d.Op = OpEBREAK
		default:
			return Decoded{}, ErrDecodeFault
		}
		return d, nil

	case opcodeMISC:
		d.Op = OpFENCE
		return d, nil

	default:
		return Decoded{}, ErrDecodeFault
	}
}

func iImm(word uint32) int64 {
	return signExtend(field(word, 31, 20), 12)
}

func sImm(word uint32) int64 {
	v := field(word, 31, 25)<<5 | field(word, 11, 7)
	return signExtend(v, 12)
}

func bImm(word uint32) int64 {
	v := bit(word, 31)<<12 | bit(word, 7)<<11 | field(word, 30, 25)<<5 | field(word, 11, 8)<<1
	return signExtend(v, 13)
}

func uImm(word uint32) int64 {
	// Left-shifted 20-bit immediate; already a full 32-bit signed value
	// once shifted, so it is sign-extended from 32 bits, matching the
	// architecturally defined width for U-type.
	v := field(word, 31, 12) << 12
	return signExtend(v, 32)
}

func jImm(word uint32) int64 {
	v := bit(word, 31)<<20 | field(word, 19, 12)<<12 | bit(word, 20)<<11 | field(word, 30, 21)<<1
	return signExtend(v, 21)
}
