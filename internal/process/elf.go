package process

import (
	"debug/elf"
	"encoding/binary"
	"errors"
)

// ErrUnsupportedELF covers every rejection cause in the acceptance
// rule: wrong class, wrong byte order, wrong machine, wrong type,
// wrong header version, or a PT_INTERP segment (dynamic linking is not
// supported by this kernel).
var ErrUnsupportedELF = errors.New("process: unsupported ELF image")

const elf64HeaderSize = 64

// elf64Header mirrors the on-disk ELF64 header layout. Decoded by hand
// with encoding/binary rather than debug/elf's own header reader, so
// that rejection causes map onto this package's own error type instead
// of debug/elf's, and so the loader controls exactly which bytes it
// trusts from an untrusted guest image. debug/elf's well-known
// constants (EM_RISCV, ET_EXEC, ELFCLASS64, PT_LOAD, PT_INTERP) are
// reused below rather than redefined by hand.
type elf64Header struct {
	class      byte
	data       byte
	version    byte
	entry      uint64
	phoff      uint64
	phentsize  uint16
	phnum      uint16
	machine    uint16
	objectType uint16
}

func parseELF64Header(image []byte) (elf64Header, error) {
	if len(image) < elf64HeaderSize {
		return elf64Header{}, ErrUnsupportedELF
	}
	if image[0] != 0x7F || string(image[1:4]) != "ELF" {
		return elf64Header{}, ErrUnsupportedELF
	}

	h := elf64Header{
		class: image[4],
		data:  image[5],
	}
	if h.class != byte(elf.ELFCLASS64) || h.data != byte(elf.ELFDATA2LSB) {
		return elf64Header{}, ErrUnsupportedELF
	}

	h.version = image[6]
	if h.version != 1 {
		return elf64Header{}, ErrUnsupportedELF
	}

	h.objectType = binary.LittleEndian.Uint16(image[16:18])
	h.machine = binary.LittleEndian.Uint16(image[18:20])
	if elf.Type(h.objectType) != elf.ET_EXEC {
		return elf64Header{}, ErrUnsupportedELF
	}
	if elf.Machine(h.machine) != elf.EM_RISCV {
		return elf64Header{}, ErrUnsupportedELF
	}

	h.entry = binary.LittleEndian.Uint64(image[24:32])
	h.phoff = binary.LittleEndian.Uint64(image[32:40])
	h.phentsize = binary.LittleEndian.Uint16(image[54:56])
	h.phnum = binary.LittleEndian.Uint16(image[56:58])
	return h, nil
}

// programHeader mirrors the on-disk Elf64_Phdr layout.
type programHeader struct {
	ptype  elf.ProgType
	offset uint64
	vaddr  uint64
	filesz uint64
	memsz  uint64
}

const programHeaderEntrySize = 56

func parseProgramHeaders(image []byte, h elf64Header) ([]programHeader, error) {
	if h.phentsize != 0 && h.phentsize != programHeaderEntrySize {
		return nil, ErrUnsupportedELF
	}
	headers := make([]programHeader, 0, h.phnum)
	for i := uint16(0); i < h.phnum; i++ {
		off := h.phoff + uint64(i)*uint64(programHeaderEntrySize)
		if off+programHeaderEntrySize > uint64(len(image)) {
			return nil, ErrUnsupportedELF
		}
		entry := image[off : off+programHeaderEntrySize]
		ph := programHeader{
			ptype:  elf.ProgType(binary.LittleEndian.Uint32(entry[0:4])),
			offset: binary.LittleEndian.Uint64(entry[8:16]),
			vaddr:  binary.LittleEndian.Uint64(entry[16:24]),
			filesz: binary.LittleEndian.Uint64(entry[32:40]),
			memsz:  binary.LittleEndian.Uint64(entry[40:48]),
		}
		if ph.ptype == elf.PT_INTERP {
			return nil, ErrUnsupportedELF
		}
		headers = append(headers, ph)
	}
	return headers, nil
}
