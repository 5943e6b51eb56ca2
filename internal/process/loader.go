package process

import (
	"debug/elf"
	"encoding/binary"
	"errors"

	"github.com/google/uuid"

	"rv64kernel/internal/alloc"
	"rv64kernel/internal/memory"
	"rv64kernel/internal/riscv"
)

// ErrLoadFailed is returned for any allocation, region-overlap, or
// out-of-bounds segment failure during materialization, and for an
// image with no PT_LOAD segment; rejected headers and PT_INTERP
// segments return ErrUnsupportedELF instead. Per spec.md §4.5, loading
// either fully succeeds or exposes no partial process.
var ErrLoadFailed = errors.New("process: failed to load image")

// LoadInput bundles the loader's inputs (spec.md §4.5): the ELF image
// bytes, argv, cwd, and environment.
type LoadInput struct {
	Image []byte
	Argv  []string
	Cwd   string
	Env   map[string]string

	// UserHeapSideTableCap overrides the user allocator's side-table
	// capacity (0 uses alloc.MinSideTableCapacity).
	UserHeapSideTableCap int
}

// Load materializes a Process from in, installing onECALL as the
// CPU's syscall handler.
func Load(in LoadInput, onECALL riscv.SyscallFunc) (*Process, error) {
	header, err := parseELF64Header(in.Image)
	if err != nil {
		return nil, err
	}
	headers, err := parseProgramHeaders(in.Image, header)
	if err != nil {
		return nil, err
	}

	space := memory.NewAddressSpace()
	var heapBase uint64
	loadedAny := false
	for _, ph := range headers {
		if ph.ptype != elf.PT_LOAD {
			continue
		}
		if ph.offset+ph.filesz > uint64(len(in.Image)) {
			return nil, ErrLoadFailed
		}
		data := make([]byte, ph.memsz)
		copy(data, in.Image[ph.offset:ph.offset+ph.filesz])
		region := memory.NewRegion(ph.vaddr, data)
		if err := space.AddRegion(region); err != nil {
			return nil, ErrLoadFailed
		}
		loadedAny = true
		if end := ph.vaddr + ph.memsz; end > heapBase {
			heapBase = end
		}
	}
	if !loadedAny {
		return nil, ErrLoadFailed
	}

	stackBottom := ^uint64(0) - StackSize + 1
	if err := space.AddRegion(memory.NewZeroRegion(stackBottom, StackSize)); err != nil {
		return nil, ErrLoadFailed
	}

	userAlloc := alloc.New(heapBase, stackBottom-heapBase, in.UserHeapSideTableCap)

	envTable := make(map[string]uint64, len(in.Env))
	for name, value := range in.Env {
		addr, err := writeCString(space, userAlloc, value)
		if err != nil {
			return nil, ErrLoadFailed
		}
		envTable[name] = addr
	}

	argvPtrs := make([]uint64, 0, len(in.Argv))
	for _, a := range in.Argv {
		addr, err := writeCString(space, userAlloc, a)
		if err != nil {
			return nil, ErrLoadFailed
		}
		argvPtrs = append(argvPtrs, addr)
	}
	argvArrAddr, err := writePointerArray(space, userAlloc, argvPtrs)
	if err != nil {
		return nil, ErrLoadFailed
	}

	cpu := riscv.New(space, header.entry, onECALL)
	cpu.SetReg(10, uint64(len(in.Argv))) // a0 = argc
	cpu.SetReg(11, argvArrAddr)          // a1 = argv

	p := &Process{
		ID:        uuid.New(),
		CPU:       cpu,
		Space:     space,
		UserAlloc: userAlloc,
		Files:     NewFileTable(),
		Cwd:       in.Cwd,
		Env:       envTable,
		Argv:      argvArrAddr,
		Argc:      uint64(len(in.Argv)),
	}
	return p, nil
}

// writeCString allocates a buffer holding s's bytes followed by a zero
// terminator, returning its virtual address (spec.md §4.5 step 4/5).
func writeCString(space *memory.AddressSpace, a *alloc.Allocator, s string) (uint64, error) {
	size := uint64(len(s) + 1)
	addr, err := a.Allocate(size, 1)
	if err != nil {
		return 0, err
	}
	if err := space.AddRegion(memory.NewZeroRegion(addr, size)); err != nil {
		return 0, err
	}
	buf := append([]byte(s), 0)
	if err := space.WriteBytes(addr, buf); err != nil {
		return 0, err
	}
	return addr, nil
}

// writePointerArray allocates a contiguous array of little-endian
// 64-bit pointers (spec.md §4.5 step 5).
func writePointerArray(space *memory.AddressSpace, a *alloc.Allocator, ptrs []uint64) (uint64, error) {
	size := uint64(len(ptrs)+1) * 8 // NULL-terminated, matching argv[argc] == NULL convention
	addr, err := a.Allocate(size, 8)
	if err != nil {
		return 0, err
	}
	if err := space.AddRegion(memory.NewZeroRegion(addr, size)); err != nil {
		return 0, err
	}
	buf := make([]byte, size)
	for i, p := range ptrs {
		binary.LittleEndian.PutUint64(buf[i*8:], p)
	}
	if err := space.WriteBytes(addr, buf); err != nil {
		return 0, err
	}
	return addr, nil
}
