// Package syscall implements the numbered dispatch table C7 maps onto
// host-side effects against a process's VFS and process state. The
// convention (spec.md §4.7) is a7 selects the call number, a0..a5 carry
// arguments, and a0 carries the return value; callers that fail return
// a negative value rather than faulting the host.
package syscall

import (
	"rv64kernel/internal/memory"
	"rv64kernel/internal/process"
	"rv64kernel/internal/riscv"
	"rv64kernel/internal/vfs"
)

// Numbers, per spec.md §4.7 plus the getcwd/chdir supplement from
// SPEC_FULL.md §6.
const (
	SysExit   = 0
	SysRead   = 1
	SysWrite  = 2
	SysOpen   = 3
	SysClose  = 4
	SysLseek  = 5
	SysMalloc = 6
	SysFree   = 7
	SysGetcwd = 8
	SysChdir  = 9
)

const (
	errBadFD    = -1
	errFault    = -2
	errNotFound = -3
	errNoMem    = -4
	errBadArg   = -5
)

// SeekSet/SeekCur/SeekEnd mirror the lseek(2) whence argument.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Root is the VFS root folder the syscall surface resolves paths
// against.
type Root struct {
	Folder vfs.Folder
}

// Table dispatches ECALL traps for one process against a shared VFS
// root. It is installed as a CPU's SyscallFunc.
type Table struct {
	Root *Root
	Proc *process.Process
}

// New returns a riscv.SyscallFunc bound to proc and root.
func New(proc *process.Process, root *Root) riscv.SyscallFunc {
	t := &Table{Root: root, Proc: proc}
	return t.Dispatch
}

// Dispatch reads a7 to select a handler, performs its effect, writes
// the result to a0, and, unless the call halted the CPU, moves the PC
// past the ECALL — the same "read a request, write a
// response back onto the same channel" shape the teacher's hardware
// device bus uses for its TrySend/Response convention.
func (t *Table) Dispatch(cpu *riscv.CPU) {
	num := cpu.Reg(17) // a7
	switch num {
	case SysExit:
		t.sysExit(cpu)
	case SysRead:
		cpu.SetReg(10, uint64(t.sysRead(cpu)))
	case SysWrite:
		cpu.SetReg(10, uint64(t.sysWrite(cpu)))
	case SysOpen:
		cpu.SetReg(10, uint64(t.sysOpen(cpu)))
	case SysClose:
		cpu.SetReg(10, uint64(t.sysClose(cpu)))
	case SysLseek:
		cpu.SetReg(10, uint64(t.sysLseek(cpu)))
	case SysMalloc:
		cpu.SetReg(10, uint64(t.sysMalloc(cpu)))
	case SysFree:
		cpu.SetReg(10, uint64(t.sysFree(cpu)))
	case SysGetcwd:
		cpu.SetReg(10, uint64(t.sysGetcwd(cpu)))
	case SysChdir:
		cpu.SetReg(10, uint64(t.sysChdir(cpu)))
	default:
		cpu.SetReg(10, uint64(errBadArg))
	}
	// The CPU leaves the PC on the ECALL for its handler to move; ECALL
	// has no compressed form, so the next instruction is 4 bytes on.
	if cpu.State() == riscv.StateRunning {
		cpu.SetPC(cpu.PC() + 4)
	}
}

func (t *Table) sysExit(cpu *riscv.CPU) {
	code := int32(cpu.Reg(10))
	t.Proc.MarkExited(code)
	cpu.Halt(code)
}

func (t *Table) sysRead(cpu *riscv.CPU) int64 {
	fd := int(cpu.Reg(10))
	bufAddr := cpu.Reg(11)
	n := cpu.Reg(12)

	of, err := t.Proc.Files.Get(fd)
	if err != nil {
		return errBadFD
	}
	tmp := make([]byte, n)
	read, err := of.File.ReadAt(tmp, of.Cursor)
	if err != nil {
		return errFault
	}
	if err := t.Proc.Space.WriteBytes(bufAddr, tmp[:read]); err != nil {
		return errFault
	}
	of.Cursor += int64(read)
	return int64(read)
}

func (t *Table) sysWrite(cpu *riscv.CPU) int64 {
	fd := int(cpu.Reg(10))
	bufAddr := cpu.Reg(11)
	n := cpu.Reg(12)

	of, err := t.Proc.Files.Get(fd)
	if err != nil {
		return errBadFD
	}
	data, err := t.Proc.Space.ReadBytes(bufAddr, n)
	if err != nil {
		return errFault
	}
	written, err := of.File.WriteAt(data, of.Cursor)
	if err != nil {
		return errFault
	}
	of.Cursor += int64(written)
	return int64(written)
}

func (t *Table) sysOpen(cpu *riscv.CPU) int64 {
	pathAddr := cpu.Reg(10)
	path, err := t.readGuestCString(pathAddr)
	if err != nil {
		return errFault
	}
	full := vfs.Join(t.Proc.Cwd, path)
	node, err := vfs.Resolve(t.Root.Folder, full)
	if err != nil {
		return errNotFound
	}
	file, ok := node.AsFile()
	if !ok {
		return errBadArg
	}
	return int64(t.Proc.Files.Open(file))
}

func (t *Table) sysClose(cpu *riscv.CPU) int64 {
	fd := int(cpu.Reg(10))
	if err := t.Proc.Files.Close(fd); err != nil {
		return errBadFD
	}
	return 0
}

func (t *Table) sysLseek(cpu *riscv.CPU) int64 {
	fd := int(cpu.Reg(10))
	off := int64(cpu.Reg(11))
	whence := cpu.Reg(12)

	of, err := t.Proc.Files.Get(fd)
	if err != nil {
		return errBadFD
	}
	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = of.Cursor
	case SeekEnd:
		base = of.File.Size()
	default:
		return errBadArg
	}
	of.Cursor = base + off
	return of.Cursor
}

func (t *Table) sysMalloc(cpu *riscv.CPU) int64 {
	n := cpu.Reg(10)
	addr, err := t.Proc.UserAlloc.Allocate(n, 8)
	if err != nil {
		return errNoMem
	}
	if err := t.Proc.Space.AddRegion(memory.NewZeroRegion(addr, n)); err != nil {
		return errNoMem
	}
	return int64(addr)
}

func (t *Table) sysFree(cpu *riscv.CPU) int64 {
	ptr := cpu.Reg(10)
	size := cpu.Reg(11)
	t.Proc.UserAlloc.Free(ptr, size, 8)
	t.Proc.Space.RemoveRegion(ptr)
	return 0
}

func (t *Table) sysGetcwd(cpu *riscv.CPU) int64 {
	bufAddr := cpu.Reg(10)
	n := cpu.Reg(11)
	cwd := append([]byte(t.Proc.Cwd), 0)
	if uint64(len(cwd)) > n {
		return errBadArg
	}
	if err := t.Proc.Space.WriteBytes(bufAddr, cwd); err != nil {
		return errFault
	}
	return int64(len(cwd) - 1)
}

func (t *Table) sysChdir(cpu *riscv.CPU) int64 {
	pathAddr := cpu.Reg(10)
	path, err := t.readGuestCString(pathAddr)
	if err != nil {
		return errFault
	}
	full := vfs.Join(t.Proc.Cwd, path)
	node, err := vfs.Resolve(t.Root.Folder, full)
	if err != nil {
		return errNotFound
	}
	if _, ok := node.AsFolder(); !ok {
		return errBadArg
	}
	t.Proc.Cwd = full
	return 0
}

// readGuestCString reads a NUL-terminated string out of guest memory
// one byte at a time via the validated memory API, never touching
// backing bytes directly.
func (t *Table) readGuestCString(addr uint64) (string, error) {
	var out []byte
	for i := uint64(0); i < 4096; i++ {
		b, err := t.Proc.Space.LoadU8(addr + i)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
	}
	return string(out), nil
}
