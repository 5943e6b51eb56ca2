// Package process implements the loader (C5): materializing an ELF
// image, argv, and environment into a fresh virtual address space and
// CPU, plus the auxiliary per-process state (open-file table, cwd,
// environment, user-space allocator, lifecycle) the syscall surface
// operates on.
package process

import (
	"github.com/google/uuid"

	"rv64kernel/internal/alloc"
	"rv64kernel/internal/memory"
	"rv64kernel/internal/riscv"
)

// Lifecycle is the process's observable run state, read back by the
// shell after a tick loop stops (SPEC_FULL.md §6: additive, read-only
// state not present in the distilled spec's syscall table).
type Lifecycle int

const (
	LifecycleRunning Lifecycle = iota
	LifecycleExited
)

// StackSize is the fixed stack region size required by spec.md §4.5
// step 2.
const StackSize = 8 * 1024

// Process bundles everything one loaded guest program needs: its CPU
// state, its address space, its syscall-facing auxiliary data, and a
// uuid identifying it across log lines.
type Process struct {
	ID uuid.UUID

	CPU       *riscv.CPU
	Space     *memory.AddressSpace
	UserAlloc *alloc.Allocator

	Files *FileTable
	Cwd   string
	Env   map[string]uint64

	Argv uint64
	Argc uint64

	lifecycle Lifecycle
	exitCode  int32
}

// Lifecycle reports whether the process is still running.
func (p *Process) Lifecycle() Lifecycle { return p.lifecycle }

// ExitCode returns the code recorded when the process last exited. The
// second return value is false if the process has not exited.
func (p *Process) ExitCode() (int32, bool) {
	if p.lifecycle != LifecycleExited {
		return 0, false
	}
	return p.exitCode, true
}

// MarkExited transitions the process to Exited, called by the syscall
// surface's exit() handler.
func (p *Process) MarkExited(code int32) {
	p.lifecycle = LifecycleExited
	p.exitCode = code
}
