// Package alloc implements a stack-shaped bump allocator with a
// fixed-capacity side table for deferred, non-top-of-stack frees.
//
// An Allocator owns a half-open byte window [base, base+len). Allocation
// advances a monotonic watermark from the base; deallocation either
// retracts the watermark immediately (when the freed block sits exactly
// at the top of the stack) or, when it does not, records the block in a
// side table to be reclaimed later by cascading frees from the top down.
//
// The type backs each process's user-space virtual allocator
// (internal/process), and Locked wraps an instance for use as a shared
// heap; callers pick the window in New. No kernel-heap instance is
// created anywhere in this tree.
package alloc

import (
	"errors"
	"sort"
	"sync"
)

// ErrExhausted is returned by Allocate when the window has no room left
// for the requested size and alignment.
var ErrExhausted = errors.New("alloc: allocator exhausted")

// sideEntry records a free that could not be reclaimed immediately.
type sideEntry struct {
	ptr    uint64
	size   uint64
	align  uint64
	isPad  bool // synthetic entry recording alignment padding, not a real free
}

// Allocator is a bump allocator over [base, base+len). Not safe for
// concurrent use by itself; a shared instance is wrapped in a mutex by
// its owner (see Locked) while per-process instances are used
// from the single core thread only and need no locking.
type Allocator struct {
	base uint64
	len  uint64

	next       uint64 // bytes reserved from base, i.e. watermark
	allocCount int64

	sideTable []sideEntry
	sideCap   int
}

// MinSideTableCapacity is the specification-mandated floor on how many
// deferred frees an allocator must be able to record before it starts
// leaking.
const MinSideTableCapacity = 1024

// New creates an allocator over the half-open window [base, base+len).
// sideCap is clamped up to MinSideTableCapacity.
func New(base, length uint64, sideCap int) *Allocator {
	if sideCap < MinSideTableCapacity {
		sideCap = MinSideTableCapacity
	}
	return newUnclamped(base, length, sideCap)
}

// newUnclamped builds an allocator without enforcing the
// MinSideTableCapacity floor, so tests can force a small side table and
// exercise the leak-on-overflow path directly; every production caller
// goes through New instead.
func newUnclamped(base, length uint64, sideCap int) *Allocator {
	if sideCap < 0 {
		sideCap = 0
	}
	return &Allocator{
		base:      base,
		len:       length,
		sideTable: make([]sideEntry, 0, sideCap),
		sideCap:   sideCap,
	}
}

// Reset reinitializes the allocator over a new window, discarding all
// state. Used when re-purposing a fixed Allocator value (e.g. tests).
func (a *Allocator) Reset(base, length uint64) {
	a.base = base
	a.len = length
	a.next = 0
	a.allocCount = 0
	a.sideTable = a.sideTable[:0]
}

// Used reports the number of bytes currently reserved from the top of
// the window, i.e. the watermark.
func (a *Allocator) Used() uint64 { return a.next }

// Capacity reports the total size of the allocator's window.
func (a *Allocator) Capacity() uint64 { return a.len }

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// Allocate reserves size bytes aligned to align (a power of two) and
// returns the base address of the reservation. It returns ErrExhausted
// if the window has no room; no allocator state is mutated beyond the
// alignment-padding bookkeeping in that case, matching the specified
// "leaked padding, nothing else" failure behavior.
func (a *Allocator) Allocate(size, align uint64) (uint64, error) {
	if align == 0 {
		align = 1
	}

	wantNext := alignUp(a.next, align)
	if wantNext > a.len {
		return 0, ErrExhausted
	}
	if pad := wantNext - a.next; pad > 0 {
		a.recordSideEntry(sideEntry{
			ptr:   a.base + a.next,
			size:  pad,
			align: 1,
			isPad: true,
		})
		a.next = wantNext
	}

	newNext := a.next + size
	if newNext > a.len || newNext < a.next {
		return 0, ErrExhausted
	}

	addr := a.base + a.next
	a.next = newNext
	a.allocCount++
	return addr, nil
}

// Free releases a previously-allocated (ptr, size, align) reservation.
// If the block sits at the current top of stack it is reclaimed
// immediately and may cascade into reclaiming previously-deferred
// side-table entries; otherwise it is recorded in the side table for
// later cascading reclamation, or leaked if the table is full.
func (a *Allocator) Free(ptr, size, align uint64) {
	if a.allocCount > 0 {
		a.allocCount--
	}

	if ptr+size == a.base+a.next {
		a.next -= size
		a.cascadeReclaim()
	} else {
		a.recordSideEntry(sideEntry{ptr: ptr, size: size, align: align})
	}

	if a.allocCount == 0 {
		a.next = 0
		a.sideTable = a.sideTable[:0]
	}
}

// recordSideEntry appends to the side table, silently leaking the entry
// (and thus the bytes it describes) if the table is already at
// capacity. Leaking is observable only via Used() never shrinking back
// to account for it, matching the specified failure policy.
func (a *Allocator) recordSideEntry(e sideEntry) {
	if len(a.sideTable) >= a.sideCap {
		return
	}
	a.sideTable = append(a.sideTable, e)
}

// cascadeReclaim pops side-table entries from the top of the (now
// lower) watermark downward for as long as the highest-address entry is
// itself at the new top of stack. Sorting is unconditional: at ≤1024
// entries this is cheap, and simplicity beats tracking a running
// max-heap for a table this small.
func (a *Allocator) cascadeReclaim() {
	for {
		if len(a.sideTable) == 0 {
			return
		}
		sort.Slice(a.sideTable, func(i, j int) bool {
			return a.sideTable[i].ptr > a.sideTable[j].ptr
		})
		top := a.sideTable[0]
		if top.ptr+top.size != a.base+a.next {
			return
		}
		a.next -= top.size
		a.sideTable = a.sideTable[1:]
	}
}

// Locked wraps an Allocator with a mutex scoped to each call, matching
// the concurrency discipline required of the shared kernel heap: a lock
// is acquired and released within a single allocate or free, never held
// across an emulator tick.
type Locked struct {
	mu sync.Mutex
	a  *Allocator
}

// NewLocked wraps the given allocator for concurrent use.
func NewLocked(a *Allocator) *Locked {
	return &Locked{a: a}
}

func (l *Locked) Allocate(size, align uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Allocate(size, align)
}

func (l *Locked) Free(ptr, size, align uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.a.Free(ptr, size, align)
}

func (l *Locked) Used() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Used()
}

func (l *Locked) Capacity() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Capacity()
}
