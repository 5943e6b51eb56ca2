// Package memory implements the per-process virtual address space: an
// unordered set of non-overlapping byte regions plus typed, byte-order
// aware loads and stores used as the emulator's only path to guest
// memory.
//
// Addresses are always resolved through Resolve before any access; no
// raw pointer into a region's backing bytes is ever handed back to a
// caller, so a region can be freed or reused without leaving a dangling
// reference anywhere outside this package.
package memory

import (
	"encoding/binary"
	"errors"
)

// ErrOverlap is returned by AddRegion when the new region's inclusive
// virtual range intersects an existing region.
var ErrOverlap = errors.New("memory: region overlaps an existing region")

// ErrUnmapped is returned by every load/store when an address does not
// fall within any region (Resolve reports the same case as ok=false).
// The CPU treats it as fatal and halts; the syscall surface turns it
// into a negative return. This package itself never panics or
// otherwise aborts the process.
var ErrUnmapped = errors.New("memory: unmapped address")

// ErrStraddle is returned when a multi-byte access would cross a
// region boundary. The specification leaves straddling behavior
// implementation-defined with the sole constraint that it be
// deterministic; this implementation chooses to fault rather than
// stitch bytes across two regions, keeping a single fault path for both
// "no region" and "wrong region" failures.
var ErrStraddle = errors.New("memory: access straddles a region boundary")

// Region is one contiguous run of guest-visible bytes, owned
// exclusively by the AddressSpace that holds it.
type Region struct {
	start uint64
	bytes []byte
}

// NewRegion allocates a region of len(data) bytes at the given virtual
// start address, copying data into the region's backing storage.
func NewRegion(start uint64, data []byte) *Region {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Region{start: start, bytes: buf}
}

// NewZeroRegion allocates a zero-filled region of size bytes.
func NewZeroRegion(start uint64, size uint64) *Region {
	return &Region{start: start, bytes: make([]byte, size)}
}

// Start returns the region's virtual start address.
func (r *Region) Start() uint64 { return r.start }

// End returns the address one past the region's last byte (exclusive).
// A region reaching the very top of the 64-bit address space (the
// process stack, per spec.md §4.5 step 2) has no representable
// exclusive end in uint64 arithmetic; End reports 0 for that case, and
// callers use atTop/contains rather than raw End comparisons.
func (r *Region) End() uint64 { return r.start + uint64(len(r.bytes)) }

// atTop reports whether this region's bytes run off the end of the
// representable address space (start+len overflows uint64).
func (r *Region) atTop() bool {
	return r.start+uint64(len(r.bytes)) < r.start && len(r.bytes) > 0
}

// Len returns the region's size in bytes.
func (r *Region) Len() uint64 { return uint64(len(r.bytes)) }

func (r *Region) contains(addr uint64) bool {
	if r.atTop() {
		return addr >= r.start
	}
	return addr >= r.start && addr < r.End()
}

func (r *Region) overlaps(o *Region) bool {
	rEnd, oEnd := r.End(), o.End()
	if r.atTop() {
		rEnd = ^uint64(0)
	}
	if o.atTop() {
		oEnd = ^uint64(0)
	}
	if r.atTop() || o.atTop() {
		return r.start <= oEnd && o.start <= rEnd
	}
	return r.start < oEnd && o.start < rEnd
}

// AddressSpace is an unordered collection of pairwise-disjoint regions
// serving one process.
type AddressSpace struct {
	regions []*Region
}

// NewAddressSpace returns an empty address space.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{}
}

// AddRegion inserts r, failing with ErrOverlap if its range intersects
// any existing region. Regions are never split, merged, or reordered.
func (as *AddressSpace) AddRegion(r *Region) error {
	for _, existing := range as.regions {
		if existing.overlaps(r) {
			return ErrOverlap
		}
	}
	as.regions = append(as.regions, r)
	return nil
}

// RemoveRegion removes the region whose virtual start address is start,
// reporting whether such a region was found.
func (as *AddressSpace) RemoveRegion(start uint64) bool {
	for i, r := range as.regions {
		if r.start == start {
			as.regions = append(as.regions[:i], as.regions[i+1:]...)
			return true
		}
	}
	return false
}

// Regions returns the address space's regions in no particular order.
// Callers must not retain the returned slice across a region add/remove.
func (as *AddressSpace) Regions() []*Region { return as.regions }

// Resolve locates the region containing addr. Returns ok=false if no
// region contains it.
func (as *AddressSpace) Resolve(addr uint64) (r *Region, offset uint64, ok bool) {
	for _, region := range as.regions {
		if region.contains(addr) {
			return region, addr - region.start, true
		}
	}
	return nil, 0, false
}

func (as *AddressSpace) span(addr uint64, width uint64) (*Region, uint64, error) {
	r, off, ok := as.Resolve(addr)
	if !ok {
		return nil, 0, ErrUnmapped
	}
	if off+width > r.Len() {
		return nil, 0, ErrStraddle
	}
	return r, off, nil
}

// LoadU8 reads one byte at addr.
func (as *AddressSpace) LoadU8(addr uint64) (uint8, error) {
	r, off, err := as.span(addr, 1)
	if err != nil {
		return 0, err
	}
	return r.bytes[off], nil
}

// StoreU8 writes one byte at addr.
func (as *AddressSpace) StoreU8(addr uint64, v uint8) error {
	r, off, err := as.span(addr, 1)
	if err != nil {
		return err
	}
	r.bytes[off] = v
	return nil
}

// LoadU16 reads a native-byte-order (little-endian) halfword at addr.
func (as *AddressSpace) LoadU16(addr uint64) (uint16, error) {
	r, off, err := as.span(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.bytes[off:]), nil
}

// StoreU16 writes a little-endian halfword at addr.
func (as *AddressSpace) StoreU16(addr uint64, v uint16) error {
	r, off, err := as.span(addr, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(r.bytes[off:], v)
	return nil
}

// LoadU32 reads a little-endian word at addr.
func (as *AddressSpace) LoadU32(addr uint64) (uint32, error) {
	r, off, err := as.span(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.bytes[off:]), nil
}

// StoreU32 writes a little-endian word at addr.
func (as *AddressSpace) StoreU32(addr uint64, v uint32) error {
	r, off, err := as.span(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(r.bytes[off:], v)
	return nil
}

// LoadU64 reads a little-endian doubleword at addr.
func (as *AddressSpace) LoadU64(addr uint64) (uint64, error) {
	r, off, err := as.span(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.bytes[off:]), nil
}

// StoreU64 writes a little-endian doubleword at addr.
func (as *AddressSpace) StoreU64(addr uint64, v uint64) error {
	r, off, err := as.span(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(r.bytes[off:], v)
	return nil
}

// LoadInstHalfword performs the instruction-fetch primitive required by
// the decoder: a single aligned 16-bit little-endian load. The decoder
// reads one halfword to learn the instruction's length (compressed vs.
// base) before deciding whether a second halfword is needed, so this is
// always a halfword load, never a 32-bit load performed in one step.
func (as *AddressSpace) LoadInstHalfword(addr uint64) (uint16, error) {
	return as.LoadU16(addr)
}

// WriteBytes copies data into the address space starting at addr,
// failing if any byte of the range is unmapped or straddles a region.
// Used by the process loader to write argv/env strings and the argv
// pointer array, and by syscall handlers copying into guest buffers.
func (as *AddressSpace) WriteBytes(addr uint64, data []byte) error {
	r, off, err := as.span(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(r.bytes[off:], data)
	return nil
}

// ReadBytes copies n bytes starting at addr into a new slice, failing
// if any byte of the range is unmapped or straddles a region.
func (as *AddressSpace) ReadBytes(addr uint64, n uint64) ([]byte, error) {
	r, off, err := as.span(addr, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.bytes[off:off+n])
	return out, nil
}
