package syscall

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rv64kernel/internal/alloc"
	"rv64kernel/internal/memory"
	"rv64kernel/internal/process"
	"rv64kernel/internal/riscv"
	"rv64kernel/internal/vfs"
)

func newTestProcess(t *testing.T) (*process.Process, *Table) {
	t.Helper()
	space := memory.NewAddressSpace()
	require.NoError(t, space.AddRegion(memory.NewZeroRegion(0, 0x8000)))

	p := &process.Process{
		Space:     space,
		UserAlloc: alloc.New(0x8000, 0x8000, 0),
		Files:     process.NewFileTable(),
		Cwd:       "/",
	}
	root := vfs.NewMemFS()
	tbl := &Table{Root: &Root{Folder: root}, Proc: p}
	p.CPU = riscv.New(space, 0, tbl.Dispatch)
	return p, tbl
}

// S3 — Heap round-trip: malloc(128) returns P, store bytes 0..127 to
// [P, P+128), read them back, and the read matches byte-for-byte.
func TestScenarioHeapRoundTrip(t *testing.T) {
	p, tbl := newTestProcess(t)
	cpu := p.CPU

	cpu.SetReg(10, 128)
	result := tbl.sysMalloc(cpu)
	require.Greater(t, result, int64(0))
	addr := uint64(result)

	for i := uint64(0); i < 128; i++ {
		require.NoError(t, p.Space.StoreU8(addr+i, byte(i)))
	}
	for i := uint64(0); i < 128; i++ {
		v, err := p.Space.LoadU8(addr + i)
		require.NoError(t, err)
		require.Equal(t, byte(i), v)
	}
}

// Allocator exhaustion must surface as a negative syscall return, the
// same convention every other handler in this table follows, not as an
// address a guest could mistake for virtual address 0.
func TestMallocExhaustionReturnsNegativeError(t *testing.T) {
	p, tbl := newTestProcess(t)
	cpu := p.CPU
	cpu.SetReg(10, 1<<20) // far larger than newTestProcess's user heap window
	require.Equal(t, int64(errNoMem), tbl.sysMalloc(cpu))
}

func TestOpenReadWrite(t *testing.T) {
	p, tbl := newTestProcess(t)
	root := tbl.Root.Folder
	f, err := root.CreateFile("greeting")
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)

	// write the path string "/greeting\0" into guest memory at 0x100
	pathAddr := uint64(0x100)
	require.NoError(t, p.Space.WriteBytes(pathAddr, append([]byte("/greeting"), 0)))

	cpu := p.CPU
	cpu.SetReg(10, pathAddr)
	fd := tbl.sysOpen(cpu)
	require.GreaterOrEqual(t, fd, int64(0))

	bufAddr := uint64(0x200)
	cpu.SetReg(10, uint64(fd))
	cpu.SetReg(11, bufAddr)
	cpu.SetReg(12, 5)
	n := tbl.sysRead(cpu)
	require.Equal(t, int64(5), n)

	got, err := p.Space.ReadBytes(bufAddr, 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestBadFDReturnsNegativeError(t *testing.T) {
	p, tbl := newTestProcess(t)
	cpu := p.CPU
	cpu.SetReg(10, 99)
	n := tbl.sysRead(cpu)
	require.Equal(t, int64(errBadFD), n)
}
