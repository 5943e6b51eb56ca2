package process

import (
	"errors"

	"rv64kernel/internal/vfs"
)

// ErrBadFD is returned when a syscall references a file descriptor
// that is not currently open.
var ErrBadFD = errors.New("process: bad file descriptor")

// OpenFile is one entry of a process's open-file table: a file
// capability plus a per-fd cursor, as required by lseek/read/write.
type OpenFile struct {
	File   vfs.File
	Cursor int64
}

// FileTable is a process's open-file table, indexed by small integers
// per spec.md §3's Process data model. Slots are reused once closed so
// fd numbers stay small.
type FileTable struct {
	entries []*OpenFile
}

// NewFileTable returns an empty file table.
func NewFileTable() *FileTable {
	return &FileTable{}
}

// Open installs f as a new open file, returning its fd.
func (t *FileTable) Open(f vfs.File) int {
	for i, e := range t.entries {
		if e == nil {
			t.entries[i] = &OpenFile{File: f}
			return i
		}
	}
	t.entries = append(t.entries, &OpenFile{File: f})
	return len(t.entries) - 1
}

// Get returns the open file at fd.
func (t *FileTable) Get(fd int) (*OpenFile, error) {
	if fd < 0 || fd >= len(t.entries) || t.entries[fd] == nil {
		return nil, ErrBadFD
	}
	return t.entries[fd], nil
}

// Close releases fd, freeing its slot for reuse.
func (t *FileTable) Close(fd int) error {
	if fd < 0 || fd >= len(t.entries) || t.entries[fd] == nil {
		return ErrBadFD
	}
	t.entries[fd] = nil
	return nil
}
