package vfs

import "sync"

// memFile is an in-memory File backed by a byte slice.
type memFile struct {
	mu   sync.Mutex
	data []byte
}

func newMemFile() *memFile { return &memFile{} }

func (f *memFile) ReadAt(buf []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off < 0 || off >= int64(len(f.data)) {
		return 0, nil
	}
	n := copy(buf, f.data[off:])
	return n, nil
}

func (f *memFile) WriteAt(buf []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	end := off + int64(len(buf))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[off:end], buf)
	return len(buf), nil
}

func (f *memFile) Resize(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size <= int64(len(f.data)) {
		f.data = f.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, f.data)
	f.data = grown
	return nil
}

func (f *memFile) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.data))
}

// child is one named entry of a folder record: either a nested folder
// (by arena index) or a leaf file.
type child struct {
	name      string
	folderIdx int // valid iff file == nil
	file      *memFile
}

// folderRecord is one arena slot. generation is bumped whenever the
// slot is reused after a removal, invalidating any outstanding
// folderHandle that still points at the old generation — the
// cycle/use-after-free guard spec.md §9 calls for.
type folderRecord struct {
	generation uint64
	live       bool
	children   []child
	parent     int // arena index of parent; root is its own parent
}

// Arena owns every folder record in one filesystem, indexed by stable
// slot number. Folder capabilities handed out to callers are
// (index, generation) pairs, never raw pointers into this slice, so a
// removed-then-reused slot cannot be mistaken for the folder that used
// to live there.
type Arena struct {
	mu      sync.RWMutex
	records []folderRecord
}

// NewMemFS creates a filesystem with a single root folder and returns
// its Folder capability.
func NewMemFS() Folder {
	a := &Arena{records: []folderRecord{{generation: 0, live: true, parent: 0}}}
	return &folderHandle{arena: a, index: 0, generation: 0}
}

func (a *Arena) alloc(parent int) int {
	for i := range a.records {
		if !a.records[i].live {
			a.records[i].live = true
			a.records[i].generation++
			a.records[i].children = nil
			a.records[i].parent = parent
			return i
		}
	}
	a.records = append(a.records, folderRecord{live: true, parent: parent})
	return len(a.records) - 1
}

// folderHandle is the Folder capability: an index+generation pair into
// an Arena, per spec.md §9's arena-of-indices design note.
type folderHandle struct {
	arena      *Arena
	index      int
	generation uint64
}

func (h *folderHandle) record() (*folderRecord, bool) {
	h.arena.mu.RLock()
	defer h.arena.mu.RUnlock()
	if h.index >= len(h.arena.records) {
		return nil, false
	}
	r := h.arena.records[h.index]
	if !r.live || r.generation != h.generation {
		return nil, false
	}
	return &r, true
}

func (h *folderHandle) Enumerate() ([]string, error) {
	r, ok := h.record()
	if !ok {
		return nil, ErrNotFound
	}
	names := make([]string, len(r.children))
	for i, c := range r.children {
		names[i] = c.name
	}
	return names, nil
}

func (h *folderHandle) Lookup(name string) (Node, error) {
	r, ok := h.record()
	if !ok {
		return nil, ErrNotFound
	}
	for _, c := range r.children {
		if c.name != name {
			continue
		}
		if c.file != nil {
			return FileNode(c.file), nil
		}
		h.arena.mu.RLock()
		gen := h.arena.records[c.folderIdx].generation
		h.arena.mu.RUnlock()
		return FolderNode(&folderHandle{arena: h.arena, index: c.folderIdx, generation: gen}), nil
	}
	return nil, ErrNotFound
}

func (h *folderHandle) CreateFile(name string) (File, error) {
	h.arena.mu.Lock()
	defer h.arena.mu.Unlock()
	r := &h.arena.records[h.index]
	if !r.live || r.generation != h.generation {
		return nil, ErrNotFound
	}
	for _, c := range r.children {
		if c.name == name {
			return nil, ErrExists
		}
	}
	f := newMemFile()
	r.children = append(r.children, child{name: name, file: f})
	return f, nil
}

func (h *folderHandle) CreateFolder(name string) (Folder, error) {
	h.arena.mu.Lock()
	defer h.arena.mu.Unlock()
	r := &h.arena.records[h.index]
	if !r.live || r.generation != h.generation {
		return nil, ErrNotFound
	}
	for _, c := range r.children {
		if c.name == name {
			return nil, ErrExists
		}
	}
	idx := h.arena.alloc(h.index)
	r = &h.arena.records[h.index] // alloc may have reallocated the slice
	r.children = append(r.children, child{name: name, folderIdx: idx})
	gen := h.arena.records[idx].generation
	return &folderHandle{arena: h.arena, index: idx, generation: gen}, nil
}

func (h *folderHandle) Unlink(name string) error {
	h.arena.mu.Lock()
	defer h.arena.mu.Unlock()
	r := &h.arena.records[h.index]
	if !r.live || r.generation != h.generation {
		return ErrNotFound
	}
	for i, c := range r.children {
		if c.name != name {
			continue
		}
		if c.file == nil {
			h.arena.records[c.folderIdx].live = false
		}
		r.children = append(r.children[:i], r.children[i+1:]...)
		return nil
	}
	return ErrNotFound
}
