package vfs

// Overlay decorates a native folder with a lower, overlay folder: its
// enumeration unions both folders' children, with native entries
// shadowing the overlay's on a name collision, per spec.md §3. Mutation
// (CreateFile/CreateFolder/Unlink) always targets the native folder —
// the overlay layer is never written to, matching the upper-shadows-
// lower convention moby's overlay graph driver uses for container image
// layers.
type Overlay struct {
	Native  Folder
	Overlay Folder
}

func (o *Overlay) Enumerate() ([]string, error) {
	native, err := o.Native.Enumerate()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(native))
	out := make([]string, 0, len(native))
	for _, n := range native {
		seen[n] = true
		out = append(out, n)
	}
	if o.Overlay != nil {
		overlay, err := o.Overlay.Enumerate()
		if err != nil {
			return nil, err
		}
		for _, n := range overlay {
			if !seen[n] {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func (o *Overlay) Lookup(name string) (Node, error) {
	if node, err := o.Native.Lookup(name); err == nil {
		return node, nil
	} else if err != ErrNotFound {
		return nil, err
	}
	if o.Overlay == nil {
		return nil, ErrNotFound
	}
	return o.Overlay.Lookup(name)
}

func (o *Overlay) CreateFile(name string) (File, error) {
	return o.Native.CreateFile(name)
}

func (o *Overlay) CreateFolder(name string) (Folder, error) {
	return o.Native.CreateFolder(name)
}

func (o *Overlay) Unlink(name string) error {
	return o.Native.Unlink(name)
}
