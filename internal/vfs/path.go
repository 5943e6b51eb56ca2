// Package vfs defines the node/path abstraction the kernel core
// consumes: a canonical Path type, File and Folder capability
// interfaces, an arena-indexed in-memory filesystem implementing them,
// and an Overlay folder decorator implementing mount union/shadow
// semantics. ext2, devfs, and disk-backed filesystems are external
// collaborators outside this package's scope; memfs exists so the
// syscall surface has a real implementation to resolve paths against
// and exercise in tests. The loader takes raw image bytes and does not
// use this package.
package vfs

import "strings"

// Canonicalize collapses a path into its canonical form: absolute,
// beginning with "/", with empty segments collapsed and ".." segments
// resolved against their parent. A ".." at the root is absorbed (it
// can never escape above "/"). This is deliberately not path.Clean:
// path.Clean can leave a leading ".." for a path with more ".."
// segments than real ones, which is unacceptable for a path a guest
// process cannot be allowed to use to climb outside its rootfs.
func Canonicalize(p string) string {
	segments := strings.Split(p, "/")
	stack := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			// collapse empty and current-dir segments
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	return "/" + strings.Join(stack, "/")
}

// Join canonicalizes the combination of a base directory and a
// (possibly relative) path, matching a guest open() call's cwd-relative
// resolution.
func Join(cwd, p string) string {
	if strings.HasPrefix(p, "/") {
		return Canonicalize(p)
	}
	return Canonicalize(cwd + "/" + p)
}

// Split returns a path's parent directory and final segment.
// Split("/a/b/c") returns ("/a/b", "c"). Split("/") returns ("/", "").
func Split(p string) (dir, name string) {
	p = Canonicalize(p)
	if p == "/" {
		return "/", ""
	}
	idx := strings.LastIndexByte(p, '/')
	dir = p[:idx]
	if dir == "" {
		dir = "/"
	}
	return dir, p[idx+1:]
}
