package kbuild

import (
	"io/fs"
	"sort"
	"strings"
)

// DiscoverArchs enumerates the architecture set for a tree: the directory
// names directly under arch/, sorted lexicographically so that any two
// runs over the same tree agree on iteration order (§5's ordering
// guarantee ultimately rests on this being deterministic).
func DiscoverArchs(fsys fs.FS) []string {
	entries, err := fs.ReadDir(fsys, "arch")
	if err != nil {
		return nil
	}
	var archs []string
	for _, e := range entries {
		if e.IsDir() {
			archs = append(archs, e.Name())
		}
	}
	sort.Strings(archs)
	return archs
}

// HasExtension reports whether path ends in one of the given extensions
// (each given without the leading dot, e.g. "c", "S", "rs").
func HasExtension(path string, exts ...string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(path, "."+ext) {
			return true
		}
	}
	return false
}

// TopLevelComponent returns the first path component of a slash-separated
// path, e.g. "drivers/net/foo.c" -> "drivers".
func TopLevelComponent(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
