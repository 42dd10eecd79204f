package source

import (
	"path"
	"path/filepath"
	"strings"
)

// Dir returns a path's directory, preserving URL schemes such as
// mem:// and file://.
func Dir(p string) string {
	if scheme, rest, ok := strings.Cut(p, "://"); ok {
		return scheme + "://" + path.Dir(rest)
	}
	return filepath.Dir(p)
}

// Join joins path components onto a directory, preserving URL
// schemes.
func Join(dir string, parts ...string) string {
	if scheme, rest, ok := strings.Cut(dir, "://"); ok {
		return scheme + "://" + path.Join(append([]string{rest}, parts...)...)
	}
	return filepath.Join(append([]string{dir}, parts...)...)
}
