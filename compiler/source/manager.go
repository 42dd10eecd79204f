package source

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
)

// MaxFileSize bounds how much of a source file the compiler will read.
const MaxFileSize = 16 * 1024 * 1024

// Handle identifies a source file owned by the Manager. The top-level
// source file is always handle 0.
type Handle int32

// InvalidHandle marks the absence of a source file.
const InvalidHandle Handle = -1

// IsValid reports whether the handle refers to a source file.
func (h Handle) IsValid() bool {
	return h >= 0
}

// Location is a position within a source file.
type Location struct {
	File Handle `yaml:"file"`
	Line int    `yaml:"line"`
	Char int    `yaml:"char"`
}

// File is one source file known to the manager. Artifacts derived from
// it (tokens, parse tree, AST) are owned by the compilation context,
// not here.
type File struct {
	Path string // canonical path, unique key
	Data []byte
}

// Manager owns source files keyed by canonical path. Files are created
// when first referenced and never removed until compilation ends.
type Manager struct {
	fs      afs.Service
	files   []*File
	handles map[string]Handle
}

// NewManager returns a manager reading through the supplied afs
// service. A nil service defaults to afs.New().
func NewManager(fs afs.Service) *Manager {
	if fs == nil {
		fs = afs.New()
	}
	return &Manager{
		fs:      fs,
		handles: map[string]Handle{},
	}
}

// Canonicalize normalizes a path so that equivalent spellings map to
// one key. URL-style paths (mem://, file://) keep their scheme.
func Canonicalize(path string) string {
	if strings.Contains(path, "://") {
		scheme, rest, _ := strings.Cut(path, "://")
		return scheme + "://" + filepath.ToSlash(filepath.Clean("/"+rest))[1:]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// GetOrAdd canonicalizes the path and returns the handle of the
// matching file, creating one if needed. wasNew lets the caller decide
// whether to enqueue the file for lexing.
func (m *Manager) GetOrAdd(path string) (handle Handle, wasNew bool) {
	canonical := Canonicalize(path)
	if existing, ok := m.handles[canonical]; ok {
		return existing, false
	}
	handle = Handle(len(m.files))
	m.files = append(m.files, &File{Path: canonical})
	m.handles[canonical] = handle
	return handle, true
}

// Get yields the source file for a handle.
func (m *Manager) Get(handle Handle) *File {
	return m.files[handle]
}

// Count returns the number of files currently known. New imports may
// grow this while the caller iterates, which is how import discovery
// converges.
func (m *Manager) Count() int {
	return len(m.files)
}

// Path returns the canonical path for a handle, or "" when invalid.
func (m *Manager) Path(handle Handle) string {
	if !handle.IsValid() || int(handle) >= len(m.files) {
		return ""
	}
	return m.files[handle].Path
}

// Exists probes whether a candidate import path resolves to a readable
// object without creating a handle for it.
func (m *Manager) Exists(ctx context.Context, path string) bool {
	ok, err := m.fs.Exists(ctx, Canonicalize(path))
	return err == nil && ok
}

// Read errors distinguished for diagnostics.
var (
	ErrFailedToOpen = fmt.Errorf("failed to open source file")
	ErrFailedToRead = fmt.Errorf("failed to read source file")
	ErrFileTooBig   = fmt.Errorf("source file too big")
)

// Load reads the file's bytes into memory. The caller converts the
// returned sentinel errors into diagnostics.
func (m *Manager) Load(ctx context.Context, handle Handle) error {
	file := m.files[handle]
	reader, err := m.fs.OpenURL(ctx, file.Path)
	if err != nil {
		return ErrFailedToOpen
	}
	defer reader.Close()
	data, err := io.ReadAll(io.LimitReader(reader, MaxFileSize+1))
	if err != nil {
		return ErrFailedToRead
	}
	if len(data) > MaxFileSize {
		return ErrFileTooBig
	}
	file.Data = data
	return nil
}
