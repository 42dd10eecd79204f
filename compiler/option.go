package compiler

import (
	"io"

	"github.com/ternarybob/arbor"
	"github.com/viant/afs"
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithFS sets the afs service used to read source files. Tests pass a
// service resolving mem:// URLs.
func WithFS(fs afs.Service) Option {
	return func(c *Compiler) {
		c.fs = fs
	}
}

// WithLibraryDirs sets the directories probed for top-level imports
// after the top-level file's own directory.
func WithLibraryDirs(dirs ...string) Option {
	return func(c *Compiler) {
		c.libraryDirs = append(c.libraryDirs, dirs...)
	}
}

// WithDiagnosticWriter streams diagnostics as they are collected.
func WithDiagnosticWriter(w io.Writer) Option {
	return func(c *Compiler) {
		c.diagnosticWriter = w
	}
}

// WithLogger sets the pipeline progress logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}
