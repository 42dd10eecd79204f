// Package compiler orchestrates the offline compilation pipeline:
// source management, lexing, LR(1) parsing, import resolution,
// instrument-globals parsing, two-pass AST construction, per-variant
// lowering to execution graphs, and optimization. The result is an
// instrument holding one optimized graph per globals-product entry.
package compiler

import (
	"context"
	"errors"
	"io"

	"github.com/ternarybob/arbor"
	"github.com/viant/afs"

	"github.com/viant/wavelang/compiler/ast"
	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/compiler/grammar"
	"github.com/viant/wavelang/compiler/importer"
	"github.com/viant/wavelang/compiler/instrglobals"
	"github.com/viant/wavelang/compiler/lexer"
	"github.com/viant/wavelang/compiler/source"
	"github.com/viant/wavelang/compiler/variant"
	"github.com/viant/wavelang/execgraph"
	"github.com/viant/wavelang/instrument"
	"github.com/viant/wavelang/nativemodule"
	"github.com/viant/wavelang/nativemodule/corelib"
)

// Compiler drives the pipeline for one or more compilations.
type Compiler struct {
	registry *nativemodule.Registry

	fs               afs.Service
	libraryDirs      []string
	diagnosticWriter io.Writer
	logger           arbor.ILogger
}

// New builds a compiler over a finalized registry. A nil registry gets
// a fresh one with the core library registered and optimizations
// enabled.
func New(registry *nativemodule.Registry, options ...Option) (*Compiler, error) {
	if registry == nil {
		var err error
		registry, err = DefaultRegistry()
		if err != nil {
			return nil, err
		}
	}
	if !registry.Finalized() {
		return nil, errors.New("compiler requires a finalized native module registry")
	}
	c := &Compiler{registry: registry}
	for _, option := range options {
		if option != nil {
			option(c)
		}
	}
	if c.fs == nil {
		c.fs = afs.New()
	}
	return c, nil
}

// DefaultRegistry builds a registry holding the core library with
// optimizations enabled.
func DefaultRegistry() (*nativemodule.Registry, error) {
	registry := nativemodule.NewRegistry()
	if err := registry.BeginRegistration(true); err != nil {
		return nil, err
	}
	if err := corelib.Register(registry); err != nil {
		return nil, err
	}
	if err := registry.EndRegistration(); err != nil {
		return nil, err
	}
	return registry, nil
}

// Result of one compilation.
type Result struct {
	Instrument *instrument.Instrument
	Sink       *diag.Sink
}

// Compile runs the full pipeline on a top-level source file. On any
// error the returned Result carries a nil Instrument and the sink
// holds the diagnostics.
func (c *Compiler) Compile(ctx context.Context, sourcePath string) *Result {
	manager := source.NewManager(c.fs)
	sink := &diag.Sink{Writer: c.diagnosticWriter, PathFor: manager.Path}
	result := &Result{Sink: sink}

	wavelangParser, productions, err := grammar.Get()
	if err != nil {
		sink.Errorf(diag.ErrorUnexpectedToken, nil, "Grammar table generation failed: %v", err)
		return result
	}

	if !manager.Exists(ctx, sourcePath) {
		sink.Errorf(diag.ErrorFailedToFindFile, nil, "Failed to find file '%s'", sourcePath)
		return result
	}
	topLevel, _ := manager.GetOrAdd(sourcePath)

	resolver := &importer.Resolver{
		Sink:        sink,
		Manager:     manager,
		Registry:    c.registry,
		Productions: productions,
		LibraryDirs: c.libraryDirs,
	}

	globalsContext := &instrglobals.Context{}
	units := map[source.Handle]*ast.FileUnit{}
	imports := map[source.Handle][]*importer.Import{}

	// Lex, parse, and resolve imports; the file count grows as new
	// imports are discovered
	for index := 0; index < manager.Count(); index++ {
		handle := source.Handle(index)
		c.logDebug("compiling source file", manager.Path(handle))

		if err := manager.Load(ctx, handle); err != nil {
			code := diag.ErrorFailedToReadFile
			if errors.Is(err, source.ErrFailedToOpen) {
				code = diag.ErrorFailedToOpenFile
			}
			location := source.Location{File: handle}
			sink.Errorf(code, &location, "%v: '%s'", err, manager.Path(handle))
			continue
		}

		tokens, ok := lexer.Process(handle, manager.Get(handle).Data, sink)
		if !ok {
			continue
		}
		unit := &ast.FileUnit{Handle: handle, Tokens: tokens}

		cursor := 0
		tree, errorTokens := wavelangParser.Parse(func() (int, bool) {
			if cursor >= len(tokens) || tokens[cursor].Kind == lexer.KindEOF {
				return 0, false
			}
			terminal := int(tokens[cursor].Kind)
			cursor++
			return terminal, true
		})
		unit.Tree = tree
		units[handle] = unit
		if len(errorTokens) > 0 {
			errorToken := &tokens[min(errorTokens[0], len(tokens)-1)]
			location := errorToken.Location
			sink.Errorf(diag.ErrorUnexpectedToken, &location, "Unexpected token '%s'", errorToken.Text)
			continue
		}

		imports[handle] = resolver.Resolve(ctx, unit)
		instrglobals.Parse(sink, unit, productions, handle == topLevel, globalsContext)
	}
	globalsContext.AssignDefaults()

	// Fail early on lexer, parser, import, or globals errors
	if sink.ErrorCount() > 0 {
		return result
	}

	// Build all declarations, then pull in imports and build
	// definitions
	for index := 0; index < manager.Count(); index++ {
		ast.BuildDeclarations(sink, units[source.Handle(index)], productions)
	}
	for index := 0; index < manager.Count(); index++ {
		handle := source.Handle(index)
		unit := units[handle]
		variant.InjectBuiltins(unit.GlobalScope)
		resolver.AddImportsToGlobalScope(unit, imports[handle], func(h source.Handle) *ast.FileUnit {
			return units[h]
		})
	}
	for index := 0; index < manager.Count(); index++ {
		ast.BuildDefinitions(sink, units[source.Handle(index)], c.registry, productions)
	}
	if sink.ErrorCount() > 0 {
		return result
	}

	voice, fx := variant.ExtractEntryPoints(sink, units[topLevel])
	if sink.ErrorCount() > 0 {
		return result
	}

	compiled := instrument.New()
	for _, globals := range globalsContext.BuildGlobalsSet() {
		c.logDebug("building instrument variant", manager.Path(topLevel))
		graph := variant.Build(sink, c.registry, globals, voice, fx)
		if graph == nil || sink.ErrorCount() > 0 {
			return result
		}
		execgraph.Optimize(graph, sink)
		if sink.ErrorCount() > 0 {
			return result
		}
		compiled.AddVariant(graph)
	}

	if err := compiled.Validate(); err != nil {
		sink.Errorf(diag.ErrorInvalidNativeModuleImplementation, nil,
			"Compiled instrument failed validation: %v", err)
		return result
	}
	result.Instrument = compiled
	return result
}

func (c *Compiler) logDebug(message, path string) {
	if c.logger != nil {
		c.logger.Debug().Str("path", path).Msg(message)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
