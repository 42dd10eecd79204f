// Package variant lowers the checked AST to an execution graph for
// one concrete set of instrument globals, starting from the voice and
// fx entry points.
package variant

import (
	"github.com/viant/wavelang/compiler/ast"
	"github.com/viant/wavelang/compiler/diag"
)

// Entry point module names in the top-level source file.
const (
	VoiceEntryPointName = "voice_main"
	FXEntryPointName    = "fx_main"
)

// Builtin instrument-global value names injected into every file's
// global scope; their values are substituted per variant.
const (
	BuiltinSampleRate = "sample_rate"
	BuiltinMaxVoices  = "max_voices"
	BuiltinChunkSize  = "chunk_size"
)

// InjectBuiltins adds the instrument-global builtin values to a file's
// global scope.
func InjectBuiltins(scope *ast.Scope) {
	for _, name := range []string{BuiltinSampleRate, BuiltinMaxVoices, BuiltinChunkSize} {
		scope.AddImported(&ast.ValueDecl{
			DeclName:       name,
			DeclVisibility: ast.VisibilityPublic,
			Type:           ast.Qualified(ast.PrimitiveReal, false, ast.MutabilityConstant),
			Builtin:        name,
		}, true)
	}
}

// ExtractEntryPoints locates and validates voice_main and fx_main in
// the top-level file's global scope. Initializers on entry-point
// arguments produce a warning and are ignored.
func ExtractEntryPoints(sink *diag.Sink, topLevel *ast.FileUnit) (voice, fx *ast.ModuleDecl) {
	failed := false
	entryPoints := [2]*ast.ModuleDecl{}
	names := [2]string{VoiceEntryPointName, FXEntryPointName}
	voiceArgumentCount := 0

	for index, name := range names {
		var entryPoint *ast.ModuleDecl
		for _, declaration := range topLevel.GlobalScope.LookupLocal(name) {
			module, isModule := declaration.(*ast.ModuleDecl)
			if !isModule {
				continue
			}
			if entryPoint != nil {
				failed = true
				entryPoint = nil
				location := module.DeclLocation
				sink.Errorf(diag.ErrorAmbiguousEntryPoint, &location,
					"Entry point '%s' cannot be overloaded", name)
				break
			}
			entryPoint = module
		}
		entryPoints[index] = entryPoint
		if entryPoint == nil {
			continue
		}

		location := entryPoint.DeclLocation
		boolType := ast.Qualified(ast.PrimitiveBool, false, ast.MutabilityVariable)
		realType := ast.Qualified(ast.PrimitiveReal, false, ast.MutabilityVariable)

		if !entryPoint.ReturnType.IsAssignableTo(boolType) {
			failed = true
			sink.Errorf(diag.ErrorInvalidEntryPoint, &location,
				"Entry point '%s' must have return type '%s', not '%s'",
				name, boolType.String(), entryPoint.ReturnType.String())
		}

		anyOut := false
		for argIndex, argument := range entryPoint.Arguments {
			expected := ast.DirectionOut
			if index == 1 && argIndex < voiceArgumentCount {
				expected = ast.DirectionIn
			}
			argLocation := argument.Loc
			if argument.Direction != expected {
				failed = true
				direction := "out"
				if expected == ast.DirectionIn {
					direction = "in"
				}
				sink.Errorf(diag.ErrorInvalidEntryPoint, &argLocation,
					"Entry point '%s' argument '%s' must be an %s argument",
					name, argument.Name, direction)
			}
			if argument.Direction == ast.DirectionOut {
				anyOut = true
			}

			assignable := false
			if expected == ast.DirectionIn {
				assignable = realType.IsAssignableTo(argument.Type)
			} else {
				assignable = argument.Type.IsAssignableTo(realType)
			}
			if !assignable {
				failed = true
				sink.Errorf(diag.ErrorInvalidEntryPoint, &argLocation,
					"Entry point '%s' argument '%s' must be of type '%s', not '%s'",
					name, argument.Name, realType.String(), argument.Type.String())
			}

			if argument.Initializer != nil {
				sink.Warningf(diag.WarningEntryPointArgumentInitializerIgnored, &argLocation,
					"Initializer for entry point '%s' argument '%s' will be ignored",
					name, argument.Name)
			}
		}
		if index == 0 {
			voiceArgumentCount = len(entryPoint.Arguments)
		}
		if !anyOut {
			failed = true
			sink.Errorf(diag.ErrorInvalidEntryPoint, &location,
				"Entry point '%s' has no out arguments", name)
		}
	}

	if failed {
		return nil, nil
	}
	if entryPoints[0] == nil && entryPoints[1] == nil {
		sink.Errorf(diag.ErrorMissingEntryPoint, nil, "No entry point provided")
		return nil, nil
	}
	if entryPoints[0] != nil && entryPoints[1] != nil {
		fxInCount := 0
		for _, argument := range entryPoints[1].Arguments {
			if argument.Direction == ast.DirectionIn {
				fxInCount++
			}
		}
		if fxInCount != len(entryPoints[0].Arguments) {
			sink.Errorf(diag.ErrorIncompatibleEntryPoints, nil,
				"Entry point '%s' out arguments do not correspond to entry point '%s' in arguments",
				VoiceEntryPointName, FXEntryPointName)
			return nil, nil
		}
	}
	return entryPoints[0], entryPoints[1]
}
