// Package importer resolves import directives against source files
// and native-module libraries, and materializes imported declarations
// into each file's global scope once declarations have been built.
package importer

import (
	"context"
	"strings"

	"github.com/viant/wavelang/compiler/ast"
	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/compiler/grammar"
	"github.com/viant/wavelang/compiler/source"
	"github.com/viant/wavelang/nativemodule"
)

// SourceExtension is appended to import path components when probing
// for source files.
const SourceExtension = ".wl"

// Import is one resolved import directive.
type Import struct {
	// PathString is the dotted spelling, for diagnostics.
	PathString string
	// AsComponents name the namespace chain the import lands in; empty
	// means the importing file's global scope.
	AsComponents []string

	SourceFile source.Handle
	Library    *nativemodule.Library
}

func identical(a, b *Import) bool {
	if a.SourceFile != b.SourceFile || a.Library != b.Library ||
		len(a.AsComponents) != len(b.AsComponents) {
		return false
	}
	for index := range a.AsComponents {
		if a.AsComponents[index] != b.AsComponents[index] {
			return false
		}
	}
	return true
}

// Resolver resolves and materializes imports.
type Resolver struct {
	Sink        *diag.Sink
	Manager     *source.Manager
	Registry    *nativemodule.Registry
	Productions *grammar.Productions
	// LibraryDirs are probed for top-level imports after the top-level
	// file's directory.
	LibraryDirs []string
}

// Resolve walks one parsed file and resolves its import directives.
// Duplicate imports are silently coalesced. New source files are added
// to the manager, extending the compilation worklist.
func (r *Resolver) Resolve(ctx context.Context, unit *ast.FileUnit) []*Import {
	tree := unit.Tree
	if tree.RootIndex() == -1 {
		return nil
	}
	var imports []*Import
	topItemList := tree.Children(tree.RootIndex())[0]
	for _, item := range grammar.FlattenList(tree, topItemList, r.Productions.TopItemListAppend, -1) {
		child := tree.Children(item)[0]
		if tree.Node(child).ProductionIndex() != r.Productions.Import {
			continue
		}
		if resolved := r.resolveOne(ctx, unit, child); resolved != nil {
			duplicate := false
			for _, existing := range imports {
				if identical(existing, resolved) {
					duplicate = true
					break
				}
			}
			if !duplicate {
				imports = append(imports, resolved)
			}
		}
	}
	return imports
}

func (r *Resolver) resolveOne(ctx context.Context, unit *ast.FileUnit, importNode int) *Import {
	tree := unit.Tree
	importToken := unit.Token(tree.Children(importNode)[0])
	location := importToken.Location
	body := tree.Children(importNode)[1]
	bodyChildren := tree.Children(body)

	native := tree.Node(body).ProductionIndex() == r.Productions.ImportBodyNative
	dotCount := 0
	var pathListNode, importAsNode int
	if native {
		pathListNode = bodyChildren[1]
		importAsNode = bodyChildren[2]
	} else {
		dotCount = len(grammar.FlattenList(tree, bodyChildren[0], r.Productions.DotListAppend, -1))
		pathListNode = bodyChildren[1]
		importAsNode = bodyChildren[2]
	}

	var components []string
	for _, componentNode := range grammar.FlattenList(tree, pathListNode,
		r.Productions.PathListAppend, r.Productions.PathListSingle) {
		components = append(components, unit.Token(componentNode).Text)
	}
	pathString := strings.Repeat(".", dotCount) + strings.Join(components, ".")

	result := &Import{PathString: pathString, SourceFile: source.InvalidHandle}
	importAsLocal := false
	if tree.Node(importAsNode).ProductionIndex() == r.Productions.ImportAsSome {
		target := tree.Children(importAsNode)[1]
		if tree.Node(target).ProductionIndex() == r.Productions.ImportAsLocal {
			importAsLocal = true
		} else {
			asPathList := tree.Children(target)[0]
			for _, componentNode := range grammar.FlattenList(tree, asPathList,
				r.Productions.PathListAppend, r.Productions.PathListSingle) {
				result.AsComponents = append(result.AsComponents, unit.Token(componentNode).Text)
			}
		}
	}
	if !importAsLocal && len(result.AsComponents) == 0 {
		result.AsComponents = append(result.AsComponents, components...)
	}

	// Build the list of directories to probe for a source file
	var directories []string
	attemptNative := native
	if !native {
		if dotCount > 0 {
			directory := source.Dir(r.Manager.Path(unit.Handle))
			for dot := 1; dot < dotCount; dot++ {
				directory = source.Join(directory, "..")
			}
			directories = append(directories, directory)
		} else {
			directories = append(directories, source.Dir(r.Manager.Path(0)))
			directories = append(directories, r.LibraryDirs...)
			attemptNative = true
		}
	}

	for _, directory := range directories {
		candidate := source.Join(directory, components...) + SourceExtension
		if !r.Manager.Exists(ctx, candidate) {
			continue
		}
		handle, _ := r.Manager.GetOrAdd(candidate)
		if handle == unit.Handle {
			r.Sink.Errorf(diag.ErrorSelfReferentialImport, &location, "Self-referential import encountered")
			return nil
		}
		result.SourceFile = handle
		return result
	}

	if attemptNative && dotCount == 0 && len(components) == 1 {
		if library := r.Registry.LibraryByName(components[0]); library != nil {
			result.Library = library
			return result
		}
	}

	r.Sink.Errorf(diag.ErrorFailedToResolveImport, &location,
		"Failed to resolve import '%s'", pathString)
	return nil
}

// AddImportsToGlobalScope materializes imported declarations into one
// file's global scope: native operator modules are implicitly imported
// into every file, then each import's public declarations (or
// synthesized native wrappers) land under the chosen name components.
func (r *Resolver) AddImportsToGlobalScope(unit *ast.FileUnit, imports []*Import, unitFor func(source.Handle) *ast.FileUnit) {
	for _, module := range r.Registry.Modules() {
		operator := r.Registry.ModuleOperator(module.Name)
		if operator == nativemodule.OperatorInvalid {
			continue
		}
		unit.GlobalScope.AddImported(moduleDeclarationForNativeModule(module, operator), true)
	}

	for _, imported := range imports {
		scope := unit.GlobalScope
		for _, component := range imported.AsComponents {
			var namespace *ast.NamespaceDecl
			for _, declaration := range scope.LookupLocal(component) {
				if found, ok := declaration.(*ast.NamespaceDecl); ok {
					namespace = found
					break
				}
			}
			if namespace == nil {
				namespace = &ast.NamespaceDecl{
					DeclName:       component,
					DeclVisibility: ast.VisibilityPublic,
					Scope:          ast.NewScope(nil),
				}
				scope.AddImported(namespace, true)
			}
			scope = namespace.Scope
		}

		if imported.SourceFile.IsValid() {
			importedUnit := unitFor(imported.SourceFile)
			if importedUnit == nil || importedUnit.GlobalScope == nil {
				continue
			}
			for _, declaration := range importedUnit.GlobalScope.Declarations {
				if declaration.Visibility() == ast.VisibilityPublic {
					scope.AddImported(declaration, false)
				}
			}
			continue
		}

		for _, module := range r.Registry.LibraryModules(imported.Library.ID) {
			if r.Registry.ModuleOperator(module.Name) != nativemodule.OperatorInvalid {
				// Operator modules are already implicitly imported
				continue
			}
			scope.AddImported(moduleDeclarationForNativeModule(module, nativemodule.OperatorInvalid), true)
		}
	}
}

// moduleDeclarationForNativeModule synthesizes a module declaration
// wrapping a registry entry. The return argument is excluded from the
// declared argument list.
func moduleDeclarationForNativeModule(module *nativemodule.Module, operator nativemodule.Operator) *ast.ModuleDecl {
	name := module.Name
	if operator != nativemodule.OperatorInvalid {
		name = nativemodule.OperatorModuleName(operator)
	}
	declaration := &ast.ModuleDecl{
		DeclName:       name,
		DeclVisibility: ast.VisibilityPublic,
		ReturnType:     ast.VoidType,
		IsNative:       true,
		NativeUID:      module.UID,
		NativeOperator: operator,
	}
	for index, argument := range module.Arguments {
		if index == module.ReturnArgumentIndex {
			declaration.ReturnType = astTypeFromNativeType(argument.Type)
			continue
		}
		direction := ast.DirectionIn
		if argument.Direction == nativemodule.DirectionOut {
			direction = ast.DirectionOut
		}
		declaration.Arguments = append(declaration.Arguments, &ast.ModuleArg{
			Name:      argument.Name,
			Direction: direction,
			Type:      astTypeFromNativeType(argument.Type),
		})
	}
	return declaration
}

func astTypeFromNativeType(nativeType nativemodule.QualifiedDataType) ast.QualifiedDataType {
	primitive := ast.PrimitiveReal
	switch nativeType.Primitive {
	case nativemodule.PrimitiveBool:
		primitive = ast.PrimitiveBool
	case nativemodule.PrimitiveString:
		primitive = ast.PrimitiveString
	}
	mutability := ast.MutabilityVariable
	switch nativeType.Mutability {
	case nativemodule.MutabilityDependentConstant:
		mutability = ast.MutabilityDependentConstant
	case nativemodule.MutabilityConstant:
		mutability = ast.MutabilityConstant
	}
	return ast.Qualified(primitive, nativeType.IsArray, mutability)
}
