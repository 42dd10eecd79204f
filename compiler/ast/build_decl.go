package ast

import (
	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/compiler/grammar"
	"github.com/viant/wavelang/compiler/lexer"
	"github.com/viant/wavelang/nativemodule"
)

// BuildDeclarations runs the first AST pass over one source file:
// every namespace, module, and value declaration is registered into
// its lexical scope with its signature. Bodies and initializers are
// only recorded as parse-tree references for the definition pass.
func BuildDeclarations(sink *diag.Sink, unit *FileUnit, productions *grammar.Productions) {
	builder := &declBuilder{sink: sink, unit: unit, productions: productions}
	builder.run()
}

type declBuilder struct {
	sink        *diag.Sink
	unit        *FileUnit
	productions *grammar.Productions
}

func (b *declBuilder) run() {
	b.unit.GlobalScope = NewScope(nil)
	tree := b.unit.Tree
	if tree.RootIndex() == -1 {
		return
	}
	topItemList := tree.Children(tree.RootIndex())[0]
	items := grammar.FlattenList(tree, topItemList, b.productions.TopItemListAppend, -1)
	for _, item := range items {
		child := tree.Children(item)[0]
		switch tree.Node(child).ProductionIndex() {
		case b.productions.ModuleDecl:
			b.buildModule(b.unit.GlobalScope, child)
		case b.productions.NamespaceDecl:
			b.buildNamespace(b.unit.GlobalScope, child)
		case b.productions.GlobalValueDecl:
			b.buildGlobalValue(b.unit.GlobalScope, child)
		}
	}
}

func (b *declBuilder) buildDeclaration(scope *Scope, node int) {
	child := b.unit.Tree.Children(node)[0]
	switch b.unit.Tree.Node(child).ProductionIndex() {
	case b.productions.ModuleDecl:
		b.buildModule(scope, child)
	case b.productions.NamespaceDecl:
		b.buildNamespace(scope, child)
	case b.productions.GlobalValueDecl:
		b.buildGlobalValue(scope, child)
	}
}

func (b *declBuilder) visibility(node int) Visibility {
	if b.unit.Tree.Node(node).ProductionIndex() == b.productions.VisibilityPrivate {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

func (b *declBuilder) tokenAt(node int) *lexer.Token {
	return b.unit.Token(node)
}

// qualifiedType decodes a QualifiedType parse node and validates the
// qualifier combination.
func (b *declBuilder) qualifiedType(node int) QualifiedDataType {
	tree := b.unit.Tree
	children := tree.Children(node)

	mutability := MutabilityVariable
	switch tree.Node(children[0]).ProductionIndex() {
	case b.productions.MutabilityConstant:
		mutability = MutabilityConstant
	case b.productions.MutabilityDependent:
		mutability = MutabilityDependentConstant
	}

	primitive := PrimitiveInvalid
	primChild := tree.Children(children[1])[0]
	switch b.tokenAt(primChild).Kind {
	case lexer.KindKeywordReal:
		primitive = PrimitiveReal
	case lexer.KindKeywordBool:
		primitive = PrimitiveBool
	case lexer.KindKeywordString:
		primitive = PrimitiveString
	}

	upsample := 1
	if tree.Node(children[2]).ProductionIndex() == b.productions.UpsampleSome {
		literal := b.tokenAt(tree.Children(children[2])[1])
		value := int(literal.RealValue)
		if float32(value) != literal.RealValue || value < 1 {
			location := literal.Location
			b.sink.Errorf(diag.ErrorIllegalDataType, &location,
				"Upsample factor '%s' is not a positive integer", literal.Text)
			value = 1
		}
		upsample = value
	}

	isArray := tree.Node(children[3]).ProductionIndex() == b.productions.ArraySome

	result := QualifiedDataType{
		DataType:   DataType{Primitive: primitive, IsArray: isArray},
		Mutability: mutability,
		Upsample:   upsample,
	}
	if !result.IsLegal() {
		location := b.tokenAt(primChild).Location
		b.sink.Errorf(diag.ErrorIllegalDataType, &location, "Illegal data type '%s'", result.String())
	}
	return result
}

func (b *declBuilder) buildModule(scope *Scope, node int) {
	tree := b.unit.Tree
	children := tree.Children(node)
	nameToken := b.tokenAt(children[2])

	module := &ModuleDecl{
		DeclName:       nameToken.Text,
		DeclVisibility: b.visibility(children[0]),
		DeclLocation:   nameToken.Location,
		ReturnType:     VoidType,
		NativeUID:      nativemodule.InvalidUID,
		bodyNode:       children[7],
		unit:           b.unit,
		enclosing:      scope,
	}

	argListOpt := children[4]
	if tree.Node(argListOpt).ProductionIndex() == b.productions.ArgListOptSome {
		argNodes := grammar.FlattenList(tree, tree.Children(argListOpt)[0],
			b.productions.ArgListAppend, b.productions.ArgListSingle)
		seenOut := false
		for _, argNode := range argNodes {
			argChildren := tree.Children(argNode)
			direction := DirectionIn
			if tree.Node(argChildren[0]).ProductionIndex() == b.productions.DirectionOut {
				direction = DirectionOut
			}
			argType := b.qualifiedType(argChildren[1])
			argToken := b.tokenAt(argChildren[2])
			location := argToken.Location

			if direction == DirectionIn && seenOut {
				b.sink.Errorf(diag.ErrorIllegalArgumentOrdering, &location,
					"In argument '%s' follows an out argument", argToken.Text)
			}
			if direction == DirectionOut {
				seenOut = true
				if argType.Mutability == MutabilityConstant {
					b.sink.Errorf(diag.ErrorIllegalOutArgument, &location,
						"Out argument '%s' cannot be constant", argToken.Text)
				}
			}
			for _, existing := range module.Arguments {
				if existing.Name == argToken.Text {
					b.sink.Errorf(diag.ErrorDuplicateArgument, &location,
						"Duplicate argument '%s'", argToken.Text)
				}
			}

			argument := &ModuleArg{
				Name:            argToken.Text,
				Direction:       direction,
				Type:            argType,
				Loc:             location,
				initializerNode: -1,
			}
			if tree.Node(argChildren[3]).ProductionIndex() == b.productions.ArgInitSome {
				argument.initializerNode = tree.Children(argChildren[3])[1]
			}
			module.Arguments = append(module.Arguments, argument)
		}
	}

	returnTypeOpt := children[6]
	if tree.Node(returnTypeOpt).ProductionIndex() == b.productions.ReturnTypeSome {
		voidable := tree.Children(returnTypeOpt)[1]
		if tree.Node(voidable).ProductionIndex() == b.productions.VoidableTypeValue {
			module.ReturnType = b.qualifiedType(tree.Children(voidable)[0])
		}
	}

	for _, existing := range scope.LookupLocal(module.DeclName) {
		other, isModule := existing.(*ModuleDecl)
		if !isModule || other.OverloadKey() == module.OverloadKey() {
			location := module.DeclLocation
			b.sink.Errorf(diag.ErrorDeclarationConflict, &location,
				"Declaration '%s' conflicts with an existing declaration", module.DeclName)
			return
		}
	}
	scope.AddDeclaration(module)
}

func (b *declBuilder) buildNamespace(scope *Scope, node int) {
	tree := b.unit.Tree
	children := tree.Children(node)
	nameToken := b.tokenAt(children[2])

	var namespace *NamespaceDecl
	for _, existing := range scope.LookupLocal(nameToken.Text) {
		if found, ok := existing.(*NamespaceDecl); ok {
			namespace = found
			break
		}
		location := nameToken.Location
		b.sink.Errorf(diag.ErrorDeclarationConflict, &location,
			"Declaration '%s' conflicts with an existing declaration", nameToken.Text)
		return
	}
	if namespace == nil {
		namespace = &NamespaceDecl{
			DeclName:       nameToken.Text,
			DeclVisibility: b.visibility(children[0]),
			DeclLocation:   nameToken.Location,
			Scope:          NewScope(scope),
		}
		scope.AddDeclaration(namespace)
	}

	declarations := grammar.FlattenList(tree, children[4], b.productions.DeclListAppend, -1)
	for _, declaration := range declarations {
		b.buildDeclaration(namespace.Scope, declaration)
	}
}

func (b *declBuilder) buildGlobalValue(scope *Scope, node int) {
	tree := b.unit.Tree
	children := tree.Children(node)
	valueType := b.qualifiedType(children[1])
	nameToken := b.tokenAt(children[2])
	location := nameToken.Location

	if valueType.Mutability != MutabilityConstant {
		b.sink.Errorf(diag.ErrorIllegalGlobalScopeValueDataType, &location,
			"Global value '%s' must be constant", nameToken.Text)
	}

	value := &ValueDecl{
		DeclName:        nameToken.Text,
		DeclVisibility:  b.visibility(children[0]),
		DeclLocation:    location,
		Type:            valueType,
		initializerNode: -1,
		unit:            b.unit,
		enclosing:       scope,
	}
	if tree.Node(children[3]).ProductionIndex() == b.productions.ValueInitSome {
		value.initializerNode = tree.Children(children[3])[1]
	} else {
		b.sink.Errorf(diag.ErrorMissingGlobalScopeValueInitializer, &location,
			"Global value '%s' requires an initializer", nameToken.Text)
	}

	if len(scope.LookupLocal(value.DeclName)) > 0 {
		b.sink.Errorf(diag.ErrorDeclarationConflict, &location,
			"Declaration '%s' conflicts with an existing declaration", value.DeclName)
		return
	}
	scope.AddDeclaration(value)
}
