package ast

import (
	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/compiler/grammar"
	"github.com/viant/wavelang/compiler/source"
	"github.com/viant/wavelang/nativemodule"
)

// BuildDefinitions runs the second AST pass over one source file,
// after imports have been materialized: global value initializers and
// module bodies are built, identifiers resolved, expressions and
// statements type-checked, and module-call overloads resolved.
func BuildDefinitions(sink *diag.Sink, unit *FileUnit, registry *nativemodule.Registry, productions *grammar.Productions) {
	builder := &defBuilder{sink: sink, unit: unit, registry: registry, productions: productions}
	builder.buildScopeDeclarations(unit.GlobalScope)
}

type defBuilder struct {
	sink        *diag.Sink
	unit        *FileUnit
	registry    *nativemodule.Registry
	productions *grammar.Productions

	module    *ModuleDecl
	loopDepth int
}

func (b *defBuilder) buildScopeDeclarations(scope *Scope) {
	for _, declaration := range scope.Declarations {
		switch decl := declaration.(type) {
		case *NamespaceDecl:
			b.buildScopeDeclarations(decl.Scope)
		case *ValueDecl:
			if decl.initializerNode >= 0 && decl.Initializer == nil {
				decl.Initializer = b.buildValueExpr(decl.enclosing, decl.initializerNode)
				b.checkAssignable(decl.Initializer, decl.Type, decl.DeclLocation)
			}
		case *ModuleDecl:
			if !decl.IsNative {
				b.buildModuleDefinition(decl)
			}
		}
	}
}

func (b *defBuilder) buildModuleDefinition(module *ModuleDecl) {
	b.module = module
	b.loopDepth = 0

	body := NewScope(module.enclosing)
	for _, argument := range module.Arguments {
		if argument.initializerNode >= 0 {
			argument.Initializer = b.buildValueExpr(module.enclosing, argument.initializerNode)
			if argument.Direction == DirectionIn {
				b.checkAssignable(argument.Initializer, argument.Type, argument.Loc)
			}
		}
		argument.Value = &ValueDecl{
			DeclName:        argument.Name,
			DeclVisibility:  VisibilityPrivate,
			DeclLocation:    argument.Loc,
			Type:            argument.Type,
			initializerNode: -1,
			unit:            b.unit,
			enclosing:       body,
		}
		body.AddDeclaration(argument.Value)
	}

	tree := b.unit.Tree
	statements := grammar.FlattenList(tree, tree.Children(module.bodyNode)[1],
		b.productions.StmtListAppend, -1)
	b.buildStatements(body, statements)
	module.Body = body

	if !module.ReturnType.IsVoid() {
		hasReturn := false
		for _, statement := range body.Statements {
			if _, ok := statement.(*ReturnStatement); ok {
				hasReturn = true
			}
		}
		if !hasReturn {
			location := module.DeclLocation
			b.sink.Errorf(diag.ErrorMissingReturnStatement, &location,
				"Module '%s' is missing a return statement", module.DeclName)
		}
	}
	b.module = nil
}

func (b *defBuilder) buildStatements(scope *Scope, statementNodes []int) {
	for _, node := range statementNodes {
		if statement := b.buildStatement(scope, node); statement != nil {
			scope.Statements = append(scope.Statements, statement)
		}
	}
}

func (b *defBuilder) buildStatement(scope *Scope, node int) Statement {
	tree := b.unit.Tree
	children := tree.Children(node)
	switch tree.Node(node).ProductionIndex() {
	case b.productions.StmtValueDecl:
		return b.buildValueDeclStatement(scope, children)

	case b.productions.StmtAssign:
		target := b.buildValueExpr(scope, children[0])
		value := b.buildValueExpr(scope, children[2])
		b.checkAssignmentTarget(target)
		b.checkAssignable(value, target.Type(), target.Location())
		return &AssignmentStatement{Loc: target.Location(), Target: target, Value: value}

	case b.productions.StmtExpr:
		expression := b.buildValueExprAllowVoid(scope, children[0])
		return &ExprStatement{Loc: expression.Location(), Expr: expression}

	case b.productions.StmtReturn:
		return b.buildReturnStatement(scope, children)

	case b.productions.StmtIf:
		return b.buildIfStatement(scope, children[0])

	case b.productions.StmtFor:
		return b.buildForStatement(scope, children[0])

	case b.productions.StmtBreak:
		location := b.unit.Token(children[0]).Location
		if b.loopDepth == 0 {
			b.sink.Errorf(diag.ErrorIllegalBreakStatement, &location, "Break outside of a loop")
		}
		return &BreakStatement{Loc: location}

	case b.productions.StmtContinue:
		location := b.unit.Token(children[0]).Location
		if b.loopDepth == 0 {
			b.sink.Errorf(diag.ErrorIllegalContinueStatement, &location, "Continue outside of a loop")
		}
		return &ContinueStatement{Loc: location}
	}
	return nil
}

func (b *defBuilder) buildValueDeclStatement(scope *Scope, children []int) Statement {
	tree := b.unit.Tree
	declBuilderPass := &declBuilder{sink: b.sink, unit: b.unit, productions: b.productions}
	valueType := declBuilderPass.qualifiedType(children[0])
	nameToken := b.unit.Token(children[1])
	location := nameToken.Location

	if len(scope.LookupLocal(nameToken.Text)) > 0 {
		b.sink.Errorf(diag.ErrorDeclarationConflict, &location,
			"Declaration '%s' conflicts with an existing declaration", nameToken.Text)
	}

	value := &ValueDecl{
		DeclName:        nameToken.Text,
		DeclVisibility:  VisibilityPrivate,
		DeclLocation:    location,
		Type:            valueType,
		initializerNode: -1,
		unit:            b.unit,
		enclosing:       scope,
	}
	if tree.Node(children[2]).ProductionIndex() == b.productions.ValueInitSome {
		value.Initializer = b.buildValueExpr(scope, tree.Children(children[2])[1])
		b.checkAssignable(value.Initializer, valueType, location)
	}
	scope.AddDeclaration(value)
	return &ValueDeclStatement{Loc: location, Value: value}
}

func (b *defBuilder) buildReturnStatement(scope *Scope, children []int) Statement {
	tree := b.unit.Tree
	location := b.unit.Token(children[0]).Location
	statement := &ReturnStatement{Loc: location}
	exprOpt := children[1]
	hasValue := tree.Node(exprOpt).ProductionIndex() == b.productions.ExprOptSome
	if b.module.ReturnType.IsVoid() {
		if hasValue {
			b.sink.Errorf(diag.ErrorReturnTypeMismatch, &location,
				"Module '%s' does not return a value", b.module.DeclName)
		}
		return statement
	}
	if !hasValue {
		b.sink.Errorf(diag.ErrorReturnTypeMismatch, &location,
			"Module '%s' must return a value of type '%s'", b.module.DeclName, b.module.ReturnType.String())
		return statement
	}
	statement.Value = b.buildValueExpr(scope, tree.Children(exprOpt)[0])
	if valid(statement.Value) && !statement.Value.Type().IsAssignableTo(b.module.ReturnType) {
		b.sink.Errorf(diag.ErrorReturnTypeMismatch, &location,
			"Cannot return '%s' from module returning '%s'",
			statement.Value.Type().String(), b.module.ReturnType.String())
	}
	return statement
}

func (b *defBuilder) buildIfStatement(scope *Scope, node int) Statement {
	tree := b.unit.Tree
	children := tree.Children(node)
	location := b.unit.Token(children[0]).Location

	condition := b.buildValueExpr(scope, children[2])
	if valid(condition) {
		conditionType := condition.Type()
		if conditionType.Primitive != PrimitiveBool || conditionType.IsArray ||
			conditionType.Mutability != MutabilityConstant {
			b.sink.Errorf(diag.ErrorInvalidIfStatementDataType, &location,
				"If condition must be 'const bool', not '%s'", conditionType.String())
		}
	}

	thenScope := NewScope(scope)
	b.buildStatements(thenScope, grammar.FlattenList(tree, tree.Children(children[4])[1],
		b.productions.StmtListAppend, -1))

	statement := &IfStatement{Loc: location, Condition: condition, Then: thenScope}
	elseOpt := children[5]
	switch tree.Node(elseOpt).ProductionIndex() {
	case b.productions.ElseScope:
		elseScope := NewScope(scope)
		b.buildStatements(elseScope, grammar.FlattenList(tree,
			tree.Children(tree.Children(elseOpt)[1])[1], b.productions.StmtListAppend, -1))
		statement.Else = &ScopeStatement{Loc: location, Scope: elseScope}
	case b.productions.ElseIf:
		statement.Else = b.buildIfStatement(scope, tree.Children(elseOpt)[1])
	}
	return statement
}

func (b *defBuilder) buildForStatement(scope *Scope, node int) Statement {
	tree := b.unit.Tree
	children := tree.Children(node)
	location := b.unit.Token(children[0]).Location

	declBuilderPass := &declBuilder{sink: b.sink, unit: b.unit, productions: b.productions}
	iteratorType := declBuilderPass.qualifiedType(children[2])
	nameToken := b.unit.Token(children[3])

	rangeExpr := b.buildValueExpr(scope, children[5])
	if valid(rangeExpr) {
		rangeType := rangeExpr.Type()
		if !rangeType.IsArray {
			b.sink.Errorf(diag.ErrorIllegalForLoopRangeType, &location,
				"For loop range must be an array, not '%s'", rangeType.String())
		} else if !rangeType.ElementType().IsAssignableTo(iteratorType) {
			b.sink.Errorf(diag.ErrorIllegalForLoopRangeType, &location,
				"For loop range elements '%s' do not match iterator '%s'",
				rangeType.ElementType().String(), iteratorType.String())
		}
	}

	body := NewScope(scope)
	iterator := &ValueDecl{
		DeclName:        nameToken.Text,
		DeclVisibility:  VisibilityPrivate,
		DeclLocation:    nameToken.Location,
		Type:            iteratorType,
		initializerNode: -1,
		unit:            b.unit,
		enclosing:       body,
	}
	body.AddDeclaration(iterator)

	b.loopDepth++
	b.buildStatements(body, grammar.FlattenList(tree, tree.Children(children[7])[1],
		b.productions.StmtListAppend, -1))
	b.loopDepth--

	return &ForStatement{Loc: location, Iterator: iterator, Range: rangeExpr, Body: body}
}

// Expression building.

var invalidType = QualifiedDataType{}

func valid(expression Expression) bool {
	return expression != nil && expression.Type().Primitive != PrimitiveInvalid
}

// buildValueExpr builds an expression that must yield a value.
func (b *defBuilder) buildValueExpr(scope *Scope, node int) Expression {
	expression := b.buildExpr(scope, node)
	return b.requireValue(expression, false)
}

// buildValueExprAllowVoid builds an expression statement, which may be
// a void module call.
func (b *defBuilder) buildValueExprAllowVoid(scope *Scope, node int) Expression {
	expression := b.buildExpr(scope, node)
	return b.requireValue(expression, true)
}

func (b *defBuilder) requireValue(expression Expression, allowVoid bool) Expression {
	if identifier, ok := expression.(*IdentifierExpr); ok && identifier.Value == nil {
		if len(identifier.Modules) > 0 {
			location := identifier.Loc
			b.sink.Errorf(diag.ErrorIdentifierResolutionNotAllowed, &location,
				"Module '%s' cannot be used as a value", identifier.Components[len(identifier.Components)-1])
		}
		return expression
	}
	if !allowVoid {
		if call, ok := expression.(*CallExpr); ok && call.Callee != nil && call.ExprType.IsVoid() {
			location := call.Loc
			b.sink.Errorf(diag.ErrorTypeMismatch, &location,
				"Module '%s' does not return a value", call.Callee.DeclName)
		}
	}
	return expression
}

func (b *defBuilder) buildExpr(scope *Scope, node int) Expression {
	tree := b.unit.Tree
	production := tree.Node(node).ProductionIndex()
	children := tree.Children(node)
	p := b.productions

	switch production {
	case p.Expr, p.OrExprPass, p.AndExprPass, p.EqExprPass, p.RelExprPass,
		p.AddExprPass, p.MulExprPass, p.UnaryExprPass, p.PostfixPass:
		return b.buildExpr(scope, children[0])

	case p.OrExprOr:
		return b.buildOperatorCall(scope, nativemodule.OperatorOr, children[1], children[0], children[2])
	case p.AndExprAnd:
		return b.buildOperatorCall(scope, nativemodule.OperatorAnd, children[1], children[0], children[2])
	case p.EqExprEqual:
		return b.buildOperatorCall(scope, nativemodule.OperatorEqual, children[1], children[0], children[2])
	case p.EqExprNotEqual:
		return b.buildOperatorCall(scope, nativemodule.OperatorNotEqual, children[1], children[0], children[2])
	case p.RelExprLess:
		return b.buildOperatorCall(scope, nativemodule.OperatorLess, children[1], children[0], children[2])
	case p.RelExprGreater:
		return b.buildOperatorCall(scope, nativemodule.OperatorGreater, children[1], children[0], children[2])
	case p.RelExprLessEq:
		return b.buildOperatorCall(scope, nativemodule.OperatorLessEqual, children[1], children[0], children[2])
	case p.RelExprGreatEq:
		return b.buildOperatorCall(scope, nativemodule.OperatorGreaterEqual, children[1], children[0], children[2])
	case p.AddExprAdd:
		return b.buildOperatorCall(scope, nativemodule.OperatorAddition, children[1], children[0], children[2])
	case p.AddExprSub:
		return b.buildOperatorCall(scope, nativemodule.OperatorSubtraction, children[1], children[0], children[2])
	case p.MulExprMul:
		return b.buildOperatorCall(scope, nativemodule.OperatorMultiplication, children[1], children[0], children[2])
	case p.MulExprDiv:
		return b.buildOperatorCall(scope, nativemodule.OperatorDivision, children[1], children[0], children[2])
	case p.MulExprMod:
		return b.buildOperatorCall(scope, nativemodule.OperatorModulo, children[1], children[0], children[2])
	case p.UnaryExprNeg:
		return b.buildOperatorCall(scope, nativemodule.OperatorNegation, children[0], children[1])
	case p.UnaryExprNot:
		return b.buildOperatorCall(scope, nativemodule.OperatorNot, children[0], children[1])

	case p.PrimaryReal:
		token := b.unit.Token(children[0])
		return &LiteralExpr{
			ExprType:  Qualified(PrimitiveReal, false, MutabilityConstant),
			Loc:       token.Location,
			RealValue: token.RealValue,
		}
	case p.PrimaryBool:
		token := b.unit.Token(children[0])
		return &LiteralExpr{
			ExprType:  Qualified(PrimitiveBool, false, MutabilityConstant),
			Loc:       token.Location,
			BoolValue: token.BoolValue,
		}
	case p.PrimaryString:
		token := b.unit.Token(children[0])
		return &LiteralExpr{
			ExprType:    Qualified(PrimitiveString, false, MutabilityConstant),
			Loc:         token.Location,
			StringValue: token.StringValue(),
		}

	case p.PrimaryParen:
		return b.buildExpr(scope, children[1])

	case p.PrimaryArray:
		return b.buildArrayLiteral(scope, node, children[1])

	case p.PrimaryName:
		return b.resolveNameRef(scope, children[0])

	case p.PostfixSubscript:
		return b.buildSubscript(scope, children)

	case p.PostfixCall:
		return b.buildCall(scope, children)
	}
	return &LiteralExpr{ExprType: invalidType}
}

func (b *defBuilder) buildArrayLiteral(scope *Scope, node, argListOpt int) Expression {
	tree := b.unit.Tree
	var elements []Expression
	location := source.Location{File: b.unit.Handle}
	if tree.Node(argListOpt).ProductionIndex() == b.productions.CallArgListOptSome {
		argNodes := grammar.FlattenList(tree, tree.Children(argListOpt)[0],
			b.productions.CallArgListAppend, b.productions.CallArgListSingle)
		for _, argNode := range argNodes {
			if tree.Node(argNode).ProductionIndex() != b.productions.CallArgExpr {
				b.sink.Errorf(diag.ErrorInvalidNamedArgument, &location,
					"Array elements cannot be named or out arguments")
				continue
			}
			elements = append(elements, b.buildValueExpr(scope, tree.Children(argNode)[0]))
		}
	}

	result := &ArrayExpr{Loc: location, Elements: elements}
	if len(elements) == 0 {
		result.ExprType = QualifiedDataType{
			DataType:   DataType{Primitive: PrimitiveInvalid, IsArray: true},
			Mutability: MutabilityConstant,
			Upsample:   1,
		}
		return result
	}

	elementType := invalidType
	mutability := MutabilityConstant
	upsample := 1
	for _, element := range elements {
		if !valid(element) {
			return result
		}
		t := element.Type()
		if t.IsArray {
			b.sink.Errorf(diag.ErrorInconsistentArrayElementDataTypes, &location,
				"Nested arrays are not supported")
			return result
		}
		if elementType.Primitive == PrimitiveInvalid {
			elementType = t
			upsample = t.Upsample
		} else if elementType.DataType != t.DataType {
			b.sink.Errorf(diag.ErrorInconsistentArrayElementDataTypes, &location,
				"Inconsistent array element types '%s' and '%s'", elementType.String(), t.String())
			return result
		}
		if t.Mutability < mutability {
			mutability = t.Mutability
		}
		if t.Mutability != MutabilityConstant {
			upsample = t.Upsample
		}
	}
	result.ExprType = QualifiedDataType{
		DataType:   DataType{Primitive: elementType.Primitive, IsArray: true},
		Mutability: mutability,
		Upsample:   upsample,
	}
	return result
}

// resolveNameRef resolves a dotted name through scopes and namespaces.
func (b *defBuilder) resolveNameRef(scope *Scope, nameRefNode int) Expression {
	tree := b.unit.Tree
	componentNodes := grammar.FlattenList(tree, nameRefNode,
		b.productions.NameRefAppend, b.productions.NameRefSingle)
	var components []string
	for _, componentNode := range componentNodes {
		components = append(components, b.unit.Token(componentNode).Text)
	}
	location := b.unit.Token(componentNodes[0]).Location

	result := &IdentifierExpr{Components: components, Loc: location}
	declarations := scope.Lookup(components[0])
	for _, component := range components[1:] {
		var next []Declaration
		for _, declaration := range declarations {
			if namespace, ok := declaration.(*NamespaceDecl); ok {
				next = append(next, namespace.Scope.LookupLocal(component)...)
			}
		}
		declarations = next
	}

	if len(declarations) == 0 {
		b.sink.Errorf(diag.ErrorIdentifierResolutionFailed, &location,
			"Failed to resolve identifier '%s'", components[len(components)-1])
		return result
	}

	var values []*ValueDecl
	for _, declaration := range declarations {
		switch decl := declaration.(type) {
		case *ValueDecl:
			values = append(values, decl)
		case *ModuleDecl:
			result.Modules = append(result.Modules, decl)
		}
	}
	if len(values) > 1 {
		b.sink.Errorf(diag.ErrorAmbiguousIdentifierResolution, &location,
			"Identifier '%s' is ambiguous", components[len(components)-1])
	}
	if len(values) >= 1 {
		result.Value = values[0]
	}
	return result
}

func (b *defBuilder) buildSubscript(scope *Scope, children []int) Expression {
	array := b.buildValueExpr(scope, children[0])
	index := b.buildValueExpr(scope, children[2])
	location := array.Location()

	result := &SubscriptExpr{Loc: location, Array: array, Index: index, ExprType: invalidType}
	if !valid(array) || !valid(index) {
		return result
	}
	if !array.Type().IsArray {
		b.sink.Errorf(diag.ErrorTypeMismatch, &location,
			"Cannot subscript non-array type '%s'", array.Type().String())
		return result
	}
	indexType := index.Type()
	if indexType.Primitive != PrimitiveReal || indexType.IsArray || indexType.Mutability != MutabilityConstant {
		b.sink.Errorf(diag.ErrorTypeMismatch, &location,
			"Array subscript must be 'const real', not '%s'", indexType.String())
		return result
	}
	result.ExprType = array.Type().ElementType()
	return result
}

// buildOperatorCall lowers an operator expression to a call of the
// native module bound to the operator.
func (b *defBuilder) buildOperatorCall(scope *Scope, operator nativemodule.Operator, opNode int, operandNodes ...int) Expression {
	location := b.unit.Token(opNode).Location
	var arguments []*CallArg
	for _, operandNode := range operandNodes {
		arguments = append(arguments, &CallArg{Value: b.buildValueExpr(scope, operandNode)})
	}

	moduleName := b.registry.OperatorModule(operator)
	var candidates []*ModuleDecl
	for _, declaration := range b.unit.GlobalScope.Lookup(moduleName) {
		if module, ok := declaration.(*ModuleDecl); ok {
			candidates = append(candidates, module)
		}
	}
	return b.resolveCall(candidates, arguments, location)
}

func (b *defBuilder) buildCall(scope *Scope, children []int) Expression {
	tree := b.unit.Tree
	callee := b.buildExpr(scope, children[0])
	identifier, ok := callee.(*IdentifierExpr)
	if !ok || (identifier.Value != nil && len(identifier.Modules) == 0) {
		location := callee.Location()
		b.sink.Errorf(diag.ErrorNotCallableType, &location, "Expression is not callable")
		return &LiteralExpr{ExprType: invalidType, Loc: location}
	}
	location := identifier.Loc

	var arguments []*CallArg
	argListOpt := children[2]
	if tree.Node(argListOpt).ProductionIndex() == b.productions.CallArgListOptSome {
		argNodes := grammar.FlattenList(tree, tree.Children(argListOpt)[0],
			b.productions.CallArgListAppend, b.productions.CallArgListSingle)
		for _, argNode := range argNodes {
			argChildren := tree.Children(argNode)
			argument := &CallArg{}
			switch tree.Node(argNode).ProductionIndex() {
			case b.productions.CallArgExpr:
				argument.Value = b.buildValueExpr(scope, argChildren[0])
			case b.productions.CallArgNamed:
				argument.Name = b.unit.Token(argChildren[0]).Text
				argument.Value = b.buildValueExpr(scope, argChildren[2])
			case b.productions.CallArgOut:
				argument.Out = true
				argument.Value = b.buildValueExpr(scope, argChildren[1])
			case b.productions.CallArgNamedOut:
				argument.Name = b.unit.Token(argChildren[0]).Text
				argument.Out = true
				argument.Value = b.buildValueExpr(scope, argChildren[3])
			}
			arguments = append(arguments, argument)
		}
	}

	if len(identifier.Modules) == 0 {
		b.sink.Errorf(diag.ErrorNotCallableType, &location, "Expression is not callable")
		return &LiteralExpr{ExprType: invalidType, Loc: location}
	}
	return b.resolveCall(identifier.Modules, arguments, location)
}

// callBindFailure records why a candidate did not bind.
type callBindFailure struct {
	code    diag.Error
	message string
}

// bindCallArguments maps provided arguments to a candidate's formals,
// checking names, duplicates, counts, and directions. Types are not
// considered here.
func bindCallArguments(candidate *ModuleDecl, arguments []*CallArg) ([]Expression, []Expression, *callBindFailure) {
	formals := candidate.Arguments
	values := make([]Expression, len(formals))
	outTargets := make([]Expression, len(formals))
	bound := make([]bool, len(formals))

	nextPositional := 0
	for _, argument := range arguments {
		formalIndex := -1
		if argument.Name == "" {
			for nextPositional < len(formals) && bound[nextPositional] {
				nextPositional++
			}
			if nextPositional >= len(formals) {
				return nil, nil, &callBindFailure{diag.ErrorTooManyArgumentsProvided, "too many arguments"}
			}
			formalIndex = nextPositional
		} else {
			for index, formal := range formals {
				if formal.Name == argument.Name {
					formalIndex = index
					break
				}
			}
			if formalIndex < 0 {
				return nil, nil, &callBindFailure{diag.ErrorInvalidNamedArgument,
					"unknown named argument '" + argument.Name + "'"}
			}
			if bound[formalIndex] {
				return nil, nil, &callBindFailure{diag.ErrorDuplicateArgumentProvided,
					"argument '" + argument.Name + "' provided twice"}
			}
		}

		formal := formals[formalIndex]
		if argument.Out != (formal.Direction == DirectionOut) {
			return nil, nil, &callBindFailure{diag.ErrorArgumentDirectionMismatch,
				"argument '" + formal.Name + "' direction mismatch"}
		}
		bound[formalIndex] = true
		if argument.Out {
			outTargets[formalIndex] = argument.Value
		} else {
			values[formalIndex] = argument.Value
		}
	}

	for index, formal := range formals {
		if bound[index] {
			continue
		}
		if formal.Direction == DirectionIn && formal.Initializer == nil && formal.initializerNode <= 0 {
			return nil, nil, &callBindFailure{diag.ErrorMissingArgument,
				"missing argument '" + formal.Name + "'"}
		}
	}
	return values, outTargets, nil
}

// resolveCall performs overload resolution by argument types only,
// then checks qualifiers against the selected candidate.
func (b *defBuilder) resolveCall(candidates []*ModuleDecl, arguments []*CallArg, location source.Location) Expression {
	type boundCandidate struct {
		module     *ModuleDecl
		values     []Expression
		outTargets []Expression
	}
	var bound []boundCandidate
	var lastFailure *callBindFailure

	for _, candidate := range candidates {
		values, outTargets, failure := bindCallArguments(candidate, arguments)
		if failure != nil {
			lastFailure = failure
			continue
		}
		matches := true
		for index, formal := range candidate.Arguments {
			provided := values[index]
			if provided == nil || !valid(provided) {
				continue
			}
			if provided.Type().DataType != formal.Type.DataType {
				if array, isArray := provided.(*ArrayExpr); isArray && len(array.Elements) == 0 && formal.Type.IsArray {
					continue
				}
				matches = false
				break
			}
		}
		if matches {
			bound = append(bound, boundCandidate{module: candidate, values: values, outTargets: outTargets})
		}
	}

	if len(bound) == 0 {
		if len(candidates) == 1 && lastFailure != nil {
			b.sink.Errorf(lastFailure.code, &location, "Cannot call module '%s': %s",
				candidates[0].DeclName, lastFailure.message)
		} else {
			b.sink.Errorf(diag.ErrorEmptyModuleOverloadResolution, &location,
				"No overload matches the provided arguments")
		}
		return &LiteralExpr{ExprType: invalidType, Loc: location}
	}
	if len(bound) > 1 {
		b.sink.Errorf(diag.ErrorAmbiguousModuleOverloadResolution, &location,
			"Call to '%s' is ambiguous", bound[0].module.DeclName)
		return &LiteralExpr{ExprType: invalidType, Loc: location}
	}

	selected := bound[0]
	minMutability := MutabilityConstant
	for index, formal := range selected.module.Arguments {
		if formal.Direction == DirectionIn {
			provided := selected.values[index]
			if provided != nil && valid(provided) {
				b.checkAssignable(provided, formal.Type, location)
				if provided.Type().Mutability < minMutability {
					minMutability = provided.Type().Mutability
				}
			}
			continue
		}
		target := selected.outTargets[index]
		if target == nil {
			continue
		}
		b.checkOutArgumentTarget(target)
		if valid(target) && !formal.Type.WithMutability(MutabilityVariable).IsAssignableTo(target.Type()) &&
			!formal.Type.IsAssignableTo(target.Type()) {
			b.sink.Errorf(diag.ErrorTypeMismatch, &location,
				"Out argument '%s' of type '%s' cannot be stored into '%s'",
				formal.Name, formal.Type.String(), target.Type().String())
		}
	}

	resultType := selected.module.ReturnType
	if resultType.Mutability == MutabilityDependentConstant {
		resultType = resultType.WithMutability(minMutability)
	}
	return &CallExpr{
		ExprType:   resultType,
		Loc:        location,
		Callee:     selected.module,
		Args:       selected.values,
		OutTargets: selected.outTargets,
	}
}

// checkAssignmentTarget validates an assignment lvalue.
func (b *defBuilder) checkAssignmentTarget(target Expression) {
	location := target.Location()
	switch expr := target.(type) {
	case *IdentifierExpr:
		if expr.Value == nil {
			return
		}
		if expr.Value.Type.Mutability == MutabilityConstant && expr.Value.Initializer != nil {
			b.sink.Errorf(diag.ErrorInvalidAssignment, &location,
				"Cannot assign to constant '%s'", expr.Value.DeclName)
		}
	case *SubscriptExpr:
		if valid(expr.Array) && expr.Array.Type().Mutability == MutabilityVariable {
			b.sink.Errorf(diag.ErrorIllegalVariableSubscriptAssignment, &location,
				"Cannot assign to a subscript of a variable array")
		}
	default:
		b.sink.Errorf(diag.ErrorInvalidAssignment, &location, "Expression is not assignable")
	}
}

// checkOutArgumentTarget validates an out-argument target: a directly
// assignable lvalue, never a subscript into a variable.
func (b *defBuilder) checkOutArgumentTarget(target Expression) {
	location := target.Location()
	switch expr := target.(type) {
	case *IdentifierExpr:
		if expr.Value != nil && expr.Value.Type.Mutability == MutabilityConstant {
			b.sink.Errorf(diag.ErrorInvalidOutArgument, &location,
				"Out argument target '%s' is constant", expr.Value.DeclName)
		}
	case *SubscriptExpr:
		b.sink.Errorf(diag.ErrorInvalidOutArgument, &location,
			"Out argument target cannot be a subscript")
	default:
		b.sink.Errorf(diag.ErrorInvalidOutArgument, &location,
			"Out argument target is not assignable")
	}
}

func (b *defBuilder) checkAssignable(value Expression, target QualifiedDataType, location source.Location) {
	if value == nil || !valid(value) || target.Primitive == PrimitiveInvalid {
		return
	}
	if array, ok := value.(*ArrayExpr); ok && len(array.Elements) == 0 && target.IsArray {
		return
	}
	valueType := value.Type()
	if valueType.DataType != target.DataType {
		b.sink.Errorf(diag.ErrorTypeMismatch, &location,
			"Cannot assign '%s' to '%s'", valueType.String(), target.String())
		return
	}
	if !valueType.IsAssignableTo(target) {
		b.sink.Errorf(diag.ErrorIllegalTypeConversion, &location,
			"Cannot convert '%s' to '%s'", valueType.String(), target.String())
	}
}
