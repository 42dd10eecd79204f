package variant

import (
	"github.com/viant/wavelang/compiler/ast"
	"github.com/viant/wavelang/compiler/diag"
	"github.com/viant/wavelang/execgraph"
	"github.com/viant/wavelang/nativemodule"
)

// callDepthLimit bounds script-module recursion during evaluation.
const callDepthLimit = 100

// Build evaluates the program with the given instrument globals
// substituted for their referenced constants and returns a fresh
// execution graph, or nil when evaluation reported errors.
func Build(sink *diag.Sink, registry *nativemodule.Registry, globals nativemodule.InstrumentGlobals, voice, fx *ast.ModuleDecl) *execgraph.Graph {
	e := &evaluator{
		sink:         sink,
		registry:     registry,
		globals:      globals,
		graph:        execgraph.New(registry),
		globalValues: map[*ast.ValueDecl]*value{},
		evaluating:   map[*ast.ValueDecl]bool{},
	}
	e.graph.SetGlobals(globals)

	outputIndex := 0
	var voiceOutputs []*value
	if voice != nil {
		voiceOutputs = e.callEntryPoint(voice, nil)
		for _, output := range voiceOutputs {
			if output == nil {
				return nil
			}
			outputNode := e.graph.AddOutputNode(outputIndex)
			e.graph.AddEdge(output.node, outputNode)
			outputIndex++
		}
	}
	if fx != nil {
		fxOutputs := e.callEntryPoint(fx, voiceOutputs)
		for _, output := range fxOutputs {
			if output == nil {
				return nil
			}
			outputNode := e.graph.AddOutputNode(outputIndex)
			e.graph.AddEdge(output.node, outputNode)
			outputIndex++
		}
	}

	if sink.ErrorCount() > 0 {
		return nil
	}
	if err := e.graph.Validate(); err != nil {
		sink.Errorf(diag.ErrorInvalidNativeModuleImplementation, nil,
			"Execution graph validation failed: %v", err)
		return nil
	}
	return e.graph
}

// value is one evaluated quantity: a scalar graph node or an array of
// element nodes.
type value struct {
	node     int
	elements []int
	isArray  bool
	isString bool
}

type frame struct {
	locals map[*ast.ValueDecl]*value
}

type controlFlow int

const (
	controlNormal controlFlow = iota
	controlReturn
	controlBreak
	controlContinue
)

type evaluator struct {
	sink     *diag.Sink
	registry *nativemodule.Registry
	globals  nativemodule.InstrumentGlobals
	graph    *execgraph.Graph

	depth        int
	globalValues map[*ast.ValueDecl]*value
	evaluating   map[*ast.ValueDecl]bool
}

// callEntryPoint invokes an entry point module, feeding its in
// arguments from the provided values and returning its out-argument
// values in declaration order.
func (e *evaluator) callEntryPoint(module *ast.ModuleDecl, inputs []*value) []*value {
	f := &frame{locals: map[*ast.ValueDecl]*value{}}
	inputIndex := 0
	for _, argument := range module.Arguments {
		if argument.Direction == ast.DirectionIn {
			if inputIndex < len(inputs) {
				f.locals[argument.Value] = inputs[inputIndex]
			}
			inputIndex++
		}
	}

	e.execScope(module.Body, f)

	var outputs []*value
	for _, argument := range module.Arguments {
		if argument.Direction != ast.DirectionOut {
			continue
		}
		output := f.locals[argument.Value]
		if output == nil {
			location := argument.Loc
			e.sink.Errorf(diag.ErrorUnassignedOutArgument, &location,
				"Out argument '%s' of entry point '%s' was never assigned",
				argument.Name, module.DeclName)
		}
		outputs = append(outputs, output)
	}
	return outputs
}

func (e *evaluator) execScope(scope *ast.Scope, f *frame) (controlFlow, *value) {
	for _, statement := range scope.Statements {
		control, result := e.execStatement(statement, f)
		if control != controlNormal {
			return control, result
		}
	}
	return controlNormal, nil
}

func (e *evaluator) execStatement(statement ast.Statement, f *frame) (controlFlow, *value) {
	switch s := statement.(type) {
	case *ast.ValueDeclStatement:
		if s.Value.Initializer != nil {
			f.locals[s.Value] = e.evalExpr(s.Value.Initializer, f)
		}

	case *ast.AssignmentStatement:
		e.assign(s.Target, e.evalExpr(s.Value, f), f)

	case *ast.ExprStatement:
		e.evalExpr(s.Expr, f)

	case *ast.ReturnStatement:
		var result *value
		if s.Value != nil {
			result = e.evalExpr(s.Value, f)
		}
		return controlReturn, result

	case *ast.IfStatement:
		condition := e.evalExpr(s.Condition, f)
		if condition == nil {
			return controlNormal, nil
		}
		taken, known := e.constantBool(condition)
		if !known {
			location := s.Loc
			e.sink.Errorf(diag.ErrorInvalidIfStatementDataType, &location,
				"If condition did not resolve to a constant")
			return controlNormal, nil
		}
		if taken {
			return e.execScope(s.Then, f)
		}
		switch elseStatement := s.Else.(type) {
		case *ast.ScopeStatement:
			return e.execScope(elseStatement.Scope, f)
		case *ast.IfStatement:
			return e.execStatement(elseStatement, f)
		}

	case *ast.ForStatement:
		rangeValue := e.evalExpr(s.Range, f)
		if rangeValue == nil || !rangeValue.isArray {
			return controlNormal, nil
		}
		for _, element := range rangeValue.elements {
			f.locals[s.Iterator] = &value{node: element}
			control, result := e.execScope(s.Body, f)
			if control == controlBreak {
				break
			}
			if control == controlReturn {
				return control, result
			}
		}

	case *ast.BreakStatement:
		return controlBreak, nil

	case *ast.ContinueStatement:
		return controlContinue, nil
	}
	return controlNormal, nil
}

func (e *evaluator) assign(target ast.Expression, result *value, f *frame) {
	if result == nil {
		return
	}
	switch t := target.(type) {
	case *ast.IdentifierExpr:
		if t.Value != nil {
			f.locals[t.Value] = result
		}
	case *ast.SubscriptExpr:
		array := e.evalExpr(t.Array, f)
		index, ok := e.constantIndex(t.Index, f)
		if array == nil || !ok {
			return
		}
		if index < 0 || index >= len(array.elements) {
			location := t.Loc
			e.sink.Errorf(diag.ErrorArrayIndexOutOfBounds, &location,
				"Array index %d out of bounds (length %d)", index, len(array.elements))
			return
		}
		array.elements[index] = result.node
	}
}

// constantBool reads a constant bool node's value.
func (e *evaluator) constantBool(v *value) (result, known bool) {
	if v.isArray || e.graph.NodeKindOf(v.node) != execgraph.NodeConstant ||
		e.graph.ConstantTypeOf(v.node) != execgraph.ConstantBool {
		return false, false
	}
	return e.graph.ConstantBoolValue(v.node), true
}

func (e *evaluator) constantIndex(expression ast.Expression, f *frame) (int, bool) {
	v := e.evalExpr(expression, f)
	if v == nil || v.isArray || e.graph.NodeKindOf(v.node) != execgraph.NodeConstant ||
		e.graph.ConstantTypeOf(v.node) != execgraph.ConstantReal {
		return 0, false
	}
	return int(e.graph.ConstantRealValue(v.node)), true
}

func (e *evaluator) evalExpr(expression ast.Expression, f *frame) *value {
	switch expr := expression.(type) {
	case *ast.LiteralExpr:
		switch expr.ExprType.Primitive {
		case ast.PrimitiveReal:
			return &value{node: e.graph.AddConstantReal(expr.RealValue)}
		case ast.PrimitiveBool:
			return &value{node: e.graph.AddConstantBool(expr.BoolValue)}
		case ast.PrimitiveString:
			return &value{node: e.graph.AddConstantString(expr.StringValue), isString: true}
		}
		return nil

	case *ast.IdentifierExpr:
		if expr.Value == nil {
			return nil
		}
		if local, ok := f.locals[expr.Value]; ok {
			return local
		}
		result := e.evalGlobalValue(expr.Value)
		if result == nil && expr.Value.Builtin == "" && expr.Value.Initializer == nil {
			location := expr.Loc
			e.sink.Errorf(diag.ErrorInvalidAssignment, &location,
				"Value '%s' is read before it is assigned", expr.Value.DeclName)
		}
		return result

	case *ast.ArrayExpr:
		result := &value{isArray: true}
		for _, element := range expr.Elements {
			elementValue := e.evalExpr(element, f)
			if elementValue == nil {
				return nil
			}
			result.elements = append(result.elements, elementValue.node)
		}
		return result

	case *ast.SubscriptExpr:
		array := e.evalExpr(expr.Array, f)
		index, ok := e.constantIndex(expr.Index, f)
		if array == nil || !ok {
			return nil
		}
		if index < 0 || index >= len(array.elements) {
			location := expr.Loc
			e.sink.Errorf(diag.ErrorArrayIndexOutOfBounds, &location,
				"Array index %d out of bounds (length %d)", index, len(array.elements))
			return nil
		}
		return &value{node: array.elements[index]}

	case *ast.CallExpr:
		return e.evalCall(expr, f)
	}
	return nil
}

// evalGlobalValue evaluates a global value lazily, memoizing the
// result and detecting self-referential constants. Builtin instrument
// globals are substituted from the variant's globals record.
func (e *evaluator) evalGlobalValue(declaration *ast.ValueDecl) *value {
	if declaration.Builtin != "" {
		var constant float32
		switch declaration.Builtin {
		case BuiltinSampleRate:
			constant = float32(e.globals.SampleRate)
		case BuiltinMaxVoices:
			constant = float32(e.globals.MaxVoices)
		case BuiltinChunkSize:
			constant = float32(e.globals.ChunkSize)
		}
		return &value{node: e.graph.AddConstantReal(constant)}
	}

	if memoized, ok := e.globalValues[declaration]; ok {
		return memoized
	}
	if e.evaluating[declaration] {
		declLocation := declaration.DeclLocation
		e.sink.Errorf(diag.ErrorSelfReferentialConstant, &declLocation,
			"Constant '%s' references itself", declaration.DeclName)
		return nil
	}
	if declaration.Initializer == nil {
		return nil
	}
	e.evaluating[declaration] = true
	result := e.evalExpr(declaration.Initializer, &frame{locals: map[*ast.ValueDecl]*value{}})
	delete(e.evaluating, declaration)
	e.globalValues[declaration] = result
	return result
}

func (e *evaluator) evalCall(call *ast.CallExpr, f *frame) *value {
	module := call.Callee

	// Evaluate provided in arguments, falling back to declared
	// initializers for omitted ones
	inValues := make([]*value, len(module.Arguments))
	for index, argument := range module.Arguments {
		if argument.Direction != ast.DirectionIn {
			continue
		}
		if call.Args[index] != nil {
			inValues[index] = e.evalExpr(call.Args[index], f)
		} else if argument.Initializer != nil {
			inValues[index] = e.evalExpr(argument.Initializer, &frame{locals: map[*ast.ValueDecl]*value{}})
		}
		if inValues[index] == nil {
			return nil
		}
	}

	var outValues []*value
	var result *value
	if module.IsNative {
		outValues, result = e.callNative(module, inValues, call)
	} else {
		outValues, result = e.callScript(module, inValues, call)
	}

	outIndex := 0
	for index, argument := range module.Arguments {
		if argument.Direction != ast.DirectionOut {
			continue
		}
		if call.OutTargets[index] != nil && outIndex < len(outValues) && outValues[outIndex] != nil {
			e.assign(call.OutTargets[index], outValues[outIndex], f)
		}
		outIndex++
	}
	return result
}

// callNative wires a native-module call node, folding it eagerly when
// every input is constant and a compile-time implementation exists.
func (e *evaluator) callNative(module *ast.ModuleDecl, inValues []*value, call *ast.CallExpr) ([]*value, *value) {
	native := e.registry.ModuleByUID(module.NativeUID)
	location := call.Loc

	allConstant := true
	for index, argument := range module.Arguments {
		if argument.Direction != ast.DirectionIn {
			continue
		}
		v := inValues[index]
		if v.isArray || e.graph.NodeKindOf(v.node) != execgraph.NodeConstant {
			allConstant = false
		}
	}

	if allConstant && native.CompileTime != nil {
		return e.foldNative(native, inValues)
	}

	for index, argument := range module.Arguments {
		if argument.Direction == ast.DirectionIn && inValues[index] != nil && inValues[index].isArray {
			e.sink.Errorf(diag.ErrorNativeModuleError, &location,
				"Native module '%s' cannot consume a non-constant array argument", module.DeclName)
			return nil, nil
		}
	}

	callNode := e.graph.AddNativeModuleCall(module.NativeUID)
	inSlot := 0
	for index, argument := range module.Arguments {
		if argument.Direction != ast.DirectionIn {
			continue
		}
		inputSlot := e.graph.Incoming(callNode, inSlot)
		e.graph.AddEdge(inValues[index].node, inputSlot)
		inSlot++
	}

	var outValues []*value
	var result *value
	outSlot := 0
	for formalIndex := range native.Arguments {
		if native.Arguments[formalIndex].Direction != nativemodule.DirectionOut {
			continue
		}
		outputValue := &value{node: e.graph.Outgoing(callNode, outSlot)}
		if formalIndex == native.ReturnArgumentIndex {
			result = outputValue
		} else {
			outValues = append(outValues, outputValue)
		}
		outSlot++
	}
	return outValues, result
}

// foldNative invokes a compile-time implementation over constant
// inputs and materializes constant result nodes directly. inValues is
// indexed by the wrapper declaration's argument order, which is the
// native formal order minus the return argument.
func (e *evaluator) foldNative(native *nativemodule.Module, inValues []*value) ([]*value, *value) {
	arguments := make([]*nativemodule.Value, len(native.Arguments))
	wrapperIndex := 0
	for formalIndex, formal := range native.Arguments {
		if formalIndex == native.ReturnArgumentIndex {
			arguments[formalIndex] = &nativemodule.Value{}
			continue
		}
		if formal.Direction == nativemodule.DirectionOut {
			arguments[formalIndex] = &nativemodule.Value{}
			wrapperIndex++
			continue
		}
		v := inValues[wrapperIndex]
		wrapperIndex++
		switch e.graph.ConstantTypeOf(v.node) {
		case execgraph.ConstantReal:
			arguments[formalIndex] = nativemodule.RealValue(e.graph.ConstantRealValue(v.node))
		case execgraph.ConstantBool:
			arguments[formalIndex] = nativemodule.BoolValue(e.graph.ConstantBoolValue(v.node))
		case execgraph.ConstantString:
			arguments[formalIndex] = nativemodule.StringValue(e.graph.ConstantStringValue(v.node))
		}
	}

	globals := e.globals
	native.CompileTime(&nativemodule.Context{
		Diagnostics: &sinkDiagnostics{sink: e.sink},
		Globals:     &globals,
	}, arguments)

	var outValues []*value
	var result *value
	for formalIndex, formal := range native.Arguments {
		if formal.Direction != nativemodule.DirectionOut {
			continue
		}
		var node int
		switch arguments[formalIndex].Kind {
		case nativemodule.ValueKindReal:
			node = e.graph.AddConstantReal(arguments[formalIndex].Real)
		case nativemodule.ValueKindBool:
			node = e.graph.AddConstantBool(arguments[formalIndex].Bool)
		case nativemodule.ValueKindString:
			node = e.graph.AddConstantString(arguments[formalIndex].String)
		default:
			e.sink.Errorf(diag.ErrorInvalidNativeModuleImplementation, nil,
				"Native module '%s' did not assign out argument '%s'", native.Name, formal.Name)
			node = e.graph.AddConstantReal(0)
		}
		outputValue := &value{node: node, isString: arguments[formalIndex].Kind == nativemodule.ValueKindString}
		if formalIndex == native.ReturnArgumentIndex {
			result = outputValue
		} else {
			outValues = append(outValues, outputValue)
		}
	}
	return outValues, result
}

// callScript evaluates a script module body in a fresh frame.
func (e *evaluator) callScript(module *ast.ModuleDecl, inValues []*value, call *ast.CallExpr) ([]*value, *value) {
	location := call.Loc
	if e.depth >= callDepthLimit {
		e.sink.Errorf(diag.ErrorModuleCallDepthLimitExceeded, &location,
			"Module call depth limit exceeded calling '%s'", module.DeclName)
		return nil, nil
	}
	e.depth++
	defer func() { e.depth-- }()

	f := &frame{locals: map[*ast.ValueDecl]*value{}}
	for index, argument := range module.Arguments {
		if argument.Direction == ast.DirectionIn {
			f.locals[argument.Value] = inValues[index]
		}
	}

	_, returnValue := e.execScope(module.Body, f)

	var outValues []*value
	for _, argument := range module.Arguments {
		if argument.Direction != ast.DirectionOut {
			continue
		}
		outputValue := f.locals[argument.Value]
		if outputValue == nil {
			argLocation := argument.Loc
			e.sink.Errorf(diag.ErrorUnassignedOutArgument, &argLocation,
				"Out argument '%s' of module '%s' was never assigned", argument.Name, module.DeclName)
		}
		outValues = append(outValues, outputValue)
	}
	return outValues, returnValue
}

// sinkDiagnostics adapts the sink for compile-time implementations.
type sinkDiagnostics struct {
	sink *diag.Sink
}

func (d *sinkDiagnostics) Messagef(format string, args ...interface{}) {
	d.sink.Messagef(nil, format, args...)
}

func (d *sinkDiagnostics) Warningf(format string, args ...interface{}) {
	d.sink.Warningf(diag.WarningNativeModuleWarning, nil, format, args...)
}

func (d *sinkDiagnostics) Errorf(format string, args ...interface{}) {
	d.sink.Errorf(diag.ErrorNativeModuleError, nil, format, args...)
}
